package ultrastik

import (
	"context"
	"fmt"
	"io"

	"github.com/ardnew/setu360/host"
	"github.com/ardnew/setu360/host/hal"
	"github.com/ardnew/setu360/pkg"
)

// Options configures one Apply run.
type Options struct {
	// MapID selects the catalog entry, MinMapID..MaxMapID.
	MapID int

	// Restrictor patches the restrictor flag on for every device.
	Restrictor bool

	// Open starts the USB subsystem. Required.
	Open hal.Opener

	// Catalog defaults to DefaultCatalog.
	Catalog *Catalog

	// Names, if set, resolves product names for logs.
	Names Namer

	// Out and Err receive report lines. They default to stdout and stderr.
	Out io.Writer
	Err io.Writer

	// Engine defaults to NewEngine with the hardware timing.
	Engine *Engine
}

// Result lists the outcome of every device programmed, in bus order.
type Result struct {
	Outcomes []Outcome
}

// Succeeded returns the number of fully written devices.
func (r Result) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Success() {
			n++
		}
	}
	return n
}

// Apply writes the selected map to every attached UltraStik 360.
//
// Devices are programmed one at a time. A short write is reported as a
// FAILURE outcome and the run continues; any other failure is fatal, is
// reported as an ERROR line and is returned as a *pkg.Error. The USB
// subsystem is shut down exactly once before Apply returns.
func Apply(ctx context.Context, opts Options) (res Result, err error) {
	rep := NewReporter(opts.Out, opts.Err)
	fail := func(err error) (Result, error) {
		rep.Error(err)
		return res, err
	}

	catalog := opts.Catalog
	if catalog == nil {
		if catalog, err = DefaultCatalog(); err != nil {
			return fail(pkg.NewError(pkg.KindArgument, "load maps", err))
		}
	}
	m, err := catalog.Lookup(opts.MapID)
	if err != nil {
		return fail(pkg.NewError(pkg.KindArgument, "select map", err))
	}
	m = m.WithRestrictor(opts.Restrictor)

	engine := opts.Engine
	if engine == nil {
		engine = NewEngine(rep)
	} else if engine.Reporter == nil {
		e := *engine
		e.Reporter = rep
		engine = &e
	}

	session := host.NewSession()
	defer func() {
		if cerr := session.Close(); cerr != nil {
			pkg.LogWarn(pkg.ComponentSession, "cleanup failed", "error", cerr)
		}
	}()

	if err := session.Init(opts.Open); err != nil {
		return fail(pkg.NewError(pkg.KindTransport, "init", err))
	}
	bus, err := session.Bus()
	if err != nil {
		return fail(pkg.NewError(pkg.KindTransport, "init", err))
	}

	candidates := Locate(bus, VendorID, ProductBase, opts.Names, rep)
	if len(candidates) == 0 {
		return fail(pkg.NewError(pkg.KindDiscovery, "locate", pkg.ErrNoMatchingDevice))
	}

	pkg.LogInfo(pkg.ComponentEngine, "applying map",
		"map", m.ID,
		"name", m.Name,
		"restrictor", m.Restrictor(),
		"devices", len(candidates))

	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			return fail(pkg.NewError(pkg.KindUnknown,
				fmt.Sprintf("stopped before device %d of %d", i+1, len(candidates)), err))
		}
		out, err := engine.Program(ctx, session, c, m)
		if err != nil {
			return fail(err)
		}
		res.Outcomes = append(res.Outcomes, out)
	}
	return res, nil
}
