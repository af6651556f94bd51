package ultrastik

import (
	"context"
	"fmt"
	"time"

	"github.com/ardnew/setu360/host"
	"github.com/ardnew/setu360/host/hal"
	"github.com/ardnew/setu360/pkg"
)

// Engine writes behavioral maps to devices.
type Engine struct {
	// Delay follows every write cycle.
	Delay time.Duration

	// Timeout bounds each control transfer.
	Timeout time.Duration

	// Sleep waits between write cycles. Tests replace it.
	Sleep func(time.Duration)

	// Reporter receives the per-device outcome line. It may be nil.
	Reporter *Reporter
}

// NewEngine returns an Engine with the hardware timing constants.
func NewEngine(rep *Reporter) *Engine {
	return &Engine{
		Delay:    WriteDelay,
		Timeout:  TransferTimeout,
		Sleep:    time.Sleep,
		Reporter: rep,
	}
}

// setReport is the setup packet of every write cycle.
var setReport = hal.SetupPacket{
	RequestType: RequestType,
	Request:     RequestCode,
	Value:       RequestValue,
	Index:       uint16(Interface),
	Length:      MessageLength,
}

// Program opens c through s, claims the configuration interface, writes m
// and releases the interface again.
//
// Failures to open, detach, claim or release are returned as
// pkg.KindTransport errors and leave any open handle to s. A short write
// is not an error: it yields an Outcome whose Success is false.
func (e *Engine) Program(ctx context.Context, s *host.Session, c Candidate, m Map) (Outcome, error) {
	out := Outcome{Candidate: c, Map: m}

	h, err := s.Open(c.Device)
	if err != nil {
		return out, pkg.NewError(pkg.KindTransport, "open "+c.String(), err)
	}

	// Detach only when a driver is actually bound. A failed query is not
	// fatal and is treated as no driver.
	active, err := h.KernelDriverActive(Interface)
	if err != nil {
		pkg.LogDebug(pkg.ComponentEngine, "kernel driver query failed",
			"device", c.String(),
			"error", err)
	}
	if active {
		if err := h.DetachKernelDriver(Interface); err != nil {
			return out, pkg.NewError(pkg.KindTransport, "detach kernel driver", err)
		}
		pkg.LogDebug(pkg.ComponentEngine, "kernel driver detached", "device", c.String())
	}

	if err := h.ClaimInterface(Interface); err != nil {
		return out, pkg.NewError(pkg.KindTransport, "claim interface", err)
	}

	out.Written = e.write(ctx, h, c, m)
	e.Reporter.Outcome(out)
	if !out.Success() {
		pkg.LogWarn(pkg.ComponentEngine, "incomplete map write",
			"device", c.String(),
			"error", pkg.NewError(pkg.KindProtocol, "write",
				fmt.Errorf("%d of %d bytes: %w", out.Written, PayloadSize, pkg.ErrShortWrite)))
	}

	if err := h.ReleaseInterface(Interface); err != nil {
		return out, pkg.NewError(pkg.KindTransport, "release interface", err)
	}
	if err := s.CloseHandle(); err != nil {
		pkg.LogWarn(pkg.ComponentEngine, "device close failed",
			"device", c.String(),
			"error", err)
	}
	return out, nil
}

// write sends every frame of m and returns the total bytes accepted.
// Each cycle is followed by the inter-write delay; a failed cycle counts
// zero bytes and the sequence continues.
func (e *Engine) write(ctx context.Context, h hal.Handle, c Candidate, m Map) int {
	// A started sequence always runs to completion.
	ctx = context.WithoutCancel(ctx)

	pkg.LogDebug(pkg.ComponentEngine, "writing map",
		"device", c.String(),
		"map", m.ID,
		"restrictor", m.Restrictor(),
		"crc8", fmt.Sprintf("0x%02x", m.Fingerprint()),
		"setup", setReport.String())

	setup := setReport
	total := 0
	frames := m.Frames()
	for {
		frame, ok := frames.Next()
		if !ok {
			break
		}
		n, err := h.ControlTransfer(ctx, &setup, frame, e.Timeout)
		switch {
		case err != nil:
			pkg.LogDebug(pkg.ComponentEngine, "write cycle failed",
				"device", c.String(),
				"cycle", frames.Index(),
				"error", err)
		case n > 0:
			total += n
		}
		e.sleep()
	}
	return total
}

func (e *Engine) sleep() {
	if e.Sleep != nil {
		e.Sleep(e.Delay)
		return
	}
	time.Sleep(e.Delay)
}
