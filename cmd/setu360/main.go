// Command setu360 switches the behavioral map of every attached Ultimarc
// UltraStik 360.
//
// Usage:
//
//	setu360 [options] <map> [-r]
//
// Run without arguments to list the available maps.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ardnew/setu360/pkg"
	"github.com/ardnew/setu360/pkg/linux/usbid"
	"github.com/ardnew/setu360/ultrastik"
)

const progName = "setu360"

// errWrongArguments is reported for any malformed map selection.
var errWrongArguments = errors.New("Wrong arguments (allowed values [1-9])")

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// config holds the parsed command line.
type config struct {
	mapID      int
	restrictor bool
	verbose    bool
	jsonLog    bool
	backend    string
	list       bool
	version    bool
}

// run executes the command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, showBanner, err := parseArgs(args, stderr)
	switch {
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errWrongArguments):
		fmt.Fprintln(stderr, err)
		return 1
	case err != nil:
		// The flag set has already reported the problem.
		return 1
	}

	setupLogging(cfg, stderr)

	switch {
	case cfg.version:
		fmt.Fprintf(stdout, "%s version %s\n", progName, ultrastik.Version)
		return 0
	case cfg.list:
		if err := printCatalog(stdout); err != nil {
			fmt.Fprintf(stderr, "ERROR: %v\n", err)
			return 1
		}
		return 0
	case showBanner:
		if err := printBanner(stdout); err != nil {
			fmt.Fprintf(stderr, "ERROR: %v\n", err)
			return 1
		}
		return 0
	}

	open, err := lookupBackend(cfg.backend)
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}

	pkg.LogDebug(pkg.ComponentCLI, "starting",
		"map", cfg.mapID,
		"restrictor", cfg.restrictor,
		"backend", cfg.backend)

	names := loadNames(usbid.New())

	// Apply reports its own failures.
	if _, err := ultrastik.Apply(ctx, ultrastik.Options{
		MapID:      cfg.mapID,
		Restrictor: cfg.restrictor,
		Open:       open,
		Names:      names,
		Out:        stdout,
		Err:        stderr,
	}); err != nil {
		pkg.LogDebug(pkg.ComponentCLI, "run failed", "error", err)
		return 1
	}
	return 0
}

// parseArgs parses options followed by "<map> [-r]". showBanner is true
// when no map was given and nothing else was requested.
func parseArgs(args []string, stderr io.Writer) (cfg config, showBanner bool, err error) {
	fs := flag.NewFlagSet(progName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&cfg.restrictor, "r", false, "Activate restrictor support")
	fs.BoolVar(&cfg.verbose, "v", false, "Enable verbose logging")
	fs.BoolVar(&cfg.jsonLog, "json", false, "Output logs as JSON")
	fs.StringVar(&cfg.backend, "backend", defaultBackend(),
		"USB backend ("+strings.Join(backendNames(), ", ")+")")
	fs.BoolVar(&cfg.list, "list", false, "List maps with payload checksums and exit")
	fs.BoolVar(&cfg.version, "version", false, "Print the version and exit")
	fs.Usage = func() {
		_ = printBanner(stderr)
		fmt.Fprintln(stderr, "\noptions:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return cfg, false, err
	}
	if cfg.version || cfg.list {
		return cfg, false, nil
	}

	rest := fs.Args()
	switch len(rest) {
	case 0:
		if cfg.restrictor {
			return cfg, false, errWrongArguments
		}
		return cfg, true, nil
	case 2:
		if rest[1] != "-r" {
			return cfg, false, errWrongArguments
		}
		cfg.restrictor = true
	case 1:
	default:
		return cfg, false, errWrongArguments
	}

	id, err := strconv.Atoi(rest[0])
	if err != nil || id < ultrastik.MinMapID || id > ultrastik.MaxMapID {
		return cfg, false, errWrongArguments
	}
	cfg.mapID = id
	return cfg, false, nil
}

// loadNames loads the USB ID database used to annotate located devices.
// A missing database only costs the annotation.
func loadNames(db *usbid.Database) *usbid.Database {
	if !db.Load() {
		pkg.LogDebug(pkg.ComponentCLI, "usb.ids not found")
		return db
	}
	pkg.LogDebug(pkg.ComponentCLI, "usb.ids loaded",
		"path", db.Source(),
		"vendors", db.VendorCount(),
		"products", db.ProductCount())
	return db
}

func setupLogging(cfg config, stderr io.Writer) {
	format := pkg.LogFormatText
	if cfg.jsonLog {
		format = pkg.LogFormatJSON
	}
	pkg.Configure(stderr, cfg.verbose, format)
}

// =============================================================================
// Output
// =============================================================================

const bannerArt = ` _____     _   _____ _ _           _____ _   _ _   ___ ___ ___
|   __|___| |_|  |  | | |_ ___ ___|   __| |_|_| |_|_  |  _|   |
|__   | -_|  _|  |  | |  _|  _| .'|__   |  _| | '_|_  | . | | |
|_____|___|_| |_____|_|_| |_| |__,|_____|_| |_|_,_|___|___|___|
`

const license = `This program comes with ABSOLUTELY NO WARRANTY. This is free software,
and you are welcome to redistribute it under certain conditions.
license: GNU GENERAL PUBLIC LICENSE Version 3, 29 June 2007
Copyright (C) 2007 Free Software Foundation, Inc. <https://fsf.org/>
`

func printBanner(w io.Writer) error {
	catalog, err := ultrastik.DefaultCatalog()
	if err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(bannerArt)
	b.WriteString("setultrastik360 Copyright (C) 2018  De Waegeneer Gijsbrecht\n")
	fmt.Fprintf(&b, "Ultimarc UltraStik360 switcher Version %s\n\n", ultrastik.Version)
	fmt.Fprintf(&b, "[ %s map (-r) ] apply map x to all U360's , x being:\n", progName)
	b.WriteString("x  map name\n")
	for _, m := range catalog.Maps() {
		b.WriteString(m.String())
		b.WriteByte('\n')
	}
	b.WriteString("optionally add -r to activate restrictor support.\n\n")
	b.WriteString(license)

	_, err = io.WriteString(w, b.String())
	return err
}

func printCatalog(w io.Writer) error {
	catalog, err := ultrastik.DefaultCatalog()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%-3s%-28s%-10s%s\n", "x", "map name", "crc8", "crc8 (-r)")
	for _, m := range catalog.Maps() {
		fmt.Fprintf(w, "%-3d%-28s0x%02x      0x%02x\n",
			m.ID, m.Name, m.Fingerprint(), m.WithRestrictor(true).Fingerprint())
	}
	return nil
}
