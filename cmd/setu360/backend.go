package main

import (
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/ardnew/setu360/host/hal"
	"github.com/ardnew/setu360/host/hal/sim"
	"github.com/ardnew/setu360/ultrastik"
)

// backends maps -backend names to subsystem openers. Platform files add
// their entries from init.
var backends = map[string]hal.Opener{
	"sim": simBackend,
}

// simBackend attaches one simulated UltraStik 360, for dry runs.
func simBackend() (hal.Bus, error) {
	dev := sim.NewDevice(ultrastik.VendorID, ultrastik.ProductBase)
	dev.Name = "sim UltraStik 360"
	return sim.NewBus(dev), nil
}

func defaultBackend() string {
	if runtime.GOOS == "linux" {
		return "usbfs"
	}
	return "libusb"
}

func backendNames() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupBackend(name string) (hal.Opener, error) {
	open, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (available: %s)",
			name, strings.Join(backendNames(), ", "))
	}
	return open, nil
}
