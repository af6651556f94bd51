//go:build linux

package linux

import (
	"fmt"
	"os"
	"sync"

	"github.com/ardnew/setu360/host/hal"
	"github.com/ardnew/setu360/pkg"
)

// =============================================================================
// Bus Implementation
// =============================================================================

// Bus implements hal.Bus for Linux using sysfs for discovery and usbfs for
// device access.
type Bus struct {
	sysfsRoot string
	devfsRoot string

	closed bool
	mu     sync.Mutex
}

// Open starts the usbfs backend on the standard system paths. It has the
// signature of a hal.Opener.
func Open() (hal.Bus, error) {
	return NewBus(SysfsUSBPath, DevfsUSBPath)
}

// NewBus returns a Bus rooted at the given sysfs device directory and
// devfs node directory.
func NewBus(sysfsRoot, devfsRoot string) (*Bus, error) {
	fi, err := os.Stat(sysfsRoot)
	if err != nil {
		return nil, transportError(err)
	}
	if !fi.IsDir() {
		return nil, pkg.NewTransportError(pkg.USBErrorNotSupport,
			fmt.Errorf("%s: not a directory", sysfsRoot))
	}

	pkg.LogDebug(pkg.ComponentHAL, "usbfs backend initialized",
		"sysfs", sysfsRoot,
		"devfs", devfsRoot)

	return &Bus{
		sysfsRoot: sysfsRoot,
		devfsRoot: devfsRoot,
	}, nil
}

// Devices enumerates the USB devices listed in sysfs.
func (b *Bus) Devices() ([]hal.Device, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, pkg.NewTransportError(pkg.USBErrorInvalid, pkg.ErrInvalidState)
	}

	infos, err := scanUSBDevices(b.sysfsRoot, b.devfsRoot)
	if err != nil {
		return nil, transportError(err)
	}

	devices := make([]hal.Device, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, &device{info: info})
	}

	pkg.LogDebug(pkg.ComponentHAL, "enumerated devices", "count", len(devices))
	return devices, nil
}

// Close shuts the backend down. Handles opened from it remain the caller's
// responsibility.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// =============================================================================
// Device Implementation
// =============================================================================

// device is an enumerated sysfs entry. It implements hal.Device.
type device struct {
	info usbDeviceInfo
}

// Descriptor reads the device descriptor.
func (d *device) Descriptor() (hal.DeviceDescriptor, error) {
	var desc hal.DeviceDescriptor

	if d.info.err != nil {
		return desc, pkg.NewTransportError(pkg.USBErrorIO, d.info.err)
	}

	raw, err := readDeviceDescriptor(&d.info)
	if err != nil {
		return desc, transportError(err)
	}

	if err := hal.ParseDeviceDescriptor(raw, &desc); err != nil {
		return desc, pkg.NewTransportError(pkg.USBErrorIO, err)
	}
	return desc, nil
}

// Open opens the device node for I/O.
func (d *device) Open() (hal.Handle, error) {
	if d.info.err != nil {
		return nil, pkg.NewTransportError(pkg.USBErrorNoDevice, d.info.err)
	}
	return newDeviceConn(d.info)
}

// String identifies the device for logs.
func (d *device) String() string {
	if d.info.err != nil {
		return d.info.name
	}
	return fmt.Sprintf("bus %d device %d (%s)", d.info.busNum, d.info.devNum, d.info.speed)
}
