//go:build cgo

package libusb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/google/gousb"

	"github.com/ardnew/setu360/host/hal"
	"github.com/ardnew/setu360/pkg"
)

// =============================================================================
// Bus Implementation
// =============================================================================

// Bus implements hal.Bus on a gousb context.
type Bus struct {
	ctx *gousb.Context

	closed bool
	mu     sync.Mutex
}

// Open initializes libusb. It has the signature of a hal.Opener.
func Open() (bus hal.Bus, err error) {
	// gousb panics when libusb_init fails.
	defer func() {
		if r := recover(); r != nil {
			bus = nil
			err = pkg.NewTransportError(pkg.USBErrorOther, fmt.Errorf("libusb init: %v", r))
		}
	}()

	ctx := gousb.NewContext()
	pkg.LogDebug(pkg.ComponentHAL, "libusb backend initialized")
	return &Bus{ctx: ctx}, nil
}

// Devices enumerates attached devices without opening them.
func (b *Bus) Devices() ([]hal.Device, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, pkg.NewTransportError(pkg.USBErrorInvalid, pkg.ErrInvalidState)
	}

	var devices []hal.Device
	_, err := b.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		devices = append(devices, &device{bus: b, desc: *desc})
		return false
	})
	if err != nil {
		// gousb skips devices whose descriptor could not be read and reports
		// the last failure after the walk. Surface it as one unreadable
		// device so the caller can warn and continue.
		pkg.LogDebug(pkg.ComponentHAL, "enumeration reported an error", "error", err)
		devices = append(devices, &device{bus: b, err: err})
	}

	pkg.LogDebug(pkg.ComponentHAL, "enumerated devices", "count", len(devices))
	return devices, nil
}

// Close shuts libusb down.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if err := b.ctx.Close(); err != nil {
		return transportError(err)
	}
	return nil
}

// =============================================================================
// Device Implementation
// =============================================================================

// device is an enumerated, unopened libusb device.
type device struct {
	bus  *Bus
	desc gousb.DeviceDesc
	err  error
}

// Descriptor returns the descriptor libusb cached during enumeration.
func (d *device) Descriptor() (hal.DeviceDescriptor, error) {
	if d.err != nil {
		return hal.DeviceDescriptor{}, transportError(d.err)
	}
	return descriptorFrom(&d.desc), nil
}

// Open opens the device at the bus and address recorded during enumeration.
func (d *device) Open() (hal.Handle, error) {
	if d.err != nil {
		return nil, transportError(d.err)
	}

	devs, err := d.bus.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Bus == d.desc.Bus && desc.Address == d.desc.Address
	})
	if len(devs) == 0 {
		if err == nil {
			err = gousb.ErrorNoDevice
		}
		return nil, transportError(err)
	}
	for _, extra := range devs[1:] {
		_ = extra.Close()
	}

	pkg.LogDebug(pkg.ComponentHAL, "opened device", "device", d.String())
	return &handle{dev: gousbDevice{devs[0]}}, nil
}

// String identifies the device for logs.
func (d *device) String() string {
	if d.err != nil {
		return "unreadable device"
	}
	return fmt.Sprintf("bus %d device %d (%s)", d.desc.Bus, d.desc.Address, speedFrom(d.desc.Speed))
}

// =============================================================================
// Handle Implementation
// =============================================================================

// usbDevice is the part of *gousb.Device a handle drives.
type usbDevice interface {
	SetAutoDetach(bool) error
	ActiveConfigNum() (int, error)
	Config(num int) (usbConfig, error)
	Control(rType, request uint8, val, idx uint16, data []byte) (int, error)
	SetControlTimeout(time.Duration)
	Close() error
}

// usbConfig is the part of *gousb.Config a handle drives.
type usbConfig interface {
	Interface(num, alt int) (usbInterface, error)
	Close() error
}

// usbInterface is a claimed *gousb.Interface.
type usbInterface interface {
	Close()
}

type gousbDevice struct{ *gousb.Device }

func (d gousbDevice) Config(num int) (usbConfig, error) {
	cfg, err := d.Device.Config(num)
	if err != nil {
		return nil, err
	}
	return gousbConfig{cfg}, nil
}

func (d gousbDevice) SetControlTimeout(timeout time.Duration) {
	d.ControlTimeout = timeout
}

type gousbConfig struct{ *gousb.Config }

func (c gousbConfig) Interface(num, alt int) (usbInterface, error) {
	intf, err := c.Config.Interface(num, alt)
	if err != nil {
		return nil, err
	}
	return intf, nil
}

// handle is an open gousb device. It implements hal.Handle.
type handle struct {
	dev    usbDevice
	config usbConfig
	intf   map[uint8]usbInterface

	// autoDetach is set by DetachKernelDriver and applied by the next claim.
	autoDetach bool

	mu sync.Mutex
}

// KernelDriverActive always reports true. gousb exposes no query for the
// binding, so the caller is steered into DetachKernelDriver, which arms
// libusb's automatic detach for the following claim.
func (h *handle) KernelDriverActive(iface uint8) (bool, error) {
	return true, nil
}

// DetachKernelDriver arms automatic kernel driver detach. Nothing is sent
// to libusb until ClaimInterface; the driver bound to iface is detached
// then and reattached on release.
func (h *handle) DetachKernelDriver(iface uint8) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.autoDetach = true
	return nil
}

// ClaimInterface claims iface (alternate setting 0) in the active
// configuration.
//
// The configuration is selected while auto-detach is still off: gousb's
// Device.Config detaches the drivers of every interface when it is on, and
// only the claimed interface would get its driver back. Auto-detach is
// enabled after that, immediately before the claim.
func (h *handle) ClaimInterface(iface uint8) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.intf[iface]; ok {
		return nil
	}

	if h.config == nil {
		num, err := h.dev.ActiveConfigNum()
		if err != nil {
			return transportError(err)
		}
		cfg, err := h.dev.Config(num)
		if err != nil {
			return transportError(err)
		}
		h.config = cfg
	}

	if h.autoDetach {
		if err := h.dev.SetAutoDetach(true); err != nil {
			return transportError(err)
		}
	}

	intf, err := h.config.Interface(int(iface), 0)
	if err != nil {
		return transportError(err)
	}
	if h.intf == nil {
		h.intf = make(map[uint8]usbInterface)
	}
	h.intf[iface] = intf
	return nil
}

// ReleaseInterface releases a claimed interface.
func (h *handle) ReleaseInterface(iface uint8) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	intf, ok := h.intf[iface]
	if !ok {
		return pkg.NewTransportError(pkg.USBErrorNotFound, nil)
	}
	intf.Close()
	delete(h.intf, iface)
	return nil
}

// ControlTransfer performs a synchronous control transfer on endpoint 0.
func (h *handle) ControlTransfer(ctx context.Context, setup *hal.SetupPacket, data []byte, timeout time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, pkg.NewTransportError(pkg.USBErrorInterrupted, err)
	}
	if setup == nil {
		return 0, pkg.NewTransportError(pkg.USBErrorInvalid, pkg.ErrInvalidParameter)
	}
	if err := setup.Validate(data); err != nil {
		return 0, pkg.NewTransportError(pkg.USBErrorInvalid, err)
	}

	h.dev.SetControlTimeout(timeout)
	n, err := h.dev.Control(setup.RequestType, setup.Request, setup.Value, setup.Index, data)
	if err != nil {
		pkg.LogDebug(pkg.ComponentHAL, "control transfer failed",
			"setup", setup.String(),
			"error", err)
		return 0, transportError(err)
	}
	return n, nil
}

// Close releases any claimed interfaces and closes the device.
func (h *handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for num, intf := range h.intf {
		intf.Close()
		delete(h.intf, num)
	}
	if h.config != nil {
		if err := h.config.Close(); err != nil {
			pkg.LogDebug(pkg.ComponentHAL, "config close failed", "error", err)
		}
		h.config = nil
	}
	if h.dev == nil {
		return nil
	}
	err := h.dev.Close()
	h.dev = nil
	if err != nil {
		return transportError(err)
	}
	return nil
}

// =============================================================================
// Conversion Helpers
// =============================================================================

// descriptorFrom converts a gousb device descriptor.
func descriptorFrom(desc *gousb.DeviceDesc) hal.DeviceDescriptor {
	return hal.DeviceDescriptor{
		USBVersion:        uint16(desc.Spec),
		Class:             uint8(desc.Class),
		SubClass:          uint8(desc.SubClass),
		Protocol:          uint8(desc.Protocol),
		MaxPacketSize0:    uint8(desc.MaxControlPacketSize),
		VendorID:          uint16(desc.Vendor),
		ProductID:         uint16(desc.Product),
		DeviceVersion:     uint16(desc.Device),
		NumConfigurations: uint8(len(desc.Configs)),
	}
}

// speedFrom converts a gousb speed.
func speedFrom(s gousb.Speed) hal.Speed {
	switch s {
	case gousb.SpeedLow:
		return hal.SpeedLow
	case gousb.SpeedFull:
		return hal.SpeedFull
	case gousb.SpeedHigh:
		return hal.SpeedHigh
	default:
		return hal.SpeedUnknown
	}
}

// errorCode maps a gousb error to a transport code.
func errorCode(e gousb.Error) pkg.USBError {
	switch e {
	case gousb.Success:
		return pkg.USBSuccess
	case gousb.ErrorIO:
		return pkg.USBErrorIO
	case gousb.ErrorInvalidParam:
		return pkg.USBErrorInvalid
	case gousb.ErrorAccess:
		return pkg.USBErrorAccess
	case gousb.ErrorNoDevice:
		return pkg.USBErrorNoDevice
	case gousb.ErrorNotFound:
		return pkg.USBErrorNotFound
	case gousb.ErrorBusy:
		return pkg.USBErrorBusy
	case gousb.ErrorTimeout:
		return pkg.USBErrorTimeout
	case gousb.ErrorOverflow:
		return pkg.USBErrorOverflow
	case gousb.ErrorPipe:
		return pkg.USBErrorPipe
	case gousb.ErrorInterrupted:
		return pkg.USBErrorInterrupted
	case gousb.ErrorNoMem:
		return pkg.USBErrorNoMem
	case gousb.ErrorNotSupported:
		return pkg.USBErrorNotSupport
	default:
		return pkg.USBErrorOther
	}
}

// codePattern matches the "[code -6]" suffix gousb appends to libusb
// errors. Several gousb calls flatten the error into text with %v.
var codePattern = regexp.MustCompile(`\[code (-?\d+)\]`)

// codeFromText recovers a transport code from a flattened gousb message.
func codeFromText(msg string) (pkg.USBError, bool) {
	m := codePattern.FindStringSubmatch(msg)
	if m == nil {
		return pkg.USBErrorOther, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return pkg.USBErrorOther, false
	}
	code := pkg.USBError(n)
	if code.Name() == pkg.USBErrorOther.Name() {
		return pkg.USBErrorOther, true
	}
	return code, true
}

// transportError wraps err as a *pkg.TransportError.
func transportError(err error) error {
	if err == nil {
		return nil
	}
	var te *pkg.TransportError
	if errors.As(err, &te) {
		return err
	}
	var ge gousb.Error
	if errors.As(err, &ge) {
		return pkg.NewTransportError(errorCode(ge), err)
	}
	code, _ := codeFromText(err.Error())
	return pkg.NewTransportError(code, err)
}
