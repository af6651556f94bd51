package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ardnew/setu360/host/hal"
	"github.com/ardnew/setu360/pkg"
)

// Transfer is one control transfer observed by a simulated device.
type Transfer struct {
	Setup   hal.SetupPacket
	Data    []byte
	Timeout time.Duration
}

// TransferFunc decides the outcome of the n-th (0-based) control transfer
// issued to a device. The default transfers the whole buffer.
type TransferFunc func(n int, setup *hal.SetupPacket, data []byte) (int, error)

// =============================================================================
// Device
// =============================================================================

// Device is a simulated USB device. The exported error fields inject
// failures into the corresponding operation; they must be set before the
// device is handed to a Bus.
type Device struct {
	Desc hal.DeviceDescriptor
	Name string

	DescriptorErr error
	OpenErr       error
	DetachErr     error
	ClaimErr      error
	ReleaseErr    error
	CloseErr      error

	// KernelDriver reports a kernel driver bound to every interface until
	// it is detached.
	KernelDriver bool

	// OnTransfer overrides the transfer result.
	OnTransfer TransferFunc

	mu        sync.Mutex
	transfers []Transfer
	claimed   map[uint8]bool
	released  []uint8
	detached  []uint8
	opens     int
	closes    int
}

// NewDevice returns a simulated device with the given IDs.
func NewDevice(vid, pid uint16) *Device {
	return &Device{
		Desc: hal.DeviceDescriptor{
			USBVersion:        0x0110,
			MaxPacketSize0:    8,
			VendorID:          vid,
			ProductID:         pid,
			NumConfigurations: 1,
		},
	}
}

// Descriptor implements hal.Device.
func (d *Device) Descriptor() (hal.DeviceDescriptor, error) {
	if d.DescriptorErr != nil {
		return hal.DeviceDescriptor{}, d.DescriptorErr
	}
	return d.Desc, nil
}

// Open implements hal.Device.
func (d *Device) Open() (hal.Handle, error) {
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	d.mu.Lock()
	d.opens++
	d.mu.Unlock()
	return &handle{dev: d}, nil
}

// String implements hal.Device.
func (d *Device) String() string {
	if d.Name != "" {
		return d.Name
	}
	return "sim " + d.Desc.String()
}

// Transfers returns a copy of the control transfers received so far.
func (d *Device) Transfers() []Transfer {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Transfer, len(d.transfers))
	copy(out, d.transfers)
	return out
}

// Received returns the concatenated data stages of all transfers.
func (d *Device) Received() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []byte
	for _, t := range d.transfers {
		out = append(out, t.Data...)
	}
	return out
}

// Claimed reports whether iface is currently claimed.
func (d *Device) Claimed(iface uint8) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.claimed[iface]
}

// Released returns the interfaces released, in order.
func (d *Device) Released() []uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint8(nil), d.released...)
}

// Detached returns the interfaces whose kernel driver was detached.
func (d *Device) Detached() []uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]uint8(nil), d.detached...)
}

// Opens returns how many handles were opened.
func (d *Device) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// Closes returns how many handles were closed.
func (d *Device) Closes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closes
}

// =============================================================================
// Handle
// =============================================================================

// handle is an open simulated device.
type handle struct {
	dev    *Device
	closed bool
}

func (h *handle) check() error {
	if h.closed {
		return pkg.NewTransportError(pkg.USBErrorNoDevice, pkg.ErrInvalidState)
	}
	return nil
}

// KernelDriverActive implements hal.Handle.
func (h *handle) KernelDriverActive(iface uint8) (bool, error) {
	if err := h.check(); err != nil {
		return false, err
	}
	d := h.dev
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.KernelDriver {
		return false, nil
	}
	for _, i := range d.detached {
		if i == iface {
			return false, nil
		}
	}
	return true, nil
}

// DetachKernelDriver implements hal.Handle.
func (h *handle) DetachKernelDriver(iface uint8) error {
	if err := h.check(); err != nil {
		return err
	}
	d := h.dev
	if d.DetachErr != nil {
		return d.DetachErr
	}
	d.mu.Lock()
	d.detached = append(d.detached, iface)
	d.mu.Unlock()
	return nil
}

// ClaimInterface implements hal.Handle.
func (h *handle) ClaimInterface(iface uint8) error {
	if err := h.check(); err != nil {
		return err
	}
	d := h.dev
	if d.ClaimErr != nil {
		return d.ClaimErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.claimed == nil {
		d.claimed = make(map[uint8]bool)
	}
	d.claimed[iface] = true
	return nil
}

// ReleaseInterface implements hal.Handle.
func (h *handle) ReleaseInterface(iface uint8) error {
	if err := h.check(); err != nil {
		return err
	}
	d := h.dev
	if d.ReleaseErr != nil {
		return d.ReleaseErr
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.claimed[iface] {
		return pkg.NewTransportError(pkg.USBErrorNotFound, nil)
	}
	delete(d.claimed, iface)
	d.released = append(d.released, iface)
	return nil
}

// ControlTransfer implements hal.Handle.
func (h *handle) ControlTransfer(ctx context.Context, setup *hal.SetupPacket, data []byte, timeout time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, pkg.NewTransportError(pkg.USBErrorInterrupted, err)
	}
	if err := h.check(); err != nil {
		return 0, err
	}
	if setup == nil {
		return 0, pkg.NewTransportError(pkg.USBErrorInvalid, pkg.ErrInvalidParameter)
	}
	if err := setup.Validate(data); err != nil {
		return 0, pkg.NewTransportError(pkg.USBErrorInvalid, err)
	}

	d := h.dev
	d.mu.Lock()
	n := len(d.transfers)
	d.transfers = append(d.transfers, Transfer{
		Setup:   *setup,
		Data:    append([]byte(nil), data...),
		Timeout: timeout,
	})
	d.mu.Unlock()

	if d.OnTransfer != nil {
		return d.OnTransfer(n, setup, data)
	}
	return len(data), nil
}

// Close implements hal.Handle.
func (h *handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	d := h.dev
	d.mu.Lock()
	d.closes++
	d.claimed = nil
	d.mu.Unlock()
	return d.CloseErr
}

// =============================================================================
// Bus
// =============================================================================

// Bus is a simulated USB subsystem holding a fixed device list.
type Bus struct {
	// DevicesErr makes enumeration fail.
	DevicesErr error

	devices []*Device

	mu     sync.Mutex
	closed bool
	closes int
}

// NewBus returns a bus with the given devices attached in order.
func NewBus(devices ...*Device) *Bus {
	return &Bus{devices: devices}
}

// Opener returns a hal.Opener that yields b.
func (b *Bus) Opener() hal.Opener {
	return func() (hal.Bus, error) {
		return b, nil
	}
}

// FailingOpener returns a hal.Opener that fails with err.
func FailingOpener(err error) hal.Opener {
	return func() (hal.Bus, error) {
		return nil, err
	}
}

// Devices implements hal.Bus.
func (b *Bus) Devices() ([]hal.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, pkg.NewTransportError(pkg.USBErrorInvalid, pkg.ErrInvalidState)
	}
	if b.DevicesErr != nil {
		return nil, b.DevicesErr
	}
	out := make([]hal.Device, len(b.devices))
	for i, d := range b.devices {
		out[i] = d
	}
	return out, nil
}

// Close implements hal.Bus.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.closes++
	return nil
}

// Closes returns how many times Close was called.
func (b *Bus) Closes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closes
}

// String describes the bus for logs.
func (b *Bus) String() string {
	return fmt.Sprintf("sim bus (%d devices)", len(b.devices))
}
