package hal

import (
	"context"
	"fmt"
	"time"

	"github.com/ardnew/setu360/pkg"
)

// Speed represents the USB connection speed.
type Speed uint8

// USB speed constants (USB 2.0 Specification).
const (
	SpeedUnknown Speed = iota // Not connected or unknown
	SpeedLow                  // Low Speed (1.5 Mbit/s)
	SpeedFull                 // Full Speed (12 Mbit/s)
	SpeedHigh                 // High Speed (480 Mbit/s)
)

// String returns a human-readable speed name.
func (s Speed) String() string {
	switch s {
	case SpeedLow:
		return "Low Speed"
	case SpeedFull:
		return "Full Speed"
	case SpeedHigh:
		return "High Speed"
	default:
		return "Unknown"
	}
}

// =============================================================================
// Setup Packet
// =============================================================================

// bmRequestType fields.
const (
	RequestDirOut = 0x00 // Host to device
	RequestDirIn  = 0x80 // Device to host

	RequestTypeStandard = 0x00
	RequestTypeClass    = 0x20
	RequestTypeVendor   = 0x40

	RecipientDevice    = 0x00
	RecipientInterface = 0x01
	RecipientEndpoint  = 0x02
	RecipientOther     = 0x03
)

// SetupPacket represents a USB SETUP packet.
type SetupPacket struct {
	RequestType uint8  // Request characteristics
	Request     uint8  // Specific request
	Value       uint16 // Request-specific value
	Index       uint16 // Request-specific index
	Length      uint16 // Number of bytes to transfer
}

// SetupPacketSize is the size of a USB SETUP packet in bytes.
const SetupPacketSize = 8

// MarshalTo writes the setup packet to buf.
// Returns the number of bytes written (8), or 0 if buf is too small.
func (s *SetupPacket) MarshalTo(buf []byte) int {
	if len(buf) < SetupPacketSize {
		return 0
	}
	buf[0] = s.RequestType
	buf[1] = s.Request
	buf[2] = byte(s.Value)
	buf[3] = byte(s.Value >> 8)
	buf[4] = byte(s.Index)
	buf[5] = byte(s.Index >> 8)
	buf[6] = byte(s.Length)
	buf[7] = byte(s.Length >> 8)
	return SetupPacketSize
}

// IsIn returns true if the data stage flows device to host.
func (s *SetupPacket) IsIn() bool {
	return s.RequestType&RequestDirIn != 0
}

// Validate checks data against wLength. An OUT data stage must carry exactly
// Length bytes; an IN data stage must have room for Length bytes.
func (s *SetupPacket) Validate(data []byte) error {
	if s.IsIn() {
		if len(data) < int(s.Length) {
			return fmt.Errorf("IN buffer %d < wLength %d: %w", len(data), s.Length, pkg.ErrInvalidParameter)
		}
		return nil
	}
	if len(data) != int(s.Length) {
		return fmt.Errorf("OUT data %d != wLength %d: %w", len(data), s.Length, pkg.ErrInvalidParameter)
	}
	return nil
}

// String returns the packet in wire order as hex, e.g. "21 09 00 02 02 00 04 00".
func (s *SetupPacket) String() string {
	var buf [SetupPacketSize]byte
	s.MarshalTo(buf[:])
	return fmt.Sprintf("% x", buf[:])
}

// =============================================================================
// Device Descriptor
// =============================================================================

// Descriptor sizes and types.
const (
	DeviceDescriptorSize = 18
	DescriptorTypeDevice = 0x01
)

// DeviceDescriptor is the standard 18-byte USB device descriptor.
type DeviceDescriptor struct {
	USBVersion        uint16
	Class             uint8
	SubClass          uint8
	Protocol          uint8
	MaxPacketSize0    uint8
	VendorID          uint16
	ProductID         uint16
	DeviceVersion     uint16
	ManufacturerIndex uint8
	ProductIndex      uint8
	SerialIndex       uint8
	NumConfigurations uint8
}

// ParseDeviceDescriptor parses a raw device descriptor into out.
func ParseDeviceDescriptor(data []byte, out *DeviceDescriptor) error {
	if len(data) < DeviceDescriptorSize || int(data[0]) < DeviceDescriptorSize {
		return pkg.ErrDescriptorTooShort
	}
	if data[1] != DescriptorTypeDevice {
		return pkg.ErrDescriptorTypeMismatch
	}
	out.USBVersion = uint16(data[2]) | uint16(data[3])<<8
	out.Class = data[4]
	out.SubClass = data[5]
	out.Protocol = data[6]
	out.MaxPacketSize0 = data[7]
	out.VendorID = uint16(data[8]) | uint16(data[9])<<8
	out.ProductID = uint16(data[10]) | uint16(data[11])<<8
	out.DeviceVersion = uint16(data[12]) | uint16(data[13])<<8
	out.ManufacturerIndex = data[14]
	out.ProductIndex = data[15]
	out.SerialIndex = data[16]
	out.NumConfigurations = data[17]
	return nil
}

// String formats the descriptor as "vvvv:pppp".
func (d DeviceDescriptor) String() string {
	return fmt.Sprintf("%04x:%04x", d.VendorID, d.ProductID)
}

// =============================================================================
// Host Interfaces
// =============================================================================

// Bus is an initialized USB host subsystem. Exactly one Bus is expected to
// be open per process; Close shuts the subsystem down.
type Bus interface {
	// Devices enumerates the devices currently attached to the host, in the
	// order the platform reports them. Enumeration does not open devices.
	Devices() ([]Device, error)

	// Close releases all resources held by the subsystem.
	Close() error
}

// Device is an enumerated, unopened USB device.
type Device interface {
	// Descriptor reads the device descriptor. A failure here affects only
	// this device.
	Descriptor() (DeviceDescriptor, error)

	// Open opens the device for I/O.
	Open() (Handle, error)

	// String identifies the device for logs (e.g. "bus 1 device 4").
	String() string
}

// Handle is an open USB device.
type Handle interface {
	// KernelDriverActive reports whether a kernel driver owns iface.
	KernelDriverActive(iface uint8) (bool, error)

	// DetachKernelDriver detaches the kernel driver bound to iface.
	DetachKernelDriver(iface uint8) error

	// ClaimInterface claims exclusive access to iface.
	ClaimInterface(iface uint8) error

	// ReleaseInterface releases a previously claimed interface.
	ReleaseInterface(iface uint8) error

	// ControlTransfer performs a synchronous control transfer on endpoint 0.
	// For OUT transfers, data contains the data to send.
	// For IN transfers, data is filled with received data.
	// Returns the number of bytes transferred in the data phase.
	ControlTransfer(ctx context.Context, setup *SetupPacket, data []byte, timeout time.Duration) (int, error)

	// Close closes the handle. Claimed interfaces are released implicitly.
	Close() error
}

// Opener starts a USB host subsystem.
type Opener func() (Bus, error)
