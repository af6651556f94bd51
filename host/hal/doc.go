// Package hal defines the host-side USB abstraction used by setu360.
//
// The HAL separates the map programming logic from the platform mechanism
// used to reach the device. A backend supplies three layers:
//
//   - [Bus]: an initialized subsystem that enumerates attached devices
//   - [Device]: an enumerated device whose descriptor can be read
//   - [Handle]: an open device supporting interface claims and control
//     transfers
//
// # Backends
//
//   - [github.com/ardnew/setu360/host/hal/linux]: pure Go usbfs/sysfs, no cgo
//   - [github.com/ardnew/setu360/host/hal/libusb]: libusb via gousb
//   - [github.com/ardnew/setu360/host/hal/sim]: in-memory bus for tests
//
// # Errors
//
// Backends report failures as [pkg.TransportError] values so callers can
// print the libusb-style name and description of the underlying status,
// independent of the backend that produced it.
package hal
