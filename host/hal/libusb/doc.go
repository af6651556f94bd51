// Package libusb provides a USB host backend built on libusb through
// github.com/google/gousb. It requires cgo and libusb-1.0.
//
// Enumeration reads descriptors from libusb's cache without opening any
// device. Opening re-selects the device by bus number and address.
// Kernel driver handling uses libusb's automatic detach, which reattaches
// the driver when the interface is released.
package libusb
