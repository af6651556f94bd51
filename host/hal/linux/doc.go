// Package linux provides a USB host backend for Linux using usbfs.
//
// Devices are discovered by scanning sysfs (/sys/bus/usb/devices/) and
// accessed through their usbfs nodes (/dev/bus/usb/BBB/DDD) with ioctls
// issued through golang.org/x/sys/unix. No cgo is required.
//
// # Requirements
//
// The user running the application must have read/write access to the USB
// device nodes in /dev/bus/usb/. This typically requires either:
//   - Running as root
//   - A udev rule granting access to the user/group, e.g.
//
//	SUBSYSTEM=="usb", ATTRS{idVendor}=="d209", MODE="0666"
//
// # Kernel Drivers
//
// Interfaces bound to a kernel driver (usbhid, for an UltraStik) must be
// detached before they can be claimed. Detaching goes through
// USBDEVFS_IOCTL wrapping USBDEVFS_DISCONNECT; the driver is reconnected
// when the handle is closed.
//
// # Errors
//
// errno values are translated to [pkg.USBError] codes using the same table
// as libusb's Linux backend, so diagnostics match the libusb backend.
package linux
