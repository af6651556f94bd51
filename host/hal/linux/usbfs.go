//go:build linux

package linux

import (
	"errors"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/ardnew/setu360/pkg"
)

// =============================================================================
// usbdevfs Structures
// =============================================================================

// ctrlTransfer represents a control transfer request.
// This must match the kernel's struct usbdevfs_ctrltransfer layout.
type ctrlTransfer struct {
	requestType uint8   // bmRequestType
	request     uint8   // bRequest
	value       uint16  // wValue
	index       uint16  // wIndex
	length      uint16  // wLength
	timeout     uint32  // Timeout in milliseconds
	data        uintptr // Data buffer pointer
}

// getDriver is the argument of USBDEVFS_GETDRIVER.
// This must match the kernel's struct usbdevfs_getdriver layout.
type getDriver struct {
	iface  uint32
	driver [MaxDriverNameLen]byte
}

// ioctlRequest wraps an interface-directed ioctl (USBDEVFS_IOCTL).
// This must match the kernel's struct usbdevfs_ioctl layout.
type ioctlRequest struct {
	iface int32
	code  int32
	data  uintptr
}

// =============================================================================
// ioctl Numbers
// =============================================================================

// ioc constructs an ioctl number from direction, type, number, and size.
func ioc(dir, typ, nr, size uintptr) uintptr {
	return (dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNRShift) | (size << iocSizeShift)
}

// ior constructs a read ioctl number.
func ior(typ, nr, size uintptr) uintptr {
	return ioc(iocRead, typ, nr, size)
}

// iow constructs a write ioctl number.
func iow(typ, nr, size uintptr) uintptr {
	return ioc(iocWrite, typ, nr, size)
}

// iowr constructs a read/write ioctl number.
func iowr(typ, nr, size uintptr) uintptr {
	return ioc(iocRead|iocWrite, typ, nr, size)
}

// ioNone constructs an ioctl number with no data transfer.
func ioNone(typ, nr uintptr) uintptr {
	return ioc(iocNone, typ, nr, 0)
}

// usbdevfs ioctl type character.
const usbdevfsType = 'U'

// usbdevfs ioctl command numbers.
const (
	ioctlControl          = 0
	ioctlGetDriver        = 8
	ioctlClaimInterface   = 15
	ioctlReleaseInterface = 16
	ioctlIoctl            = 18
	ioctlDisconnect       = 22
	ioctlConnect          = 23
)

// usbdevfs ioctl numbers. Argument sizes follow the native struct layout,
// so the same expressions serve 32- and 64-bit targets.
var (
	ioctlUsbdevfsControl          = iowr(usbdevfsType, ioctlControl, unsafe.Sizeof(ctrlTransfer{}))
	ioctlUsbdevfsGetDriver        = iow(usbdevfsType, ioctlGetDriver, unsafe.Sizeof(getDriver{}))
	ioctlUsbdevfsClaimInterface   = ior(usbdevfsType, ioctlClaimInterface, unsafe.Sizeof(uint32(0)))
	ioctlUsbdevfsReleaseInterface = ior(usbdevfsType, ioctlReleaseInterface, unsafe.Sizeof(uint32(0)))
	ioctlUsbdevfsIoctl            = iowr(usbdevfsType, ioctlIoctl, unsafe.Sizeof(ioctlRequest{}))
	ioctlUsbdevfsDisconnect       = ioNone(usbdevfsType, ioctlDisconnect)
	ioctlUsbdevfsConnect          = ioNone(usbdevfsType, ioctlConnect)
)

// =============================================================================
// Raw Syscall Wrappers
// =============================================================================

// openDevice opens a USB device node for read/write access.
func openDevice(path string) (int, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, err
	}
	return fd, nil
}

// closeDevice closes a device file descriptor.
func closeDevice(fd int) error {
	return unix.Close(fd)
}

// ioctlRetval performs an ioctl syscall and returns the result value.
func ioctlRetval(fd int, req uintptr, arg unsafe.Pointer) (int, error) {
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return int(r), errno
	}
	return int(r), nil
}

// =============================================================================
// USBDEVFS Operations
// =============================================================================

// doControlTransfer performs a synchronous control transfer.
func doControlTransfer(fd int, reqType, req uint8, value, index uint16, data []byte, timeout uint32) (int, error) {
	ctrl := ctrlTransfer{
		requestType: reqType,
		request:     req,
		value:       value,
		index:       index,
		length:      uint16(len(data)),
		timeout:     timeout,
	}
	if len(data) > 0 {
		ctrl.data = uintptr(unsafe.Pointer(&data[0]))
	}

	n, err := ioctlRetval(fd, ioctlUsbdevfsControl, unsafe.Pointer(&ctrl))
	runtime.KeepAlive(data)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// claimInterface claims exclusive access to an interface.
func claimInterface(fd int, iface uint8) error {
	ifaceNum := uint32(iface)
	_, err := ioctlRetval(fd, ioctlUsbdevfsClaimInterface, unsafe.Pointer(&ifaceNum))
	return err
}

// releaseInterface releases a previously claimed interface.
func releaseInterface(fd int, iface uint8) error {
	ifaceNum := uint32(iface)
	_, err := ioctlRetval(fd, ioctlUsbdevfsReleaseInterface, unsafe.Pointer(&ifaceNum))
	return err
}

// driverName returns the name of the driver bound to an interface.
// ENODATA means no driver is bound.
func driverName(fd int, iface uint8) (string, error) {
	gd := getDriver{iface: uint32(iface)}
	if _, err := ioctlRetval(fd, ioctlUsbdevfsGetDriver, unsafe.Pointer(&gd)); err != nil {
		return "", err
	}
	return unix.ByteSliceToString(gd.driver[:]), nil
}

// disconnectDriver detaches the kernel driver from an interface.
func disconnectDriver(fd int, iface uint8) error {
	req := ioctlRequest{
		iface: int32(iface),
		code:  int32(ioctlUsbdevfsDisconnect),
	}
	_, err := ioctlRetval(fd, ioctlUsbdevfsIoctl, unsafe.Pointer(&req))
	return err
}

// connectDriver reattaches the kernel driver to an interface.
func connectDriver(fd int, iface uint8) error {
	req := ioctlRequest{
		iface: int32(iface),
		code:  int32(ioctlUsbdevfsConnect),
	}
	_, err := ioctlRetval(fd, ioctlUsbdevfsIoctl, unsafe.Pointer(&req))
	return err
}

// =============================================================================
// Error Helpers
// =============================================================================

// errnoCode maps an errno to a transport status code the way libusb's
// Linux backend does.
func errnoCode(errno unix.Errno) pkg.USBError {
	switch errno {
	case unix.EACCES, unix.EPERM:
		return pkg.USBErrorAccess
	case unix.ENODEV, unix.ESHUTDOWN:
		return pkg.USBErrorNoDevice
	case unix.ENOENT, unix.ENODATA:
		return pkg.USBErrorNotFound
	case unix.EBUSY:
		return pkg.USBErrorBusy
	case unix.ETIMEDOUT:
		return pkg.USBErrorTimeout
	case unix.EOVERFLOW:
		return pkg.USBErrorOverflow
	case unix.EPIPE:
		return pkg.USBErrorPipe
	case unix.EINTR:
		return pkg.USBErrorInterrupted
	case unix.ENOMEM:
		return pkg.USBErrorNoMem
	case unix.EINVAL:
		return pkg.USBErrorInvalid
	case unix.ENOSYS, unix.EOPNOTSUPP:
		return pkg.USBErrorNotSupport
	default:
		return pkg.USBErrorIO
	}
}

// transportError wraps err as a *pkg.TransportError. Errors that are not
// an errno become LIBUSB_ERROR_OTHER.
func transportError(err error) error {
	if err == nil {
		return nil
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return pkg.NewTransportError(errnoCode(errno), err)
	}
	return pkg.NewTransportError(pkg.USBErrorOther, err)
}

// isNoData returns true if the error indicates no data (ENODATA).
func isNoData(err error) bool {
	return errors.Is(err, unix.ENODATA)
}

// isNoEnt returns true if the error indicates a missing file (ENOENT).
func isNoEnt(err error) bool {
	return errors.Is(err, unix.ENOENT)
}

// errnoName returns the symbolic errno name for logs, or "" if err is
// not an errno.
func errnoName(err error) string {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return unix.ErrnoName(errno)
	}
	return ""
}
