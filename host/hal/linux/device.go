//go:build linux

package linux

import (
	"context"
	"sync"
	"time"

	"github.com/ardnew/setu360/host/hal"
	"github.com/ardnew/setu360/pkg"
)

// =============================================================================
// Device Connection
// =============================================================================

// deviceConn is an open usbfs device node. It implements hal.Handle.
type deviceConn struct {
	fd   int           // File descriptor for /dev/bus/usb/BBB/DDD
	info usbDeviceInfo // Device information

	// Interface claiming
	claimedMask uint16     // Bitmask of claimed interfaces
	detached    uint16     // Bitmask of interfaces whose kernel driver was detached
	claimMu     sync.Mutex // Protects claimedMask and detached

	closed bool
	mu     sync.Mutex // Protects closed
}

// newDeviceConn opens the device node described by info.
func newDeviceConn(info usbDeviceInfo) (*deviceConn, error) {
	fd, err := openDevice(info.devfsPath)
	if err != nil {
		// A node that vanished between scan and open is a missing device.
		if isNoEnt(err) {
			return nil, pkg.NewTransportError(pkg.USBErrorNoDevice, err)
		}
		return nil, transportError(err)
	}

	pkg.LogDebug(pkg.ComponentHAL, "opened device node",
		"path", info.devfsPath,
		"fd", fd)

	return &deviceConn{
		fd:   fd,
		info: info,
	}, nil
}

// =============================================================================
// hal.Handle Implementation
// =============================================================================

// KernelDriverActive reports whether a kernel driver is bound to iface.
func (d *deviceConn) KernelDriverActive(iface uint8) (bool, error) {
	if err := d.checkOpen(); err != nil {
		return false, err
	}

	name, err := driverName(d.fd, iface)
	if err != nil {
		if isNoData(err) {
			return false, nil
		}
		return false, transportError(err)
	}

	// usbfs itself shows up as a driver once the interface is claimed.
	return name != usbfsDriverName, nil
}

// DetachKernelDriver detaches the kernel driver bound to iface.
func (d *deviceConn) DetachKernelDriver(iface uint8) error {
	if iface >= MaxInterfacesPerDevice {
		return pkg.NewTransportError(pkg.USBErrorInvalid, pkg.ErrInvalidParameter)
	}
	if err := d.checkOpen(); err != nil {
		return err
	}

	name, err := driverName(d.fd, iface)
	if err != nil {
		return transportError(err)
	}
	if name == usbfsDriverName {
		return pkg.NewTransportError(pkg.USBErrorNotFound, nil)
	}

	if err := disconnectDriver(d.fd, iface); err != nil {
		return transportError(err)
	}

	d.claimMu.Lock()
	d.detached |= uint16(1) << iface
	d.claimMu.Unlock()

	pkg.LogDebug(pkg.ComponentHAL, "detached kernel driver",
		"path", d.info.devfsPath,
		"interface", iface,
		"driver", name)
	return nil
}

// ClaimInterface claims exclusive access to iface.
func (d *deviceConn) ClaimInterface(iface uint8) error {
	if iface >= MaxInterfacesPerDevice {
		return pkg.NewTransportError(pkg.USBErrorInvalid, pkg.ErrInvalidParameter)
	}
	if err := d.checkOpen(); err != nil {
		return err
	}

	d.claimMu.Lock()
	defer d.claimMu.Unlock()

	mask := uint16(1) << iface
	if d.claimedMask&mask != 0 {
		return nil
	}

	if err := claimInterface(d.fd, iface); err != nil {
		return transportError(err)
	}

	d.claimedMask |= mask
	return nil
}

// ReleaseInterface releases a previously claimed interface.
func (d *deviceConn) ReleaseInterface(iface uint8) error {
	if iface >= MaxInterfacesPerDevice {
		return pkg.NewTransportError(pkg.USBErrorInvalid, pkg.ErrInvalidParameter)
	}
	if err := d.checkOpen(); err != nil {
		return err
	}

	d.claimMu.Lock()
	defer d.claimMu.Unlock()

	mask := uint16(1) << iface
	if d.claimedMask&mask == 0 {
		return pkg.NewTransportError(pkg.USBErrorNotFound, nil)
	}

	if err := releaseInterface(d.fd, iface); err != nil {
		return transportError(err)
	}

	d.claimedMask &^= mask
	return nil
}

// ControlTransfer performs a synchronous control transfer on endpoint 0.
func (d *deviceConn) ControlTransfer(ctx context.Context, setup *hal.SetupPacket, data []byte, timeout time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, pkg.NewTransportError(pkg.USBErrorInterrupted, err)
	}
	if setup == nil || len(data) > MaxControlTransferSize {
		return 0, pkg.NewTransportError(pkg.USBErrorInvalid, pkg.ErrInvalidParameter)
	}
	if err := setup.Validate(data); err != nil {
		return 0, pkg.NewTransportError(pkg.USBErrorInvalid, err)
	}
	if err := d.checkOpen(); err != nil {
		return 0, err
	}

	// wLength always reflects the buffer handed to the kernel.
	n, err := doControlTransfer(d.fd, setup.RequestType, setup.Request,
		setup.Value, setup.Index, data, uint32(timeout.Milliseconds()))
	if err != nil {
		pkg.LogDebug(pkg.ComponentHAL, "control transfer failed",
			"path", d.info.devfsPath,
			"setup", setup.String(),
			"errno", errnoName(err))
		return 0, transportError(err)
	}
	return n, nil
}

// Close releases claimed interfaces and closes the device node. Kernel
// drivers detached through this handle are reattached.
func (d *deviceConn) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.mu.Unlock()

	d.claimMu.Lock()
	for i := 0; i < MaxInterfacesPerDevice; i++ {
		if d.claimedMask&(1<<i) != 0 {
			_ = releaseInterface(d.fd, uint8(i))
		}
		if d.detached&(1<<i) != 0 {
			_ = connectDriver(d.fd, uint8(i))
		}
	}
	d.claimedMask = 0
	d.detached = 0
	d.claimMu.Unlock()

	if err := closeDevice(d.fd); err != nil {
		return transportError(err)
	}
	return nil
}

// checkOpen returns an error if the handle has been closed.
func (d *deviceConn) checkOpen() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return pkg.NewTransportError(pkg.USBErrorNoDevice, pkg.ErrInvalidState)
	}
	return nil
}
