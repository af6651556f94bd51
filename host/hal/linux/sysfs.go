//go:build linux

package linux

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ardnew/setu360/host/hal"
)

// =============================================================================
// USB Device Information
// =============================================================================

// usbDeviceInfo holds information about a USB device discovered via sysfs.
type usbDeviceInfo struct {
	name      string    // sysfs entry name, e.g. "1-1.2"
	sysfsPath string    // Path in /sys/bus/usb/devices
	devfsPath string    // Path in /dev/bus/usb
	busNum    uint8     // Bus number
	devNum    uint8     // Device number
	speed     hal.Speed // Device speed

	// err records why the entry could not be resolved to a device node.
	// It surfaces from Descriptor so one bad entry does not abort the scan.
	err error
}

// =============================================================================
// Sysfs Parsing
// =============================================================================

// scanUSBDevices scans sysfsRoot for USB devices. Device nodes are resolved
// under devfsRoot.
func scanUSBDevices(sysfsRoot, devfsRoot string) ([]usbDeviceInfo, error) {
	entries, err := os.ReadDir(sysfsRoot)
	if err != nil {
		return nil, err
	}

	var devices []usbDeviceInfo

	for _, entry := range entries {
		name := entry.Name()

		// USB devices have names like "1-1", "1-1.2", etc.
		// Root hubs (usb1, usb2, ...) are skipped along with interface
		// entries (1-1:1.0).
		if strings.HasPrefix(name, "usb") {
			continue
		}
		if strings.Contains(name, ":") {
			continue
		}

		devices = append(devices, parseUSBDevice(filepath.Join(sysfsRoot, name), devfsRoot))
	}

	return devices, nil
}

// parseUSBDevice parses USB device information from sysfs.
func parseUSBDevice(sysfsPath, devfsRoot string) usbDeviceInfo {
	info := usbDeviceInfo{
		name:      filepath.Base(sysfsPath),
		sysfsPath: sysfsPath,
	}

	busNum, err := readSysfsUint8(filepath.Join(sysfsPath, "busnum"))
	if err != nil {
		info.err = err
		return info
	}
	info.busNum = busNum

	devNum, err := readSysfsUint8(filepath.Join(sysfsPath, "devnum"))
	if err != nil {
		info.err = err
		return info
	}
	info.devNum = devNum

	info.devfsPath = formatDevfsPath(devfsRoot, info.busNum, info.devNum)

	if s, err := readSysfsString(filepath.Join(sysfsPath, "speed")); err == nil {
		info.speed = parseSpeed(s)
	}

	return info
}

// readDeviceDescriptor returns the raw device descriptor. The sysfs
// descriptors attribute is tried first since reading it needs no access to
// the device node; the node itself is the fallback.
func readDeviceDescriptor(info *usbDeviceInfo) ([]byte, error) {
	buf := make([]byte, hal.DeviceDescriptorSize)

	data, err := os.ReadFile(filepath.Join(info.sysfsPath, sysfsDescriptors))
	if err == nil && len(data) >= hal.DeviceDescriptorSize {
		copy(buf, data)
		return buf, nil
	}

	f, err := os.Open(info.devfsPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// =============================================================================
// Sysfs Read Helpers
// =============================================================================

// readSysfsString reads a string from a sysfs attribute file.
func readSysfsString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// readSysfsUint8 reads an unsigned decimal uint8 from a sysfs attribute file.
func readSysfsUint8(path string) (uint8, error) {
	s, err := readSysfsString(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

// =============================================================================
// Path Helpers
// =============================================================================

// formatDevfsPath constructs a <root>/BBB/DDD path from bus and device
// numbers, zero-padded to three digits.
func formatDevfsPath(root string, busNum, devNum uint8) string {
	buf := make([]byte, 0, len(root)+8)
	buf = append(buf, root...)
	buf = append(buf, '/')
	buf = appendPadded(buf, busNum, 3)
	buf = append(buf, '/')
	buf = appendPadded(buf, devNum, 3)
	return string(buf)
}

// appendPadded appends val to buf zero-padded to width digits.
func appendPadded(buf []byte, val uint8, width int) []byte {
	var digits [3]byte
	s := strconv.AppendUint(digits[:0], uint64(val), 10)
	for i := len(s); i < width; i++ {
		buf = append(buf, '0')
	}
	return append(buf, s...)
}

// =============================================================================
// Speed Parsing
// =============================================================================

// parseSpeed converts a sysfs speed string to a hal.Speed value.
func parseSpeed(s string) hal.Speed {
	switch s {
	case "1.5":
		return hal.SpeedLow
	case "12":
		return hal.SpeedFull
	case "480":
		return hal.SpeedHigh
	default:
		return hal.SpeedUnknown
	}
}
