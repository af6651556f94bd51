package linux

// =============================================================================
// Device Limits
// =============================================================================

// MaxInterfacesPerDevice is the maximum number of interfaces tracked per
// open device.
const MaxInterfacesPerDevice = 16

// MaxControlTransferSize is the maximum size for control transfer data phase.
const MaxControlTransferSize = 4096

// MaxDriverNameLen is the size of the driver name buffer filled by
// USBDEVFS_GETDRIVER.
const MaxDriverNameLen = 256

// =============================================================================
// Path Limits
// =============================================================================

// DevfsPathMaxLen is the maximum length of a devfs path.
const DevfsPathMaxLen = 64

// =============================================================================
// System Paths
// =============================================================================

// SysfsUSBPath is the base path for USB devices in sysfs.
const SysfsUSBPath = "/sys/bus/usb/devices"

// DevfsUSBPath is the base path for USB device nodes.
const DevfsUSBPath = "/dev/bus/usb"

// sysfs attribute holding the raw descriptors of a device.
const sysfsDescriptors = "descriptors"

// usbfsDriverName is the name GETDRIVER reports for an interface claimed
// through usbfs, i.e. not a kernel driver.
const usbfsDriverName = "usbfs"
