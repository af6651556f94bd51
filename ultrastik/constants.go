package ultrastik

import (
	"time"

	"github.com/ardnew/setu360/host/hal"
)

// Version is the program version reported by the banner.
const Version = "1.0.0"

// =============================================================================
// Device Identity
// =============================================================================

// UltraStik 360 USB identity. The product family occupies ProductRange
// adjacent IDs starting at ProductBase, one per configurable device ID.
const (
	VendorID     uint16 = 0xD209
	ProductBase  uint16 = 0x0511
	ProductRange uint16 = 4
)

// Interface is the interface number that accepts configuration reports.
const Interface uint8 = 2

// =============================================================================
// Wire Protocol
// =============================================================================

// Control request used for every write cycle (HID SET_REPORT, output
// report 0).
const (
	RequestType  = hal.RequestDirOut | hal.RequestTypeClass | hal.RecipientInterface // 0x21
	RequestCode  = 0x09
	RequestValue = 0x0200
)

// Payload framing.
const (
	MessageLength = 4
	WriteCycles   = 24
	PayloadSize   = MessageLength * WriteCycles
)

// Timing. WriteDelay is the firmware's minimum spacing between reports.
const (
	WriteDelay      = 417 * time.Microsecond
	TransferTimeout = 2000 * time.Millisecond
)

// =============================================================================
// Payload Layout
// =============================================================================

// Header bytes.
const (
	HeaderMagic0     byte = 0x50
	HeaderMagic1     byte = 0xDD
	RestrictorOffset      = 2
	StorageOffset         = 3

	RestrictorOn  byte = 0x10
	RestrictorOff byte = 0x09

	StoreFlash byte = 0x00
)

// Grid layout following the header.
const (
	HeaderSize  = 4
	BorderCount = 8
	GridSize    = 9
	GridCells   = GridSize * GridSize
	PadSize     = PayloadSize - HeaderSize - BorderCount - GridCells
)

// Zone codes stored in grid cells.
const (
	ZoneAnalog byte = 0x00
	ZoneCenter byte = 0x01
	ZoneN      byte = 0x02
	ZoneNE     byte = 0x03
	ZoneE      byte = 0x04
	ZoneSE     byte = 0x05
	ZoneS      byte = 0x06
	ZoneSW     byte = 0x07
	ZoneW      byte = 0x08
	ZoneNW     byte = 0x09
	ZoneSticky byte = 0x0A
)

// Map ID bounds.
const (
	MinMapID = 1
	MaxMapID = 9
)
