package ultrastik

import (
	"fmt"

	"github.com/ardnew/setu360/host/hal"
	"github.com/ardnew/setu360/pkg"
)

// Candidate is an enumerated device matching the UltraStik identity.
type Candidate struct {
	Device    hal.Device
	VendorID  uint16
	ProductID uint16

	// Product is a name from the USB ID database, used only in logs.
	Product string
}

// String returns "0x<vid>:0x<pid>".
func (c Candidate) String() string {
	return fmt.Sprintf("0x%x:0x%x", c.VendorID, c.ProductID)
}

// Namer resolves human-readable device names.
type Namer interface {
	Describe(vid, pid uint16) (string, bool)
}

// Matches reports whether vid:pid belongs to the product family starting
// at base.
func Matches(vid, pid, wantVID, base uint16) bool {
	return vid == wantVID &&
		uint32(pid) >= uint32(base) &&
		uint32(pid) < uint32(base)+uint32(ProductRange)
}

// Locate enumerates bus and returns the devices matching vid and the
// product range at base, in bus order. It never fails: enumeration and
// descriptor errors are logged and reported through rep as warnings, and
// an empty result is left for the caller to judge. names and rep may be
// nil; a nil rep drops the warning lines.
func Locate(bus hal.Bus, vid, base uint16, names Namer, rep *Reporter) []Candidate {
	devices, err := bus.Devices()
	if err != nil {
		err = pkg.NewError(pkg.KindDiscovery, "enumerate", err)
		pkg.LogDebug(pkg.ComponentLocator, "enumeration failed", "error", err)
		rep.Warning(err)
		return nil
	}

	var found []Candidate
	for _, dev := range devices {
		desc, err := dev.Descriptor()
		if err != nil {
			pkg.LogDebug(pkg.ComponentLocator, "descriptor read failed",
				"device", dev.String(),
				"error", err)
			rep.Warning(pkg.NewError(pkg.KindDescriptor, dev.String(), err))
			continue
		}
		if !Matches(desc.VendorID, desc.ProductID, vid, base) {
			continue
		}

		c := Candidate{
			Device:    dev,
			VendorID:  desc.VendorID,
			ProductID: desc.ProductID,
		}
		if names != nil {
			c.Product, _ = names.Describe(desc.VendorID, desc.ProductID)
		}
		found = append(found, c)

		pkg.LogInfo(pkg.ComponentLocator, "found device",
			"device", dev.String(),
			"id", c.String(),
			"product", c.Product)
	}

	pkg.LogDebug(pkg.ComponentLocator, "scan complete",
		"devices", len(devices),
		"matched", len(found))
	return found
}
