// Package usbid provides access to the USB ID database for looking up vendor
// and product names.
//
// The USB ID database (usb.ids) maps USB vendor IDs (VID) and product IDs
// (PID) to human-readable names and is distributed with most Linux systems.
// setu360 uses it only to annotate located devices in log output; a missing
// database is not an error.
//
// # Usage
//
// Load the database once at startup:
//
//	db := usbid.New()
//	db.Load()
//
// Then look up names:
//
//	name, ok := db.Describe(0xd209, 0x0511) // "Ultimarc UltraStik 360"
//
// Describe loads the search paths itself when Load was never called.
//
// # Database Locations
//
// The package searches for the USB ID database in these locations:
//
//   - /usr/share/hwdata/usb.ids
//   - /var/lib/usbutils/usb.ids
//   - /usr/share/misc/usb.ids
//   - /usr/local/share/hwdata/usb.ids
//
// [Database.LoadFrom] parses any other source.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
package usbid
