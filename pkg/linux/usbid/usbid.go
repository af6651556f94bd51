package usbid

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// DefaultPaths lists the standard locations for the USB ID database.
var DefaultPaths = []string{
	"/usr/share/hwdata/usb.ids",
	"/var/lib/usbutils/usb.ids",
	"/usr/share/misc/usb.ids",
	"/usr/local/share/hwdata/usb.ids",
}

// Database caches vendor and product names from the USB ID database.
type Database struct {
	vendors  map[uint16]string // VID -> vendor name
	products map[uint32]string // (VID<<16)|PID -> product name
	loaded   bool
	source   string
	mu       sync.RWMutex
	paths    []string
}

// New creates a new USB ID database that searches the default paths.
func New() *Database {
	return NewWithPaths(DefaultPaths)
}

// NewWithPaths creates a new USB ID database that searches the specified paths.
func NewWithPaths(paths []string) *Database {
	return &Database{
		vendors:  make(map[uint16]string),
		products: make(map[uint32]string),
		paths:    paths,
	}
}

// Load parses the first database file found on the search paths. This
// method is idempotent: subsequent calls do nothing once a load was
// attempted.
//
// Returns true if a database was loaded (now or before), false if no
// database file could be found.
func (db *Database) Load() bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.loaded {
		return db.source != ""
	}
	// Mark as loaded even if no file is found to prevent repeated searches.
	db.loaded = true

	for _, path := range db.paths {
		file, err := os.Open(path)
		if err != nil {
			continue
		}
		err = db.parse(file)
		file.Close()
		if err != nil {
			continue
		}
		db.source = path
		return true
	}
	return false
}

// LoadFrom parses a database from r, replacing any previous content.
func (db *Database) LoadFrom(r io.Reader) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.vendors = make(map[uint16]string)
	db.products = make(map[uint32]string)
	db.loaded = true
	if err := db.parse(r); err != nil {
		db.source = ""
		return err
	}
	db.source = "reader"
	return nil
}

// parse reads the usb.ids format. Vendor lines have the form
// "xxxx  Vendor Name"; product lines follow with a leading tab,
// "\txxxx  Product Name". Any other section (classes, languages, ...)
// ends the vendor list for the current vendor.
func (db *Database) parse(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	var currentVID uint16
	var inVendor bool

	for scanner.Scan() {
		line := scanner.Text()

		if len(line) == 0 || line[0] == '#' {
			continue
		}

		if line[0] == '\t' {
			// Interface lines are indented twice.
			if !inVendor || strings.HasPrefix(line, "\t\t") {
				continue
			}
			if pid, name, ok := splitEntry(line[1:]); ok {
				db.products[productKey(currentVID, pid)] = name
			}
			continue
		}

		vid, name, ok := splitEntry(line)
		if !ok {
			inVendor = false
			continue
		}
		currentVID = vid
		inVendor = true
		db.vendors[vid] = name
	}
	return scanner.Err()
}

// splitEntry parses "xxxx  Name" into its hex ID and name.
func splitEntry(s string) (uint16, string, bool) {
	if len(s) < 6 || s[4] != ' ' {
		return 0, "", false
	}
	id, err := strconv.ParseUint(s[:4], 16, 16)
	if err != nil {
		return 0, "", false
	}
	name := strings.TrimSpace(s[5:])
	if name == "" {
		return 0, "", false
	}
	return uint16(id), name, true
}

func productKey(vid, pid uint16) uint32 {
	return (uint32(vid) << 16) | uint32(pid)
}

// LookupVendor returns the vendor name for the given VID.
// Returns an empty string if the vendor is not found or if the database
// has not been loaded.
func (db *Database) LookupVendor(vid uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.vendors[vid]
}

// LookupProduct returns the product name for the given VID/PID combination.
// Returns an empty string if the product is not found or if the database
// has not been loaded.
func (db *Database) LookupProduct(vid, pid uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.products[productKey(vid, pid)]
}

// Describe returns "Vendor Product" for the given IDs, falling back to
// whichever half is known. ok is false when neither is. The search paths
// are loaded on first use if Load has not been attempted.
func (db *Database) Describe(vid, pid uint16) (string, bool) {
	if !db.IsLoaded() {
		db.Load()
	}

	vendor := db.LookupVendor(vid)
	product := db.LookupProduct(vid, pid)
	switch {
	case vendor != "" && product != "":
		return vendor + " " + product, true
	case product != "":
		return product, true
	case vendor != "":
		return vendor, true
	default:
		return "", false
	}
}

// IsLoaded returns true if the database has been loaded (or load was attempted).
func (db *Database) IsLoaded() bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.loaded
}

// Source returns the path the database was read from, or "" if none.
func (db *Database) Source() string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.source
}

// VendorCount returns the number of vendors in the database.
func (db *Database) VendorCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.vendors)
}

// ProductCount returns the number of products in the database.
func (db *Database) ProductCount() int {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return len(db.products)
}
