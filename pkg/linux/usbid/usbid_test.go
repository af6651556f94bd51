package usbid

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestNew verifies that New() creates a Database with default paths.
func TestNew(t *testing.T) {
	db := New()
	if db == nil {
		t.Fatal("New() returned nil")
	}
	if len(db.paths) != len(DefaultPaths) {
		t.Errorf("Expected %d paths, got %d", len(DefaultPaths), len(db.paths))
	}
	if db.vendors == nil || db.products == nil {
		t.Error("Database maps not initialized")
	}
}

// TestNewWithPaths verifies that NewWithPaths() creates a Database with custom paths.
func TestNewWithPaths(t *testing.T) {
	customPaths := []string{"/custom/path1", "/custom/path2"}
	db := NewWithPaths(customPaths)
	if db == nil {
		t.Fatal("NewWithPaths() returned nil")
	}
	if len(db.paths) != len(customPaths) {
		t.Errorf("Expected %d paths, got %d", len(customPaths), len(db.paths))
	}
	for i, path := range db.paths {
		if path != customPaths[i] {
			t.Errorf("Path %d: expected %q, got %q", i, customPaths[i], path)
		}
	}
}

// TestLoad_FileNotFound verifies that Load() handles missing files gracefully.
func TestLoad_FileNotFound(t *testing.T) {
	db := NewWithPaths([]string{"/nonexistent/path/usb.ids"})
	loaded := db.Load()
	if loaded {
		t.Error("Load() should return false when file not found")
	}
	if !db.IsLoaded() {
		t.Error("IsLoaded() should return true after Load() attempt")
	}
}

// TestLoad_Idempotent verifies that Load() is idempotent.
func TestLoad_Idempotent(t *testing.T) {
	// Create a temporary test file
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "usb.ids")
	content := `# Test USB IDs
1234  Test Vendor
	5678  Test Product
`
	if err := os.WriteFile(testFile, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	db := NewWithPaths([]string{testFile})

	// First load
	if !db.Load() {
		t.Error("First Load() failed")
	}
	vendorCount1 := db.VendorCount()
	productCount1 := db.ProductCount()

	// Second load should be no-op
	if !db.Load() {
		t.Error("Second Load() failed")
	}
	vendorCount2 := db.VendorCount()
	productCount2 := db.ProductCount()

	if vendorCount1 != vendorCount2 || productCount1 != productCount2 {
		t.Error("Second Load() modified the database")
	}
}

// TestParsing verifies basic database parsing.
func TestParsing(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "usb.ids")
	content := `# USB ID Database
# Comment line

1234  Test Vendor One
	5678  Test Product One
	9abc  Test Product Two
abcd  Test Vendor Two
	def0  Test Product Three

# Another comment
0001  Another Vendor
	0002  Another Product
`
	if err := os.WriteFile(testFile, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	db := NewWithPaths([]string{testFile})
	if !db.Load() {
		t.Fatal("Load() failed")
	}

	tests := []struct {
		name        string
		vid         uint16
		pid         uint16
		wantVendor  string
		wantProduct string
	}{
		{
			name:        "First vendor and product",
			vid:         0x1234,
			pid:         0x5678,
			wantVendor:  "Test Vendor One",
			wantProduct: "Test Product One",
		},
		{
			name:        "Second product of first vendor",
			vid:         0x1234,
			pid:         0x9abc,
			wantVendor:  "Test Vendor One",
			wantProduct: "Test Product Two",
		},
		{
			name:        "Second vendor",
			vid:         0xabcd,
			pid:         0xdef0,
			wantVendor:  "Test Vendor Two",
			wantProduct: "Test Product Three",
		},
		{
			name:        "Third vendor",
			vid:         0x0001,
			pid:         0x0002,
			wantVendor:  "Another Vendor",
			wantProduct: "Another Product",
		},
		{
			name:        "Unknown vendor",
			vid:         0xFFFF,
			pid:         0x0000,
			wantVendor:  "",
			wantProduct: "",
		},
		{
			name:        "Known vendor, unknown product",
			vid:         0x1234,
			pid:         0xFFFF,
			wantVendor:  "Test Vendor One",
			wantProduct: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotVendor := db.LookupVendor(tt.vid)
			if gotVendor != tt.wantVendor {
				t.Errorf("LookupVendor(0x%04x) = %q, want %q",
					tt.vid, gotVendor, tt.wantVendor)
			}

			gotProduct := db.LookupProduct(tt.vid, tt.pid)
			if gotProduct != tt.wantProduct {
				t.Errorf("LookupProduct(0x%04x, 0x%04x) = %q, want %q",
					tt.vid, tt.pid, gotProduct, tt.wantProduct)
			}
		})
	}
}

// TestCounts verifies VendorCount and ProductCount.
func TestCounts(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "usb.ids")
	content := `1234  Vendor One
	5678  Product One
	abcd  Product Two
5678  Vendor Two
	0001  Product Three
`
	if err := os.WriteFile(testFile, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	db := NewWithPaths([]string{testFile})
	if !db.Load() {
		t.Fatal("Load() failed")
	}

	if got := db.VendorCount(); got != 2 {
		t.Errorf("VendorCount() = %d, want 2", got)
	}
	if got := db.ProductCount(); got != 3 {
		t.Errorf("ProductCount() = %d, want 3", got)
	}
}

// TestEmptyDatabase verifies behavior with an empty database.
func TestEmptyDatabase(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "usb.ids")
	content := `# Only comments
# No actual data
`
	if err := os.WriteFile(testFile, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	db := NewWithPaths([]string{testFile})
	if !db.Load() {
		t.Fatal("Load() failed")
	}

	if got := db.VendorCount(); got != 0 {
		t.Errorf("VendorCount() = %d, want 0", got)
	}
	if got := db.ProductCount(); got != 0 {
		t.Errorf("ProductCount() = %d, want 0", got)
	}
	if got := db.LookupVendor(0x1234); got != "" {
		t.Errorf("LookupVendor() = %q, want empty string", got)
	}
	if got := db.LookupProduct(0x1234, 0x5678); got != "" {
		t.Errorf("LookupProduct() = %q, want empty string", got)
	}
}

// TestMalformedLines verifies that malformed lines are skipped gracefully.
func TestMalformedLines(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "usb.ids")
	content := `# Test malformed lines
1234  Valid Vendor
	5678  Valid Product
ZZZZ  Invalid VID (non-hex)
	YYYY  Invalid PID (non-hex)
12    Too short
	34    Too short
1234Valid Vendor No Space
	5678Valid Product No Space
9abc  Another Valid Vendor
	def0  Another Valid Product
`
	if err := os.WriteFile(testFile, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	db := NewWithPaths([]string{testFile})
	if !db.Load() {
		t.Fatal("Load() failed")
	}

	// Should have parsed the valid entries
	if got := db.VendorCount(); got != 2 {
		t.Errorf("VendorCount() = %d, want 2", got)
	}
	if got := db.ProductCount(); got != 2 {
		t.Errorf("ProductCount() = %d, want 2", got)
	}

	// Verify the valid entries
	if got := db.LookupVendor(0x1234); got != "Valid Vendor" {
		t.Errorf("LookupVendor(0x1234) = %q, want %q", got, "Valid Vendor")
	}
	if got := db.LookupProduct(0x1234, 0x5678); got != "Valid Product" {
		t.Errorf("LookupProduct(0x1234, 0x5678) = %q, want %q", got, "Valid Product")
	}
	if got := db.LookupVendor(0x9abc); got != "Another Valid Vendor" {
		t.Errorf("LookupVendor(0x9abc) = %q, want %q", got, "Another Valid Vendor")
	}
	if got := db.LookupProduct(0x9abc, 0xdef0); got != "Another Valid Product" {
		t.Errorf("LookupProduct(0x9abc, 0xdef0) = %q, want %q", got, "Another Valid Product")
	}
}

// TestLoadFrom verifies parsing from a reader, including the class section
// that follows the vendor list.
func TestLoadFrom(t *testing.T) {
	content := `d209  Ultimarc
	0301  I-PAC Arcade Control Interface
	0511  UltraStik 360
		0002  UltraStik interface (not a product)
	0512  UltraStik 360 (2)
C 03  Human Interface Device
	01  Boot Interface Subclass
`
	db := New()
	if err := db.LoadFrom(strings.NewReader(content)); err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if got := db.VendorCount(); got != 1 {
		t.Errorf("VendorCount() = %d, want 1", got)
	}
	if got := db.ProductCount(); got != 3 {
		t.Errorf("ProductCount() = %d, want 3", got)
	}
	if got := db.LookupProduct(0xd209, 0x0511); got != "UltraStik 360" {
		t.Errorf("LookupProduct(d209, 0511) = %q", got)
	}
	if db.Source() != "reader" {
		t.Errorf("Source() = %q, want reader", db.Source())
	}
}

// TestDescribe verifies the combined vendor/product names.
func TestDescribe(t *testing.T) {
	db := New()
	content := "d209  Ultimarc\n\t0511  UltraStik 360\n1234  Lonely Vendor\n"
	if err := db.LoadFrom(strings.NewReader(content)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		vid, pid uint16
		want     string
		wantOK   bool
	}{
		{0xd209, 0x0511, "Ultimarc UltraStik 360", true},
		{0xd209, 0x0513, "Ultimarc", true},
		{0x1234, 0x0001, "Lonely Vendor", true},
		{0xffff, 0xffff, "", false},
	}
	for _, tt := range tests {
		got, ok := db.Describe(tt.vid, tt.pid)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Describe(%04x, %04x) = (%q, %v), want (%q, %v)",
				tt.vid, tt.pid, got, ok, tt.want, tt.wantOK)
		}
	}
}

// TestLoad_SkipsMissingPaths verifies the search continues past missing files.
func TestLoad_SkipsMissingPaths(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "usb.ids")
	if err := os.WriteFile(testFile, []byte("d209  Ultimarc\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	db := NewWithPaths([]string{"/nonexistent/usb.ids", testFile})
	if !db.Load() {
		t.Fatal("Load() = false")
	}
	if db.Source() != testFile {
		t.Errorf("Source() = %q, want %q", db.Source(), testFile)
	}
}

// TestDescribe_LoadsOnDemand verifies that Describe loads the search paths
// when Load was never called.
func TestDescribe_LoadsOnDemand(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "usb.ids")
	if err := os.WriteFile(testFile, []byte("d209  Ultimarc\n\t0513  UltraStik 360 #3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	db := NewWithPaths([]string{testFile})
	if db.IsLoaded() {
		t.Fatal("IsLoaded() = true before any lookup")
	}
	if got, ok := db.Describe(0xd209, 0x0513); !ok || got != "Ultimarc UltraStik 360 #3" {
		t.Errorf("Describe() = (%q, %v)", got, ok)
	}
	if !db.IsLoaded() || db.Source() != testFile {
		t.Errorf("IsLoaded() = %v, Source() = %q", db.IsLoaded(), db.Source())
	}
}

// TestDescribe_MissingDatabase verifies that a failed load is not retried.
func TestDescribe_MissingDatabase(t *testing.T) {
	db := NewWithPaths([]string{"/nonexistent/path/usb.ids"})
	for i := 0; i < 2; i++ {
		if got, ok := db.Describe(0xd209, 0x0511); ok || got != "" {
			t.Errorf("Describe() = (%q, %v), want (\"\", false)", got, ok)
		}
	}
	if !db.IsLoaded() || db.VendorCount() != 0 {
		t.Errorf("IsLoaded() = %v, VendorCount() = %d", db.IsLoaded(), db.VendorCount())
	}
}
