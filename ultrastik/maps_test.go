package ultrastik

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/sigurn/crc8"

	"github.com/ardnew/setu360/pkg"
)

func mustCatalog(t testing.TB) *Catalog {
	t.Helper()
	c, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog() error = %v", err)
	}
	return c
}

// cell returns the grid cell at row, col of a payload.
func cell(p []byte, row, col int) byte {
	return p[HeaderSize+BorderCount+row*GridSize+col]
}

// =============================================================================
// Catalog Tests
// =============================================================================

func TestDefaultCatalog_Names(t *testing.T) {
	want := []string{
		"2-Way, Left & Right",
		"2-Way, Up & Down",
		"4-Way, Diagonals Only",
		"4-Way, No Sticky (UD Bias)",
		"4-Way",
		"8-Way Easy Diagonals",
		"8-Way",
		"Analog",
		"Mouse Pointer",
	}

	maps := mustCatalog(t).Maps()
	if len(maps) != len(want) {
		t.Fatalf("len(Maps()) = %d, want %d", len(maps), len(want))
	}
	for i, m := range maps {
		if m.ID != i+1 {
			t.Errorf("Maps()[%d].ID = %d, want %d", i, m.ID, i+1)
		}
		if m.Name != want[i] {
			t.Errorf("map %d name = %q, want %q", m.ID, m.Name, want[i])
		}
	}
}

func TestDefaultCatalog_Layout(t *testing.T) {
	borders := []byte{30, 58, 86, 114, 142, 170, 198, 226}

	for _, m := range mustCatalog(t).Maps() {
		p := m.Payload()
		if len(p) != PayloadSize {
			t.Fatalf("map %d payload len = %d, want %d", m.ID, len(p), PayloadSize)
		}
		if p[0] != HeaderMagic0 || p[1] != HeaderMagic1 {
			t.Errorf("map %d header = % x", m.ID, p[:2])
		}
		if p[RestrictorOffset] != RestrictorOff {
			t.Errorf("map %d restrictor = 0x%02x, want off", m.ID, p[RestrictorOffset])
		}
		if p[StorageOffset] != StoreFlash {
			t.Errorf("map %d storage = 0x%02x", m.ID, p[StorageOffset])
		}
		if !bytes.Equal(p[HeaderSize:HeaderSize+BorderCount], borders) {
			t.Errorf("map %d borders = %v", m.ID, p[HeaderSize:HeaderSize+BorderCount])
		}
		for _, b := range p[PayloadSize-PadSize:] {
			if b != 0 {
				t.Errorf("map %d padding = % x", m.ID, p[PayloadSize-PadSize:])
				break
			}
		}
		if got := cell(p, 4, 4); m.ID < 8 && got != ZoneCenter {
			t.Errorf("map %d centre = 0x%02x, want centre", m.ID, got)
		}
	}
}

func TestDefaultCatalog_Zones(t *testing.T) {
	c := mustCatalog(t)

	tests := []struct {
		id       int
		row, col int
		want     byte
	}{
		{1, 0, 0, ZoneW},
		{1, 0, 8, ZoneE},
		{2, 0, 0, ZoneN},
		{2, 8, 8, ZoneS},
		{5, 0, 0, ZoneSticky},
		{5, 0, 4, ZoneN},
		{5, 4, 8, ZoneE},
		{7, 0, 0, ZoneNW},
		{7, 8, 8, ZoneSE},
		{8, 4, 4, ZoneAnalog},
		{9, 0, 0, ZoneAnalog},
	}
	for _, tt := range tests {
		m, err := c.Lookup(tt.id)
		if err != nil {
			t.Fatal(err)
		}
		if got := cell(m.Payload(), tt.row, tt.col); got != tt.want {
			t.Errorf("map %d cell (%d,%d) = 0x%02x, want 0x%02x",
				tt.id, tt.row, tt.col, got, tt.want)
		}
	}
}

func TestCatalog_Lookup(t *testing.T) {
	c := mustCatalog(t)

	for _, id := range []int{0, -1, 10, 255} {
		if _, err := c.Lookup(id); !errors.Is(err, pkg.ErrInvalidParameter) {
			t.Errorf("Lookup(%d) error = %v, want ErrInvalidParameter", id, err)
		}
	}
	for id := MinMapID; id <= MaxMapID; id++ {
		m, err := c.Lookup(id)
		if err != nil || m.ID != id {
			t.Errorf("Lookup(%d) = %v, %v", id, m, err)
		}
	}
}

// =============================================================================
// Map Tests
// =============================================================================

func TestMap_WithRestrictor(t *testing.T) {
	c := mustCatalog(t)

	for id := MinMapID; id <= MaxMapID; id++ {
		m, _ := c.Lookup(id)

		on := m.WithRestrictor(true)
		if p := on.Payload(); len(p) != PayloadSize || p[RestrictorOffset] != RestrictorOn {
			t.Errorf("map %d on: len %d restrictor 0x%02x", id, len(p), p[RestrictorOffset])
		}
		if !on.Restrictor() {
			t.Errorf("map %d on: Restrictor() = false", id)
		}

		off := on.WithRestrictor(false)
		if p := off.Payload(); p[RestrictorOffset] != RestrictorOff {
			t.Errorf("map %d off: restrictor 0x%02x", id, p[RestrictorOffset])
		}

		// Only the restrictor byte differs.
		a, b := on.Payload(), off.Payload()
		a[RestrictorOffset], b[RestrictorOffset] = 0, 0
		if !bytes.Equal(a, b) {
			t.Errorf("map %d: restrictor patch changed other bytes", id)
		}
	}

	// The catalog is untouched.
	for _, m := range c.Maps() {
		if m.Restrictor() {
			t.Errorf("catalog map %d mutated", m.ID)
		}
	}
}

func TestMap_PayloadIsCopy(t *testing.T) {
	m, _ := mustCatalog(t).Lookup(5)
	p := m.Payload()
	p[0] = 0xFF
	if m.Payload()[0] != HeaderMagic0 {
		t.Error("Payload() aliases map storage")
	}
}

func TestMap_Fingerprint(t *testing.T) {
	m, _ := mustCatalog(t).Lookup(5)

	want := crc8.Checksum(m.Payload(), crc8.MakeTable(crc8.CRC8))
	if got := m.Fingerprint(); got != want {
		t.Errorf("Fingerprint() = 0x%02x, want 0x%02x", got, want)
	}
	if m.Fingerprint() == m.WithRestrictor(true).Fingerprint() {
		t.Error("Fingerprint() ignores restrictor byte")
	}
}

func TestMap_String(t *testing.T) {
	m, _ := mustCatalog(t).Lookup(6)
	if got, want := m.String(), "6  8-Way Easy Diagonals"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

// =============================================================================
// Frame Tests
// =============================================================================

func TestFrames(t *testing.T) {
	m, _ := mustCatalog(t).Lookup(7)
	f := m.Frames()

	var joined []byte
	n := 0
	for {
		frame, ok := f.Next()
		if !ok {
			break
		}
		if len(frame) != MessageLength {
			t.Fatalf("frame %d len = %d", n, len(frame))
		}
		joined = append(joined, frame...)
		n++
		if f.Index() != n {
			t.Errorf("Index() = %d, want %d", f.Index(), n)
		}
	}
	if n != WriteCycles {
		t.Errorf("frames = %d, want %d", n, WriteCycles)
	}
	if !bytes.Equal(joined, m.Payload()) {
		t.Error("frames do not reassemble the payload in order")
	}
	if _, ok := f.Next(); ok {
		t.Error("Next() after exhaustion returned a frame")
	}
}

func TestFrames_Independent(t *testing.T) {
	m, _ := mustCatalog(t).Lookup(1)
	frame, _ := m.Frames().Next()
	frame[0] = 0
	if m.Payload()[0] != HeaderMagic0 {
		t.Error("frame aliases map storage")
	}
}

// =============================================================================
// Parser Tests
// =============================================================================

const row9 = "C C C C C C C C C\n"

func catalogText(maps ...int) string {
	var b strings.Builder
	b.WriteString("# test\nborders 1 2 3 4 5 6 7 8\n")
	for _, id := range maps {
		b.WriteString("map ")
		b.WriteString(string(rune('0' + id)))
		b.WriteString(" Test\n")
		b.WriteString(strings.Repeat(row9, GridSize))
	}
	return b.String()
}

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog(strings.NewReader(catalogText(1, 2, 3, 4, 5, 6, 7, 8, 9)))
	if err != nil {
		t.Fatalf("ParseCatalog() error = %v", err)
	}
	m, _ := c.Lookup(3)
	p := m.Payload()
	if p[HeaderSize] != 1 || p[HeaderSize+BorderCount-1] != 8 {
		t.Errorf("borders = %v", p[HeaderSize:HeaderSize+BorderCount])
	}
	if cell(p, 8, 8) != ZoneCenter {
		t.Errorf("last cell = 0x%02x", cell(p, 8, 8))
	}
}

func TestParseCatalog_Errors(t *testing.T) {
	full := catalogText(1, 2, 3, 4, 5, 6, 7, 8, 9)

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "map 1 missing"},
		{"missing map", catalogText(1, 2, 3, 4, 5, 6, 7, 8), "map 9 missing"},
		{"duplicate", full + "map 1 Again\n" + strings.Repeat(row9, GridSize), "defined twice"},
		{"map before borders", "map 1 X\n" + strings.Repeat(row9, GridSize), "map before borders"},
		{"short borders", "borders 1 2 3\n", "want 8 values"},
		{"decreasing borders", "borders 1 2 3 4 5 6 8 7\n", "does not increase"},
		{"border overflow", "borders 1 2 3 4 5 6 7 300\n", "borders"},
		{"bad id", "borders 1 2 3 4 5 6 7 8\nmap 0 X\n", "out of range"},
		{"no name", "borders 1 2 3 4 5 6 7 8\nmap 1\n", "no name"},
		{"short grid", "borders 1 2 3 4 5 6 7 8\nmap 1 X\n" + row9, "want 9 rows"},
		{"short row", "borders 1 2 3 4 5 6 7 8\nmap 1 X\nC C\n", "want 9 zones"},
		{"unknown zone", "borders 1 2 3 4 5 6 7 8\nmap 1 X\n" + strings.Repeat("Q ", 9) + "\n", "unknown zone"},
		{"keyword", "bogus\n", "unexpected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog(strings.NewReader(tt.input))
			if err == nil {
				t.Fatal("ParseCatalog() succeeded")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestParseCatalog_LineNumbers(t *testing.T) {
	_, err := ParseCatalog(strings.NewReader("# one\n\nborders 1 2\n"))
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Errorf("error = %v, want line 3", err)
	}
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkMap_WithRestrictor(b *testing.B) {
	m, _ := mustCatalog(b).Lookup(5)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.WithRestrictor(i&1 == 0)
	}
}

func BenchmarkParseCatalog(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := ParseCatalog(strings.NewReader(embeddedMaps)); err != nil {
			b.Fatal(err)
		}
	}
}
