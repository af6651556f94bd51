package ultrastik

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/sigurn/crc8"

	"github.com/ardnew/setu360/pkg"
)

//go:embed u360maps.txt
var embeddedMaps string

// =============================================================================
// Map
// =============================================================================

// Map is one behavioral map: a named 96-byte firmware configuration block.
// Map is a value type; copies never share payload storage.
type Map struct {
	ID   int
	Name string

	payload [PayloadSize]byte
}

// Payload returns a copy of the payload.
func (m Map) Payload() []byte {
	out := make([]byte, PayloadSize)
	copy(out, m.payload[:])
	return out
}

// Restrictor reports whether the restrictor flag is set.
func (m Map) Restrictor() bool {
	return m.payload[RestrictorOffset] == RestrictorOn
}

// WithRestrictor returns a copy of m with the restrictor flag patched.
func (m Map) WithRestrictor(on bool) Map {
	if on {
		m.payload[RestrictorOffset] = RestrictorOn
	} else {
		m.payload[RestrictorOffset] = RestrictorOff
	}
	return m
}

var crcTable = crc8.MakeTable(crc8.CRC8)

// Fingerprint returns the CRC-8 of the payload.
func (m Map) Fingerprint() uint8 {
	return crc8.Checksum(m.payload[:], crcTable)
}

// Frames returns an iterator over the payload's write-cycle frames.
func (m Map) Frames() *Frames {
	return &Frames{buf: m.Payload()}
}

// String returns "<id>  <name>".
func (m Map) String() string {
	return fmt.Sprintf("%d  %s", m.ID, m.Name)
}

// =============================================================================
// Frame Iterator
// =============================================================================

// Frames yields successive MessageLength windows of a payload, in order.
type Frames struct {
	buf []byte
	off int
}

// Next returns the next frame and true, or nil and false when the payload
// is exhausted. The returned slice aliases the iterator's private copy.
func (f *Frames) Next() ([]byte, bool) {
	if f.off+MessageLength > len(f.buf) {
		return nil, false
	}
	frame := f.buf[f.off : f.off+MessageLength : f.off+MessageLength]
	f.off += MessageLength
	return frame, true
}

// Index returns the number of frames already yielded.
func (f *Frames) Index() int {
	return f.off / MessageLength
}

// =============================================================================
// Catalog
// =============================================================================

// Catalog is the immutable table of behavioral maps, ordered by ID.
type Catalog struct {
	maps [MaxMapID]Map
}

var (
	defaultCatalog     *Catalog
	defaultCatalogErr  error
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the catalog built into the binary.
func DefaultCatalog() (*Catalog, error) {
	defaultCatalogOnce.Do(func() {
		defaultCatalog, defaultCatalogErr = ParseCatalog(strings.NewReader(embeddedMaps))
		if defaultCatalogErr == nil {
			pkg.LogDebug(pkg.ComponentCatalog, "catalog loaded", "maps", MaxMapID)
		}
	})
	return defaultCatalog, defaultCatalogErr
}

// Lookup returns a copy of the map with the given ID.
func (c *Catalog) Lookup(id int) (Map, error) {
	if id < MinMapID || id > MaxMapID {
		return Map{}, fmt.Errorf("map %d out of range [%d-%d]: %w",
			id, MinMapID, MaxMapID, pkg.ErrInvalidParameter)
	}
	return c.maps[id-1], nil
}

// Maps returns copies of all maps in ID order.
func (c *Catalog) Maps() []Map {
	out := make([]Map, len(c.maps))
	copy(out, c.maps[:])
	return out
}

// =============================================================================
// Catalog Parsing
// =============================================================================

// zoneCodes maps grid tokens to zone bytes.
var zoneCodes = map[string]byte{
	"-":  ZoneAnalog,
	"C":  ZoneCenter,
	"N":  ZoneN,
	"NE": ZoneNE,
	"E":  ZoneE,
	"SE": ZoneSE,
	"S":  ZoneS,
	"SW": ZoneSW,
	"W":  ZoneW,
	"NW": ZoneNW,
	"*":  ZoneSticky,
}

// ParseCatalog reads a map table. The format is line oriented; blank lines
// and lines starting with '#' are ignored:
//
//	borders b1 b2 ... b8
//	map <id> <name>
//	<9 rows of 9 zone tokens>
//
// All IDs from MinMapID to MaxMapID must be defined exactly once, after
// the borders line.
func ParseCatalog(r io.Reader) (*Catalog, error) {
	p := catalogParser{scanner: bufio.NewScanner(r)}
	return p.parse()
}

type catalogParser struct {
	scanner *bufio.Scanner
	line    int

	borders    [BorderCount]byte
	hasBorders bool
}

func (p *catalogParser) errorf(format string, args ...any) error {
	return fmt.Errorf("maps line %d: %s", p.line, fmt.Sprintf(format, args...))
}

// next returns the next significant line.
func (p *catalogParser) next() (string, bool) {
	for p.scanner.Scan() {
		p.line++
		s := strings.TrimSpace(p.scanner.Text())
		if s == "" || s[0] == '#' {
			continue
		}
		return s, true
	}
	return "", false
}

func (p *catalogParser) parse() (*Catalog, error) {
	var c Catalog
	var seen [MaxMapID]bool

	for {
		s, ok := p.next()
		if !ok {
			break
		}
		keyword, rest, _ := strings.Cut(s, " ")
		switch keyword {
		case "borders":
			if err := p.parseBorders(rest); err != nil {
				return nil, err
			}
		case "map":
			m, err := p.parseMap(rest)
			if err != nil {
				return nil, err
			}
			if seen[m.ID-1] {
				return nil, p.errorf("map %d defined twice", m.ID)
			}
			seen[m.ID-1] = true
			c.maps[m.ID-1] = m
		default:
			return nil, p.errorf("unexpected %q", keyword)
		}
	}
	if err := p.scanner.Err(); err != nil {
		return nil, err
	}

	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("maps: map %d missing", i+1)
		}
	}
	return &c, nil
}

func (p *catalogParser) parseBorders(rest string) error {
	fields := strings.Fields(rest)
	if len(fields) != BorderCount {
		return p.errorf("borders: want %d values, got %d", BorderCount, len(fields))
	}
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 8)
		if err != nil {
			return p.errorf("borders: %v", err)
		}
		if i > 0 && byte(v) <= p.borders[i-1] {
			return p.errorf("borders: %d does not increase", v)
		}
		p.borders[i] = byte(v)
	}
	p.hasBorders = true
	return nil
}

func (p *catalogParser) parseMap(rest string) (Map, error) {
	if !p.hasBorders {
		return Map{}, p.errorf("map before borders")
	}

	idText, name, _ := strings.Cut(strings.TrimSpace(rest), " ")
	id, err := strconv.Atoi(idText)
	if err != nil || id < MinMapID || id > MaxMapID {
		return Map{}, p.errorf("map id %q out of range", idText)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Map{}, p.errorf("map %d has no name", id)
	}

	m := Map{ID: id, Name: name}
	m.payload[0] = HeaderMagic0
	m.payload[1] = HeaderMagic1
	m.payload[RestrictorOffset] = RestrictorOff
	m.payload[StorageOffset] = StoreFlash
	copy(m.payload[HeaderSize:], p.borders[:])

	cell := HeaderSize + BorderCount
	for row := 0; row < GridSize; row++ {
		s, ok := p.next()
		if !ok {
			return Map{}, p.errorf("map %d: want %d rows, got %d", id, GridSize, row)
		}
		tokens := strings.Fields(s)
		if len(tokens) != GridSize {
			return Map{}, p.errorf("map %d row %d: want %d zones, got %d", id, row+1, GridSize, len(tokens))
		}
		for _, tok := range tokens {
			code, ok := zoneCodes[tok]
			if !ok {
				return Map{}, p.errorf("map %d row %d: unknown zone %q", id, row+1, tok)
			}
			m.payload[cell] = code
			cell++
		}
	}
	return m, nil
}
