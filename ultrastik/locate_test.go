package ultrastik

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ardnew/setu360/host/hal/sim"
	"github.com/ardnew/setu360/pkg"
)

func TestMatches(t *testing.T) {
	tests := []struct {
		vid, pid uint16
		want     bool
	}{
		{VendorID, ProductBase - 1, false},
		{VendorID, ProductBase, true},
		{VendorID, ProductBase + 1, true},
		{VendorID, ProductBase + 2, true},
		{VendorID, ProductBase + 3, true},
		{VendorID, ProductBase + 4, false},
		{0x1234, ProductBase, false},
		{VendorID, 0x0000, false},
	}
	for _, tt := range tests {
		if got := Matches(tt.vid, tt.pid, VendorID, ProductBase); got != tt.want {
			t.Errorf("Matches(0x%04x, 0x%04x) = %v, want %v", tt.vid, tt.pid, got, tt.want)
		}
	}
}

func TestMatches_TopOfRange(t *testing.T) {
	if !Matches(1, 0xFFFF, 1, 0xFFFD) {
		t.Error("0xFFFF not matched from base 0xFFFD")
	}
	if Matches(1, 0x0000, 1, 0xFFFD) {
		t.Error("product range wrapped around")
	}
}

type namer map[uint16]string

func (n namer) Describe(_, pid uint16) (string, bool) {
	s, ok := n[pid]
	return s, ok
}

func TestLocate(t *testing.T) {
	broken := sim.NewDevice(VendorID, ProductBase)
	broken.Name = "broken"
	broken.DescriptorErr = pkg.NewTransportError(pkg.USBErrorIO, nil)

	devs := []*sim.Device{
		sim.NewDevice(0x046D, 0xC52B),
		sim.NewDevice(VendorID, ProductBase-1),
		sim.NewDevice(VendorID, ProductBase+2),
		broken,
		sim.NewDevice(VendorID, ProductBase),
		sim.NewDevice(VendorID, ProductBase+4),
		sim.NewDevice(VendorID, ProductBase+3),
	}
	bus := sim.NewBus(devs...)

	var out bytes.Buffer
	rep := NewReporter(&out, &out)
	got := Locate(bus, VendorID, ProductBase, namer{ProductBase: "UltraStik 360"}, rep)

	want := []uint16{ProductBase + 2, ProductBase, ProductBase + 3}
	if len(got) != len(want) {
		t.Fatalf("Locate() = %v, want %d candidates", got, len(want))
	}
	for i, c := range got {
		if c.ProductID != want[i] || c.VendorID != VendorID {
			t.Errorf("candidate %d = %s, want pid 0x%x", i, c, want[i])
		}
	}
	if got[1].Device != devs[4] {
		t.Error("candidate does not carry its device")
	}
	if got[1].Product != "UltraStik 360" || got[0].Product != "" {
		t.Errorf("products = %q, %q", got[0].Product, got[1].Product)
	}

	line := "WARNING: LIBUSB_ERROR_IO - Input/Output Error - trying to proceed...\n"
	if out.String() != line {
		t.Errorf("report = %q, want %q", out.String(), line)
	}
	if devs[2].Opens() != 0 {
		t.Error("Locate opened a device")
	}
}

func TestLocate_EnumerationError(t *testing.T) {
	bus := sim.NewBus(sim.NewDevice(VendorID, ProductBase))
	bus.DevicesErr = pkg.NewTransportError(pkg.USBErrorNoMem, nil)

	var out bytes.Buffer
	got := Locate(bus, VendorID, ProductBase, nil, NewReporter(&out, &out))
	if len(got) != 0 {
		t.Errorf("Locate() = %v, want none", got)
	}
	if !strings.HasPrefix(out.String(), "WARNING: LIBUSB_ERROR_NO_MEM") {
		t.Errorf("report = %q", out.String())
	}
}

func TestLocate_Empty(t *testing.T) {
	var out bytes.Buffer
	got := Locate(sim.NewBus(), VendorID, ProductBase, nil, NewReporter(&out, &out))
	if len(got) != 0 || out.Len() != 0 {
		t.Errorf("Locate() = %v, report %q", got, out.String())
	}
}

func TestLocate_NilReporter(t *testing.T) {
	broken := sim.NewDevice(VendorID, ProductBase)
	broken.DescriptorErr = pkg.NewTransportError(pkg.USBErrorIO, nil)
	bus := sim.NewBus(broken, sim.NewDevice(VendorID, ProductBase+1))

	got := Locate(bus, VendorID, ProductBase, nil, nil)
	if len(got) != 1 || got[0].ProductID != ProductBase+1 {
		t.Errorf("Locate() = %v, want the readable device only", got)
	}

	bus.DevicesErr = pkg.NewTransportError(pkg.USBErrorNoMem, nil)
	if got := Locate(bus, VendorID, ProductBase, nil, nil); len(got) != 0 {
		t.Errorf("Locate() = %v, want none", got)
	}
}

func TestReporter_Nil(t *testing.T) {
	var rep *Reporter
	rep.Warning(pkg.ErrBusy)
	rep.Error(pkg.ErrBusy)
	rep.Outcome(Outcome{})
}

func TestCandidate_String(t *testing.T) {
	c := Candidate{VendorID: 0xD209, ProductID: 0x0511}
	if got, want := c.String(), "0xd209:0x511"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
