package ultrastik

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ardnew/setu360/pkg"
)

// Outcome is the result of programming one device.
type Outcome struct {
	Candidate Candidate
	Map       Map // the applied copy, restrictor patched
	Written   int // bytes accepted across all write cycles
}

// Success reports whether the full payload was written.
func (o Outcome) Success() bool {
	return o.Written == PayloadSize
}

// String formats the outcome the way it is reported to the user, e.g.
// "U360 0xd209:0x511 (Restrictor:On) 4-Way -> SUCCESS".
func (o Outcome) String() string {
	restrictor := "Off"
	if o.Map.Restrictor() {
		restrictor = "On"
	}
	result := "FAILURE"
	if o.Success() {
		result = "SUCCESS"
	}
	return fmt.Sprintf("U360 0x%x:0x%x (Restrictor:%s) %s -> %s",
		o.Candidate.VendorID, o.Candidate.ProductID, restrictor, o.Map.Name, result)
}

// Reporter writes the user-facing lines of a run. Outcomes and warnings go
// to Out; fatal errors go to Err. A nil *Reporter drops every line.
type Reporter struct {
	Out io.Writer
	Err io.Writer
}

// NewReporter returns a Reporter writing to out and errOut. Nil writers
// default to stdout and stderr.
func NewReporter(out, errOut io.Writer) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Reporter{Out: out, Err: errOut}
}

// Warning reports a recoverable error.
func (r *Reporter) Warning(err error) {
	if r == nil {
		return
	}
	fmt.Fprintf(r.Out, "WARNING: %s - trying to proceed...\n", describe(err))
}

// Error reports a fatal error.
func (r *Reporter) Error(err error) {
	if r == nil {
		return
	}
	fmt.Fprintf(r.Err, "ERROR: %s\n", describe(err))
}

// Outcome reports the result for one device.
func (r *Reporter) Outcome(o Outcome) {
	if r == nil {
		return
	}
	fmt.Fprintln(r.Out, o.String())
}

// describe renders err for the user. Transport failures print as the
// libusb-style "NAME - description"; a failed discovery prints a sentence.
func describe(err error) string {
	if code, ok := pkg.TransportCode(err); ok {
		return code.Error()
	}
	if errors.Is(err, pkg.ErrNoMatchingDevice) {
		return "No UltraStik360 devices were found."
	}
	return err.Error()
}
