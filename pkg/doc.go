// Package pkg provides shared utilities for setu360.
//
// This package contains common functionality used by the USB backends and
// the map programming logic, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel errors and the [Kind] taxonomy that decides whether an
//     error aborts a run
//   - Transport status codes ([USBError]) with libusb-style names
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with component context:
//
//	pkg.Configure(os.Stderr, verbose, pkg.LogFormatText)
//	pkg.LogInfo(pkg.ComponentEngine, "map applied", "map", 5)
//
// An "error" attribute is annotated with the error's [Kind] and, for
// transport failures, its libusb code name.
//
// # Errors
//
// Fatal and recoverable failures are told apart by kind:
//
//	if pkg.KindOf(err).Fatal() {
//	    // clean up and exit non-zero
//	}
//
// Backend failures carry a transport code that prints the way libusb does:
//
//	if code, ok := pkg.TransportCode(err); ok {
//	    fmt.Println(code.Name(), "-", code.Description())
//	}
package pkg
