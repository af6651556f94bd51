// Package host holds the USB session that owns the subsystem and device
// handles for one run of setu360.
//
// It is platform-agnostic and reaches hardware through the [hal.Bus],
// [hal.Device] and [hal.Handle] interfaces defined in the
// github.com/ardnew/setu360/host/hal package.
//
// # Lifecycle
//
// A [Session] moves through these states:
//
//	Uninitialized -> Initialized -> (Programming)* -> Closed
//
//   - Init opens the backend bus (Uninitialized -> Initialized)
//   - Open opens one device handle (-> Programming)
//   - CloseHandle closes it again (Programming -> Initialized)
//   - Close tears everything down from any state (-> Closed)
//
// Close is idempotent, so callers defer it once at the top of a run and
// every exit path funnels through the same cleanup.
//
// # Example
//
//	s := host.NewSession()
//	defer s.Close()
//
//	if err := s.Init(linux.Open); err != nil {
//	    return err
//	}
//	bus, _ := s.Bus()
//	devices, err := bus.Devices()
//	...
//	h, err := s.Open(devices[0])
//	...
//	s.CloseHandle()
package host
