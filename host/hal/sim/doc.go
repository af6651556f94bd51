// Package sim provides an in-memory USB host backend.
//
// A [Bus] holds a fixed list of [Device] values. Each device records the
// control transfers, interface claims and kernel driver detaches it sees,
// and exposes error fields that inject failures into individual
// operations. The package backs unit tests and the command's dry-run
// backend.
//
// Example:
//
//	dev := sim.NewDevice(0xD209, 0x0511)
//	dev.KernelDriver = true
//	bus := sim.NewBus(dev)
//	// hand bus.Opener() to the code under test, then inspect
//	// dev.Transfers(), dev.Detached(), dev.Closes() ...
package sim
