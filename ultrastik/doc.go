// Package ultrastik programs behavioral maps into Ultimarc UltraStik 360
// joysticks.
//
// A map is a 96-byte configuration block: a four byte header carrying the
// restrictor flag, eight zone borders, a 9x9 grid of zone codes and three
// bytes of padding. The block is sent to interface 2 of the device as 24
// HID SET_REPORT control transfers of four bytes each, spaced by at least
// 417µs.
//
// # Usage
//
//	res, err := ultrastik.Apply(ctx, ultrastik.Options{
//		MapID:      5,
//		Restrictor: true,
//		Open:       linux.Open,
//	})
//
// Apply locates every device with vendor 0xD209 and product
// 0x0511..0x0514, writes the map to each in bus order and prints one
// outcome line per device:
//
//	U360 0xd209:0x511 (Restrictor:On) 4-Way -> SUCCESS
//
// The built-in maps are listed by DefaultCatalog.
package ultrastik
