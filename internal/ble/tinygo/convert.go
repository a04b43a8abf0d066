// Package tinygo feeds advertisements from tinygo.org/x/bluetooth into the
// scan bridge.
package tinygo

// macValue packs a little-endian MAC, as tinygo stores it, into the low 48
// bits of a uint64: mac[0] is the least significant byte.
func macValue(mac [6]byte) uint64 {
	var v uint64
	for i, b := range mac {
		v |= uint64(b) << (8 * i)
	}
	return v
}
