package core

// Checksum computes the Internet checksum of b.
//
// Words are summed in memory order (low byte first), so the result must be stored back the same
// way: b[2] = byte(c), b[3] = byte(c >> 8). A buffer carrying its own checksum sums to zero.
func Checksum(b []byte) uint16 {
	var sum uint32

	n := len(b) &^ 1
	for i := 0; i < n; i += 2 {
		sum += uint32(b[i+1])<<8 | uint32(b[i])
	}
	if len(b)&1 == 1 {
		sum += uint32(b[len(b)-1])
	}

	sum = sum>>16 + sum&0xffff
	sum += sum >> 16

	return ^uint16(sum)
}

// putChecksum stores c at off in the order Checksum produced it.
func putChecksum(b []byte, off int, c uint16) {
	b[off] = byte(c)
	b[off+1] = byte(c >> 8)
}

// readChecksum is the inverse of putChecksum.
func readChecksum(b []byte, off int) uint16 {
	return uint16(b[off]) | uint16(b[off+1])<<8
}
