package audio

import "encoding/binary"

// PutInt16LE packs samples into dst as little-endian 16-bit PCM.
// dst must hold at least 2*len(src) bytes.
func PutInt16LE(dst []byte, src []int16) {
	for i, s := range src {
		binary.LittleEndian.PutUint16(dst[2*i:], uint16(s))
	}
}

// DecodeInt16LE unpacks little-endian 16-bit PCM into dst, growing it if
// needed, and returns the filled slice.
func DecodeInt16LE(dst []int, src []byte) []int {
	n := len(src) / 2
	if cap(dst) < n {
		dst = make([]int, n)
	}
	dst = dst[:n]
	for i := range dst {
		dst[i] = int(int16(binary.LittleEndian.Uint16(src[2*i:])))
	}
	return dst
}
