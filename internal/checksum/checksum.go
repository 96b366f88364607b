// Package checksum implements the checksum algorithms used by the DME
// calibration image: the device's reflected table-driven CRC-16 variant and
// the standard reflected CRC-32.
package checksum

import "hash/crc32"

const (
	// Poly16 is the reversed CRC-16 polynomial used by the DME (0x8005
	// bit-reflected). This is not the CCITT variant.
	Poly16 = 0xA001

	// DefaultSeed16 and DefaultXorOut16 are the parameters the device
	// applies to its stored zone checksums.
	DefaultSeed16   = 0xFFFF
	DefaultXorOut16 = 0xFFFF
)

var crc16Table = func() [256]uint16 {
	var table [256]uint16
	for i := 0; i < 256; i++ {
		crc := uint16(i)
		for bit := 0; bit < 8; bit++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ Poly16
			} else {
				crc >>= 1
			}
		}
		table[i] = crc
	}
	return table
}()

// CRC16 computes the reflected CRC-16 of data with the given seed and final
// XOR. Empty input yields seed ^ xorOut.
func CRC16(data []byte, seed, xorOut uint16) uint16 {
	crc := seed
	for _, b := range data {
		crc = crc16Table[byte(crc)^b] ^ (crc >> 8)
	}
	return crc ^ xorOut
}

// CRC16Device computes the CRC-16 with the device's default parameters.
func CRC16Device(data []byte) uint16 {
	return CRC16(data, DefaultSeed16, DefaultXorOut16)
}

// CRC32 computes the standard reflected CRC-32 (reversed polynomial
// 0xEDB88320) of data, continuing from seed. A zero seed computes the plain
// checksum of data.
func CRC32(data []byte, seed uint32) uint32 {
	return crc32.Update(seed, crc32.IEEETable, data)
}
