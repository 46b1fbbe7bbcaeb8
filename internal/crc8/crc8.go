// Package crc8 implements the 8-bit CRC used by the on-card data layout:
// polynomial 0x07, initial value 0, most-significant-bit first, no final XOR.
// The same algorithm guards both the counter sectors and whole telemetry
// records, only the input span differs.
package crc8

// Checksum returns the CRC of data.
func Checksum(data []byte) byte {
	var crc byte

	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ 0x07
			} else {
				crc <<= 1
			}
		}
	}

	return crc
}
