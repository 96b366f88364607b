package checksum

import (
	"hash/crc32"
	"testing"
)

func TestCRC16EmptyInput(t *testing.T) {
	tests := []struct {
		name   string
		seed   uint16
		xorOut uint16
	}{
		{name: "device defaults", seed: 0xFFFF, xorOut: 0xFFFF},
		{name: "zero parameters", seed: 0x0000, xorOut: 0x0000},
		{name: "mixed", seed: 0x1D0F, xorOut: 0x0000},
		{name: "xor only", seed: 0x0000, xorOut: 0xA5A5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CRC16(nil, tc.seed, tc.xorOut)
			want := tc.seed ^ tc.xorOut
			if got != want {
				t.Fatalf("CRC16(empty) = 0x%04X, want 0x%04X", got, want)
			}
		})
	}
}

func TestCRC16Deterministic(t *testing.T) {
	data := []byte{0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0x37, 0x38, 0x39}
	first := CRC16Device(data)
	second := CRC16Device(data)
	if first != second {
		t.Fatalf("CRC16 not deterministic: 0x%04X vs 0x%04X", first, second)
	}
}

func TestCRC16OrderSensitive(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	reversed := make([]byte, len(data))
	for i, b := range data {
		reversed[len(data)-1-i] = b
	}
	if CRC16Device(data) == CRC16Device(reversed) {
		t.Fatalf("CRC16 of reversed input unexpectedly equal: 0x%04X", CRC16Device(data))
	}
}

func TestCRC16KnownVector(t *testing.T) {
	// CRC-16/MODBUS of "123456789" is 0x4B37; the device variant applies a
	// final 0xFFFF XOR on top of the same table.
	data := []byte("123456789")
	modbus := CRC16(data, 0xFFFF, 0x0000)
	if modbus != 0x4B37 {
		t.Fatalf("CRC16 modbus vector = 0x%04X, want 0x4B37", modbus)
	}
	device := CRC16Device(data)
	if device != modbus^0xFFFF {
		t.Fatalf("device variant = 0x%04X, want 0x%04X", device, modbus^0xFFFF)
	}
}

func TestCRC32MatchesStandard(t *testing.T) {
	data := []byte("123456789")
	if got := CRC32(data, 0); got != crc32.ChecksumIEEE(data) {
		t.Fatalf("CRC32 = 0x%08X, want 0x%08X", got, crc32.ChecksumIEEE(data))
	}
	if got := CRC32(data, 0); got != 0xCBF43926 {
		t.Fatalf("CRC32 check vector = 0x%08X, want 0xCBF43926", got)
	}
}

func TestCRC32SeedContinuation(t *testing.T) {
	data := []byte("calibration image payload")
	split := len(data) / 2
	partial := CRC32(data[:split], 0)
	if got := CRC32(data[split:], partial); got != CRC32(data, 0) {
		t.Fatalf("continued CRC32 = 0x%08X, want 0x%08X", got, CRC32(data, 0))
	}
}
