// Package romimage implements ROM-relative address arithmetic, the stock
// integrity checksum, and the embed orchestrator that splices an assembled
// script and its string tables back into a ROM byte image.
package romimage

import (
	"errors"
	"hash/crc32"
)

// RomBase is the virtual memory address the ROM is mapped to on the
// handheld's bus.
const RomBase = 0x08000000

// MaxOffset bounds the ROM's addressable size: any VMA beyond
// RomBase+MaxOffset does not correspond to ROM content.
const MaxOffset = 0x01FFFFFF

// StockChecksum is the IEEE CRC-32 of an unmodified ROM image. A mismatch
// is informational only — the original host tool proceeds regardless.
const StockChecksum = 0x318A1E9B

var (
	ErrVMAOutOfRange    = errors.New("romimage: vma is outside the addressable ROM range")
	ErrOffsetOutOfRange = errors.New("romimage: offset is outside the addressable ROM range")
	ErrChecksumMismatch = errors.New("romimage: rom does not match the known stock checksum")
)

// VMAToOffset converts a virtual memory address to a byte offset into the
// ROM file.
func VMAToOffset(vma uint32) (uint32, error) {
	if vma < RomBase || vma-RomBase > MaxOffset {
		return 0, ErrVMAOutOfRange
	}
	return vma - RomBase, nil
}

// OffsetToVMA converts a byte offset into the ROM file to a virtual memory
// address.
func OffsetToVMA(offs uint32) (uint32, error) {
	if offs > MaxOffset {
		return 0, ErrOffsetOutOfRange
	}
	return offs + RomBase, nil
}

// VerifyChecksum reports whether rom's CRC-32 matches the known stock
// value. Callers treat a mismatch as a warning, not a fatal condition — a
// ROM that has already been patched once will legitimately differ.
func VerifyChecksum(rom []byte) error {
	if crc32.ChecksumIEEE(rom) != StockChecksum {
		return ErrChecksumMismatch
	}
	return nil
}
