// Package script implements the bytecode command model, two-pass
// disassembler and statement assembler for the engine's script format.
package script

import (
	"encoding/binary"
	"errors"
)

var (
	ErrTruncatedScript = errors.New("script: command buffer ends mid-record")
	ErrOutOfBounds     = errors.New("script: offset outside command buffer")
)

// HeaderSize is the fixed 6-byte script header.
const HeaderSize = 6

// Header is the 6-byte script header preceding the command buffer.
type Header struct {
	BranchInfoOffs uint16
	BranchInfoSz   uint16
	BytesToEnd     uint16
}

// Size returns the total script size: header-relative branch info offset
// plus the branch-info region plus the trailing bytes.
func (h Header) Size() int {
	return int(h.BranchInfoOffs) + int(h.BranchInfoSz) + int(h.BytesToEnd)
}

// DecodeHeader reads a 6-byte little-endian Header from buf.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrTruncatedScript
	}
	return Header{
		BranchInfoOffs: binary.LittleEndian.Uint16(buf[0:2]),
		BranchInfoSz:   binary.LittleEndian.Uint16(buf[2:4]),
		BytesToEnd:     binary.LittleEndian.Uint16(buf[4:6]),
	}, nil
}

// EncodeHeader writes h as 6 little-endian bytes.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint16(buf[0:2], h.BranchInfoOffs)
	binary.LittleEndian.PutUint16(buf[2:4], h.BranchInfoSz)
	binary.LittleEndian.PutUint16(buf[4:6], h.BytesToEnd)
	return buf
}

// Cmd is a single 4-byte packed command record: a 12-bit opcode in the low
// bits and a 20-bit argument count/immediate in the high bits, followed in
// the buffer by Arg 16-bit inline words.
type Cmd struct {
	word uint32
}

// DecodeCmd reads the 4-byte little-endian word at buf[0:4].
func DecodeCmd(buf []byte) (Cmd, error) {
	if len(buf) < 4 {
		return Cmd{}, ErrTruncatedScript
	}
	return Cmd{word: binary.LittleEndian.Uint32(buf)}, nil
}

// NewCmd packs an opcode and argument count into a Cmd.
func NewCmd(op Op, arg uint32) Cmd {
	return Cmd{word: (arg << 12) | uint32(op)&0xFFF}
}

// Encode writes the 4-byte little-endian word to buf[0:4].
func (c Cmd) Encode(buf []byte) {
	binary.LittleEndian.PutUint32(buf, c.word)
}

// Op returns the 12-bit opcode field.
func (c Cmd) Op() Op { return Op(c.word & 0xFFF) }

// Arg returns the 20-bit argument field.
func (c Cmd) Arg() uint32 { return c.word >> 12 }

// Size is the total byte length of this command, header plus arg block.
func (c Cmd) Size() int { return 4 + 2*int(c.Arg()) }

// ArgWords reads the Arg() 16-bit little-endian words following the command
// word at buf[4:].
func (c Cmd) ArgWords(buf []byte) ([]uint16, error) {
	n := int(c.Arg())
	need := 4 + 2*n
	if len(buf) < need {
		return nil, ErrTruncatedScript
	}
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = binary.LittleEndian.Uint16(buf[4+2*i:])
	}
	return out, nil
}
