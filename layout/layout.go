// Package layout computes text-box word-wrapping and pagination for
// Shift-JIS script strings, using the per-glyph pixel margins from the
// glyph package. The constants here mirror the fixed on-screen text box:
// a 16px-square glyph cell, a 16-224px horizontal band, and a 7-row,
// 126-glyph frame budget.
package layout

import "github.com/07151129/shpn-tool/glyph"

const (
	GlyphDim        = 16
	LeftMargin      = 16
	RightMargin     = 224
	InterWordSpace  = 6
	RowHeight       = 14
	UpperMargin     = 15
	MaxRowsPerFrame = 7
	MaxGlyphsPerFrame = 126
)

func isSpace(b byte) bool { return b == ' ' }
func isNewline(b byte) bool { return b == '\n' }

// wordEndX advances one glyph at a time from x over the word starting at s,
// returning the x coordinate of the word's end and the number of bytes it
// consumed. A word ends at a space, newline, wait command, or end of string.
func wordEndX(s []byte, x int) (endX, n int) {
	prevRight := 0
	inQuotes := false
	i := 0
	for i < len(s) {
		b := s[i]
		if isSpace(b) || isNewline(b) {
			break
		}
		if glyph.IsWaitCmd(s[i:]) {
			break
		}
		m := glyph.Margin(uint16(b), inQuotes)
		if b == '"' {
			inQuotes = !inQuotes
		}
		x += GlyphDim - m.Left - prevRight
		prevRight = m.Right
		i++
	}
	return x - prevRight, i
}

// HardWrapSJIS inserts '\n' at the last preceding space whenever the current
// word would overrun the right margin, restarting layout after each split.
// It is idempotent: re-running it on its own output is a no-op.
func HardWrapSJIS(s []byte) []byte {
	out := make([]byte, len(s))
	copy(out, s)

	x := LeftMargin
	lastSpace := -1
	i := 0
	for i < len(out) {
		b := out[i]
		switch {
		case isNewline(b):
			x = LeftMargin
			lastSpace = -1
			i++
			continue
		case isSpace(b):
			lastSpace = i
			x += InterWordSpace
			i++
			continue
		case glyph.IsWaitCmd(out[i:]):
			i += 2
			continue
		}

		endX, n := wordEndX(out[i:], x)
		if endX > RightMargin && lastSpace != -1 {
			out[lastSpace] = '\n'
			x = LeftMargin
			i = lastSpace + 1
			lastSpace = -1
			continue
		}
		x = endX
		i += n
	}
	return out
}

// SJISBreakFrameAt returns the byte index at which s should be paginated so
// that no frame holds more than MaxRowsPerFrame rows or MaxGlyphsPerFrame
// glyphs. The break point is always a newline already present in s (callers
// are expected to have run HardWrapSJIS first). Returns 0 when no break is
// necessary. A row count that reaches MaxRowsPerFrame already forces a
// break (the frame's last row is reserved for the continuation prompt), so
// a 7-line input breaks at its 6th newline while a 6-line input does not.
func SJISBreakFrameAt(s []byte) int {
	rows := 1
	glyphs := 0
	lastNewline := -1
	for i := 0; i < len(s); i++ {
		b := s[i]
		switch {
		case isNewline(b):
			rows++
			lastNewline = i
		case isSpace(b), glyph.IsWaitCmd(s[i:]):
		default:
			glyphs++
		}

		if rows >= MaxRowsPerFrame || glyphs > MaxGlyphsPerFrame {
			if lastNewline == -1 {
				return 0
			}
			return lastNewline
		}
	}
	return 0
}

// SJISNGlyphs counts renderable glyphs in s, ignoring spaces, newlines and
// wait commands.
func SJISNGlyphs(s []byte) int {
	n := 0
	for i := 0; i < len(s); i++ {
		b := s[i]
		if isSpace(b) || isNewline(b) {
			continue
		}
		if glyph.IsWaitCmd(s[i:]) {
			i++
			continue
		}
		n++
	}
	return n
}

// SJISNRows counts rows (newline-delimited lines) in s.
func SJISNRows(s []byte) int {
	n := 1
	for _, b := range s {
		if b == '\n' {
			n++
		}
	}
	return n
}
