package romimage

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrMalformedIndexLine = errors.New("romimage: malformed strtab index file line")
	ErrIndexOutOfRange    = errors.New("romimage: strtab index exceeds the embed table size")
	ErrBadEscape          = errors.New("romimage: unrecognised escape sequence")
)

// MaxIndexEntries bounds how many numbered strings a single index file may
// declare, matching the embed context's fixed-size string table.
const MaxIndexEntries = 10000

// yenSign is Shift-JIS's half-width yen sign, U+00A5, used in the source
// text format as a visual stand-in for a backslash escape introducer
// (Shift-JIS maps \ and ¥ to the same glyph column on Japanese keyboards).
const yenSign = '¥'

// ParseIndexFile parses the "idx: text" line format used to bulk-load a
// string table for embedding: each line gives a decimal or 0x-prefixed
// index, a colon, and the (possibly escaped) message text. Missing indices
// are left absent from the result rather than defaulting to empty text;
// callers decide how to backfill gaps.
func ParseIndexFile(data []byte) (map[int]string, error) {
	out := make(map[int]string)

	sc := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			return nil, fmt.Errorf("line %d: %w", lineNo, ErrMalformedIndexLine)
		}

		idx, err := strconv.ParseUint(strings.TrimSpace(line[:colon]), 0, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, ErrMalformedIndexLine)
		}
		if idx >= MaxIndexEntries {
			return nil, fmt.Errorf("line %d: %w", lineNo, ErrIndexOutOfRange)
		}

		text := strings.TrimPrefix(line[colon+1:], " ")
		unescaped, err := unescapeStrtabText(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		out[int(idx)] = unescaped
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// unescapeStrtabText turns a source-text message into the literal bytes a
// strtab leaf decode would produce: "\n" and "¥n" both mean a literal
// newline, "\r" a carriage return, "\"" a double quote, and "\xHH" and
// "¥xHH" both mean the literal byte HH.
func unescapeStrtabText(s string) (string, error) {
	var sb strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c != '\\' && c != yenSign {
			sb.WriteRune(c)
			continue
		}
		if i+1 >= len(runes) {
			return "", ErrBadEscape
		}
		switch runes[i+1] {
		case 'n':
			sb.WriteByte('\n')
			i++
		case 'r':
			sb.WriteByte('\r')
			i++
		case '"':
			sb.WriteByte('"')
			i++
		case 'x':
			if i+3 >= len(runes) {
				return "", ErrBadEscape
			}
			v, err := strconv.ParseUint(string(runes[i+2:i+4]), 16, 8)
			if err != nil {
				return "", ErrBadEscape
			}
			sb.WriteByte(byte(v))
			i += 3
		default:
			return "", ErrBadEscape
		}
	}
	return sb.String(), nil
}
