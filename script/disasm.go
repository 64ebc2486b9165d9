package script

import (
	"fmt"
	"sort"
	"strings"
)

// MaxDumpCmds bounds how many commands a single label's walk will process,
// guaranteeing phase 1 termination even on pathological input.
const MaxDumpCmds = 15000

// Disassembler holds the two-phase disassembly state for one script's
// command buffer (the region of the script before branch_info_offs).
type Disassembler struct {
	Cmds []byte

	labels    map[uint16]bool
	labelList []uint16 // sorted after phase 1
}

// NewDisassembler prepares a Disassembler over the command buffer cmds.
func NewDisassembler(cmds []byte) *Disassembler {
	return &Disassembler{Cmds: cmds, labels: make(map[uint16]bool)}
}

func (d *Disassembler) makeLabel(offs uint16) {
	if !d.labels[offs] {
		d.labels[offs] = true
	}
}

// jumpTarget returns the Jump opcode's single u16 destination operand.
func jumpTarget(cmd Cmd, buf []byte) (uint16, error) {
	words, err := cmd.ArgWords(buf)
	if err != nil || len(words) < 1 {
		return 0, ErrTruncatedScript
	}
	return words[0], nil
}

// walk scans commands forward from start, calling visit for each one whose
// opcode is below OpCount, and returns when it reaches the end of the
// buffer, an already-known label (other than the very first command of the
// walk), or has processed MaxDumpCmds commands. A command with an opcode at
// or above OpCount is stepped over by 4 bytes without a visit call, so it
// produces no line in Dump. It mirrors the traversal shared by both phases.
func (d *Disassembler) walk(start uint16, visit func(offs uint16, cmd Cmd, raw []byte) (undisassemblable bool)) {
	offs := start
	n := 0
	checkLabel := false
	for {
		if n >= MaxDumpCmds {
			return
		}
		if int(offs)+4 > len(d.Cmds) {
			return
		}
		if checkLabel && d.labels[offs] {
			return
		}

		cmd, err := DecodeCmd(d.Cmds[offs:])
		if err != nil {
			return
		}

		next := offs + 4 + 2*uint16(cmd.Arg())
		bad := err != nil || uint16(cmd.Op()) >= OpCount
		if !bad {
			bad = visit(offs, cmd, d.Cmds[offs:])
		}
		if bad || next <= offs {
			next = offs + 4
		}

		checkLabel = true
		n++
		offs = next
		if int(offs) >= len(d.Cmds) {
			return
		}
	}
}

// FindLabels runs phase 1: seed offset 0 and discover every Jump/Branch
// destination reachable from an unexplored label.
func (d *Disassembler) FindLabels() {
	d.makeLabel(0)

	explored := make(map[uint16]bool)
	for {
		var next uint16
		found := false
		for l := range d.labels {
			if !explored[l] {
				next = l
				found = true
				break
			}
		}
		if !found {
			break
		}
		explored[next] = true

		d.walk(next, func(offs uint16, cmd Cmd, raw []byte) bool {
			switch {
			case cmd.Op().IsJump():
				tgt, err := jumpTarget(cmd, raw)
				if err == nil {
					d.makeLabel(tgt)
				}
			case cmd.Op().IsBranch():
				tgt, err := BranchDst(d.Cmds, offs+4+2*uint16(cmd.Arg()))
				if err == nil {
					d.makeLabel(tgt)
				}
			}
			return false
		})
	}

	d.labelList = make([]uint16, 0, len(d.labels))
	for l := range d.labels {
		d.labelList = append(d.labelList, l)
	}
	sort.Slice(d.labelList, func(i, j int) bool { return d.labelList[i] < d.labelList[j] })
}

// Dump runs phase 2, writing the textual disassembly of the command buffer.
func (d *Disassembler) Dump() string {
	var sb strings.Builder
	for _, start := range d.labelList {
		d.walk(start, func(offs uint16, cmd Cmd, raw []byte) bool {
			if d.labels[offs] {
				fmt.Fprintf(&sb, "L_0x%x:\n", offs)
			}

			words, err := cmd.ArgWords(raw)
			if err != nil {
				fmt.Fprintf(&sb, ".4byte 0x%x // 0x%x\n", rawWord(raw), offs)
				return true
			}

			args := make([]string, 0, len(words))
			switch {
			case cmd.Op().IsJump() && len(words) > 0:
				args = append(args, labelRef(words[0]))
			case cmd.Op().IsBranch():
				tgt, err := BranchDst(d.Cmds, offs+4+2*uint16(cmd.Arg()))
				if err == nil {
					args = append(args, labelRef(tgt))
				}
				for _, w := range words {
					args = append(args, fmt.Sprintf("0x%x", w))
				}
			default:
				for _, w := range words {
					args = append(args, fmt.Sprintf("0x%x", w))
				}
			}

			fmt.Fprintf(&sb, "%s(%s); // 0x%x: %08x\n", cmd.Op().String(), strings.Join(args, ", "), offs, rawWord(raw))
			return false
		})
	}
	return sb.String()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func labelRef(offs uint16) string { return fmt.Sprintf("L_0x%x", offs) }

func rawWord(buf []byte) uint32 {
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
}
