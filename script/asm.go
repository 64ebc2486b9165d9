package script

import (
	"encoding/binary"
	"errors"
)

var (
	ErrJumpOutOfRange           = errors.New("script: jump destination exceeds 16 bits")
	ErrBackwardBranch           = errors.New("script: branch target precedes the branch")
	ErrIntermediateBranchTarget = errors.New("script: another landing pad lies between branch and target")
	ErrMissingBranchInfo        = errors.New("script: exactly one .begin/.end branch_info pair is required")
	ErrLabelNotFound            = errors.New("script: referenced label was never defined")
)

// ArgKind distinguishes the operand forms a statement argument can take.
type ArgKind int

const (
	ArgNum ArgKind = iota
	ArgLabel
	ArgStr
	ArgNumberedStr
)

// Arg is one operand of an Op statement.
type Arg struct {
	Kind  ArgKind
	Num   uint16
	Label string
	Str   []byte
	Index int // valid when Kind == ArgNumberedStr
}

// StmtKind distinguishes the three statement shapes the assembler accepts.
type StmtKind int

const (
	StmtOp StmtKind = iota
	StmtByte
	StmtSectionMark
)

// Stmt is one parsed assembler statement.
//
// For a Jump, Args[0] is the destination label and is emitted as an
// ordinary inline word. For a branch (op 4-6), Args[0] is also the
// destination label but is NOT emitted to the command buffer at all — the
// interpreter finds a branch's destination at runtime by scanning forward
// from the end of the branch command for the next landing-pad opcode, so
// the label here exists only for the assembler to validate reachability
// and to insert a landing-pad Nop where needed.
type Stmt struct {
	Kind  StmtKind
	Label string // optional label attached to this statement

	// StmtOp
	Op   Op
	Args []Arg

	// StmtByte
	ByteWidth int // 1, 2, 4 or 8
	ByteValue uint64

	// StmtSectionMark
	SectionName  string
	SectionBegin bool
}

type jumpRef struct {
	label string
	site  int // byte offset in the command buffer where the word belongs
}

// Assembler emits a command buffer (plus the 6-byte header) from a
// statement list produced by an upstream parser.
type Assembler struct {
	Stmts []Stmt

	out          []byte // includes the HeaderSize-byte reserved prefix
	labelSite    map[string]int
	pending      []jumpRef
	branchBegin  int
	branchEnd    int
	haveBranch   bool
	branchClosed bool
}

// NewAssembler prepares an Assembler over the parsed statement list.
func NewAssembler(stmts []Stmt) *Assembler {
	return &Assembler{Stmts: stmts, labelSite: make(map[string]int)}
}

// Assemble runs the emit pass and returns the full script bytes: header,
// command buffer, branch-info region and trailing bytes.
func (a *Assembler) Assemble() ([]byte, error) {
	a.out = make([]byte, HeaderSize)

	needsNop := computeNopLandingPads(a.Stmts)
	labelPos := resolveLabelPositions(a.Stmts, needsNop)

	for si, s := range a.Stmts {
		if s.Label != "" && needsNop[s.Label] {
			word := make([]byte, 4)
			NewCmd(OpLandingPad7, 0).Encode(word)
			a.out = append(a.out, word...)
		}

		if s.Label != "" {
			site := len(a.out) - HeaderSize
			a.labelSite[s.Label] = site
			a.resolvePending(s.Label, site)
		}

		switch s.Kind {
		case StmtSectionMark:
			a.emitSectionMark(s)
		case StmtByte:
			a.emitRawBytes(s)
		case StmtOp:
			if err := a.emitOp(si, s, labelPos, needsNop); err != nil {
				return nil, err
			}
		}
	}

	if !a.haveBranch || !a.branchClosed {
		return nil, ErrMissingBranchInfo
	}
	if len(a.pending) > 0 {
		return nil, ErrLabelNotFound
	}

	branchInfoOffs := a.branchBegin
	branchInfoSz := a.branchEnd - a.branchBegin
	bytesToEnd := (len(a.out) - HeaderSize) - a.branchEnd

	hdr := Header{
		BranchInfoOffs: uint16(branchInfoOffs),
		BranchInfoSz:   uint16(branchInfoSz),
		BytesToEnd:     uint16(bytesToEnd),
	}
	copy(a.out[0:HeaderSize], EncodeHeader(hdr))

	return a.out, nil
}

func (a *Assembler) resolvePending(label string, site int) {
	kept := a.pending[:0]
	for _, ref := range a.pending {
		if ref.label == label {
			binary.LittleEndian.PutUint16(a.out[HeaderSize+ref.site:], uint16(site))
		} else {
			kept = append(kept, ref)
		}
	}
	a.pending = kept
}

// computeNopLandingPads finds every label that is the destination of a
// branch (not a jump) whose own statement is not already a legal landing
// pad, so the assembler can insert a Nop ahead of it.
func computeNopLandingPads(stmts []Stmt) map[string]bool {
	branchTargets := make(map[string]bool)
	for _, s := range stmts {
		if s.Kind == StmtOp && s.Op.IsBranch() && len(s.Args) > 0 && s.Args[0].Kind == ArgLabel {
			branchTargets[s.Args[0].Label] = true
		}
	}

	needsNop := make(map[string]bool)
	for _, s := range stmts {
		if s.Label == "" || !branchTargets[s.Label] {
			continue
		}
		if s.Kind != StmtOp || !s.Op.CanBeBranchedTo() {
			needsNop[s.Label] = true
		}
	}
	return needsNop
}

// resolveLabelPositions does a forward scan computing each label's eventual
// byte position in the command buffer (accounting for inserted landing-pad
// Nops), so branch-ordering rules can be checked at emission time without a
// second pass over the output.
func resolveLabelPositions(stmts []Stmt, needsNop map[string]bool) map[string]int {
	pos := make(map[string]int)
	cursor := 0
	for _, s := range stmts {
		if s.Label != "" && needsNop[s.Label] {
			cursor += 4
		}
		if s.Label != "" {
			pos[s.Label] = cursor
		}
		switch s.Kind {
		case StmtOp:
			cursor += 4 + 2*stmtArgWords(s)
		case StmtByte:
			cursor += s.ByteWidth
		}
	}
	return pos
}

// stmtArgWords is the number of 16-bit inline words actually written for a
// statement's command body. A branch's destination label is not counted:
// it is never emitted as a word.
func stmtArgWords(s Stmt) int {
	n := len(s.Args)
	if s.Op.IsBranch() && n > 0 {
		n--
	}
	return n
}

func (a *Assembler) emitSectionMark(s Stmt) {
	if s.SectionName != "branch_info" {
		return
	}
	site := len(a.out) - HeaderSize
	if s.SectionBegin {
		a.branchBegin = site
		a.haveBranch = true
	} else {
		a.branchEnd = site
		a.branchClosed = true
	}
}

func (a *Assembler) emitRawBytes(s Stmt) {
	switch s.ByteWidth {
	case 1:
		a.out = append(a.out, byte(s.ByteValue))
	case 2:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(s.ByteValue))
		a.out = append(a.out, b...)
	case 4:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(s.ByteValue))
		a.out = append(a.out, b...)
	case 8:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, s.ByteValue)
		a.out = append(a.out, b...)
	}
}

func (a *Assembler) emitOp(idx int, s Stmt, labelPos map[string]int, needsNop map[string]bool) error {
	isBranch := s.Op.IsBranch()
	nargs := stmtArgWords(s)

	cmdSite := len(a.out) - HeaderSize
	if cmdSite > 0xFFFF {
		return ErrJumpOutOfRange
	}

	cmd := NewCmd(s.Op, uint32(nargs))
	word := make([]byte, 4)
	cmd.Encode(word)
	a.out = append(a.out, word...)

	args := s.Args
	if isBranch && len(args) > 0 {
		if err := a.checkBranchTarget(idx, s, labelPos, needsNop); err != nil {
			return err
		}
		args = args[1:] // destination label consumed, never written
	}

	for _, arg := range args {
		if err := a.emitWordArg(arg); err != nil {
			return err
		}
	}
	return nil
}

func (a *Assembler) emitWordArg(arg Arg) error {
	site := len(a.out)
	a.out = append(a.out, 0, 0)
	switch arg.Kind {
	case ArgNumberedStr:
		binary.LittleEndian.PutUint16(a.out[site:], uint16(arg.Index))
	case ArgLabel:
		if dst, ok := a.labelSite[arg.Label]; ok {
			if dst > 0xFFFF {
				return ErrJumpOutOfRange
			}
			binary.LittleEndian.PutUint16(a.out[site:], uint16(dst))
		} else {
			a.pending = append(a.pending, jumpRef{label: arg.Label, site: site - HeaderSize})
		}
	default: // ArgNum, or a not-yet-folded ArgStr
		binary.LittleEndian.PutUint16(a.out[site:], arg.Num)
	}
	return nil
}

// checkBranchTarget enforces the branch-target invariants: the label must
// lie strictly after the branch, and no other can-be-branched-to landing
// pad may sit between the branch and its target — the runtime would stop
// there first.
func (a *Assembler) checkBranchTarget(idx int, s Stmt, labelPos map[string]int, needsNop map[string]bool) error {
	label := s.Args[0].Label
	targetPos, ok := labelPos[label]
	if !ok {
		return ErrLabelNotFound
	}
	currentPos := len(a.out) - HeaderSize // offset right after the branch's own command word
	if targetPos < currentPos {
		return ErrBackwardBranch
	}

	cursor := currentPos
	for j := idx + 1; j < len(a.Stmts); j++ {
		next := a.Stmts[j]
		if next.Label != "" && needsNop[next.Label] {
			cursor += 4
		}
		if cursor >= targetPos {
			break
		}
		if next.Label == label {
			break
		}
		if next.Kind == StmtOp && next.Op.CanBeBranchedTo() {
			return ErrIntermediateBranchTarget
		}
		switch next.Kind {
		case StmtOp:
			cursor += 4 + 2*stmtArgWords(next)
		case StmtByte:
			cursor += next.ByteWidth
		}
	}
	return nil
}
