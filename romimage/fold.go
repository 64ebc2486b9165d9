package romimage

import (
	"fmt"

	"github.com/07151129/shpn-tool/layout"
	"github.com/07151129/shpn-tool/script"
	"github.com/07151129/shpn-tool/strtab"
)

// FoldResult is the outcome of running the string-folding and text-fit
// passes over a parsed statement list, ready to hand to
// script.NewAssembler(...).Assemble().
type FoldResult struct {
	Stmts      []script.Stmt
	ScriptStrs [][]byte
	MenuStrs   [][]byte
	Warnings   []string
}

type strtabSlots struct {
	slots map[int][]byte
	next  int
}

func newStrtabSlots(seed map[int][]byte) *strtabSlots {
	s := &strtabSlots{slots: make(map[int][]byte)}
	for idx, text := range seed {
		s.slots[idx] = text
		if idx >= s.next {
			s.next = idx + 1
		}
	}
	return s
}

// allocate places text at the lowest index not yet present in the table.
func (s *strtabSlots) allocate(text []byte) int {
	idx := 0
	for {
		if _, used := s.slots[idx]; !used {
			break
		}
		idx++
	}
	s.slots[idx] = text
	if idx >= s.next {
		s.next = idx + 1
	}
	return idx
}

// place writes text at a caller-chosen index (a NumberedStr in source),
// warning when it silently overwrites real content rather than an empty
// placeholder slot.
func (s *strtabSlots) place(idx int, text []byte, warnings *[]string) {
	if existing, ok := s.slots[idx]; ok && len(existing) > 0 {
		*warnings = append(*warnings, fmt.Sprintf("strtab index %d overwritten", idx))
	}
	s.slots[idx] = text
	if idx >= s.next {
		s.next = idx + 1
	}
}

func (s *strtabSlots) ordered() [][]byte {
	max := -1
	for idx := range s.slots {
		if idx > max {
			max = idx
		}
	}
	out := make([][]byte, max+1)
	for i := range out {
		if v, ok := s.slots[i]; ok {
			out[i] = v
		} else {
			out[i] = []byte{}
		}
	}
	return out
}

// FoldStrings runs the string-folding pre-pass (every Str arg is transcoded
// to Shift-JIS, assigned the lowest unused index in its target table per
// opcode classification, and promoted to NumberedStr) and the text-fit pass
// (splitting an over-long ShowText across frames, and splitting an
// over-long Choice/ChoiceIdx pretext out into its own ShowText) before
// handing stmts to the assembler. scriptSeed/menuSeed pre-populate each
// table from the caller's strtab index files (already Shift-JIS-encoded),
// matching the tool's strtab_*_file CLI inputs.
func FoldStrings(stmts []script.Stmt, scriptSeed, menuSeed map[int][]byte) (FoldResult, error) {
	scriptSlots := newStrtabSlots(scriptSeed)
	menuSlots := newStrtabSlots(menuSeed)
	var warnings []string

	folded := make([]script.Stmt, 0, len(stmts))
	for _, s := range stmts {
		if s.Kind != script.StmtOp {
			folded = append(folded, s)
			continue
		}

		toMenu := s.Op.UsesMenuStrtab()
		toScript := !toMenu // ShowText and the generic default both land in the script table

		target := scriptSlots
		if toMenu {
			target = menuSlots
		}

		args := make([]script.Arg, len(s.Args))
		copy(args, s.Args)
		for i, arg := range args {
			switch arg.Kind {
			case script.ArgStr:
				sjis, err := TranscodeToSJIS(string(arg.Str))
				if err != nil {
					return FoldResult{}, err
				}
				if toScript {
					sjis = layout.HardWrapSJIS(sjis)
				}
				idx := target.allocate(sjis)
				args[i] = script.Arg{Kind: script.ArgNumberedStr, Index: idx, Str: sjis}
			case script.ArgNumberedStr:
				sjis, err := TranscodeToSJIS(string(arg.Str))
				if err != nil {
					return FoldResult{}, err
				}
				if toScript {
					sjis = layout.HardWrapSJIS(sjis)
				}
				target.place(arg.Index, sjis, &warnings)
				args[i] = script.Arg{Kind: script.ArgNumberedStr, Index: arg.Index, Str: sjis}
			}
		}
		s.Args = args
		folded = append(folded, s)
	}

	folded, warnings = splitShowText(folded, scriptSlots, warnings)
	folded, warnings = splitChoicePretext(folded, scriptSlots, menuSlots, warnings)

	return FoldResult{
		Stmts:      folded,
		ScriptStrs: scriptSlots.ordered(),
		MenuStrs:   menuSlots.ordered(),
		Warnings:   warnings,
	}, nil
}

// splitShowText breaks any ShowText whose (already wrapped) string overruns
// a single frame into ShowText/HandleInput pairs, one per frame.
func splitShowText(stmts []script.Stmt, scriptSlots *strtabSlots, warnings []string) ([]script.Stmt, []string) {
	out := make([]script.Stmt, 0, len(stmts))
	for _, s := range stmts {
		if s.Kind != script.StmtOp || s.Op != script.OpShowText || len(s.Args) == 0 || s.Args[0].Kind != script.ArgNumberedStr {
			out = append(out, s)
			continue
		}

		text := s.Args[0].Str
		if layout.SJISBreakFrameAt(text) == 0 {
			out = append(out, s)
			continue
		}

		idx := s.Args[0].Index
		label := s.Label
		first := true
		for {
			brk := layout.SJISBreakFrameAt(text)
			if !first {
				idx = scriptSlots.allocate(nil)
			}
			if brk == 0 {
				scriptSlots.slots[idx] = text
				out = append(out, script.Stmt{
					Kind:  script.StmtOp,
					Label: label,
					Op:    script.OpShowText,
					Args:  []script.Arg{{Kind: script.ArgNumberedStr, Index: idx, Str: text}},
				})
				break
			}

			head, rest := text[:brk], text[brk+1:]
			scriptSlots.slots[idx] = head
			out = append(out, script.Stmt{
				Kind:  script.StmtOp,
				Label: label,
				Op:    script.OpShowText,
				Args:  []script.Arg{{Kind: script.ArgNumberedStr, Index: idx, Str: head}},
			})
			out = append(out, script.Stmt{Kind: script.StmtOp, Op: script.OpHandleInput})

			label = ""
			first = false
			text = rest
		}
	}
	return out, warnings
}

// splitChoicePretext extracts an over-budget Choice/ChoiceIdx pretext into
// its own ShowText/HandleInput pair immediately before the statement,
// replacing the pretext argument with the reserved placeholder index.
func splitChoicePretext(stmts []script.Stmt, scriptSlots, menuSlots *strtabSlots, warnings []string) ([]script.Stmt, []string) {
	out := make([]script.Stmt, 0, len(stmts))
	for _, s := range stmts {
		if s.Kind != script.StmtOp || !(s.Op == script.OpChoice || s.Op == script.OpChoiceIdx) {
			out = append(out, s)
			continue
		}

		pretextArg := 0
		if s.Op == script.OpChoiceIdx {
			pretextArg = 1
		}
		if pretextArg >= len(s.Args) || s.Args[pretextArg].Kind != script.ArgNumberedStr {
			out = append(out, s)
			continue
		}

		var total []byte
		for _, a := range s.Args {
			if a.Kind == script.ArgNumberedStr {
				total = append(total, a.Str...)
			}
		}
		if layout.SJISNRows(total) <= layout.MaxRowsPerFrame && layout.SJISNGlyphs(total) <= layout.MaxGlyphsPerFrame {
			out = append(out, s)
			continue
		}

		pretext := s.Args[pretextArg].Str
		sjisWrapped := layout.HardWrapSJIS(pretext)
		idx := scriptSlots.allocate(sjisWrapped)

		label := s.Label
		out = append(out, script.Stmt{
			Kind:  script.StmtOp,
			Label: label,
			Op:    script.OpShowText,
			Args:  []script.Arg{{Kind: script.ArgNumberedStr, Index: idx, Str: sjisWrapped}},
		})
		out = append(out, script.Stmt{Kind: script.StmtOp, Op: script.OpHandleInput})

		newArgs := make([]script.Arg, len(s.Args))
		copy(newArgs, s.Args)
		newArgs[pretextArg] = script.Arg{Kind: script.ArgNum, Num: uint16(strtab.EmbedStrPlaceholderIdx)}
		out = append(out, script.Stmt{Kind: script.StmtOp, Op: s.Op, Args: newArgs})
	}
	return out, warnings
}
