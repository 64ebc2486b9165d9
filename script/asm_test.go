package script

import (
	"encoding/binary"
	"testing"
)

func minimalBranchInfoStmts() []Stmt {
	return []Stmt{
		{Kind: StmtSectionMark, SectionName: "branch_info", SectionBegin: true},
		{Kind: StmtSectionMark, SectionName: "branch_info", SectionBegin: false},
	}
}

func TestAssembleShowTextThenEmptyBranchInfo(t *testing.T) {
	stmts := append([]Stmt{
		{Kind: StmtOp, Op: OpShowText, Args: []Arg{{Kind: ArgNumberedStr, Index: 0}}},
	}, minimalBranchInfoStmts()...)

	out, err := NewAssembler(stmts).Assemble()
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if len(out) != HeaderSize+4+2 {
		t.Fatalf("len(out) = %d, want %d", len(out), HeaderSize+4+2)
	}

	hdr, err := DecodeHeader(out[:HeaderSize])
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if hdr.BranchInfoOffs != 6 || hdr.BranchInfoSz != 0 || hdr.BytesToEnd != 0 {
		t.Fatalf("header = %+v, want {6 0 0}", hdr)
	}

	cmd, err := DecodeCmd(out[HeaderSize:])
	if err != nil {
		t.Fatalf("DecodeCmd: %v", err)
	}
	if cmd.Op() != OpShowText {
		t.Fatalf("Op() = 0x%x, want ShowText", cmd.Op())
	}
	if cmd.Arg() != 1 {
		t.Fatalf("Arg() = %d, want 1", cmd.Arg())
	}

	idx := binary.LittleEndian.Uint16(out[HeaderSize+4:])
	if idx != 0 {
		t.Fatalf("string index = %d, want 0", idx)
	}
}

func TestAssembleMissingBranchInfo(t *testing.T) {
	stmts := []Stmt{
		{Kind: StmtOp, Op: OpNop0},
	}
	_, err := NewAssembler(stmts).Assemble()
	if err != ErrMissingBranchInfo {
		t.Fatalf("err = %v, want ErrMissingBranchInfo", err)
	}
}

func TestAssembleForwardBranchResolves(t *testing.T) {
	// The branch's destination label is never written as a word — the
	// interpreter finds it at runtime by scanning forward for the next
	// landing-pad opcode. Assembly only has to validate reachability.
	stmts := append([]Stmt{
		{Kind: StmtOp, Op: OpBranch5, Args: []Arg{{Kind: ArgLabel, Label: "target"}}},
		{Kind: StmtOp, Op: OpLandingPad7, Label: "target"},
	}, minimalBranchInfoStmts()...)

	out, err := NewAssembler(stmts).Assemble()
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	branchCmd, err := DecodeCmd(out[HeaderSize:])
	if err != nil {
		t.Fatalf("DecodeCmd(branch): %v", err)
	}
	if branchCmd.Op() != OpBranch5 || branchCmd.Arg() != 0 {
		t.Fatalf("branch cmd = %+v, want op Branch5 arg 0 (destination label emits no word)", branchCmd)
	}

	padCmd, err := DecodeCmd(out[HeaderSize+4:])
	if err != nil {
		t.Fatalf("DecodeCmd(landing pad): %v", err)
	}
	if padCmd.Op() != OpLandingPad7 {
		t.Fatalf("landing pad cmd op = 0x%x, want 0x%x", padCmd.Op(), OpLandingPad7)
	}
}

func TestAssembleInsertsNopLandingPad(t *testing.T) {
	// "target" is branched to but its own statement (Nop0) is not a legal
	// landing pad, so the assembler must insert a Nop7 immediately before it.
	stmts := append([]Stmt{
		{Kind: StmtOp, Op: OpBranch5, Args: []Arg{{Kind: ArgLabel, Label: "target"}}},
		{Kind: StmtOp, Op: OpNop0, Label: "target"},
	}, minimalBranchInfoStmts()...)

	out, err := NewAssembler(stmts).Assemble()
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	// branch (4 bytes) + inserted Nop7 (4 bytes) + Nop0 (4 bytes) = 12
	inserted, err := DecodeCmd(out[HeaderSize+4:])
	if err != nil {
		t.Fatalf("DecodeCmd: %v", err)
	}
	if inserted.Op() != OpLandingPad7 {
		t.Fatalf("inserted cmd op = 0x%x, want Nop7 (0x%x)", inserted.Op(), OpLandingPad7)
	}

	hdr, err := DecodeHeader(out[:HeaderSize])
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if hdr.BranchInfoOffs != 12 {
		t.Fatalf("BranchInfoOffs = %d, want 12 (branch + inserted nop + target)", hdr.BranchInfoOffs)
	}
}

func TestAssembleBackwardBranchFails(t *testing.T) {
	stmts := append([]Stmt{
		{Kind: StmtOp, Op: OpLandingPad7, Label: "target"},
		{Kind: StmtOp, Op: OpBranch5, Args: []Arg{{Kind: ArgLabel, Label: "target"}}},
	}, minimalBranchInfoStmts()...)

	_, err := NewAssembler(stmts).Assemble()
	if err != ErrBackwardBranch {
		t.Fatalf("err = %v, want ErrBackwardBranch", err)
	}
}

func TestAssembleIntermediateLandingPadFails(t *testing.T) {
	stmts := append([]Stmt{
		{Kind: StmtOp, Op: OpBranch5, Args: []Arg{{Kind: ArgLabel, Label: "target"}}},
		{Kind: StmtOp, Op: OpLandingPad7}, // qualifies as a landing pad but isn't "target"
		{Kind: StmtOp, Op: OpNop0, Label: "target"},
	}, minimalBranchInfoStmts()...)

	_, err := NewAssembler(stmts).Assemble()
	if err != ErrIntermediateBranchTarget {
		t.Fatalf("err = %v, want ErrIntermediateBranchTarget", err)
	}
}

func TestAssembleUnknownLabelFails(t *testing.T) {
	stmts := append([]Stmt{
		{Kind: StmtOp, Op: OpBranch5, Args: []Arg{{Kind: ArgLabel, Label: "nowhere"}}},
	}, minimalBranchInfoStmts()...)

	_, err := NewAssembler(stmts).Assemble()
	if err != ErrLabelNotFound {
		t.Fatalf("err = %v, want ErrLabelNotFound", err)
	}
}

func TestAssembleDisassembleRoundTrip(t *testing.T) {
	stmts := append([]Stmt{
		{Kind: StmtOp, Op: OpJump, Args: []Arg{{Kind: ArgLabel, Label: "mid"}}},
		{Kind: StmtOp, Op: OpLandingPad7, Label: "mid"},
	}, minimalBranchInfoStmts()...)

	out, err := NewAssembler(stmts).Assemble()
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	hdr, err := DecodeHeader(out[:HeaderSize])
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	cmds := out[HeaderSize : HeaderSize+int(hdr.BranchInfoOffs)]

	d := NewDisassembler(cmds)
	d.FindLabels()
	if !d.labels[0] || !d.labels[6] {
		t.Fatalf("expected labels at 0 and 6, got %v", d.labels)
	}
	out2 := d.Dump()
	if out2 == "" {
		t.Fatal("Dump produced no output")
	}
}
