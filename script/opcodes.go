package script

import "fmt"

// Op is a 12-bit script opcode.
type Op uint16

// Named opcodes. Most of the 118-entry opcode space has no behavior this
// codec needs to distinguish and falls through to a generic stub name in
// String(); these are the ones disassembly/assembly must classify.
const (
	OpNop0         Op = 0x00
	OpJump         Op = 0x01
	OpBranch4      Op = 0x04
	OpBranch5      Op = 0x05
	OpBranch6      Op = 0x06
	OpLandingPad7  Op = 0x07 // can_be_branched_to target, also a valid Nop landing pad
	OpShowText     Op = 0x0C
	OpHandleInput  Op = 0x10
	OpChoice       Op = 0x11
	OpChoiceIdx    Op = 0x35
	OpPlayCredits  Op = 0x5F
	OpGiveCard     Op = 0x60
	OpStop         Op = 0x63
	OpLoadBackground Op = 0x69
	OpLoadEffect   Op = 0x6D

	// OpCount bounds the valid opcode range [0, OpCount).
	OpCount = 118
)

var opNames = map[Op]string{
	OpNop0:           "Nop0",
	OpJump:           "Jump",
	OpBranch4:        "Branch4",
	OpBranch5:        "Branch5",
	OpBranch6:        "Branch6",
	OpLandingPad7:    "Nop7",
	OpShowText:       "ShowText",
	OpHandleInput:    "HandleInput",
	OpChoice:         "Choice",
	OpChoiceIdx:      "ChoiceIdx",
	OpPlayCredits:    "PlayCredits",
	OpGiveCard:       "GiveCard",
	OpStop:           "Stop",
	OpLoadBackground: "LoadBackground",
	OpLoadEffect:     "LoadEffect",
}

// String returns the opcode's mnemonic, or a generic "OP_0xNN" stub for
// opcodes with no distinguished handler.
func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return fmt.Sprintf("OP_0x%02X", uint16(o))
}

// IsJump reports whether o is the unconditional jump opcode.
func (o Op) IsJump() bool { return o == OpJump }

// IsBranch reports whether o is a conditional branch opcode.
func (o Op) IsBranch() bool { return OpBranch4 <= o && o <= OpBranch6 }

// CanBeBranchedTo reports whether a branch destination may legally land on o.
func (o Op) CanBeBranchedTo() bool { return OpBranch5 <= o && o <= OpLandingPad7 }

// UsesMenuStrtab reports whether o's arguments are menu-strtab indices.
func (o Op) UsesMenuStrtab() bool { return o == OpChoice || o == OpChoiceIdx }

// UsesScriptStrtab reports whether o's argument is a script-strtab index.
func (o Op) UsesScriptStrtab() bool { return o == OpShowText }

// IsChoiceIdx reports whether o is the indexed-choice opcode.
func (o Op) IsChoiceIdx() bool { return o == OpChoiceIdx }

// ByName looks up an opcode by its mnemonic, for the assembler's parser.
func ByName(name string) (Op, bool) {
	for op, n := range opNames {
		if n == name {
			return op, true
		}
	}
	return 0, false
}
