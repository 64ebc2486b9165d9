package romimage

// StrtabMenuVMA is the fixed location of the shared menu string table,
// used by every script (choices, system prompts) rather than per-script.
const StrtabMenuVMA = 0x0857546C

// Fixed ROM addresses patched by Embed: the interpreter reads a script's
// and the menu's strtab location from these two words regardless of which
// script is currently loaded.
const (
	ScriptStrtabPtrPatchVMA = 0x08004B9C
	MenuStrtabPtrPatchVMA   = 0x08004C24
)

// ScriptDesc describes one embeddable script: where its bytecode lives,
// where its private string table lives, the stock checksum recorded for
// it, and the ROM address the interpreter reads its byte length from.
type ScriptDesc struct {
	Name      string
	VMA       uint32
	StrtabVMA uint32
	Checksum  uint16
	SizeVMA   uint32
}

// Scripts lists the two playable-character scripts the stock ROM ships.
var Scripts = []ScriptDesc{
	{Name: "Harry", VMA: 0x082316DC, StrtabVMA: 0x0853E908, Checksum: 0xba64, SizeVMA: 0x080126A0},
	{Name: "Cybil", VMA: 0x0823EAC0, StrtabVMA: 0x0853E908, Checksum: 0xb971, SizeVMA: 0x080126AC},
}

// ScriptForName looks up a script descriptor by its (case-sensitive)
// in-game name.
func ScriptForName(name string) (ScriptDesc, bool) {
	for _, s := range Scripts {
		if s.Name == name {
			return s, true
		}
	}
	return ScriptDesc{}, false
}
