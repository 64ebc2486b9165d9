package romimage

import (
	"encoding/binary"
	"errors"

	"golang.org/x/text/encoding/japanese"

	"github.com/07151129/shpn-tool/strtab"
)

var (
	ErrScriptTooLarge = errors.New("romimage: assembled script does not fit at its fixed vma")
	ErrStrtabTooLarge = errors.New("romimage: encoded strtab does not fit at its fixed vma")
)

// TranscodeToSJIS converts UTF-8 text (as produced by ParseIndexFile) to
// the Shift-JIS bytes the ROM's strtab dictionary is built over.
func TranscodeToSJIS(s string) ([]byte, error) {
	return japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
}

// EmbedScript splices an assembled script command buffer into rom at
// desc.VMA, then patches desc.SizeVMA with the script's new total byte
// length. It does not touch the string tables; Embed writes those with
// EmbedStrtab before calling it.
func EmbedScript(rom []byte, desc ScriptDesc, script []byte) error {
	offs, err := VMAToOffset(desc.VMA)
	if err != nil {
		return err
	}
	if int(offs)+len(script) > len(rom) {
		return ErrScriptTooLarge
	}
	copy(rom[offs:], script)

	sizeOffs, err := VMAToOffset(desc.SizeVMA)
	if err != nil {
		return err
	}
	if int(sizeOffs)+4 > len(rom) {
		return ErrScriptTooLarge
	}
	binary.LittleEndian.PutUint32(rom[sizeOffs:], uint32(len(script)))
	return nil
}

// EmbedStrtab encodes msgs as a strtab and writes it at vma, then patches
// the fixed pointer field at patchVMA with vma itself — the two shared
// pointer slots the interpreter reads to find the script and menu tables.
func EmbedStrtab(rom []byte, vma uint32, patchVMA uint32, msgs [][]byte) error {
	enc, err := strtab.EncodeStrtab(msgs)
	if err != nil {
		return err
	}

	offs, err := VMAToOffset(vma)
	if err != nil {
		return err
	}
	if int(offs)+len(enc) > len(rom) {
		return ErrStrtabTooLarge
	}
	copy(rom[offs:], enc)

	patchOffs, err := VMAToOffset(patchVMA)
	if err != nil {
		return err
	}
	if int(patchOffs)+4 > len(rom) {
		return ErrStrtabTooLarge
	}
	binary.LittleEndian.PutUint32(rom[patchOffs:], vma)
	return nil
}

// Embed runs the full orchestration for one script: encode and place its
// private string table, assemble and place its command buffer, and patch
// the three fixed ROM fields (script size, script strtab pointer, menu
// strtab pointer) the interpreter consults at load time.
func Embed(rom []byte, desc ScriptDesc, script []byte, scriptStrs [][]byte, menuStrs [][]byte) error {
	if err := EmbedStrtab(rom, desc.StrtabVMA, ScriptStrtabPtrPatchVMA, scriptStrs); err != nil {
		return err
	}
	if err := EmbedStrtab(rom, StrtabMenuVMA, MenuStrtabPtrPatchVMA, menuStrs); err != nil {
		return err
	}
	return EmbedScript(rom, desc, script)
}
