package romimage

import "testing"

func TestVMAToOffsetRoundTrip(t *testing.T) {
	vma := uint32(0x082316DC)
	offs, err := VMAToOffset(vma)
	if err != nil {
		t.Fatalf("VMAToOffset: %v", err)
	}
	if offs != vma-RomBase {
		t.Fatalf("offs = %#x, want %#x", offs, vma-RomBase)
	}
	back, err := OffsetToVMA(offs)
	if err != nil {
		t.Fatalf("OffsetToVMA: %v", err)
	}
	if back != vma {
		t.Fatalf("round trip = %#x, want %#x", back, vma)
	}
}

func TestVMAToOffsetOutOfRange(t *testing.T) {
	if _, err := VMAToOffset(RomBase - 1); err != ErrVMAOutOfRange {
		t.Fatalf("below RomBase: err = %v, want ErrVMAOutOfRange", err)
	}
	if _, err := VMAToOffset(RomBase + MaxOffset + 1); err != ErrVMAOutOfRange {
		t.Fatalf("above MaxOffset: err = %v, want ErrVMAOutOfRange", err)
	}
}

func TestOffsetToVMAOutOfRange(t *testing.T) {
	if _, err := OffsetToVMA(MaxOffset + 1); err != ErrOffsetOutOfRange {
		t.Fatalf("err = %v, want ErrOffsetOutOfRange", err)
	}
}

func TestVerifyChecksumMismatch(t *testing.T) {
	rom := make([]byte, 64)
	if err := VerifyChecksum(rom); err != ErrChecksumMismatch {
		t.Fatalf("err = %v, want ErrChecksumMismatch", err)
	}
}

func TestScriptForName(t *testing.T) {
	desc, ok := ScriptForName("Harry")
	if !ok {
		t.Fatal("Harry not found")
	}
	if desc.VMA != 0x082316DC {
		t.Fatalf("VMA = %#x, want 0x082316DC", desc.VMA)
	}
	if _, ok := ScriptForName("Nobody"); ok {
		t.Fatal("expected Nobody to be absent")
	}
}

func TestParseIndexFileDecimalAndHex(t *testing.T) {
	in := []byte("0: hello\n0x10: world\n")
	out, err := ParseIndexFile(in)
	if err != nil {
		t.Fatalf("ParseIndexFile: %v", err)
	}
	if out[0] != "hello" || out[16] != "world" {
		t.Fatalf("out = %#v", out)
	}
}

func TestParseIndexFileSkipsBlankLines(t *testing.T) {
	in := []byte("0: a\n\n   \n1: b\n")
	out, err := ParseIndexFile(in)
	if err != nil {
		t.Fatalf("ParseIndexFile: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
}

func TestParseIndexFileEscapes(t *testing.T) {
	in := []byte("0: line one\\nline two\n1: byte \\x41 here\n2: yen ¥n style\n")
	out, err := ParseIndexFile(in)
	if err != nil {
		t.Fatalf("ParseIndexFile: %v", err)
	}
	if out[0] != "line one\nline two" {
		t.Fatalf("out[0] = %q", out[0])
	}
	if out[1] != "byte A here" {
		t.Fatalf("out[1] = %q", out[1])
	}
	if out[2] != "yen \n style" {
		t.Fatalf("out[2] = %q", out[2])
	}
}

func TestParseIndexFileMalformedLine(t *testing.T) {
	if _, err := ParseIndexFile([]byte("no colon here\n")); err == nil {
		t.Fatal("expected error for missing colon")
	}
}

func TestParseIndexFileBadIndex(t *testing.T) {
	if _, err := ParseIndexFile([]byte("abc: text\n")); err == nil {
		t.Fatal("expected error for non-numeric index")
	}
}

func TestParseIndexFileIndexOutOfRange(t *testing.T) {
	if _, err := ParseIndexFile([]byte("10000: text\n")); err == nil {
		t.Fatal("expected error for index at MaxIndexEntries")
	}
}

func TestParseIndexFileBadEscape(t *testing.T) {
	if _, err := ParseIndexFile([]byte("0: bad \\q escape\n")); err == nil {
		t.Fatal("expected error for unrecognised escape")
	}
}

func TestParseIndexFileTrailingBackslash(t *testing.T) {
	if _, err := ParseIndexFile([]byte("0: trailing\\\n")); err == nil {
		t.Fatal("expected error for dangling escape introducer")
	}
}

func TestEmbedSplicesScriptAndPatchesSize(t *testing.T) {
	rom := make([]byte, 0x02000000)
	desc := ScriptDesc{Name: "Test", VMA: RomBase + 0x100, StrtabVMA: RomBase + 0x10000, SizeVMA: RomBase + 0x200}
	script := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	scriptStrs := [][]byte{[]byte("aaa"), []byte("bbb")}
	menuStrs := [][]byte{[]byte("ccc"), []byte("ddd")}

	if err := Embed(rom, desc, script, scriptStrs, menuStrs); err != nil {
		t.Fatalf("Embed: %v", err)
	}

	scriptOffs, _ := VMAToOffset(desc.VMA)
	if got := rom[scriptOffs : scriptOffs+4]; string(got) != string(script) {
		t.Fatalf("script bytes = %v, want %v", got, script)
	}

	sizeOffs, _ := VMAToOffset(desc.SizeVMA)
	gotSize := uint32(rom[sizeOffs]) | uint32(rom[sizeOffs+1])<<8 | uint32(rom[sizeOffs+2])<<16 | uint32(rom[sizeOffs+3])<<24
	if gotSize != uint32(len(script)) {
		t.Fatalf("patched size = %d, want %d", gotSize, len(script))
	}

	scriptPatchOffs, _ := VMAToOffset(ScriptStrtabPtrPatchVMA)
	gotPtr := uint32(rom[scriptPatchOffs]) | uint32(rom[scriptPatchOffs+1])<<8 | uint32(rom[scriptPatchOffs+2])<<16 | uint32(rom[scriptPatchOffs+3])<<24
	if gotPtr != desc.StrtabVMA {
		t.Fatalf("script strtab ptr = %#x, want %#x", gotPtr, desc.StrtabVMA)
	}

	menuPatchOffs, _ := VMAToOffset(MenuStrtabPtrPatchVMA)
	gotMenuPtr := uint32(rom[menuPatchOffs]) | uint32(rom[menuPatchOffs+1])<<8 | uint32(rom[menuPatchOffs+2])<<16 | uint32(rom[menuPatchOffs+3])<<24
	if gotMenuPtr != StrtabMenuVMA {
		t.Fatalf("menu strtab ptr = %#x, want %#x", gotMenuPtr, StrtabMenuVMA)
	}
}

func TestEmbedScriptTooLargeAtROMBoundary(t *testing.T) {
	rom := make([]byte, 0x200)
	desc := ScriptDesc{VMA: RomBase + 0x1F0, SizeVMA: RomBase + 0x10}
	script := make([]byte, 0x100)
	if err := EmbedScript(rom, desc, script); err != ErrScriptTooLarge {
		t.Fatalf("err = %v, want ErrScriptTooLarge", err)
	}
}

func TestTranscodeToSJISRoundTripsASCII(t *testing.T) {
	out, err := TranscodeToSJIS("hello")
	if err != nil {
		t.Fatalf("TranscodeToSJIS: %v", err)
	}
	if string(out) != "hello" {
		t.Fatalf("out = %q, want %q", out, "hello")
	}
}
