package debuginfo

import (
	"bytes"
	stdelf "debug/elf"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	elf2 "github.com/Ninja3047/load-symbols/debuginfo/elf"
)

func TestParse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bin.debug")
	writeFile(t, path, debugELF(nil))

	parsed, err := Parse(testLogger(t), DebugFileRef{Path: path, Source: SourceMirror}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, len(parsed.Sections))
	require.Equal(t, ".text", parsed.Sections[0].Name)
	require.Equal(t, 1, len(parsed.Symbols))
	require.Equal(t, "do_work", parsed.Symbols[0].Name)
	require.Nil(t, parsed.Lines)
	require.True(t, parsed.BuildID.Empty())
}

func TestParseMiniDebugFallback(t *testing.T) {
	embedded := elf2.BuildTestELF(stdelf.EM_X86_64,
		[]elf2.TestSection{
			{Name: ".text", Type: stdelf.SHT_NOBITS, Flags: stdelf.SHF_ALLOC | stdelf.SHF_EXECINSTR, Addr: 0x1000, Size: 0x1000},
		},
		[]elf2.TestSymbol{
			{Name: "stripped_fn", Value: 0x1000, Size: 0x10, Type: stdelf.STT_FUNC, Bind: stdelf.STB_LOCAL, Section: ".text"},
		},
		nil)
	var compressed bytes.Buffer
	w, err := xz.NewWriter(&compressed)
	require.NoError(t, err)
	_, err = w.Write(embedded)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	outer := elf2.BuildTestELF(stdelf.EM_X86_64, []elf2.TestSection{
		{Name: ".text", Type: stdelf.SHT_NOBITS, Flags: stdelf.SHF_ALLOC | stdelf.SHF_EXECINSTR, Addr: 0x1000, Size: 0x1000},
		{Name: ".gnu_debugdata", Type: stdelf.SHT_PROGBITS, Data: compressed.Bytes()},
	}, nil, nil)

	path := filepath.Join(t.TempDir(), "bin.debug")
	writeFile(t, path, outer)

	parsed, err := Parse(testLogger(t), DebugFileRef{Path: path, Source: SourceMirror}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, len(parsed.Symbols))
	require.Equal(t, "stripped_fn", parsed.Symbols[0].Name)
}

func TestParseNoSymbolsAtAll(t *testing.T) {
	img := elf2.BuildTestELF(stdelf.EM_X86_64, []elf2.TestSection{
		{Name: ".text", Type: stdelf.SHT_NOBITS, Flags: stdelf.SHF_ALLOC | stdelf.SHF_EXECINSTR, Addr: 0x1000, Size: 0x1000},
	}, nil, nil)
	path := filepath.Join(t.TempDir(), "bin.debug")
	writeFile(t, path, img)

	parsed, err := Parse(testLogger(t), DebugFileRef{Path: path, Source: SourceMirror}, nil)
	require.NoError(t, err)
	require.Empty(t, parsed.Symbols)
}
