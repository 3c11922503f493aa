package elf

import (
	"bytes"
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineTableFind(t *testing.T) {
	lt := NewLineTable([]LineTableRow{
		{Addr: 0x1010, File: "main.c", Line: 12},
		{Addr: 0x1000, File: "main.c", Line: 10},
		{Addr: 0x2000, EndSequence: true},
		{Addr: 0x3000, File: "util.c", Line: 5},
		{Addr: 0x3040, EndSequence: true},
	})
	require.Equal(t, 5, lt.Size())

	for _, td := range []struct {
		addr uint64
		want LineInfo
		ok   bool
	}{
		{0xfff, LineInfo{}, false}, // below the first row
		{0x1000, LineInfo{File: "main.c", Line: 10}, true},
		{0x100f, LineInfo{File: "main.c", Line: 10}, true},
		{0x1010, LineInfo{File: "main.c", Line: 12}, true},
		{0x1fff, LineInfo{File: "main.c", Line: 12}, true},
		{0x2000, LineInfo{}, false}, // sequence ended
		{0x2fff, LineInfo{}, false}, // gap between sequences
		{0x3000, LineInfo{File: "util.c", Line: 5}, true},
		{0x303f, LineInfo{File: "util.c", Line: 5}, true},
		{0x3040, LineInfo{}, false},
		{0xffffffff, LineInfo{}, false}, // far past the last sequence
	} {
		li, ok := lt.Find(td.addr)
		require.Equal(t, td.ok, ok, "addr %x", td.addr)
		require.Equal(t, td.want, li, "addr %x", td.addr)
	}
}

func TestLineTableAdjacentSequences(t *testing.T) {
	// one sequence ends exactly where the next begins; the address
	// belongs to the covered row
	lt := NewLineTable([]LineTableRow{
		{Addr: 0x1000, File: "a.c", Line: 1},
		{Addr: 0x2000, EndSequence: true},
		{Addr: 0x2000, File: "b.c", Line: 1},
		{Addr: 0x3000, EndSequence: true},
	})
	li, ok := lt.Find(0x2000)
	require.True(t, ok)
	require.Equal(t, "b.c", li.File)
}

func TestLineTableEmpty(t *testing.T) {
	lt := NewLineTable(nil)
	_, ok := lt.Find(0x1000)
	require.False(t, ok)
}

func TestLineTableNoDwarf(t *testing.T) {
	img := BuildTestELF(elf.EM_X86_64, []TestSection{textSection(0x1000, 0x1000)}, nil, nil)
	f, err := NewInMemElfFile(bytes.NewReader(img))
	require.NoError(t, err)
	_, err = f.LineTable()
	require.ErrorIs(t, err, ErrNoLineInfo)
}
