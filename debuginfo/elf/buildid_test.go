package elf

import (
	"bytes"
	"debug/elf"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGNUBuildID(t *testing.T) {
	raw, err := hex.DecodeString("1fcfa068c5fdb9f31e6d9f3f89019beacb70182d")
	require.NoError(t, err)
	img := BuildTestELF(elf.EM_X86_64, []TestSection{
		textSection(0x1000, 0x1000),
		{Name: ".note.gnu.build-id", Type: elf.SHT_NOTE, Flags: elf.SHF_ALLOC, Addr: 0x400, Data: BuildIDNote(raw)},
	}, nil, nil)
	f, err := NewInMemElfFile(bytes.NewReader(img))
	require.NoError(t, err)
	id, err := f.BuildID()
	require.NoError(t, err)
	require.Equal(t, "1fcfa068c5fdb9f31e6d9f3f89019beacb70182d", id.ID)
	require.Equal(t, "gnu", id.Typ)
	require.True(t, id.GNU())
	require.False(t, id.Empty())
}

func TestBuildIDMissing(t *testing.T) {
	img := BuildTestELF(elf.EM_X86_64, []TestSection{textSection(0x1000, 0x1000)}, nil, nil)
	f, err := NewInMemElfFile(bytes.NewReader(img))
	require.NoError(t, err)
	id, err := f.BuildID()
	require.ErrorIs(t, err, ErrNoBuildIDSection)
	require.True(t, id.Empty())
}

func TestGNUBuildIDWrongSize(t *testing.T) {
	img := BuildTestELF(elf.EM_X86_64, []TestSection{
		textSection(0x1000, 0x1000),
		{Name: ".note.gnu.build-id", Type: elf.SHT_NOTE, Flags: elf.SHF_ALLOC, Addr: 0x400, Data: BuildIDNote([]byte{1, 2, 3})},
	}, nil, nil)
	f, err := NewInMemElfFile(bytes.NewReader(img))
	require.NoError(t, err)
	_, err = f.GNUBuildID()
	require.Error(t, err)
}

func TestGNUBuildIDNotGNU(t *testing.T) {
	note := BuildIDNote(make([]byte, 20))
	copy(note[12:15], "XYZ")
	img := BuildTestELF(elf.EM_X86_64, []TestSection{
		textSection(0x1000, 0x1000),
		{Name: ".note.gnu.build-id", Type: elf.SHT_NOTE, Flags: elf.SHF_ALLOC, Addr: 0x400, Data: note},
	}, nil, nil)
	f, err := NewInMemElfFile(bytes.NewReader(img))
	require.NoError(t, err)
	_, err = f.GNUBuildID()
	require.Error(t, err)
}
