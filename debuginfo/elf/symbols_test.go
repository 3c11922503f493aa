package elf

import (
	"bytes"
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSymbolRecords(t *testing.T) {
	img := BuildTestELF(elf.EM_X86_64,
		[]TestSection{
			textSection(0x1000, 0x1000),
			{Name: ".data", Type: elf.SHT_NOBITS, Flags: elf.SHF_ALLOC | elf.SHF_WRITE, Addr: 0x3000, Size: 0x100},
		},
		[]TestSymbol{
			{Name: "do_work", Value: 0x1000, Size: 0x10, Type: elf.STT_FUNC, Bind: elf.STB_GLOBAL, Section: ".text"},
			{Name: "helper", Value: 0x1040, Size: 0x8, Type: elf.STT_FUNC, Bind: elf.STB_LOCAL, Section: ".text"},
			{Name: "counter", Value: 0x3000, Size: 0x8, Type: elf.STT_OBJECT, Bind: elf.STB_WEAK, Section: ".data"},
			{Name: "imported", Value: 0, Type: elf.STT_FUNC, Bind: elf.STB_GLOBAL, Section: ""},     // undefined
			{Name: "absolute", Value: 0xdead, Type: elf.STT_OBJECT, Bind: elf.STB_GLOBAL, Section: "*ABS*"}, // no image address
			{Name: "source.c", Value: 0, Type: elf.STT_FILE, Bind: elf.STB_LOCAL, Section: ".text"},
		},
		nil)
	f, err := NewInMemElfFile(bytes.NewReader(img))
	require.NoError(t, err)
	syms, err := f.SymbolRecords(nil)
	require.NoError(t, err)
	require.Equal(t, 3, len(syms))

	require.Equal(t, "do_work", syms[0].Name)
	require.Equal(t, "do_work", syms[0].RawName)
	require.Equal(t, uint64(0x1000), syms[0].Addr)
	require.Equal(t, uint64(0x10), syms[0].Size)
	require.Equal(t, KindFunc, syms[0].Kind)
	require.Equal(t, BindGlobal, syms[0].Bind)

	require.Equal(t, "helper", syms[1].Name)
	require.Equal(t, BindLocal, syms[1].Bind)

	require.Equal(t, "counter", syms[2].Name)
	require.Equal(t, KindObject, syms[2].Kind)
	require.Equal(t, BindWeak, syms[2].Bind)
}

func TestSymbolRecordsDynsym(t *testing.T) {
	img := BuildTestELF(elf.EM_X86_64,
		[]TestSection{textSection(0x1000, 0x1000)},
		[]TestSymbol{
			{Name: "static_fn", Value: 0x1000, Type: elf.STT_FUNC, Bind: elf.STB_LOCAL, Section: ".text"},
		},
		[]TestSymbol{
			{Name: "exported_fn", Value: 0x1100, Type: elf.STT_FUNC, Bind: elf.STB_GLOBAL, Section: ".text"},
		})
	f, err := NewInMemElfFile(bytes.NewReader(img))
	require.NoError(t, err)
	syms, err := f.SymbolRecords(nil)
	require.NoError(t, err)
	require.Equal(t, 2, len(syms))
	// .symtab entries come before .dynsym entries
	require.Equal(t, "static_fn", syms[0].Name)
	require.Equal(t, "exported_fn", syms[1].Name)
}

func TestSymbolRecordsDemangle(t *testing.T) {
	img := BuildTestELF(elf.EM_X86_64,
		[]TestSection{textSection(0x1000, 0x1000)},
		[]TestSymbol{
			{Name: "_Z7do_workv", Value: 0x1000, Type: elf.STT_FUNC, Bind: elf.STB_GLOBAL, Section: ".text"},
		},
		nil)
	f, err := NewInMemElfFile(bytes.NewReader(img))
	require.NoError(t, err)
	syms, err := f.SymbolRecords(&SymbolOptions{DemangleOptions: DemangleSimplified})
	require.NoError(t, err)
	require.Equal(t, 1, len(syms))
	require.Equal(t, "do_work", syms[0].Name)
	require.Equal(t, "_Z7do_workv", syms[0].RawName)
}

func TestSymbolRecordsNoSymbols(t *testing.T) {
	img := BuildTestELF(elf.EM_X86_64, []TestSection{textSection(0x1000, 0x1000)}, nil, nil)
	f, err := NewInMemElfFile(bytes.NewReader(img))
	require.NoError(t, err)
	_, err = f.SymbolRecords(nil)
	require.ErrorIs(t, err, ErrNoSymbols)
}

func TestSymbolRecordsCorruptStringOffset(t *testing.T) {
	img := BuildTestELF(elf.EM_X86_64,
		[]TestSection{textSection(0x1000, 0x1000)},
		[]TestSymbol{
			{NameOff: 0xffff, Value: 0x1000, Type: elf.STT_FUNC, Bind: elf.STB_GLOBAL, Section: ".text"},
		},
		nil)
	f, err := NewInMemElfFile(bytes.NewReader(img))
	require.NoError(t, err)
	_, err = f.SymbolRecords(nil)
	require.ErrorIs(t, err, ErrCorruptSymbolTable)
}

func TestSymbolRecordsCorruptEntrySize(t *testing.T) {
	img := BuildTestELF(elf.EM_X86_64, []TestSection{
		textSection(0x1000, 0x1000),
		{Name: ".symtab", Type: elf.SHT_SYMTAB, Data: make([]byte, elf.Sym64Size+5), Link: ".strtab", Entsize: elf.Sym64Size},
		{Name: ".strtab", Type: elf.SHT_STRTAB, Data: []byte{0}},
	}, nil, nil)
	f, err := NewInMemElfFile(bytes.NewReader(img))
	require.NoError(t, err)
	_, err = f.SymbolRecords(nil)
	require.ErrorIs(t, err, ErrCorruptSymbolTable)
}

func TestSymbolRecordsStringTableWrongType(t *testing.T) {
	img := BuildTestELF(elf.EM_X86_64, []TestSection{
		textSection(0x1000, 0x1000),
		{Name: ".rodata", Type: elf.SHT_PROGBITS, Data: []byte("not a string table\x00")},
		{Name: ".symtab", Type: elf.SHT_SYMTAB, Data: make([]byte, elf.Sym64Size*2), Link: ".rodata", Entsize: elf.Sym64Size},
	}, nil, nil)
	f, err := NewInMemElfFile(bytes.NewReader(img))
	require.NoError(t, err)
	_, err = f.SymbolRecords(nil)
	require.ErrorIs(t, err, ErrCorruptSymbolTable)
}

func TestSymbolRecordsBadStringTableLink(t *testing.T) {
	img := BuildTestELF(elf.EM_X86_64, []TestSection{
		textSection(0x1000, 0x1000),
		{Name: ".symtab", Type: elf.SHT_SYMTAB, Data: make([]byte, elf.Sym64Size*2), Entsize: elf.Sym64Size}, // no link
	}, nil, nil)
	f, err := NewInMemElfFile(bytes.NewReader(img))
	require.NoError(t, err)
	_, err = f.SymbolRecords(nil)
	require.ErrorIs(t, err, ErrCorruptSymbolTable)
}
