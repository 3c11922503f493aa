package elf

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

// Helpers to synthesize little-endian ELF64 images in memory. They are
// kept out of the _test files so fixture building can be shared with
// the tests of dependent packages.

type TestSection struct {
	Name    string
	Type    elf.SectionType
	Flags   elf.SectionFlag
	Addr    uint64
	Size    uint64 // only consulted for SHT_NOBITS; otherwise len(Data)
	Data    []byte
	Link    string
	Entsize uint64
}

type TestSymbol struct {
	Name    string
	Value   uint64
	Size    uint64
	Type    elf.SymType
	Bind    elf.SymBind
	Section string // "" = SHN_UNDEF, "*ABS*" = SHN_ABS, "*COM*" = SHN_COMMON
	NameOff uint32 // raw string-table offset override for corrupt fixtures
}

// BuildIDNote encodes an NT_GNU_BUILD_ID note. id must be 20 or 8
// bytes for the consumer to accept it.
func BuildIDNote(id []byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, uint32(4))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(id)))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(3))
	buf.WriteString("GNU\x00")
	buf.Write(id)
	return buf.Bytes()
}

// DebugLinkData encodes a .gnu_debuglink payload.
func DebugLinkData(name string, crc uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString(name)
	buf.WriteByte(0)
	for buf.Len()%4 != 0 {
		buf.WriteByte(0)
	}
	_ = binary.Write(&buf, binary.LittleEndian, crc)
	return buf.Bytes()
}

// BuildTestELF assembles a minimal ELF64 image: a null section, the
// given sections, .symtab/.strtab when syms is non-nil, .dynsym/.dynstr
// when dynsyms is non-nil, and a trailing .shstrtab.
func BuildTestELF(machine elf.Machine, sections []TestSection, syms, dynsyms []TestSymbol) []byte {
	type rawSection struct {
		TestSection
		linkIdx uint32
	}

	all := make([]rawSection, 0, len(sections)+5)
	all = append(all, rawSection{TestSection: TestSection{Type: elf.SHT_NULL}})
	for _, s := range sections {
		all = append(all, rawSection{TestSection: s})
	}

	idxOf := func(name string) uint16 {
		for i := range all {
			if all[i].Name == name {
				return uint16(i)
			}
		}
		return uint16(elf.SHN_UNDEF)
	}
	shndxOf := func(name string) uint16 {
		switch name {
		case "":
			return uint16(elf.SHN_UNDEF)
		case "*ABS*":
			return uint16(elf.SHN_ABS)
		case "*COM*":
			return uint16(elf.SHN_COMMON)
		default:
			return idxOf(name)
		}
	}

	encodeSymtab := func(table []TestSymbol) (symdata, strdata []byte) {
		var strtab bytes.Buffer
		strtab.WriteByte(0)
		var buf bytes.Buffer
		var zero [elf.Sym64Size]byte
		buf.Write(zero[:]) // null entry
		for _, s := range table {
			nameOff := s.NameOff
			if nameOff == 0 && s.Name != "" {
				nameOff = uint32(strtab.Len())
				strtab.WriteString(s.Name)
				strtab.WriteByte(0)
			}
			_ = binary.Write(&buf, binary.LittleEndian, elf.Sym64{
				Name:  nameOff,
				Info:  byte(s.Bind)<<4 | byte(s.Type)&0xf,
				Other: 0,
				Shndx: shndxOf(s.Section),
				Value: s.Value,
				Size:  s.Size,
			})
		}
		return buf.Bytes(), strtab.Bytes()
	}

	if syms != nil {
		symdata, strdata := encodeSymtab(syms)
		all = append(all,
			rawSection{TestSection: TestSection{Name: ".symtab", Type: elf.SHT_SYMTAB, Data: symdata, Link: ".strtab", Entsize: elf.Sym64Size}},
			rawSection{TestSection: TestSection{Name: ".strtab", Type: elf.SHT_STRTAB, Data: strdata}})
	}
	if dynsyms != nil {
		symdata, strdata := encodeSymtab(dynsyms)
		all = append(all,
			rawSection{TestSection: TestSection{Name: ".dynsym", Type: elf.SHT_DYNSYM, Data: symdata, Link: ".dynstr", Entsize: elf.Sym64Size}},
			rawSection{TestSection: TestSection{Name: ".dynstr", Type: elf.SHT_STRTAB, Data: strdata}})
	}

	// .shstrtab must be in the list before names are assigned
	all = append(all, rawSection{TestSection: TestSection{Name: ".shstrtab", Type: elf.SHT_STRTAB}})
	shstrndx := uint16(len(all) - 1)

	var shstrtab bytes.Buffer
	shstrtab.WriteByte(0)
	nameOffs := make([]uint32, len(all))
	for i := range all {
		if all[i].Name == "" {
			continue
		}
		nameOffs[i] = uint32(shstrtab.Len())
		shstrtab.WriteString(all[i].Name)
		shstrtab.WriteByte(0)
	}
	all[shstrndx].Data = shstrtab.Bytes()

	for i := range all {
		if all[i].Link != "" {
			all[i].linkIdx = uint32(idxOf(all[i].Link))
		}
	}

	const ehSize = 64
	const shentsize = 64
	var body bytes.Buffer
	offsets := make([]uint64, len(all))
	sizes := make([]uint64, len(all))
	off := uint64(ehSize)
	pad := func(align uint64) {
		for off%align != 0 {
			body.WriteByte(0)
			off++
		}
	}
	for i := range all {
		s := &all[i]
		if s.Type == elf.SHT_NULL {
			continue
		}
		pad(8)
		offsets[i] = off
		if s.Type == elf.SHT_NOBITS {
			sizes[i] = s.Size
			continue
		}
		body.Write(s.Data)
		off += uint64(len(s.Data))
		sizes[i] = uint64(len(s.Data))
	}
	pad(8)
	shoff := off

	var out bytes.Buffer
	// ELF header
	out.Write([]byte{0x7f, 'E', 'L', 'F',
		byte(elf.ELFCLASS64), byte(elf.ELFDATA2LSB), 1, 0,
		0, 0, 0, 0, 0, 0, 0, 0})
	le := binary.LittleEndian
	_ = binary.Write(&out, le, uint16(elf.ET_EXEC))
	_ = binary.Write(&out, le, uint16(machine))
	_ = binary.Write(&out, le, uint32(1))
	_ = binary.Write(&out, le, uint64(0)) // entry
	_ = binary.Write(&out, le, uint64(0)) // phoff
	_ = binary.Write(&out, le, shoff)
	_ = binary.Write(&out, le, uint32(0)) // flags
	_ = binary.Write(&out, le, uint16(ehSize))
	_ = binary.Write(&out, le, uint16(56)) // phentsize
	_ = binary.Write(&out, le, uint16(0))  // phnum
	_ = binary.Write(&out, le, uint16(shentsize))
	_ = binary.Write(&out, le, uint16(len(all)))
	_ = binary.Write(&out, le, shstrndx)

	out.Write(body.Bytes())

	for i := range all {
		s := &all[i]
		_ = binary.Write(&out, le, nameOffs[i])
		_ = binary.Write(&out, le, uint32(s.Type))
		_ = binary.Write(&out, le, uint64(s.Flags))
		_ = binary.Write(&out, le, s.Addr)
		_ = binary.Write(&out, le, offsets[i])
		_ = binary.Write(&out, le, sizes[i])
		_ = binary.Write(&out, le, s.linkIdx)
		_ = binary.Write(&out, le, uint32(0)) // info
		_ = binary.Write(&out, le, uint64(1)) // addralign
		_ = binary.Write(&out, le, s.Entsize)
	}
	return out.Bytes()
}
