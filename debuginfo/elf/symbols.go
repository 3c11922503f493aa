package elf

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ianlancetaylor/demangle"
)

type SymbolKind uint8

const (
	KindOther SymbolKind = iota
	KindFunc
	KindObject
)

func (k SymbolKind) String() string {
	switch k {
	case KindFunc:
		return "func"
	case KindObject:
		return "object"
	default:
		return "other"
	}
}

type SymbolBinding uint8

const (
	BindLocal SymbolBinding = iota
	BindWeak
	BindGlobal
)

func (b SymbolBinding) String() string {
	switch b {
	case BindGlobal:
		return "global"
	case BindWeak:
		return "weak"
	default:
		return "local"
	}
}

// SymbolRecord is one defined symbol in debug-file coordinates. Name
// carries the demangled form when demangling is enabled, RawName always
// the original string-table entry.
type SymbolRecord struct {
	Name    string
	RawName string
	Addr    uint64
	Size    uint64
	Kind    SymbolKind
	Bind    SymbolBinding
}

type SymbolOptions struct {
	DemangleOptions []demangle.Option
}

var defaultSymbolOptions = &SymbolOptions{}

// SymbolRecords walks .symtab then .dynsym and returns every defined
// symbol in symbol-table order. Entries with undefined, absolute or
// common section indices carry no image address and are skipped.
func (f *InMemElfFile) SymbolRecords(opt *SymbolOptions) ([]SymbolRecord, error) {
	if opt == nil {
		opt = defaultSymbolOptions
	}
	sym, err := f.getSymbols(elf.SHT_SYMTAB, opt)
	if err != nil && !errors.Is(err, ErrNoSymbols) {
		return nil, err
	}
	dynsym, err := f.getSymbols(elf.SHT_DYNSYM, opt)
	if err != nil && !errors.Is(err, ErrNoSymbols) {
		return nil, err
	}
	total := len(sym) + len(dynsym)
	if total == 0 {
		return nil, ErrNoSymbols
	}
	all := make([]SymbolRecord, 0, total)
	all = append(all, sym...)
	all = append(all, dynsym...)
	return all, nil
}

func (f *InMemElfFile) getSymbols(typ elf.SectionType, opt *SymbolOptions) ([]SymbolRecord, error) {
	switch f.Class {
	case elf.ELFCLASS64:
		return f.getSymbols64(typ, opt)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedArchitecture, f.Class)
}

func (f *InMemElfFile) getSymbols64(typ elf.SectionType, opt *SymbolOptions) ([]SymbolRecord, error) {
	symtabSection := f.sectionByType(typ)
	if symtabSection == nil {
		return nil, ErrNoSymbols
	}
	data, err := f.SectionData(symtabSection)
	if err != nil {
		return nil, fmt.Errorf("%w: load symbol section: %s", ErrCorruptSymbolTable, err)
	}
	if len(data)%elf.Sym64Size != 0 {
		return nil, fmt.Errorf("%w: length of symbol section is not a multiple of Sym64Size", ErrCorruptSymbolTable)
	}
	strSection, err := f.stringTable(symtabSection.Link)
	if err != nil {
		return nil, err
	}
	strdata, err := f.SectionData(strSection)
	if err != nil {
		return nil, fmt.Errorf("%w: load string table: %s", ErrCorruptSymbolTable, err)
	}

	symtab := bytes.NewReader(data)
	// The first entry is all zeros.
	var skip [elf.Sym64Size]byte
	_, _ = symtab.Read(skip[:])

	res := make([]SymbolRecord, 0, symtab.Len()/elf.Sym64Size)
	var sym elf.Sym64
	for symtab.Len() > 0 {
		if err := binary.Read(symtab, f.ByteOrder, &sym); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrCorruptSymbolTable, err)
		}
		shndx := elf.SectionIndex(sym.Shndx)
		if shndx == elf.SHN_UNDEF || shndx == elf.SHN_ABS || shndx == elf.SHN_COMMON {
			continue
		}
		st := elf.ST_TYPE(sym.Info)
		if st == elf.STT_SECTION || st == elf.STT_FILE || st == elf.STT_TLS {
			continue
		}
		raw, ok := getString(strdata, int(sym.Name))
		if !ok {
			return nil, fmt.Errorf("%w: string table offset %d out of bounds", ErrCorruptSymbolTable, sym.Name)
		}
		if raw == "" {
			continue
		}
		name := raw
		if len(opt.DemangleOptions) > 0 {
			name = demangle.Filter(raw, opt.DemangleOptions...)
		}
		res = append(res, SymbolRecord{
			Name:    name,
			RawName: raw,
			Addr:    sym.Value,
			Size:    sym.Size,
			Kind:    symbolKind(st),
			Bind:    symbolBinding(elf.ST_BIND(sym.Info)),
		})
	}
	return res, nil
}

func (f *InMemElfFile) stringTable(link uint32) (*elf.SectionHeader, error) {
	if link <= 0 || link >= uint32(len(f.Sections)) {
		return nil, fmt.Errorf("%w: section has invalid string table link %d", ErrCorruptSymbolTable, link)
	}
	s := &f.Sections[link]
	if s.Type != elf.SHT_STRTAB {
		return nil, fmt.Errorf("%w: string table link %d points at %s section %s", ErrCorruptSymbolTable, link, s.Type, s.Name)
	}
	return s, nil
}

func symbolKind(t elf.SymType) SymbolKind {
	switch t {
	case elf.STT_FUNC:
		return KindFunc
	case elf.STT_OBJECT:
		return KindObject
	default:
		return KindOther
	}
}

func symbolBinding(b elf.SymBind) SymbolBinding {
	switch b {
	case elf.STB_GLOBAL:
		return BindGlobal
	case elf.STB_WEAK:
		return BindWeak
	default:
		return BindLocal
	}
}
