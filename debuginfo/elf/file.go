package elf

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
)

var (
	ErrMalformedHeader         = errors.New("malformed elf header")
	ErrCorruptSectionTable     = errors.New("corrupt section table")
	ErrCorruptSymbolTable      = errors.New("corrupt symbol table")
	ErrUnsupportedArchitecture = errors.New("unsupported architecture")
	ErrNoSymbols               = errors.New("no symbol section")
	ErrNoBuildIDSection        = errors.New("build ID section not found")
	ErrNoDebugLink             = errors.New("debug link section not found")
	ErrNoDebugData             = errors.New("mini debug info section not found")
	ErrNoLineInfo              = errors.New("line info not found")
)

// InMemElfFile keeps the parsed ELF headers in memory and reads section
// contents lazily through an io.ReaderAt. Every read is bounds checked
// against the declared section geometry: malformed input degrades to an
// error, never to a panic.
type InMemElfFile struct {
	elf.FileHeader
	Sections []elf.SectionHeader
	Progs    []elf.ProgHeader

	reader io.ReaderAt
}

func NewInMemElfFile(r io.ReaderAt) (*InMemElfFile, error) {
	res := &InMemElfFile{
		reader: r,
	}
	elfFile, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedHeader, err)
	}
	if err = checkHeader(&elfFile.FileHeader); err != nil {
		return nil, err
	}
	progs := make([]elf.ProgHeader, 0, len(elfFile.Progs))
	sections := make([]elf.SectionHeader, 0, len(elfFile.Sections))
	for i := range elfFile.Progs {
		progs = append(progs, elfFile.Progs[i].ProgHeader)
	}
	for i := range elfFile.Sections {
		sections = append(sections, elfFile.Sections[i].SectionHeader)
	}
	res.FileHeader = elfFile.FileHeader
	res.Progs = progs
	res.Sections = sections
	return res, nil
}

func checkHeader(h *elf.FileHeader) error {
	if h.Class != elf.ELFCLASS64 {
		return fmt.Errorf("%w: %s", ErrUnsupportedArchitecture, h.Class)
	}
	switch h.Machine {
	case elf.EM_X86_64, elf.EM_AARCH64:
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedArchitecture, h.Machine)
	}
	return nil
}

func (f *InMemElfFile) Section(name string) *elf.SectionHeader {
	for i := range f.Sections {
		s := &f.Sections[i]
		if s.Name == name {
			return s
		}
	}
	return nil
}

func (f *InMemElfFile) sectionByType(typ elf.SectionType) *elf.SectionHeader {
	for i := range f.Sections {
		s := &f.Sections[i]
		if s.Type == typ {
			return s
		}
	}
	return nil
}

func (f *InMemElfFile) SectionData(s *elf.SectionHeader) ([]byte, error) {
	if s.Type == elf.SHT_NOBITS {
		return nil, fmt.Errorf("section %s has no file backing", s.Name)
	}
	res := make([]byte, s.FileSize)
	if _, err := f.reader.ReadAt(res, int64(s.Offset)); err != nil {
		return nil, fmt.Errorf("section %s oob: %w", s.Name, err)
	}
	return res, nil
}

// getString extracts a NUL-terminated string from an ELF string table.
func getString(section []byte, start int) (string, bool) {
	if start < 0 || start >= len(section) {
		return "", false
	}
	for end := start; end < len(section); end++ {
		if section[end] == 0 {
			return string(section[start:end]), true
		}
	}
	return "", false
}

func cString(bs []byte) string {
	i := 0
	for ; i < len(bs); i++ {
		if bs[i] == 0 {
			break
		}
	}
	return string(bs[:i])
}
