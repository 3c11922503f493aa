package elf

import (
	"debug/elf"
	"fmt"
	"sort"
)

// SectionDescriptor describes a loadable region of the image:
// [Addr, Addr+Size) in virtual-address space, backed at Offset.
type SectionDescriptor struct {
	Name   string
	Addr   uint64
	Size   uint64
	Offset uint64
	Flags  elf.SectionFlag
}

func (s *SectionDescriptor) End() uint64 {
	return s.Addr + s.Size
}

func (s *SectionDescriptor) Contains(addr uint64) bool {
	return addr >= s.Addr && addr < s.End()
}

// Perm reduces the section flags to the write/exec bits that matter for
// matching sections between two images.
func (s *SectionDescriptor) Perm() elf.SectionFlag {
	return s.Flags & (elf.SHF_WRITE | elf.SHF_EXECINSTR)
}

// SectionDescriptors returns the allocatable sections sorted by virtual
// address. TLS sections are excluded: their addresses alias the ranges
// of the sections placed after them. Overlapping ranges among the rest
// mean the section table cannot be trusted.
func (f *InMemElfFile) SectionDescriptors() ([]SectionDescriptor, error) {
	res := make([]SectionDescriptor, 0, len(f.Sections))
	for i := range f.Sections {
		s := &f.Sections[i]
		if s.Flags&elf.SHF_ALLOC == 0 || s.Flags&elf.SHF_TLS != 0 {
			continue
		}
		if s.Size == 0 {
			continue
		}
		res = append(res, SectionDescriptor{
			Name:   s.Name,
			Addr:   s.Addr,
			Size:   s.Size,
			Offset: s.Offset,
			Flags:  s.Flags,
		})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Addr == res[j].Addr {
			return res[i].Name < res[j].Name
		}
		return res[i].Addr < res[j].Addr
	})
	for i := 1; i < len(res); i++ {
		prev, cur := &res[i-1], &res[i]
		if cur.Addr < prev.End() {
			return nil, fmt.Errorf("%w: %s [0x%x,0x%x) overlaps %s [0x%x,0x%x)",
				ErrCorruptSectionTable,
				cur.Name, cur.Addr, cur.End(),
				prev.Name, prev.Addr, prev.End())
		}
	}
	return res, nil
}
