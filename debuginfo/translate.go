package debuginfo

import (
	"debug/elf"
	"sort"

	elf2 "github.com/Ninja3047/load-symbols/debuginfo/elf"
)

// TranslatedSymbol is a symbol record rebased into target-image
// coordinates.
type TranslatedSymbol struct {
	Name      string
	RawName   string
	Addr      uint64 // target-image coordinates
	DebugAddr uint64 // original debug-file coordinates
	Size      uint64
	Kind      elf2.SymbolKind
	Bind      elf2.SymbolBinding
	File      string
	Line      int
}

// UnmappedSymbol records a symbol dropped during translation.
type UnmappedSymbol struct {
	Name   string
	Addr   uint64 // debug-file coordinates
	Reason string
}

// Translate rebases every symbol from debug-file coordinates onto the
// target image. Sections correspond by name first; sections the name
// pass leaves unmatched are paired by ordinal position within their
// write/exec permission group. Symbols without a containing debug
// section, without a target correspondent, or whose offset exceeds the
// target section are dropped and reported. Both input section slices
// must be sorted by address; output order follows input symbol order.
func Translate(debugSections []elf2.SectionDescriptor, symbols []elf2.SymbolRecord, targetSections []elf2.SectionDescriptor) ([]TranslatedSymbol, []UnmappedSymbol) {
	corr := matchSections(debugSections, targetSections)

	translated := make([]TranslatedSymbol, 0, len(symbols))
	var unmapped []UnmappedSymbol
	for i := range symbols {
		sym := &symbols[i]
		di := findSectionIndex(debugSections, sym.Addr)
		if di < 0 {
			unmapped = append(unmapped, UnmappedSymbol{
				Name:   sym.Name,
				Addr:   sym.Addr,
				Reason: "no containing debug section",
			})
			continue
		}
		ti, ok := corr[di]
		if !ok {
			unmapped = append(unmapped, UnmappedSymbol{
				Name:   sym.Name,
				Addr:   sym.Addr,
				Reason: "no corresponding target section for " + debugSections[di].Name,
			})
			continue
		}
		offset := sym.Addr - debugSections[di].Addr
		if offset >= targetSections[ti].Size {
			unmapped = append(unmapped, UnmappedSymbol{
				Name:   sym.Name,
				Addr:   sym.Addr,
				Reason: "offset beyond target section " + targetSections[ti].Name,
			})
			continue
		}
		translated = append(translated, TranslatedSymbol{
			Name:      sym.Name,
			RawName:   sym.RawName,
			Addr:      targetSections[ti].Addr + offset,
			DebugAddr: sym.Addr,
			Size:      sym.Size,
			Kind:      sym.Kind,
			Bind:      sym.Bind,
		})
	}
	return translated, unmapped
}

func findSectionIndex(sections []elf2.SectionDescriptor, addr uint64) int {
	i := sort.Search(len(sections), func(i int) bool {
		return addr < sections[i].Addr
	})
	i--
	if i < 0 || !sections[i].Contains(addr) {
		return -1
	}
	return i
}

// matchSections builds the debug-section to target-section
// correspondence as a map of indices.
func matchSections(debug, target []elf2.SectionDescriptor) map[int]int {
	corr := make(map[int]int, len(debug))
	claimed := make(map[int]bool, len(target))

	// name equality, unambiguous names only
	byName := make(map[string]int, len(target))
	dupName := make(map[string]bool)
	for i := range target {
		name := target[i].Name
		if _, ok := byName[name]; ok {
			dupName[name] = true
			continue
		}
		byName[name] = i
	}
	for i := range debug {
		name := debug[i].Name
		if dupName[name] {
			continue
		}
		if ti, ok := byName[name]; ok {
			corr[i] = ti
			claimed[ti] = true
		}
	}

	// ordinal fallback within permission groups, in debug-section order
	groupOf := func(sections []elf2.SectionDescriptor) map[elf.SectionFlag][]int {
		groups := make(map[elf.SectionFlag][]int)
		for i := range sections {
			perm := sections[i].Perm()
			groups[perm] = append(groups[perm], i)
		}
		return groups
	}
	debugGroups := groupOf(debug)
	targetGroups := groupOf(target)
	seen := make(map[elf.SectionFlag]bool)
	for i := range debug {
		perm := debug[i].Perm()
		if seen[perm] {
			continue
		}
		seen[perm] = true
		tg := targetGroups[perm]
		for pos, di := range debugGroups[perm] {
			if _, ok := corr[di]; ok {
				continue
			}
			if pos >= len(tg) {
				break
			}
			ti := tg[pos]
			if claimed[ti] {
				continue
			}
			corr[di] = ti
			claimed[ti] = true
		}
	}
	return corr
}
