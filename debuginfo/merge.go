package debuginfo

import (
	elf2 "github.com/Ninja3047/load-symbols/debuginfo/elf"
)

// Merge applies translated symbols to the host table under its write
// lock. A free address gets the incoming symbol; an occupied address
// is overwritten only when the existing entry is an auto-generated
// placeholder, otherwise the collision is recorded and the existing
// entry kept. When several incoming symbols share an address the
// strongest binding wins, ties going to the earliest in symbol-table
// order.
func Merge(table SymbolTable, incoming []TranslatedSymbol) (*MergeReport, error) {
	winners := dedupeByAddress(incoming)
	report := &MergeReport{}
	err := table.WithLock(func(view SymbolView) error {
		for i := range winners {
			in := &winners[i]
			existing, ok := view.Lookup(in.Addr)
			if !ok {
				view.Define(hostSymbol(in))
				report.Inserted++
				continue
			}
			if existing.Placeholder {
				view.Define(hostSymbol(in))
				report.Overwritten++
				continue
			}
			report.Skipped++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func hostSymbol(in *TranslatedSymbol) Symbol {
	return Symbol{
		Name:    in.Name,
		RawName: in.RawName,
		Addr:    in.Addr,
		Size:    in.Size,
		Kind:    in.Kind,
		File:    in.File,
		Line:    in.Line,
	}
}

func bindRank(b elf2.SymbolBinding) int {
	switch b {
	case elf2.BindGlobal:
		return 2
	case elf2.BindWeak:
		return 1
	default:
		return 0
	}
}

func dedupeByAddress(incoming []TranslatedSymbol) []TranslatedSymbol {
	best := make(map[uint64]int, len(incoming))
	order := make([]uint64, 0, len(incoming))
	for i := range incoming {
		addr := incoming[i].Addr
		j, ok := best[addr]
		if !ok {
			best[addr] = i
			order = append(order, addr)
			continue
		}
		if bindRank(incoming[i].Bind) > bindRank(incoming[j].Bind) {
			best[addr] = i
		}
	}
	out := make([]TranslatedSymbol, 0, len(order))
	for _, addr := range order {
		out = append(out, incoming[best[addr]])
	}
	return out
}
