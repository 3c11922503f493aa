package debuginfo

import (
	"errors"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/Ninja3047/load-symbols/debuginfo/elf"
)

// ParseResult is everything recovered from one debug companion.
type ParseResult struct {
	Sections []elf.SectionDescriptor
	Symbols  []elf.SymbolRecord
	Lines    *elf.LineTable // nil when the companion carries no line data
	BuildID  elf.BuildID
}

// Parse opens the located companion and extracts its section layout
// and symbol table. A companion whose own symbol sections were
// stripped may still carry an embedded minidebuginfo image; that is
// tried before giving up on symbols. Line metadata is optional and its
// absence is not an error.
func Parse(logger log.Logger, ref DebugFileRef, opt *elf.SymbolOptions) (*ParseResult, error) {
	me, err := elf.NewMMapedElfFile(ref.Path)
	if err != nil {
		return nil, err
	}
	defer me.Close()

	sections, err := me.SectionDescriptors()
	if err != nil {
		return nil, err
	}

	symbols, err := me.SymbolRecords(opt)
	if errors.Is(err, elf.ErrNoSymbols) {
		mini, miniErr := me.MiniDebugElf()
		if miniErr == nil {
			symbols, err = mini.SymbolRecords(opt)
		}
	}
	if err != nil {
		if !errors.Is(err, elf.ErrNoSymbols) {
			return nil, err
		}
		symbols = nil
	}

	res := &ParseResult{
		Sections: sections,
		Symbols:  symbols,
	}
	if lines, lineErr := me.LineTable(); lineErr == nil {
		res.Lines = lines
	} else {
		level.Debug(logger).Log("msg", "no line metadata", "f", ref.Path, "err", lineErr)
	}
	if buildID, idErr := me.BuildID(); idErr == nil {
		res.BuildID = buildID
	}
	return res, nil
}
