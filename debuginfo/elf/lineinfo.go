package elf

import (
	"debug/dwarf"
	"debug/elf"
	"fmt"
	"io"
	"sort"
)

type LineInfo struct {
	File string
	Line int
}

// LineTable maps addresses to source positions, built from the DWARF
// line program when the optional debug sections are present.
type LineTable struct {
	entries []lineEntry
}

type lineEntry struct {
	addr   uint64
	file   string
	line   int
	endSeq bool
}

// LineTableRow is one pre-resolved row for NewLineTable. An EndSequence
// row marks the first address past a covered range; lookups at or
// beyond it fail until the next covered row.
type LineTableRow struct {
	Addr        uint64
	File        string
	Line        int
	EndSequence bool
}

// NewLineTable builds a table from already-resolved rows.
func NewLineTable(rows []LineTableRow) *LineTable {
	res := &LineTable{entries: make([]lineEntry, 0, len(rows))}
	for _, r := range rows {
		res.entries = append(res.entries, lineEntry{
			addr:   r.Addr,
			file:   r.File,
			line:   r.Line,
			endSeq: r.EndSequence,
		})
	}
	sortLineEntries(res.entries)
	return res
}

// LineTable reads the DWARF line metadata. Absence or corruption of
// the line data is reported as an error for the caller to ignore: a
// debug companion without line tables still yields symbols.
func (f *InMemElfFile) LineTable() (*LineTable, error) {
	ef, err := elf.NewFile(f.reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoLineInfo, err)
	}
	d, err := ef.DWARF()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoLineInfo, err)
	}
	res := &LineTable{}
	covered := false
	r := d.Reader()
	for {
		ent, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNoLineInfo, err)
		}
		if ent == nil {
			break
		}
		if ent.Tag != dwarf.TagCompileUnit {
			r.SkipChildren()
			continue
		}
		lr, err := d.LineReader(ent)
		if err != nil || lr == nil {
			r.SkipChildren()
			continue
		}
		var le dwarf.LineEntry
		for {
			err = lr.Next(&le)
			if err == io.EOF {
				break
			}
			if err != nil {
				break
			}
			if le.EndSequence {
				res.entries = append(res.entries, lineEntry{addr: le.Address, endSeq: true})
				continue
			}
			if le.File == nil {
				continue
			}
			res.entries = append(res.entries, lineEntry{
				addr: le.Address,
				file: le.File.Name,
				line: le.Line,
			})
			covered = true
		}
		r.SkipChildren()
	}
	if !covered {
		return nil, ErrNoLineInfo
	}
	sortLineEntries(res.entries)
	return res, nil
}

// A sequence end shares its address with the first row of an adjacent
// sequence; the covered row must win lookups at that address.
func sortLineEntries(entries []lineEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].addr == entries[j].addr {
			return entries[i].endSeq && !entries[j].endSeq
		}
		return entries[i].addr < entries[j].addr
	})
}

// Find returns the source position of the line-program row at or just
// below addr. Addresses before the first row or past a sequence end
// have no position.
func (lt *LineTable) Find(addr uint64) (LineInfo, bool) {
	if len(lt.entries) == 0 || addr < lt.entries[0].addr {
		return LineInfo{}, false
	}
	i := sort.Search(len(lt.entries), func(i int) bool {
		return addr < lt.entries[i].addr
	})
	i--
	if lt.entries[i].endSeq {
		return LineInfo{}, false
	}
	return LineInfo{File: lt.entries[i].file, Line: lt.entries[i].line}, true
}

func (lt *LineTable) Size() int {
	return len(lt.entries)
}
