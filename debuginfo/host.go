package debuginfo

import (
	"github.com/Ninja3047/load-symbols/debuginfo/elf"
)

// Host contracts. The analysis engine owns the binary model; the
// pipeline reaches it only through these interfaces.

// Symbol is an entry in the host's symbol table, in target-image
// coordinates.
type Symbol struct {
	Name    string
	RawName string
	Addr    uint64
	Size    uint64
	Kind    elf.SymbolKind
	File    string
	Line    int

	// Placeholder marks auto-generated address-derived names
	// (sub_401000 and friends) that debug info may overwrite.
	Placeholder bool
}

// SymbolView is the table as seen while holding the host's write lock.
type SymbolView interface {
	Lookup(addr uint64) (Symbol, bool)
	Define(sym Symbol)
}

// SymbolTable is the host's live symbol table. WithLock runs fn under
// the host's exclusive-write discipline and releases the lock on every
// exit path, including an error from fn.
type SymbolTable interface {
	WithLock(fn func(view SymbolView) error) error
}

// Target is the loaded binary the host wants debug symbols applied to.
type Target interface {
	Identity() BinaryIdentity
	Sections() []elf.SectionDescriptor
	SymbolTable() SymbolTable
}

// StaticTarget is a Target for hosts that precompute everything up
// front.
type StaticTarget struct {
	identity BinaryIdentity
	sections []elf.SectionDescriptor
	table    SymbolTable
}

func NewStaticTarget(identity BinaryIdentity, sections []elf.SectionDescriptor, table SymbolTable) *StaticTarget {
	return &StaticTarget{
		identity: identity,
		sections: sections,
		table:    table,
	}
}

func (t *StaticTarget) Identity() BinaryIdentity {
	return t.identity
}

func (t *StaticTarget) Sections() []elf.SectionDescriptor {
	return t.sections
}

func (t *StaticTarget) SymbolTable() SymbolTable {
	return t.table
}
