package debuginfo

import (
	"sort"
	"sync"
)

// MemSymbolTable is an in-memory SymbolTable for hosts without their
// own model, and for tests.
type MemSymbolTable struct {
	mu     sync.Mutex
	byAddr map[uint64]Symbol
	sorted []uint64
	dirty  bool
}

func NewMemSymbolTable(symbols []Symbol) *MemSymbolTable {
	t := &MemSymbolTable{
		byAddr: make(map[uint64]Symbol, len(symbols)),
	}
	for _, s := range symbols {
		t.byAddr[s.Addr] = s
	}
	t.dirty = true
	return t
}

type memView struct {
	t *MemSymbolTable
}

func (v memView) Lookup(addr uint64) (Symbol, bool) {
	s, ok := v.t.byAddr[addr]
	return s, ok
}

func (v memView) Define(sym Symbol) {
	if _, ok := v.t.byAddr[sym.Addr]; !ok {
		v.t.dirty = true
	}
	v.t.byAddr[sym.Addr] = sym
}

func (t *MemSymbolTable) WithLock(fn func(view SymbolView) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(memView{t})
}

// Resolve returns the symbol at or just below addr.
func (t *MemSymbolTable) Resolve(addr uint64) (Symbol, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reindex()
	if len(t.sorted) == 0 || addr < t.sorted[0] {
		return Symbol{}, false
	}
	i := sort.Search(len(t.sorted), func(i int) bool {
		return addr < t.sorted[i]
	})
	i--
	return t.byAddr[t.sorted[i]], true
}

// Each calls fn for every symbol in address order.
func (t *MemSymbolTable) Each(fn func(Symbol)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reindex()
	for _, addr := range t.sorted {
		fn(t.byAddr[addr])
	}
}

func (t *MemSymbolTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byAddr)
}

func (t *MemSymbolTable) reindex() {
	if !t.dirty {
		return
	}
	t.sorted = t.sorted[:0]
	for addr := range t.byAddr {
		t.sorted = append(t.sorted, addr)
	}
	sort.Slice(t.sorted, func(i, j int) bool {
		return t.sorted[i] < t.sorted[j]
	})
	t.dirty = false
}
