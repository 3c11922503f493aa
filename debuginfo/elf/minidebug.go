package elf

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"
)

// MiniDebugElf returns the ELF image embedded in .gnu_debugdata, the
// xz-compressed "MiniDebugInfo" some distributions leave behind after
// stripping. The embedded image carries a .symtab but no loadable data.
func (f *InMemElfFile) MiniDebugElf() (*InMemElfFile, error) {
	miniDebugSection := f.Section(".gnu_debugdata")
	if miniDebugSection == nil {
		return nil, ErrNoDebugData
	}
	data, err := f.SectionData(miniDebugSection)
	if err != nil {
		return nil, fmt.Errorf("reading .gnu_debugdata %w", err)
	}
	reader, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf(".gnu_debugdata is not xz: %w", err)
	}
	var uncompressed bytes.Buffer
	if _, err = io.Copy(&uncompressed, reader); err != nil {
		return nil, fmt.Errorf("decompress .gnu_debugdata: %w", err)
	}
	return NewInMemElfFile(bytes.NewReader(uncompressed.Bytes()))
}
