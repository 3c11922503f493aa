package elf

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

// DebugLink is the contents of a .gnu_debuglink section: the base name
// of the companion debug file and a CRC32 of its contents.
type DebugLink struct {
	Name string
	CRC  uint32
}

func (f *InMemElfFile) DebugLink() (DebugLink, error) {
	debugLinkSection := f.Section(".gnu_debuglink")
	if debugLinkSection == nil {
		return DebugLink{}, ErrNoDebugLink
	}
	data, err := f.SectionData(debugLinkSection)
	if err != nil {
		return DebugLink{}, fmt.Errorf("reading .gnu_debuglink %w", err)
	}
	// name, NUL, padding to 4, CRC32
	if len(data) < 6 {
		return DebugLink{}, fmt.Errorf(".gnu_debuglink is too small")
	}
	name := cString(data[:len(data)-4])
	if name == "" {
		return DebugLink{}, fmt.Errorf(".gnu_debuglink has empty name")
	}
	crc := f.ByteOrder.Uint32(data[len(data)-4:])
	return DebugLink{Name: name, CRC: crc}, nil
}

// ChecksumMatches reports whether the file at path hashes to the
// debuglink CRC. A zero CRC disables the check.
func ChecksumMatches(path string, want uint32) bool {
	if want == 0 {
		return true
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	h := crc32.NewIEEE()
	if _, err = io.Copy(h, f); err != nil {
		return false
	}
	return h.Sum32() == want
}
