package debuginfo

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"

	"github.com/Ninja3047/load-symbols/debuginfo/elf"
)

// BinaryIdentity pins down the analyzed binary: its canonical path,
// size and a content-derived identifier used to pair it with a debug
// companion. Immutable once computed.
type BinaryIdentity struct {
	Path      string // canonical absolute path
	Size      int64
	BuildID   elf.BuildID   // zero value when the binary carries no build ID note
	Digest    uint64        // xxhash of the contents, filled when BuildID is empty
	DebugLink elf.DebugLink // from .gnu_debuglink, when present
}

// CacheKey returns a stable key for caching parse results across runs
// of the same binary, or "" when the binary has no usable identifier.
func (id *BinaryIdentity) CacheKey() string {
	if !id.BuildID.Empty() {
		return id.BuildID.Typ + "/" + id.BuildID.ID
	}
	if id.Digest != 0 {
		return fmt.Sprintf("xxh/%016x/%d", id.Digest, id.Size)
	}
	return ""
}

// NewBinaryIdentity inspects the binary at path. The build ID note is
// preferred as identifier; binaries without one get a content digest
// so equal files still share cached debug info.
func NewBinaryIdentity(path string) (BinaryIdentity, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return BinaryIdentity{}, err
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return BinaryIdentity{}, err
	}
	st, err := os.Stat(canonical)
	if err != nil {
		return BinaryIdentity{}, err
	}
	if !st.Mode().IsRegular() {
		return BinaryIdentity{}, fmt.Errorf("%s is not a regular file", canonical)
	}
	id := BinaryIdentity{
		Path: canonical,
		Size: st.Size(),
	}
	me, err := elf.NewMMapedElfFile(canonical)
	if err == nil {
		buildID, buildIDErr := me.BuildID()
		if buildIDErr == nil {
			id.BuildID = buildID
		}
		link, linkErr := me.DebugLink()
		if linkErr == nil {
			id.DebugLink = link
		}
		me.Close()
	}
	if id.BuildID.Empty() {
		id.Digest, err = contentDigest(canonical)
		if err != nil {
			return BinaryIdentity{}, err
		}
	}
	return id, nil
}

func contentDigest(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err = io.Copy(h, f); err != nil {
		return 0, err
	}
	return h.Sum64(), nil
}
