package debuginfo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/Ninja3047/load-symbols/debuginfo/elf"
)

var (
	ErrNotFound    = errors.New("debug file not found")
	ErrNotReadable = errors.New("debug file not readable")
)

const DefaultDebugRoot = "/usr/lib/debug"

type DebugFileSource uint8

const (
	SourceBuildID DebugFileSource = iota
	SourceMirror
	SourceDebugLink
)

func (s DebugFileSource) String() string {
	switch s {
	case SourceBuildID:
		return "build-id"
	case SourceMirror:
		return "mirror"
	case SourceDebugLink:
		return "debuglink"
	default:
		return "unknown"
	}
}

// DebugFileRef is a located split debug companion. It is valid for the
// duration of one pipeline run and not persisted.
type DebugFileRef struct {
	Path   string
	Source DebugFileSource
}

type Locator struct {
	logger log.Logger
	roots  []string
}

func NewLocator(logger log.Logger, roots ...string) *Locator {
	rs := make([]string, 0, len(roots))
	for _, r := range roots {
		if r != "" {
			rs = append(rs, r)
		}
	}
	if len(rs) == 0 {
		rs = []string{DefaultDebugRoot}
	}
	return &Locator{logger: logger, roots: rs}
}

// Locate finds the split debug companion for identity, following the
// gdb search order: the build-id layout under each root first, then
// the path mirrored under each root, then .gnu_debuglink candidates.
// https://sourceware.org/gdb/onlinedocs/gdb/Separate-Debug-Files.html
func (l *Locator) Locate(identity *BinaryIdentity) (DebugFileRef, error) {
	sawPermission := false

	try := func(path string, source DebugFileSource) (DebugFileRef, bool) {
		st, err := os.Stat(path)
		if err != nil {
			if os.IsPermission(err) {
				sawPermission = true
			}
			return DebugFileRef{}, false
		}
		if !st.Mode().IsRegular() {
			return DebugFileRef{}, false
		}
		f, err := os.Open(path)
		if err != nil {
			if os.IsPermission(err) {
				sawPermission = true
			}
			return DebugFileRef{}, false
		}
		_ = f.Close()
		return DebugFileRef{Path: path, Source: source}, true
	}

	if identity.BuildID.GNU() && len(identity.BuildID.ID) >= 3 {
		id := identity.BuildID.ID
		for _, root := range l.roots {
			candidate := filepath.Join(root, ".build-id", id[:2], id[2:]+".debug")
			if ref, ok := try(candidate, SourceBuildID); ok {
				return ref, nil
			}
		}
	}

	for _, root := range l.roots {
		// the original path with ".debug" appended, then the bare
		// mirrored path
		for _, candidate := range []string{
			filepath.Join(root, identity.Path+".debug"),
			filepath.Join(root, identity.Path),
		} {
			ref, ok := try(candidate, SourceMirror)
			if !ok {
				continue
			}
			if l.buildIDMismatch(identity, ref.Path) {
				level.Debug(l.logger).Log("msg", "mirrored debug file has a different build ID, skipping",
					"candidate", ref.Path, "binary", identity.Path)
				continue
			}
			return ref, nil
		}
	}

	if link := identity.DebugLink; link.Name != "" {
		dir := filepath.Dir(identity.Path)
		candidates := []string{
			filepath.Join(dir, link.Name),
			filepath.Join(dir, ".debug", link.Name),
		}
		for _, root := range l.roots {
			candidates = append(candidates, filepath.Join(root, dir, link.Name))
		}
		for _, candidate := range candidates {
			if candidate == identity.Path {
				continue
			}
			ref, ok := try(candidate, SourceDebugLink)
			if !ok {
				continue
			}
			if !elf.ChecksumMatches(ref.Path, link.CRC) {
				level.Debug(l.logger).Log("msg", "debuglink checksum mismatch, skipping",
					"candidate", ref.Path, "binary", identity.Path)
				continue
			}
			return ref, nil
		}
	}

	if sawPermission {
		return DebugFileRef{}, fmt.Errorf("%w: %s", ErrNotReadable, identity.Path)
	}
	return DebugFileRef{}, fmt.Errorf("%w: %s", ErrNotFound, identity.Path)
}

// buildIDMismatch reports whether the candidate carries a build ID that
// contradicts the target's. A candidate without a readable build ID is
// accepted here; the parser decides whether it is usable at all.
func (l *Locator) buildIDMismatch(identity *BinaryIdentity, candidate string) bool {
	if identity.BuildID.Empty() {
		return false
	}
	me, err := elf.NewMMapedElfFile(candidate)
	if err != nil {
		return false
	}
	defer me.Close()
	buildID, err := me.BuildID()
	if err != nil || buildID.Empty() {
		return false
	}
	return buildID != identity.BuildID
}
