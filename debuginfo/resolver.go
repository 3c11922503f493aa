package debuginfo

import (
	"errors"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	lru "github.com/hashicorp/golang-lru/v2"

	elf2 "github.com/Ninja3047/load-symbols/debuginfo/elf"
)

// ErrDisabled is returned when the debug info parsing feature toggle
// is off.
var ErrDisabled = errors.New("debug info parsing disabled")

type ResolverOptions struct {
	// Enabled gates the whole pipeline; the host wires its feature
	// toggle here.
	Enabled bool
	// DebugRoots is the ordered list of debug directories to search.
	// Empty means DefaultDebugRoot.
	DebugRoots []string
	// SymbolOptions controls demangling of recovered names.
	SymbolOptions *elf2.SymbolOptions
	// CacheSize is the number of parsed debug files kept, keyed by
	// binary identity. Zero disables caching.
	CacheSize int
}

// Resolver runs the locate -> parse -> translate -> merge pipeline.
// One Resolver may serve concurrent runs for distinct binaries: all
// per-run state is local to ResolveAndApply.
type Resolver struct {
	logger  log.Logger
	options ResolverOptions
	locator *Locator
	metrics *Metrics // may be nil for tests
	cache   *lru.Cache[string, *ParseResult]
}

func NewResolver(logger log.Logger, options ResolverOptions, metrics *Metrics) (*Resolver, error) {
	res := &Resolver{
		logger:  logger,
		options: options,
		locator: NewLocator(logger, options.DebugRoots...),
		metrics: metrics,
	}
	if options.CacheSize > 0 {
		cache, err := lru.New[string, *ParseResult](options.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create parse cache: %w", err)
		}
		res.cache = cache
	}
	return res, nil
}

// ResolveAndApply locates the split debug companion of the target,
// parses it, translates the recovered symbols into the target's image
// coordinates and merges them into the target's symbol table. Locate
// and parse failures abort the run with no table mutation; translation
// issues are accumulated in the report instead. The host's table lock
// is held only for the duration of the final merge.
func (r *Resolver) ResolveAndApply(target Target) (*MergeReport, error) {
	if !r.options.Enabled {
		return nil, ErrDisabled
	}
	identity := target.Identity()

	ref, err := r.locator.Locate(&identity)
	if err != nil {
		r.countResolution("locate_error")
		if r.metrics != nil {
			r.metrics.LocateErrors.WithLabelValues(errorKind(err)).Inc()
		}
		return nil, err
	}
	level.Debug(r.logger).Log("msg", "located debug file",
		"binary", identity.Path, "debug", ref.Path, "source", ref.Source)

	parsed, err := r.parseCached(&identity, ref)
	if err != nil {
		r.countResolution("parse_error")
		if r.metrics != nil {
			r.metrics.ParseErrors.WithLabelValues(errorKind(err)).Inc()
		}
		level.Error(r.logger).Log("msg", "failed to parse debug file",
			"f", ref.Path, "err", err)
		return nil, err
	}

	translated, unmapped := Translate(parsed.Sections, parsed.Symbols, target.Sections())
	if parsed.Lines != nil {
		decorate(translated, parsed.Lines)
	}

	report, err := Merge(target.SymbolTable(), translated)
	if err != nil {
		r.countResolution("merge_error")
		return nil, err
	}
	report.Unmapped = unmapped

	r.countResolution("applied")
	if r.metrics != nil {
		r.metrics.MergedSymbols.WithLabelValues("inserted").Add(float64(report.Inserted))
		r.metrics.MergedSymbols.WithLabelValues("overwritten").Add(float64(report.Overwritten))
		r.metrics.MergedSymbols.WithLabelValues("skipped").Add(float64(report.Skipped))
		r.metrics.UnmappedSymbols.Add(float64(len(report.Unmapped)))
	}
	level.Debug(r.logger).Log("msg", "debug symbols applied",
		"binary", identity.Path, "debug", ref.Path, "report", report)
	return report, nil
}

func (r *Resolver) parseCached(identity *BinaryIdentity, ref DebugFileRef) (*ParseResult, error) {
	key := identity.CacheKey()
	if r.cache != nil && key != "" {
		if cached, ok := r.cache.Get(key); ok {
			if r.metrics != nil {
				r.metrics.CacheHits.Inc()
			}
			return cached, nil
		}
	}
	parsed, err := Parse(r.logger, ref, r.options.SymbolOptions)
	if err != nil {
		return nil, err
	}
	if r.cache != nil && key != "" {
		r.cache.Add(key, parsed)
	}
	return parsed, nil
}

func (r *Resolver) countResolution(outcome string) {
	if r.metrics != nil {
		r.metrics.Resolutions.WithLabelValues(outcome).Inc()
	}
}

func decorate(symbols []TranslatedSymbol, lines *elf2.LineTable) {
	for i := range symbols {
		if symbols[i].Kind != elf2.KindFunc {
			continue
		}
		if li, ok := lines.Find(symbols[i].DebugAddr); ok {
			symbols[i].File = li.File
			symbols[i].Line = li.Line
		}
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrNotReadable):
		return "NotReadable"
	case errors.Is(err, elf2.ErrMalformedHeader):
		return "MalformedHeader"
	case errors.Is(err, elf2.ErrCorruptSectionTable):
		return "CorruptSectionTable"
	case errors.Is(err, elf2.ErrCorruptSymbolTable):
		return "CorruptSymbolTable"
	case errors.Is(err, elf2.ErrUnsupportedArchitecture):
		return "UnsupportedArchitecture"
	default:
		return "Other"
	}
}
