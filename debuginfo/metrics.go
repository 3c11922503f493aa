package debuginfo

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	Resolutions     *prometheus.CounterVec
	LocateErrors    *prometheus.CounterVec
	ParseErrors     *prometheus.CounterVec
	MergedSymbols   *prometheus.CounterVec
	UnmappedSymbols prometheus.Counter
	CacheHits       prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "load_symbols_resolutions_total",
			Help: "Total number of debug info resolution runs by outcome",
		}, []string{"outcome"}),
		LocateErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "load_symbols_locate_errors_total",
			Help: "Total number of errors while locating a split debug file",
		}, []string{"error"}),
		ParseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "load_symbols_parse_errors_total",
			Help: "Total number of errors while parsing a split debug file",
		}, []string{"error"}),
		MergedSymbols: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "load_symbols_merged_symbols_total",
			Help: "Total number of symbols applied to symbol tables by outcome",
		}, []string{"outcome"}),
		UnmappedSymbols: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "load_symbols_unmapped_symbols_total",
			Help: "Total number of symbols dropped during address translation",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "load_symbols_parse_cache_hits_total",
			Help: "Total number of resolutions served from the parsed-table cache",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Resolutions,
			m.LocateErrors,
			m.ParseErrors,
			m.MergedSymbols,
			m.UnmappedSymbols,
			m.CacheHits,
		)
	}

	return m
}
