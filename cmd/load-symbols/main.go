package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Ninja3047/load-symbols/debuginfo"
	elf2 "github.com/Ninja3047/load-symbols/debuginfo/elf"
)

var debugRoots = flag.String("debug-roots", debuginfo.DefaultDebugRoot,
	"comma separated list of debug directories to search")
var demangleOpt = flag.String("demangle", "simplified",
	"none|simplified|templates|full")
var verbose = flag.Bool("v", false, "debug logging")

func main() {
	flag.Parse()
	logger := log.NewLogfmtLogger(os.Stderr)
	if !*verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}
	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <binary>\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}
	if err := run(logger, flag.Arg(0)); err != nil {
		_ = level.Error(logger).Log("err", err)
		os.Exit(1)
	}
}

func run(logger log.Logger, path string) error {
	identity, err := debuginfo.NewBinaryIdentity(path)
	if err != nil {
		return errors.Wrap(err, "inspect binary")
	}
	me, err := elf2.NewMMapedElfFile(identity.Path)
	if err != nil {
		return errors.Wrap(err, "open binary")
	}
	sections, err := me.SectionDescriptors()
	me.Close()
	if err != nil {
		return errors.Wrap(err, "read target sections")
	}

	table := debuginfo.NewMemSymbolTable(nil)
	target := debuginfo.NewStaticTarget(identity, sections, table)

	resolver, err := debuginfo.NewResolver(logger, debuginfo.ResolverOptions{
		Enabled:    true,
		DebugRoots: strings.Split(*debugRoots, ","),
		SymbolOptions: &elf2.SymbolOptions{
			DemangleOptions: elf2.ConvertDemangleOptions(*demangleOpt),
		},
		CacheSize: 16,
	}, debuginfo.NewMetrics(prometheus.NewRegistry()))
	if err != nil {
		return err
	}

	report, err := resolver.ResolveAndApply(target)
	if err != nil {
		return errors.Wrap(err, "resolve debug symbols")
	}

	table.Each(func(s debuginfo.Symbol) {
		loc := ""
		if s.File != "" {
			loc = fmt.Sprintf(" %s:%d", s.File, s.Line)
		}
		fmt.Printf("%016x %-6s %s%s\n", s.Addr, s.Kind, s.Name, loc)
	})
	for _, u := range report.Unmapped {
		_ = level.Warn(logger).Log("msg", "unmapped symbol", "name", u.Name,
			"addr", fmt.Sprintf("0x%x", u.Addr), "reason", u.Reason)
	}
	_ = level.Info(logger).Log("msg", "done",
		"binary", identity.Path,
		"inserted", report.Inserted,
		"overwritten", report.Overwritten,
		"skipped", report.Skipped,
		"unmapped", len(report.Unmapped))
	return nil
}
