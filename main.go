package main

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/docker/go-units"
	"github.com/hashicorp/go-multierror"
	"github.com/photosphere/treewalk-go/lib"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess  = 0
	ExitUsage    = 1
	ExitFatal    = 2
	ExitNonFatal = 3
)

func main() {
	code := ExitSuccess
	rootCmd := newRootCmd(&code)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitUsage)
	}
	os.Exit(code)
}

// options are the command-line flags of tw.
type options struct {
	strategy     string
	maxFDs       int
	postOrder    bool
	followRoots  bool
	followAll    bool
	detectCycles bool
	xdev         bool
	skipMounts   bool
	sort         bool
	buffer       bool
	stat         bool
	minDepth     int
	maxDepth     int
	exclude      []string
	types        string
	format       string
	hash         string
	config       string
	quiet        bool
}

func newRootCmd(code *int) *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "tw [flags] [path...]",
		Short: "Walk directory trees with a bounded number of open descriptors",
		Long: "Walk one or more directory trees and print what is found. The traversal order is\n" +
			"breadth-first by default; depth-first, iterative deepening and exponential deepening\n" +
			"are available with --strategy.",
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			*code = runWalk(cmd, o, args)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&o.strategy, "strategy", "bfs", "Traversal strategy: bfs, dfs, ids, eds")
	flags.IntVar(&o.maxFDs, "max-fds", 0, "Maximum number of open file descriptors (default from RLIMIT_NOFILE)")
	flags.BoolVarP(&o.postOrder, "post-order", "d", false, "List directories after their contents")
	flags.BoolVarP(&o.followRoots, "follow-roots", "H", false, "Follow symbolic links given as paths")
	flags.BoolVarP(&o.followAll, "follow", "L", false, "Follow all symbolic links (implies --detect-cycles)")
	flags.BoolVar(&o.detectCycles, "detect-cycles", false, "Report directory cycles as errors")
	flags.BoolVar(&o.xdev, "xdev", false, "Do not descend into other file systems")
	flags.BoolVar(&o.skipMounts, "skip-mounts", false, "Do not list or descend into mount points")
	flags.BoolVarP(&o.sort, "sort", "s", false, "Sort each directory's entries")
	flags.BoolVar(&o.buffer, "buffer", false, "Read each directory fully before listing its entries")
	flags.BoolVar(&o.stat, "stat", false, "stat() every file instead of trusting directory entry types")
	flags.IntVar(&o.minDepth, "mindepth", 0, "Do not list files shallower than this depth")
	flags.IntVar(&o.maxDepth, "maxdepth", -1, "Do not descend deeper than this depth (-1 for no limit)")
	flags.StringArrayVar(&o.exclude, "exclude", nil, "Skip entries whose name matches this glob (repeatable)")
	flags.StringVar(&o.types, "type", "", "Only list these types, e.g. f,d,l")
	flags.StringVar(&o.format, "format", "text", "Output format: "+strings.Join(lib.OutputFormats, ", "))
	flags.StringVar(&o.hash, "hash", "", "Hash regular files with: "+strings.Join(lib.HashAlgorithms, ", "))
	flags.StringVar(&o.config, "config", "", "Config file (default "+lib.DefaultConfigPath()+")")
	flags.BoolVarP(&o.quiet, "quiet", "q", false, "Suppress progress, error messages and the summary (for scripting)")
	return cmd
}

// applyConfig fills in flags the user did not give from the config file.
func applyConfig(cmd *cobra.Command, o *options, cfg *lib.Config) {
	changed := cmd.Flags().Changed
	if cfg.Strategy != "" && !changed("strategy") {
		o.strategy = cfg.Strategy
	}
	if cfg.MaxFDs != 0 && !changed("max-fds") {
		o.maxFDs = cfg.MaxFDs
	}
	if cfg.Format != "" && !changed("format") {
		o.format = cfg.Format
	}
	if cfg.Hash != "" && !changed("hash") {
		o.hash = cfg.Hash
	}
	if cfg.Sort && !changed("sort") {
		o.sort = true
	}
	if cfg.PostOrder && !changed("post-order") {
		o.postOrder = true
	}
	if cfg.DetectCycles && !changed("detect-cycles") {
		o.detectCycles = true
	}
	if !changed("follow-roots") && !changed("follow") {
		switch cfg.Follow {
		case "roots":
			o.followRoots = true
		case "all":
			o.followAll = true
		}
	}
	if len(cfg.Exclude) > 0 && !changed("exclude") {
		o.exclude = cfg.Exclude
	}
}

// buildWalk turns options into the walk and collection settings.
func buildWalk(o *options, paths []string) (lib.WalkArgs, lib.CollectOptions, error) {
	var walkArgs lib.WalkArgs
	var collect lib.CollectOptions

	strategy, ok := lib.ParseStrategy(o.strategy)
	if !ok {
		return walkArgs, collect, errors.Errorf("unknown strategy %q", o.strategy)
	}
	if _, ok := lib.Format(o.format); !ok {
		return walkArgs, collect, errors.Errorf("unknown format %q", o.format)
	}
	if o.hash != "" {
		if !contains(lib.HashAlgorithms, o.hash) {
			return walkArgs, collect, errors.Errorf("unknown hash algorithm %q", o.hash)
		}
	}
	maxFDs := o.maxFDs
	if maxFDs == 0 {
		maxFDs = lib.DefaultMaxOpenFDs()
	}
	// Hashing opens each file from the callback while the walk holds its
	// whole budget, so one descriptor is kept back for it.
	minFDs := 2
	if o.hash != "" {
		minFDs = 3
	}
	if maxFDs < minFDs {
		return walkArgs, collect, errors.Errorf("--max-fds must be at least %d, got %d", minFDs, maxFDs)
	}
	if o.hash != "" {
		maxFDs--
	}

	filter, err := lib.NewFilter(lib.FilterOptions{
		MinDepth: o.minDepth,
		MaxDepth: o.maxDepth,
		Exclude:  o.exclude,
		Types:    o.types,
	})
	if err != nil {
		return walkArgs, collect, err
	}

	flags := lib.FlagRecover
	if o.postOrder {
		flags |= lib.FlagPostOrder
	}
	if o.followRoots {
		flags |= lib.FlagFollowRoots
	}
	if o.followAll {
		flags |= lib.FlagFollowAll | lib.FlagDetectCycles
	}
	if o.detectCycles {
		flags |= lib.FlagDetectCycles
	}
	if o.xdev {
		flags |= lib.FlagPruneMounts
	}
	if o.skipMounts {
		flags |= lib.FlagSkipMounts
	}
	if o.sort {
		flags |= lib.FlagSort
	}
	if o.buffer {
		flags |= lib.FlagBuffer
	}
	if o.stat {
		flags |= lib.FlagStat
	}

	if len(paths) == 0 {
		paths = []string{"."}
	}
	walkArgs = lib.WalkArgs{
		Paths:      paths,
		MaxOpenFDs: maxFDs,
		Flags:      flags,
		Strategy:   strategy,
	}
	collect = lib.CollectOptions{
		Filter:    filter,
		Stat:      o.format != "text",
		Hash:      o.hash,
		PostOrder: o.postOrder,
	}
	return walkArgs, collect, nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func runWalk(cmd *cobra.Command, o *options, args []string) int {
	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()

	cfg, err := lib.ReadConfigFile(o.config)
	if err != nil {
		fmt.Fprintf(stderr, "tw: %v\n", err)
		return ExitUsage
	}
	applyConfig(cmd, o, cfg)
	walkArgs, collect, err := buildWalk(o, args)
	if err != nil {
		fmt.Fprintf(stderr, "tw: %v\n", err)
		return ExitUsage
	}
	format, _ := lib.Format(o.format)

	logger, err := lib.NewLogger()
	if err != nil {
		fmt.Fprintf(stderr, "tw: logger: %v\n", err)
		return ExitFatal
	}
	defer logger.Close()
	if !o.quiet {
		defer logger.PrintLogPaths(stderr)
	}

	if runtime.GOOS == "linux" {
		if mtab, err := lib.LoadMountTable(); err != nil {
			logger.LogError(err, nil)
		} else {
			walkArgs.Mtab = mtab
			logger.Log("mount table loaded", logrus.Fields{"mounts": mtab.Len()})
		}
	}

	logger.Log("walk started", logrus.Fields{
		"paths":    strings.Join(walkArgs.Paths, " "),
		"strategy": walkArgs.Strategy.String(),
		"max_fds":  walkArgs.MaxOpenFDs,
		"log_dir":  logger.TempDir(),
	})
	startTime := time.Now()

	var fileErrors *multierror.Error
	errorCount := 0
	report := func(record *lib.Record) {
		if record.Error == nil {
			return
		}
		err := errors.Wrap(record.Error, record.Path)
		fileErrors = multierror.Append(fileErrors, err)
		errorCount++
		logger.LogError(record.Error, logrus.Fields{"path": record.Path, "depth": record.Depth})
		if !o.quiet {
			fmt.Fprintf(stderr, "tw: %v\n", err)
		}
	}

	progress := &lib.ProgressCounts{}
	collect.Progress = progress
	var spinner *lib.Spinner
	if lib.Streams(o.format) {
		collect.Emit = func(record lib.Record) error {
			report(&record)
			return format([]lib.Record{record}, stdout)
		}
	} else if !o.quiet && lib.IsTTY(os.Stderr) {
		spinner = lib.NewSpinner(stderr, "walking")
	}

	records, walkErr := collectWithSpinner(walkArgs, collect, spinner)
	for i := range records {
		report(&records[i])
	}
	if walkErr != nil {
		logger.LogFatal(walkErr)
		fmt.Fprintf(stderr, "tw: %v\n", walkErr)
		return ExitFatal
	}
	if !lib.Streams(o.format) {
		if err := format(records, stdout); err != nil {
			logger.LogFatal(err)
			fmt.Fprintf(stderr, "tw: %v\n", err)
			return ExitFatal
		}
	}

	elapsed := time.Since(startTime)
	logger.Log("walk finished", logrus.Fields{
		"visited": progress.Visited(),
		"errors":  errorCount,
		"logged":  logger.NonFatalCount(),
		"elapsed": elapsed.String(),
	})
	if !o.quiet {
		printSummary(stderr, progress, elapsed)
	}
	if err := fileErrors.ErrorOrNil(); err != nil {
		logger.Log("walk finished with errors", logrus.Fields{"summary": err.Error()})
		if !o.quiet {
			fmt.Fprintf(stderr, "%d errors occurred; check the error log for details.\n", errorCount)
		}
		return ExitNonFatal
	}
	return ExitSuccess
}

// collectWithSpinner runs the walk, advancing spinner (if any) per visit.
func collectWithSpinner(walkArgs lib.WalkArgs, collect lib.CollectOptions, spinner *lib.Spinner) ([]lib.Record, error) {
	if spinner == nil {
		return lib.CollectRecords(walkArgs, collect)
	}
	defer spinner.Finish()
	var records []lib.Record
	collect.Emit = func(record lib.Record) error {
		spinner.Increment()
		records = append(records, record)
		return nil
	}
	_, err := lib.CollectRecords(walkArgs, collect)
	return records, err
}

func printSummary(w io.Writer, progress *lib.ProgressCounts, elapsed time.Duration) {
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Directories:  %d\n", atomic.LoadInt64(&progress.Dirs))
	fmt.Fprintf(w, "  Files:        %d\n", atomic.LoadInt64(&progress.Files))
	fmt.Fprintf(w, "  Errors:       %d\n", atomic.LoadInt64(&progress.Errors))
	fmt.Fprintf(w, "  Total size:   %s\n", units.HumanSize(float64(atomic.LoadInt64(&progress.Bytes))))
	fmt.Fprintf(w, "  Total time:   %s\n", elapsed.Round(time.Millisecond))
}
