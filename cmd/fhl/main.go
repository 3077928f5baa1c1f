package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mattkeenan/filehashlist/internal/options"
	fhl "github.com/mattkeenan/filehashlist/pkg"
	"github.com/mattkeenan/filehashlist/pkg/sqlitestore"
)

const (
	exitOK          = 0
	exitError       = 1
	exitInterrupted = 130
)

func defineOptions() *options.ParsedOptions {
	opts := options.NewParsedOptions()
	opts.DefineOption("hash", "H", options.OptionTypeBool, "false", "Compute content hashes")
	opts.DefineOption("follow-links", "f", options.OptionTypeBool, "false", "Follow symbolic links")
	opts.DefineOption("count", "n", options.OptionTypeInt, "0", "Stop after N files (0 = unlimited)")
	opts.DefineOption("load", "l", options.OptionTypeString, "", "Previous list (or .db) to reuse hashes from")
	opts.DefineOption("output", "o", options.OptionTypeString, "", "Write the list to FILE instead of stdout")
	opts.DefineOption("progress-every", "p", options.OptionTypeInt, "", "Status line every N files (0 = off)")
	opts.DefineOption("workers", "j", options.OptionTypeInt, "", "Number of hash workers")
	opts.DefineOption("algorithm", "a", options.OptionTypeString, "", "Hash algorithm (sha1|sha256|sha512)")
	opts.DefineOption("exclude", "x", options.OptionTypeString, "", "Comma separated glob patterns to skip")
	opts.DefineOption("ignore-file", "", options.OptionTypeString, "", "File of gitignore style rules to skip")
	opts.DefineOption("sqlite", "", options.OptionTypeString, "", "Also store records in a SQLite database")
	opts.DefineOption("config", "c", options.OptionTypeString, "", "Configuration file")
	opts.DefineOption("quiet", "q", options.OptionTypeBool, "false", "No status line or summary")
	opts.DefineOption("verbose", "v", options.OptionTypeInt, "0", "Verbose output (repeat for more)")
	opts.DefineOption("debug", "", options.OptionTypeString, "", "Comma separated debug flags (scan,pipeline,hash)")
	opts.DefineOption("override", "", options.OptionTypeString, "", "Config overrides key:value[,key:value...]")
	opts.DefineOption("version", "", options.OptionTypeBool, "false", "Show version information")
	opts.DefineOption("help", "h", options.OptionTypeBool, "false", "Show help message")
	return opts
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(argv []string) int {
	opts := defineOptions()
	if err := opts.Parse(argv); err != nil {
		fmt.Fprintf(os.Stderr, "fhl: %v\n", err)
		fmt.Fprintf(os.Stderr, "Try 'fhl --help' for more information.\n")
		return exitError
	}

	if opts.GetBool("version") {
		fmt.Printf("fhl %s\n", getVersionString())
		return exitOK
	}
	if opts.GetBool("help") {
		opts.ShowUsage(os.Stdout, "fhl [OPTIONS] <path>")
		return exitOK
	}

	args := opts.GetArgs()
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "fhl: expected exactly one path, got %d\n", len(args))
		fmt.Fprintf(os.Stderr, "Try 'fhl --help' for more information.\n")
		return exitError
	}

	runOpts, closeStore, err := buildRunOptions(opts, args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "fhl: %v\n", err)
		return exitError
	}
	defer closeStore()

	shutdown := setupSignalHandler()
	stats, err := fhl.Run(runOpts, shutdown)
	if stats != nil && !opts.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, "%s\n", stats)
	}

	switch {
	case errors.Is(err, fhl.ErrInterrupted):
		fmt.Fprintf(os.Stderr, "fhl: interrupted\n")
		return exitInterrupted
	case err != nil:
		fmt.Fprintf(os.Stderr, "fhl: %v\n", err)
		return exitError
	}
	return exitOK
}

// buildRunOptions merges the configuration file, overrides and command line
// options, command line last
func buildRunOptions(opts *options.ParsedOptions, root string) (fhl.RunOptions, func(), error) {
	noop := func() {}

	configPath := opts.GetString("config")
	if configPath == "" {
		configPath = fhl.DefaultConfigPath()
	} else if _, err := os.Stat(configPath); err != nil {
		return fhl.RunOptions{}, noop, fmt.Errorf("config file: %w", err)
	}
	cfg, err := fhl.LoadConfig(configPath)
	if err != nil {
		return fhl.RunOptions{}, noop, err
	}
	if overrides := opts.GetString("override"); overrides != "" {
		if err := cfg.ApplyOverrides(fhl.SplitPatternList(overrides)); err != nil {
			return fhl.RunOptions{}, noop, err
		}
	}

	// command line values go through the same validation as the file
	cli := []string{}
	if opts.IsSet("algorithm") {
		cli = append(cli, "default:"+opts.GetString("algorithm"))
	}
	if opts.IsSet("workers") {
		cli = append(cli, fmt.Sprintf("hash_workers:%d", opts.GetInt("workers")))
	}
	if opts.IsSet("progress-every") {
		cli = append(cli, fmt.Sprintf("every:%d", opts.GetInt("progress-every")))
	}
	if opts.GetBool("follow-links") {
		cli = append(cli, "follow_links:true")
	}
	if opts.IsSet("ignore-file") {
		cli = append(cli, "ignore_file:"+opts.GetString("ignore-file"))
	}
	if err := cfg.ApplyOverrides(cli); err != nil {
		return fhl.RunOptions{}, noop, err
	}
	if err := cfg.Validate(); err != nil {
		return fhl.RunOptions{}, noop, err
	}

	fhl.ApplyVerboseConfig(cfg, opts.GetInt("verbose"), opts.GetString("debug"))

	runOpts, err := fhl.RunOptionsFromConfig(cfg)
	if err != nil {
		return fhl.RunOptions{}, noop, err
	}

	excludes := fhl.SplitPatternList(opts.GetString("exclude"))
	if err := fhl.ValidateExcludePatterns(excludes); err != nil {
		return fhl.RunOptions{}, noop, err
	}
	runOpts.Scan.Excludes = append(runOpts.Scan.Excludes, excludes...)

	count := opts.GetInt("count")
	if count < 0 {
		return fhl.RunOptions{}, noop, fmt.Errorf("count must not be negative, got: %d", count)
	}

	runOpts.Root = root
	runOpts.Scan.MaxCount = count
	runOpts.Pipeline.HashContents = opts.GetBool("hash")
	runOpts.Output = opts.GetString("output")
	runOpts.Stdout = os.Stdout
	if !opts.GetBool("quiet") {
		runOpts.Status = os.Stderr
	}

	if load := opts.GetString("load"); load != "" {
		if sqlitestore.IsDatabasePath(load) {
			cache, err := sqlitestore.LoadCache(context.Background(), load)
			if err != nil {
				return fhl.RunOptions{}, noop, err
			}
			runOpts.Cache = cache
		} else {
			runOpts.LoadFrom = load
		}
	}

	if dbPath := opts.GetString("sqlite"); dbPath != "" {
		store, err := sqlitestore.Open(dbPath)
		if err != nil {
			return fhl.RunOptions{}, noop, err
		}
		runOpts.ExtraSinks = append(runOpts.ExtraSinks, store)
		// Run closes its sinks, a second Close is harmless
		return runOpts, func() { store.Close() }, nil
	}

	return runOpts, noop, nil
}
