package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/mattkeenan/filehashlist/internal/options"
	fhl "github.com/mattkeenan/filehashlist/pkg"
	"github.com/mattkeenan/filehashlist/pkg/sqlitestore"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(argv []string, stdout io.Writer) int {
	opts := options.NewParsedOptions()
	opts.DefineOption("help", "h", options.OptionTypeBool, "false", "Show help message")
	opts.DefineOption("verbose", "v", options.OptionTypeInt, "0", "Enable verbose output (can be repeated for more verbosity)")
	opts.DefineOption("output", "o", options.OptionTypeString, "", "Output list file")
	opts.DefineOption("db", "", options.OptionTypeString, "", "SQLite database for export and import")
	opts.DefineOption("format", "", options.OptionTypeString, "human", "Output format for show (human|json|yaml)")

	if err := opts.Parse(argv); err != nil {
		fmt.Fprintf(os.Stderr, "fhlfix: %v\n", err)
		fmt.Fprintf(os.Stderr, "Try 'fhlfix --help' for more information.\n")
		return 1
	}

	format := opts.GetString("format")
	switch format {
	case "human", "json", "yaml":
	default:
		fmt.Fprintf(os.Stderr, "fhlfix: invalid format '%s', must be 'human', 'json' or 'yaml'\n", format)
		return 1
	}

	args := opts.GetArgs()
	if opts.GetBool("help") || len(args) == 0 {
		showHelp(stdout)
		return 0
	}
	fhl.SetVerboseLevel(opts.GetInt("verbose"))

	command, lists := args[0], args[1:]
	var err error
	switch command {
	case "upgrade", "merge":
		err = mergeCommand(opts.GetString("output"), lists, stdout)
	case "show":
		err = showCommand(lists, format, stdout)
	case "stats":
		err = statsCommand(lists, stdout)
	case "export":
		err = exportCommand(opts.GetString("db"), lists, stdout)
	case "import":
		err = importCommand(opts.GetString("db"), opts.GetString("output"), stdout)
	default:
		fmt.Fprintf(os.Stderr, "fhlfix: unknown command '%s'\n", command)
		fmt.Fprintf(os.Stderr, "Try 'fhlfix --help' for more information.\n")
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "fhlfix: %v\n", err)
		return 1
	}
	return 0
}

func showHelp(w io.Writer) {
	fmt.Fprintf(w, "fhlfix - maintenance tool for fhl list files\n\n")
	fmt.Fprintf(w, "Usage: fhlfix [OPTIONS] <command> [args...]\n\n")

	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  upgrade -o OUT LIST            Rewrite a list sorted in the current format\n")
	fmt.Fprintf(w, "  merge -o OUT LIST...           Merge lists, later lists win\n")
	fmt.Fprintf(w, "  show [--format=FMT] LIST [PATH...]\n                                 Print the records of a list, or only PATHs\n")
	fmt.Fprintf(w, "  stats LIST...                  Summarize lists\n")
	fmt.Fprintf(w, "  export --db=FILE LIST...       Store lists in a SQLite database\n")
	fmt.Fprintf(w, "  import --db=FILE -o OUT        Write a list from a SQLite database\n\n")

	fmt.Fprintf(w, "Options:\n")
	fmt.Fprintf(w, "  -h, --help          Show this help message\n")
	fmt.Fprintf(w, "  -v, --verbose       Enable verbose output (repeat for more)\n")
	fmt.Fprintf(w, "  -o, --output        Output list file\n")
	fmt.Fprintf(w, "      --db            SQLite database file\n")
	fmt.Fprintf(w, "      --format        Output format for show (human|json|yaml, default: human)\n")
}

func mergeCommand(output string, lists []string, w io.Writer) error {
	if output == "" {
		return fmt.Errorf("merge requires --output")
	}
	if len(lists) == 0 {
		return fmt.Errorf("merge requires at least one list")
	}

	sources := make([]fhl.ListSource, 0, len(lists))
	for _, l := range lists {
		sources = append(sources, fhl.ListSource{Path: l})
	}
	merged, stats, err := fhl.MergeLists(sources)
	if err != nil {
		return err
	}
	if err := fhl.WriteList(output, merged); err != nil {
		return err
	}
	fmt.Fprintf(w, "Wrote %s records to %s (%s read from %d lists, %s legacy, %s skipped)\n",
		humanize.Comma(int64(stats.Distinct)), output, humanize.Comma(int64(stats.Records)),
		stats.Sources, humanize.Comma(int64(stats.Legacy)), humanize.Comma(int64(stats.Skipped)))
	if len(lists) > 1 {
		counts := merged.CountByContext()
		for _, l := range lists {
			fmt.Fprintf(w, "  %s: %s records kept\n", l, humanize.Comma(int64(counts[l])))
		}
	}
	return nil
}

// jsonRecord is the show --format=json|yaml form of a record. The path is
// the escaped form so the output stays valid UTF-8.
type jsonRecord struct {
	Path    string `json:"path" yaml:"path"`
	Size    uint64 `json:"size" yaml:"size"`
	ModTime *int64 `json:"mtime" yaml:"mtime"`
	Hash    string `json:"hash,omitempty" yaml:"hash,omitempty"`
}

func showCommand(args []string, format string, w io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("show requires a list")
	}
	rl, _, err := fhl.LoadRecordList(args[0], fhl.CacheContext)
	if err != nil {
		return err
	}
	if len(args) > 1 {
		if rl, err = selectPaths(rl, args[1:]); err != nil {
			return err
		}
	}

	if format != "human" {
		out := make([]jsonRecord, 0, rl.Length())
		rl.ForEach(func(rec *fhl.FileRecord, _ string) bool {
			jr := jsonRecord{Path: fhl.EncodePath(rec.Path), Size: rec.Size, Hash: rec.Hash}
			if rec.HasModTime() {
				secs := rec.ModTime.Unix()
				jr.ModTime = &secs
			}
			out = append(out, jr)
			return true
		})
		if format == "yaml" {
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(out); err != nil {
				return err
			}
			return enc.Close()
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	rl.ForEach(func(rec *fhl.FileRecord, _ string) bool {
		mtime := "-"
		if rec.HasModTime() {
			mtime = rec.ModTime.Format(time.RFC3339)
		}
		hash := rec.Hash
		if hash == "" {
			hash = "-"
		}
		fmt.Fprintf(w, "%10s  %-20s  %s  %s\n", humanize.IBytes(rec.Size), mtime, hash, fhl.EncodePath(rec.Path))
		return true
	})
	return nil
}

// selectPaths returns a list holding only the named records. Paths are
// given in the escaped form that show prints.
func selectPaths(rl *fhl.RecordList, paths []string) (*fhl.RecordList, error) {
	selected := fhl.NewRecordList(0)
	for _, p := range paths {
		path, err := fhl.DecodePath(p)
		if err != nil {
			return nil, err
		}
		rec, label := rl.Find(path)
		if rec == nil {
			return nil, fmt.Errorf("%s: not in list", p)
		}
		selected.Put(*rec, label)
	}
	return selected, nil
}

func statsCommand(lists []string, w io.Writer) error {
	if len(lists) == 0 {
		return fmt.Errorf("stats requires at least one list")
	}
	for _, l := range lists {
		rl, ls, err := fhl.LoadRecordList(l, fhl.CacheContext)
		if err != nil {
			return err
		}
		var total uint64
		hashed := 0
		rl.ForEach(func(rec *fhl.FileRecord, _ string) bool {
			total += rec.Size
			if rec.HasHash() {
				hashed++
			}
			return true
		})
		fmt.Fprintf(w, "%s:\n", l)
		fmt.Fprintf(w, "  Records:   %s (%s current, %s legacy, %s skipped)\n",
			humanize.Comma(int64(rl.Length())), humanize.Comma(int64(ls.Current)),
			humanize.Comma(int64(ls.Legacy)), humanize.Comma(int64(ls.Skipped)))
		fmt.Fprintf(w, "  Hashed:    %s\n", humanize.Comma(int64(hashed)))
		fmt.Fprintf(w, "  Total:     %s (%s bytes)\n", humanize.IBytes(total), humanize.Comma(int64(total)))
	}
	return nil
}

func exportCommand(dbPath string, lists []string, w io.Writer) error {
	if dbPath == "" {
		return fmt.Errorf("export requires --db")
	}
	if len(lists) == 0 {
		return fmt.Errorf("export requires at least one list")
	}

	sources := make([]fhl.ListSource, 0, len(lists))
	for _, l := range lists {
		sources = append(sources, fhl.ListSource{Path: l})
	}
	merged, _, err := fhl.MergeLists(sources)
	if err != nil {
		return err
	}

	store, err := sqlitestore.Open(dbPath)
	if err != nil {
		return err
	}
	var writeErr error
	merged.ForEach(func(rec *fhl.FileRecord, _ string) bool {
		writeErr = store.WriteRecord(*rec)
		return writeErr == nil
	})
	stored := 0
	if writeErr == nil {
		stored, writeErr = store.Count(context.Background())
	}
	if err := store.Close(); err != nil && writeErr == nil {
		writeErr = err
	}
	if writeErr != nil {
		return writeErr
	}
	fmt.Fprintf(w, "Exported %s records to %s (%s in database)\n",
		humanize.Comma(int64(merged.Length())), dbPath, humanize.Comma(int64(stored)))
	return nil
}

func importCommand(dbPath, output string, w io.Writer) error {
	if dbPath == "" || output == "" {
		return fmt.Errorf("import requires --db and --output")
	}
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("failed to open database %s: %w", dbPath, err)
	}
	store, err := sqlitestore.Open(dbPath)
	if err != nil {
		return err
	}
	records, err := store.LoadAll(context.Background())
	store.Close()
	if err != nil {
		return err
	}

	rl := fhl.NewRecordList(16)
	for _, rec := range records {
		rl.Put(rec, fhl.ImportContext)
	}
	if err := fhl.WriteList(output, rl); err != nil {
		return err
	}
	fmt.Fprintf(w, "Imported %s records into %s\n", humanize.Comma(int64(rl.Length())), output)
	return nil
}
