package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"fortio.org/safecast"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mdtablefix/internal/config"
	"mdtablefix/internal/driver"
	"mdtablefix/internal/mdtable"
	"mdtablefix/internal/observ"
)

func addFixFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("check", false, "report files that need normalization without rewriting them")
	cmd.Flags().String("format", "text", "output format (text|json)")
	cmd.Flags().Int("jobs", 1, "number of files processed in parallel (0=auto)")
	cmd.Flags().Bool("cache", false, "skip files recorded as already normalized")
	cmd.Flags().String("config", "", "path to "+config.FileName+" (default: search upwards)")
	cmd.Flags().Bool("no-config", false, "ignore "+config.FileName)
}

type fixFlags struct {
	check    bool
	format   string
	quiet    bool
	timings  bool
	ui       uiMode
	jobs     int
	cache    bool
	config   string
	noConfig bool
}

func readFixFlags(cmd *cobra.Command) (fixFlags, error) {
	var (
		f   fixFlags
		err error
	)
	if f.check, err = cmd.Flags().GetBool("check"); err != nil {
		return f, err
	}
	if f.format, err = cmd.Flags().GetString("format"); err != nil {
		return f, err
	}
	switch f.format {
	case "text", "json":
	default:
		return f, fmt.Errorf("unsupported format %q (must be text or json)", f.format)
	}
	if f.jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
		return f, err
	}
	if f.jobs < 0 {
		return f, fmt.Errorf("--jobs must be >= 0, got %d", f.jobs)
	}
	if f.cache, err = cmd.Flags().GetBool("cache"); err != nil {
		return f, err
	}
	if f.config, err = cmd.Flags().GetString("config"); err != nil {
		return f, err
	}
	if f.noConfig, err = cmd.Flags().GetBool("no-config"); err != nil {
		return f, err
	}
	if f.config != "" && f.noConfig {
		return f, errors.New("--config cannot be used with --no-config")
	}
	if f.quiet, err = cmd.Root().PersistentFlags().GetBool("quiet"); err != nil {
		return f, err
	}
	if f.timings, err = cmd.Root().PersistentFlags().GetBool("timings"); err != nil {
		return f, err
	}
	uiValue, err := cmd.Root().PersistentFlags().GetString("ui")
	if err != nil {
		return f, err
	}
	if f.ui, err = readUIMode(uiValue); err != nil {
		return f, err
	}
	return f, nil
}

// resolveConfig loads the project file and lets explicitly set flags win.
func resolveConfig(cmd *cobra.Command, f fixFlags) (config.Config, error) {
	cfg := config.Default()
	switch {
	case f.noConfig:
	case f.config != "":
		loaded, err := config.Load(f.config)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	default:
		path, ok, err := config.Find(".")
		if err != nil {
			return cfg, err
		}
		if ok {
			loaded, err := config.Load(path)
			if err != nil {
				return cfg, err
			}
			cfg = loaded
		}
	}

	if cmd.Flags().Changed("jobs") {
		jobs, err := safecast.Conv[int64](f.jobs)
		if err != nil {
			return cfg, fmt.Errorf("--jobs: %w", err)
		}
		cfg.Run.Jobs = jobs
	}
	if cmd.Flags().Changed("cache") {
		cfg.Run.Cache = f.cache
	}
	return cfg, nil
}

func runFix(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	flags, err := readFixFlags(cmd)
	if err != nil {
		return err
	}

	cleanupTrace, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer cleanupTrace()

	cfg, err := resolveConfig(cmd, flags)
	if err != nil {
		return err
	}
	jobs, err := safecast.Conv[int](cfg.Run.Jobs)
	if err != nil {
		return fmt.Errorf("[run].jobs: %w", err)
	}

	stdout := cmd.OutOrStdout()
	stderr := cmd.ErrOrStderr()
	ctx := cmd.Context()
	timer := observ.NewTimer()

	var cache *driver.DiskCache
	if cfg.Run.Cache {
		cache = openCache(stderr, flags.quiet)
	}

	phase := timer.Begin("collect")
	files, err := driver.CollectFiles(ctx, args, driver.CollectOptions{
		Extensions: cfg.Files.Extensions,
		Exclude:    cfg.Files.Exclude,
	})
	timer.End(phase, fmt.Sprintf("%d files", len(files)))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(stderr, "No markdown files found.")
		return &exitError{code: exitNoFiles, err: driver.ErrNoFiles}
	}

	opts := driver.FixOptions{
		Check: flags.check,
		Jobs:  jobs,
		Cache: cache,
	}

	phase = timer.Begin("fix")
	var results []driver.FileResult
	if shouldUseTUI(flags.ui) && flags.format == "text" && !flags.quiet {
		results, err = runFixWithUI(ctx, "mdtablefix", files, opts)
	} else {
		results, err = driver.FixFiles(ctx, files, opts)
	}
	timer.End(phase, fmt.Sprintf("%d changed", countChanged(results)))

	if flags.format == "json" {
		if jsonErr := renderJSON(stdout, results, flags.check, timer, flags.timings); jsonErr != nil {
			return jsonErr
		}
	} else {
		renderText(stdout, results, flags.check, err == nil)
		if flags.timings {
			fmt.Fprint(stderr, timer.Summary())
		}
	}

	if err != nil {
		var fe *driver.FileError
		if errors.As(err, &fe) {
			fmt.Fprintf(stderr, "Error processing %s: %v\n", fe.Path, fe.Err)
			return &exitError{code: exitFailure, err: err}
		}
		return err
	}

	if flags.check {
		if n := countChanged(results); n > 0 {
			if flags.format == "text" {
				fmt.Fprintf(stderr, "%d file(s) need table normalization.\n", n)
			}
			return &exitError{code: exitCheckFailed, err: fmt.Errorf("%d file(s) need table normalization", n)}
		}
	}
	return nil
}

// openCache opens the default cache directory. A cache that cannot be
// opened only disables caching for this run.
func openCache(stderr io.Writer, quiet bool) *driver.DiskCache {
	dir, err := driver.DefaultCacheDir("mdtablefix")
	if err == nil {
		var cache *driver.DiskCache
		if cache, err = driver.OpenDiskCache(dir); err == nil {
			return cache
		}
	}
	if !quiet {
		fmt.Fprintf(stderr, "warning: cache disabled: %v\n", err)
	}
	return nil
}

func countChanged(results []driver.FileResult) int {
	n := 0
	for _, res := range results {
		if res.Changed {
			n++
		}
	}
	return n
}

// renderText prints one line per changed file followed by the summary.
// The summary is only printed for runs that completed.
func renderText(out io.Writer, results []driver.FileResult, check, completed bool) {
	label := "Updated"
	if check {
		label = "Would update"
	}
	pathColor := color.New(color.FgGreen)
	for _, res := range results {
		if res.Changed {
			fmt.Fprintf(out, "%s %s\n", label, pathColor.Sprint(res.Path))
		}
	}
	if !completed || check {
		return
	}
	if countChanged(results) > 0 {
		fmt.Fprintln(out, "Some files were updated.")
	} else {
		fmt.Fprintln(out, "No changes needed.")
	}
}

type jsonFileResult struct {
	Path    string               `json:"path"`
	Changed bool                 `json:"changed"`
	Cached  bool                 `json:"cached,omitempty"`
	Rows    int                  `json:"rows"`
	Skipped int                  `json:"skipped,omitempty"`
	Changes []mdtable.LineChange `json:"changes,omitempty"`
	Error   string               `json:"error,omitempty"`
}

type jsonReport struct {
	Check   bool             `json:"check"`
	Changed int              `json:"changed"`
	Files   []jsonFileResult `json:"files"`
	Timings *observ.Report   `json:"timings,omitempty"`
}

func renderJSON(out io.Writer, results []driver.FileResult, check bool, timer *observ.Timer, withTimings bool) error {
	report := jsonReport{
		Check:   check,
		Changed: countChanged(results),
		Files:   make([]jsonFileResult, 0, len(results)),
	}
	for _, res := range results {
		item := jsonFileResult{
			Path:    res.Path,
			Changed: res.Changed,
			Cached:  res.Cached,
			Rows:    res.Rows,
			Skipped: res.Skipped,
			Changes: res.Changes,
		}
		if res.Err != nil {
			item.Error = res.Err.Error()
		}
		report.Files = append(report.Files, item)
	}
	if withTimings {
		r := timer.Report()
		report.Timings = &r
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func printError(w io.Writer, err error) {
	var ee *exitError
	if err == nil || errors.As(err, &ee) {
		return
	}
	fmt.Fprintf(w, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("error:"), err)
}
