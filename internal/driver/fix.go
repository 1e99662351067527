package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"mdtablefix/internal/mdtable"
	"mdtablefix/internal/trace"
)

// ErrNoFiles is returned when there is nothing to process.
var ErrNoFiles = errors.New("no markdown files found")

// FileError reports a read or write failure for one file. It ends the run.
type FileError struct {
	Path string
	Op   string // "read" or "write"
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// FixOptions configures a fix pass.
type FixOptions struct {
	// Check leaves files untouched; Changed reports what would be rewritten.
	Check bool
	// Jobs bounds parallel workers. 1 is strictly sequential, <= 0 uses GOMAXPROCS.
	Jobs int
	// Cache, when set, skips files whose content is known to be normalized.
	Cache *DiskCache
	// Progress receives per-file events.
	Progress ProgressSink
}

// FileResult captures the outcome for a single file.
type FileResult struct {
	Path    string
	Changed bool
	Cached  bool
	Rows    int
	Skipped int
	Changes []mdtable.LineChange
	Err     error
}

// FixFiles normalizes the tables of every file in order. Results are returned
// in the order of files. The first file that cannot be read or written stops
// the run: its result is the last one returned and its *FileError is
// returned as the error. Files that need no change are never written.
func FixFiles(ctx context.Context, files []string, opts FixOptions) ([]FileResult, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopeRun, "fix", trace.CurrentSpan(ctx))
	ctx = trace.WithSpan(ctx, span)

	for _, path := range files {
		emit(opts.Progress, Event{File: path, Status: StatusQueued})
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	var (
		results []FileResult
		err     error
	)
	if jobs == 1 || len(files) == 1 {
		results, err = fixSequential(ctx, files, opts)
	} else {
		results, err = fixParallel(ctx, files, opts, jobs)
	}

	changed := 0
	for _, res := range results {
		if res.Changed {
			changed++
		}
	}
	span.WithExtra("files", strconv.Itoa(len(results))).
		WithExtra("changed", strconv.Itoa(changed)).
		End("")
	return results, err
}

func fixSequential(ctx context.Context, files []string, opts FixOptions) ([]FileResult, error) {
	results := make([]FileResult, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := fixFile(ctx, path, opts)
		results = append(results, res)
		if res.Err != nil {
			return results, res.Err
		}
	}
	return results, nil
}

func fixParallel(ctx context.Context, files []string, opts FixOptions, jobs int) ([]FileResult, error) {
	// each goroutine owns its index, no mutex needed
	slots := make([]FileResult, len(files))
	done := make([]bool, len(files))

	// lowest failing index so far; files after it are not started, files
	// before it always run
	var (
		mu        sync.Mutex
		firstFail = len(files)
	)
	failedBefore := func(i int) bool {
		mu.Lock()
		defer mu.Unlock()
		return firstFail < i
	}

	var g errgroup.Group
	g.SetLimit(min(jobs, len(files)))
	for i, path := range files {
		g.Go(func() error {
			if ctx.Err() != nil || failedBefore(i) {
				return nil
			}
			slots[i] = fixFile(ctx, path, opts)
			done[i] = true
			if slots[i].Err != nil {
				mu.Lock()
				firstFail = min(firstFail, i)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	results := make([]FileResult, 0, len(files))
	for i := range slots {
		if !done[i] {
			return results, ctx.Err()
		}
		results = append(results, slots[i])
		if slots[i].Err != nil {
			return results, slots[i].Err
		}
	}
	return results, nil
}

func fixFile(ctx context.Context, path string, opts FixOptions) FileResult {
	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopeFile, "file:"+path, trace.CurrentSpan(ctx))
	start := time.Now()
	res := FileResult{Path: path}

	fail := func(stage Stage, op string, err error) FileResult {
		res.Changed = false
		res.Err = &FileError{Path: path, Op: op, Err: err}
		span.Fail(res.Err)
		span.End("")
		emit(opts.Progress, Event{File: path, Stage: stage, Status: StatusError, Err: res.Err, Elapsed: time.Since(start)})
		return res
	}

	emit(opts.Progress, Event{File: path, Stage: StageRead, Status: StatusWorking})
	data, err := os.ReadFile(path)
	if err != nil {
		return fail(StageRead, "read", err)
	}

	if opts.Cache != nil {
		var payload CachePayload
		hit, cacheErr := opts.Cache.Get(DigestOf(data), &payload)
		if cacheErr != nil {
			note(tr, span, "cache:get", cacheErr)
		}
		if hit {
			res.Cached = true
			span.WithExtra("cached", "true").End("")
			emit(opts.Progress, Event{File: path, Stage: StageNormalize, Status: StatusDone, Elapsed: time.Since(start)})
			return res
		}
	}

	emit(opts.Progress, Event{File: path, Stage: StageNormalize, Status: StatusWorking})
	norm := mdtable.Normalize(trace.WithSpan(ctx, span), data)
	res.Rows = norm.Rows
	res.Skipped = norm.Skipped
	res.Changes = norm.Changes
	res.Changed = norm.Changed

	if norm.Changed && !opts.Check {
		emit(opts.Progress, Event{File: path, Stage: StageWrite, Status: StatusWorking})
		mode := os.FileMode(0o644)
		if info, statErr := os.Stat(path); statErr == nil {
			mode = info.Mode()
		}
		if err := os.WriteFile(path, norm.Output, mode.Perm()); err != nil {
			return fail(StageWrite, "write", err)
		}
	}

	if opts.Cache != nil {
		payload := CachePayload{Path: path, Size: len(norm.Output), Rows: norm.Rows}
		if err := opts.Cache.Put(DigestOf(norm.Output), &payload); err != nil {
			note(tr, span, "cache:put", err)
		}
	}

	span.WithExtra("changed", strconv.FormatBool(res.Changed)).
		WithExtra("rows", strconv.Itoa(res.Rows)).
		End("")
	emit(opts.Progress, Event{File: path, Stage: StageWrite, Status: StatusDone, Changed: res.Changed, Elapsed: time.Since(start)})
	return res
}

func note(tr trace.Tracer, span *trace.Span, name string, err error) {
	if !tr.Enabled() {
		return
	}
	tr.Emit(&trace.Event{
		Time:     time.Now(),
		Kind:     trace.KindPoint,
		Scope:    trace.ScopeFile,
		ParentID: span.ID(),
		Name:     name,
		Detail:   err.Error(),
	})
}
