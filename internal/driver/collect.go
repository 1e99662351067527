package driver

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"mdtablefix/internal/trace"
)

// CollectOptions configures markdown file discovery.
type CollectOptions struct {
	// Extensions matched when walking directories. Defaults to ".md".
	Extensions []string
	// Exclude lists directory names; any path with such a segment is dropped.
	// "node_modules" is always part of the list.
	Exclude []string
}

const vendorDir = "node_modules"

func (o CollectOptions) withDefaults() CollectOptions {
	if len(o.Extensions) == 0 {
		o.Extensions = []string{".md"}
	}
	if !slices.Contains(o.Exclude, vendorDir) {
		o.Exclude = append(slices.Clone(o.Exclude), vendorDir)
	}
	return o
}

var errNotRegular = errors.New("not a regular file")

// CollectFiles resolves command-line arguments into a sorted, deduplicated
// list of files. Existing regular files are taken as given; directories are walked
// recursively for matching extensions. With no arguments the current
// directory is walked. Missing paths and unreadable subdirectories are
// skipped; only context cancellation is reported as an error.
func CollectFiles(ctx context.Context, args []string, opts CollectOptions) ([]string, error) {
	opts = opts.withDefaults()
	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopeRun, "collect", trace.CurrentSpan(ctx))

	if len(args) == 0 {
		args = []string{"."}
	}

	var files []string
	seen := make(map[string]struct{})
	addFile := func(path string) {
		path = filepath.Clean(path)
		if excluded(path, opts.Exclude) {
			return
		}
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, p := range args {
		if err := ctx.Err(); err != nil {
			span.End("canceled")
			return nil, err
		}

		info, err := os.Stat(p)
		if err != nil {
			skipped(tr, span, p, err)
			continue
		}
		if info.Mode().IsRegular() {
			addFile(p)
			continue
		}
		if !info.IsDir() {
			skipped(tr, span, p, errNotRegular)
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				skipped(tr, span, path, err)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() {
				if slices.Contains(opts.Exclude, d.Name()) {
					return fs.SkipDir
				}
				return nil
			}
			if hasExtension(path, opts.Extensions) {
				addFile(path)
			}
			return nil
		})
		if err != nil {
			span.End("canceled")
			return nil, err
		}
	}

	sort.Strings(files)
	span.WithExtra("files", strconv.Itoa(len(files))).End("")
	return files, nil
}

// excluded reports whether any segment of path equals one of names.
func excluded(path string, names []string) bool {
	if len(names) == 0 {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		if slices.Contains(names, seg) {
			return true
		}
	}
	return false
}

func hasExtension(path string, exts []string) bool {
	return slices.Contains(exts, filepath.Ext(path))
}

func skipped(tr trace.Tracer, span *trace.Span, path string, err error) {
	if !tr.Enabled() {
		return
	}
	tr.Emit(&trace.Event{
		Time:     time.Now(),
		Kind:     trace.KindPoint,
		Scope:    trace.ScopeFile,
		ParentID: span.ID(),
		Name:     "skip:" + path,
		Detail:   err.Error(),
	})
}
