package mdtable

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"fortio.org/safecast"

	"mdtablefix/internal/trace"
)

// LineChange records a single rewritten row. Before and After exclude the
// line terminator.
type LineChange struct {
	Line   uint32 `json:"line"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// Result is the outcome of normalizing one document.
type Result struct {
	Output  []byte
	Changed bool
	Changes []LineChange
	Rows    int // table rows seen outside of fences
	Skipped int // rows left verbatim because the rewrite failed
}

// rewrite is swapped in tests to exercise the per-row failure path.
var rewrite = RewriteRow

// Normalize rewrites every table row in src. Output aliases src when nothing
// changed. A row whose rewrite fails is kept verbatim and counted in Skipped;
// it never aborts the document.
func Normalize(ctx context.Context, src []byte) Result {
	tr := trace.FromContext(ctx)
	lines := splitLines(string(src))

	var (
		sc  Scanner
		res Result
		out strings.Builder
	)
	out.Grow(len(src) + len(src)/8)

	for i, line := range lines {
		if sc.Classify(line) != KindTableRow {
			out.WriteString(line)
			continue
		}
		res.Rows++
		rewritten, err := safeRewrite(line)
		if err != nil {
			res.Skipped++
			emitSkipped(tr, i, err)
			out.WriteString(line)
			continue
		}
		if rewritten != line {
			res.Changed = true
			before, _ := splitTerminator(line)
			after, _ := splitTerminator(rewritten)
			res.Changes = append(res.Changes, LineChange{Line: lineNumber(i), Before: before, After: after})
		}
		out.WriteString(rewritten)
	}

	if !res.Changed {
		res.Output = src
		return res
	}
	res.Output = []byte(out.String())
	return res
}

func safeRewrite(line string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = line
			err = fmt.Errorf("rewrite row: %v", r)
		}
	}()
	return rewrite(line), nil
}

// splitLines splits s after every "\n", keeping terminators. A trailing empty
// piece is dropped so that "a\n" yields one line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func lineNumber(idx int) uint32 {
	n, err := safecast.Conv[uint32](idx + 1)
	if err != nil {
		return math.MaxUint32
	}
	return n
}

func emitSkipped(tr trace.Tracer, idx int, err error) {
	if !tr.Enabled() {
		return
	}
	tr.Emit(&trace.Event{
		Time:   time.Now(),
		Kind:   trace.KindPoint,
		Scope:  trace.ScopeLine,
		Name:   "row:skipped",
		Detail: err.Error(),
		Extra:  map[string]string{"line": strconv.Itoa(idx + 1)},
	})
}
