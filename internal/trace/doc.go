// Package trace provides structured run tracing for mdtablefix.
//
// Tracing is off by default. When enabled, events describe the run (file
// selection, the fix pass), each processed file, and, at debug level, table
// rows that could not be rewritten.
//
// # Usage
//
//	mdtablefix --trace=- --trace-level=detail docs/
//
// # Levels
//
//   - LevelOff: No tracing
//   - LevelError: Only file-level failures
//   - LevelPhase: Run boundaries (collect, fix)
//   - LevelDetail: Per-file events
//   - LevelDebug: Everything including skipped rows
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopeFile, "file:README.md", parentID)
//	defer span.End("")
package trace
