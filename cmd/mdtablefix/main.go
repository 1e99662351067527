package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mdtablefix/internal/version"
)

const rootLong = `mdtablefix rewrites markdown table rows to the "| cell | cell |" layout
required by the MD060 table-column-style rule.

Paths may be files or directories. Directories are searched recursively for
*.md files; with no paths the current directory is used. Anything below a
node_modules directory is skipped and fenced code blocks are left untouched.

Exit status: 0 on success, 1 when no markdown files were found, 2 when a file
could not be read or written, 3 when --check found files to rewrite.`

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "mdtablefix [flags] [path...]",
		Short:             "Normalize markdown table formatting",
		Long:              rootLong,
		Version:           version.Version,
		Args:              cobra.ArbitraryArgs,
		RunE:              runFix,
		PersistentPreRunE: setupColor,
		SilenceErrors:     true,
	}

	root.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	root.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	root.PersistentFlags().Bool("timings", false, "show timing information")
	root.PersistentFlags().String("ui", "off", "progress UI mode (auto|on|off)")
	root.PersistentFlags().String("trace", "", "write trace events to file (- for stderr)")
	root.PersistentFlags().String("trace-level", "off", "trace level (off|error|phase|detail|debug)")
	root.PersistentFlags().String("trace-format", "auto", "trace format (auto|text|ndjson)")

	addFixFlags(root)

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newCleanCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	printError(os.Stderr, err)
	os.Exit(exitCode(err))
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
