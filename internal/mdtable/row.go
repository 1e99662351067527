package mdtable

import (
	"regexp"
	"strings"
)

var separatorCell = regexp.MustCompile(`^:?-+:?$`)

// splitTerminator separates the line body from its terminator ("", "\n" or "\r\n").
func splitTerminator(line string) (body, eol string) {
	switch {
	case strings.HasSuffix(line, "\r\n"):
		return line[:len(line)-2], "\r\n"
	case strings.HasSuffix(line, "\n"):
		return line[:len(line)-1], "\n"
	default:
		return line, ""
	}
}

// SplitCells returns the raw (untrimmed) cells of a table row: the text
// between each pair of adjacent pipes. Text before the first pipe and after
// the last one is dropped. ok is false when the line has fewer than two pipes.
func SplitCells(line string) (cells []string, ok bool) {
	body, _ := splitTerminator(line)
	parts := strings.Split(body, "|")
	if len(parts) < 3 {
		return nil, false
	}
	return parts[1 : len(parts)-1], true
}

// IsSeparatorRow reports whether the cells describe a delimiter row. Blank
// cells are ignored, every other cell must look like ":---:" with optional
// colons, and at least one cell must be non-blank.
func IsSeparatorRow(cells []string) bool {
	seen := false
	for _, cell := range cells {
		content := strings.TrimSpace(cell)
		if content == "" {
			continue
		}
		if !separatorCell.MatchString(content) {
			return false
		}
		seen = true
	}
	return seen
}

// RewriteRow returns line with every cell trimmed and padded by exactly one
// space, delimiter cells collapsed to three dashes, and blank cells reduced to
// a single space. The line terminator is kept as is. Lines with fewer than two
// pipes are returned unchanged.
func RewriteRow(line string) string {
	cells, ok := SplitCells(line)
	if !ok {
		return line
	}
	_, eol := splitTerminator(line)
	separator := IsSeparatorRow(cells)

	var b strings.Builder
	b.Grow(len(line) + 2*len(cells) + 2)
	b.WriteByte('|')
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte('|')
		}
		writeCell(&b, strings.TrimSpace(cell), separator)
	}
	b.WriteByte('|')
	b.WriteString(eol)
	return b.String()
}

func writeCell(b *strings.Builder, content string, separator bool) {
	b.WriteByte(' ')
	switch {
	case content == "":
		return
	case separator:
		if strings.HasPrefix(content, ":") {
			b.WriteByte(':')
		}
		b.WriteString("---")
		if strings.HasSuffix(content, ":") {
			b.WriteByte(':')
		}
	default:
		b.WriteString(content)
	}
	b.WriteByte(' ')
}
