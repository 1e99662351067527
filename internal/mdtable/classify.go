package mdtable

import (
	"regexp"
	"strings"
	"unicode"
)

// LineKind is the classification a Scanner assigns to a line.
type LineKind uint8

const (
	// KindOther is any line that is neither a fence nor a table row.
	KindOther LineKind = iota
	// KindFence opens or closes a fenced code block.
	KindFence
	// KindInsideFence is a line between an opening and a closing fence.
	KindInsideFence
	// KindTableRow is a line shaped like "| ... |" outside of a fence.
	KindTableRow
)

// String returns the string representation of LineKind.
func (k LineKind) String() string {
	switch k {
	case KindOther:
		return "other"
	case KindFence:
		return "fence"
	case KindInsideFence:
		return "inside-fence"
	case KindTableRow:
		return "table-row"
	default:
		return "unknown"
	}
}

const fenceMarker = "```"

var bulletItem = regexp.MustCompile(`^\s*[-*+]\s`)

// IsFence reports whether line is a fence marker: after leading whitespace it
// starts with three backticks.
func IsFence(line string) bool {
	return strings.HasPrefix(strings.TrimLeftFunc(line, unicode.IsSpace), fenceMarker)
}

// IsTableRow reports whether line has the shape of a table row. Fence state is
// not considered here; use Scanner for that.
func IsTableRow(line string) bool {
	stripped := strings.TrimSpace(line)
	if !strings.HasPrefix(stripped, "|") || !strings.HasSuffix(stripped, "|") {
		return false
	}
	// a lone "|" both starts and ends with a pipe
	if strings.Count(stripped, "|") < 2 {
		return false
	}
	if bulletItem.MatchString(line) {
		return false
	}
	return true
}

// Scanner classifies lines in document order. The zero value starts outside
// of any fence.
type Scanner struct {
	inFence bool
}

// Classify returns the kind of line and advances the fence state. Every fence
// marker toggles the state; markers are not matched by their info string or
// length.
func (s *Scanner) Classify(line string) LineKind {
	if IsFence(line) {
		s.inFence = !s.inFence
		return KindFence
	}
	if s.inFence {
		return KindInsideFence
	}
	if IsTableRow(line) {
		return KindTableRow
	}
	return KindOther
}

// InFence reports whether the scanner is currently inside a fenced block.
func (s *Scanner) InFence() bool { return s.inFence }

// Reset returns the scanner to its initial state.
func (s *Scanner) Reset() { s.inFence = false }
