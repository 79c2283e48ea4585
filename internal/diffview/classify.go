// Package diffview classifies unified-diff text into renderable lines.
package diffview

import "strings"

// LineKind categorizes one line of a unified diff
type LineKind int

const (
	KindContext LineKind = iota
	KindHeader
	KindFileHeader
	KindAdd
	KindRemove
)

// String returns the stable name for a line kind
func (k LineKind) String() string {
	switch k {
	case KindHeader:
		return "header"
	case KindFileHeader:
		return "file-header"
	case KindAdd:
		return "add"
	case KindRemove:
		return "remove"
	default:
		return "context"
	}
}

// Line is one classified line of a diff, content kept verbatim
type Line struct {
	Content string
	Kind    LineKind
}

// Diff is the classification result for one patch text. Empty marks the
// no-patch sentinel: the run produced no diff at all, as opposed to a
// diff whose text happens to be short.
type Diff struct {
	Lines []Line
	Empty bool
}

// NoPatch is the sentinel for absent patch text
var NoPatch = Diff{Empty: true}

// Classify splits patch text into lines and assigns each a kind. It is a
// pure function of line content: first match wins, no cross-line state.
func Classify(patch string) Diff {
	if patch == "" {
		return NoPatch
	}

	raw := strings.Split(patch, "\n")
	lines := make([]Line, len(raw))
	for i, content := range raw {
		lines[i] = Line{Content: content, Kind: classifyLine(content)}
	}
	return Diff{Lines: lines}
}

func classifyLine(content string) LineKind {
	switch {
	case strings.HasPrefix(content, "@@"):
		return KindHeader
	case strings.HasPrefix(content, "+++"), strings.HasPrefix(content, "---"):
		return KindFileHeader
	case strings.HasPrefix(content, "+"):
		return KindAdd
	case strings.HasPrefix(content, "-"):
		return KindRemove
	default:
		return KindContext
	}
}
