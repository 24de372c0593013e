// internal/diff/diff.go
package diff

import (
	"bytes"
	"fmt"
)

// Kind labels a line as unchanged, added or removed.
type Kind int

const (
	Unchanged Kind = iota
	Added
	Removed
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "unchanged"
	}
}

// Line is a single line of the diff. OldNum/NewNum are 1-based and zero
// when the line does not exist on that side.
type Line struct {
	Kind    Kind
	Content string
	OldNum  int
	NewNum  int
}

// Run is a maximal stretch of consecutive lines with the same kind.
type Run struct {
	Kind  Kind
	Lines []string
}

// Result contains the complete diff information
type Result struct {
	Lines []Line
	Runs  []Run
	Stats struct {
		Additions int
		Deletions int
	}
}

// Changed reports whether the two sides differ at all.
func (r *Result) Changed() bool {
	return r.Stats.Additions+r.Stats.Deletions > 0
}

// Engine provides diffing capabilities
type Engine struct {
	contextLines int
}

// NewEngine creates a new diff engine with specified context lines
func NewEngine(contextLines int) *Engine {
	if contextLines < 0 {
		contextLines = 0
	}
	return &Engine{
		contextLines: contextLines,
	}
}

// Diff compares two texts line by line. Lines are split on '\n' and a
// single trailing newline does not produce an extra empty line. Within a
// change, removed lines come before added ones.
func (e *Engine) Diff(oldContent, newContent []byte) *Result {
	oldLines := splitLines(oldContent)
	newLines := splitLines(newContent)

	lcs := computeLCS(oldLines, newLines)

	result := &Result{}
	i, j := 0, 0
	for i < len(oldLines) || j < len(newLines) {
		switch {
		case i < len(oldLines) && j < len(newLines) && bytes.Equal(oldLines[i], newLines[j]):
			result.Lines = append(result.Lines, Line{Kind: Unchanged, Content: string(oldLines[i]), OldNum: i + 1, NewNum: j + 1})
			i++
			j++
		case i < len(oldLines) && (j == len(newLines) || lcs[i+1][j] >= lcs[i][j+1]):
			result.Lines = append(result.Lines, Line{Kind: Removed, Content: string(oldLines[i]), OldNum: i + 1})
			result.Stats.Deletions++
			i++
		default:
			result.Lines = append(result.Lines, Line{Kind: Added, Content: string(newLines[j]), NewNum: j + 1})
			result.Stats.Additions++
			j++
		}
	}

	result.Runs = coalesce(result.Lines)
	return result
}

func splitLines(content []byte) [][]byte {
	if len(content) == 0 {
		return nil
	}
	return bytes.Split(bytes.TrimSuffix(content, []byte{'\n'}), []byte{'\n'})
}

// computeLCS returns the suffix table: m[i][j] is the length of the longest
// common subsequence of oldLines[i:] and newLines[j:].
func computeLCS(oldLines, newLines [][]byte) [][]int {
	matrix := make([][]int, len(oldLines)+1)
	for i := range matrix {
		matrix[i] = make([]int, len(newLines)+1)
	}

	for i := len(oldLines) - 1; i >= 0; i-- {
		for j := len(newLines) - 1; j >= 0; j-- {
			if bytes.Equal(oldLines[i], newLines[j]) {
				matrix[i][j] = matrix[i+1][j+1] + 1
			} else {
				matrix[i][j] = max(matrix[i+1][j], matrix[i][j+1])
			}
		}
	}

	return matrix
}

func coalesce(lines []Line) []Run {
	var runs []Run
	for _, l := range lines {
		if n := len(runs); n > 0 && runs[n-1].Kind == l.Kind {
			runs[n-1].Lines = append(runs[n-1].Lines, l.Content)
			continue
		}
		runs = append(runs, Run{Kind: l.Kind, Lines: []string{l.Content}})
	}
	return runs
}

// Hunk represents a continuous section of changes with surrounding context
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

// Hunks groups changed lines with up to contextLines unchanged lines on
// either side. Changes closer than twice the context share a hunk.
func (e *Engine) Hunks(r *Result) []Hunk {
	var hunks []Hunk

	n := len(r.Lines)
	for i := 0; i < n; {
		if r.Lines[i].Kind == Unchanged {
			i++
			continue
		}

		start := max(0, i-e.contextLines)
		end := i
		for end < n {
			if r.Lines[end].Kind != Unchanged {
				end++
				continue
			}
			// Look ahead for another change within reach.
			gap := end
			for gap < n && r.Lines[gap].Kind == Unchanged {
				gap++
			}
			if gap < n && gap-end <= 2*e.contextLines {
				end = gap
				continue
			}
			break
		}
		stop := min(n, end+e.contextLines)

		hunks = append(hunks, newHunk(r.Lines, start, stop))
		i = stop
	}

	return hunks
}

func newHunk(lines []Line, start, stop int) Hunk {
	h := Hunk{Lines: lines[start:stop]}

	// Line numbers before the hunk on each side.
	oldBefore, newBefore := 0, 0
	for _, l := range lines[:start] {
		if l.Kind != Added {
			oldBefore++
		}
		if l.Kind != Removed {
			newBefore++
		}
	}

	for _, l := range h.Lines {
		if l.Kind != Added {
			h.OldLines++
		}
		if l.Kind != Removed {
			h.NewLines++
		}
	}

	h.OldStart, h.NewStart = oldBefore, newBefore
	if h.OldLines > 0 {
		h.OldStart++
	}
	if h.NewLines > 0 {
		h.NewStart++
	}
	return h
}

// Format renders the result as unified hunks.
func (e *Engine) Format(r *Result) string {
	var buf bytes.Buffer

	for _, hunk := range e.Hunks(r) {
		fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n",
			hunk.OldStart, hunk.OldLines,
			hunk.NewStart, hunk.NewLines)

		for _, line := range hunk.Lines {
			switch line.Kind {
			case Added:
				buf.WriteString("+ ")
			case Removed:
				buf.WriteString("- ")
			default:
				buf.WriteString("  ")
			}
			buf.WriteString(line.Content)
			buf.WriteString("\n")
		}
	}

	return buf.String()
}
