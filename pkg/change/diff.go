package change

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffLines computes an edit script transforming old into new, treating each
// element as one line of a text document. Elements must not contain newline
// characters. The resulting script applied to old yields exactly new.
func DiffLines(old, new []string) ArrayChange[string] {
	c := NewArrayChange[string](len(old))

	dmp := diffmatchpatch.New()
	oldChars, newChars, lineArray := dmp.DiffLinesToChars(joinLines(old), joinLines(new))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(oldChars, newChars, false), lineArray)

	// at tracks the position in the partially-edited array, so each emitted
	// operation lands in the coordinate space the script invariant requires.
	at := 0

	for _, d := range diffs {
		lines := splitLines(d.Text)
		if len(lines) == 0 {
			continue
		}

		switch d.Type {
		case diffmatchpatch.DiffEqual:
			at += len(lines)
		case diffmatchpatch.DiffDelete:
			c.Add(ReplaceSlice(lines, at, nil))
		case diffmatchpatch.DiffInsert:
			c.Add(ReplaceSlice(nil, at, lines))
			at += len(lines)
		}
	}

	return c
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}

	return strings.Join(lines, "\n") + "\n"
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return lines
}
