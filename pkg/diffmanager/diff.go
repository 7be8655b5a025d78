package diffmanager

import (
	"strconv"
	"strings"
)

// LinePair maps an unchanged line's position in the base revision to its
// position in the target revision.
type LinePair struct {
	Old int
	New int
}

// FileDiff holds the target-relative line classification of one file's
// hunks: lines added by the diff and unchanged lines carried inside hunks.
// Removed lines have no target position and are not tracked.
type FileDiff struct {
	Added   []int
	Context []LinePair
}

// ParseUnifiedDiff extracts per-file added and context lines from unified
// diff text. File paths are target-relative (the b/ side).
func ParseUnifiedDiff(text string) map[string]*FileDiff {
	files := make(map[string]*FileDiff)
	lines := strings.Split(text, "\n")

	var current *FileDiff
	oldLine, newLine := 0, 0
	inHunk := false

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "diff --git"):
			current = nil
			inHunk = false
			parts := strings.Fields(line)
			if len(parts) < 4 {
				continue
			}
			path := strings.TrimPrefix(parts[3], "b/")
			if path == "/dev/null" {
				continue
			}
			if _, ok := files[path]; !ok {
				files[path] = &FileDiff{}
			}
			current = files[path]

		case strings.HasPrefix(line, "@@"):
			if current == nil {
				continue
			}
			oldStart, newStart, ok := parseHunkHeader(line)
			if !ok {
				inHunk = false
				continue
			}
			oldLine, newLine = oldStart, newStart
			inHunk = true

		case !inHunk || current == nil:

		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):

		case strings.HasPrefix(line, "+"):
			current.Added = append(current.Added, newLine)
			newLine++

		case strings.HasPrefix(line, "-"):
			oldLine++

		case strings.HasPrefix(line, " "):
			current.Context = append(current.Context, LinePair{Old: oldLine, New: newLine})
			oldLine++
			newLine++
		}
	}

	for path, fd := range files {
		if len(fd.Added) == 0 && len(fd.Context) == 0 {
			delete(files, path)
		}
	}
	return files
}

// parseHunkHeader reads the start positions from `@@ -10,3 +10,4 @@ ...`.
func parseHunkHeader(line string) (oldStart, newStart int, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return 0, 0, false
	}
	oldStart, ok = parseHunkRange(fields[1], "-")
	if !ok {
		return 0, 0, false
	}
	newStart, ok = parseHunkRange(fields[2], "+")
	if !ok {
		return 0, 0, false
	}
	return oldStart, newStart, true
}

func parseHunkRange(field, sign string) (int, bool) {
	field = strings.TrimPrefix(field, sign)
	if idx := strings.Index(field, ","); idx >= 0 {
		field = field[:idx]
	}
	start, err := strconv.Atoi(field)
	if err != nil {
		return 0, false
	}
	return start, true
}
