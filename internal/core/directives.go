package core

import (
	"regexp"
	"strings"
)

// directiveLine matches "#key: value" control lines.
var directiveLine = regexp.MustCompile(`^\s*#\s*([A-Za-z0-9_\-]+)\s*:\s*(.+?)\s*$`)

// lineSpan is one line of content: its text without terminator and the
// offset just past its terminator.
type lineSpan struct {
	text string
	end  int
}

// splitLines splits content on \n, \r\n and bare \r, keeping offsets so
// callers can slice the original string without rewriting line breaks.
func splitLines(content string) []lineSpan {
	var lines []lineSpan
	start := 0
	for i := 0; i < len(content); i++ {
		switch content[i] {
		case '\n':
			lines = append(lines, lineSpan{text: content[start:i], end: i + 1})
			start = i + 1
		case '\r':
			end := i + 1
			if end < len(content) && content[end] == '\n' {
				end++
			}
			lines = append(lines, lineSpan{text: content[start:i], end: end})
			start = end
			i = end - 1
		}
	}
	if start < len(content) {
		lines = append(lines, lineSpan{text: content[start:], end: len(content)})
	}
	return lines
}

func isDirectiveRunLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "#")
}

// ExtractDirectives parses the leading run of "#key:value" lines.
// Blank lines inside the run are skipped; the run ends at the first
// non-blank line that does not start with '#'. Keys are lowercased and
// later duplicates overwrite earlier ones. Lines that start with '#' but
// are not key:value pairs stay inside the run and contribute nothing.
func ExtractDirectives(content string) Directives {
	directives := make(Directives)
	for _, line := range splitLines(content) {
		if strings.TrimSpace(line.text) == "" {
			continue
		}
		if !isDirectiveRunLine(line.text) {
			break
		}
		if m := directiveLine.FindStringSubmatch(line.text); m != nil {
			directives[strings.ToLower(m[1])] = m[2]
		}
	}
	return directives
}

// StripDirectives removes exactly the lines consumed by the leading
// directive run and returns the remainder unchanged.
//
// The scan has two phases: consume while lines are '#'-prefixed or blank,
// then pass everything after the first data line through untouched. Later
// '#' lines and blank lines are data once the run has ended.
func StripDirectives(content string) string {
	offset := 0
	for _, line := range splitLines(content) {
		if strings.TrimSpace(line.text) != "" && !isDirectiveRunLine(line.text) {
			break
		}
		offset = line.end
	}
	return content[offset:]
}

// SplitDirectives returns the directives and the body in one call.
func SplitDirectives(content string) (Directives, string) {
	return ExtractDirectives(content), StripDirectives(content)
}
