package core

import (
	"regexp"
	"strings"
)

// SampleRows is the number of data rows inspected for the observed width.
const SampleRows = 20

var (
	nameSeparators = regexp.MustCompile(`[\s_\-]+`)
	nameDisallowed = regexp.MustCompile(`[^a-z0-9 ]+`)
)

// NormalizeName lowercases s, collapses whitespace, hyphens and underscores
// to single spaces and drops everything outside [a-z0-9 ].
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = nameSeparators.ReplaceAllString(s, " ")
	return nameDisallowed.ReplaceAllString(s, "")
}

// MatchScore ranks a schema against the observed columns. Higher is better,
// compared lexicographically: Name, then Columns, then NegFields.
type MatchScore struct {
	Name      int `json:"name"`
	Columns   int `json:"columns"`
	NegFields int `json:"negFields"`
}

// Greater reports whether s strictly outranks o.
func (s MatchScore) Greater(o MatchScore) bool {
	if s.Name != o.Name {
		return s.Name > o.Name
	}
	if s.Columns != o.Columns {
		return s.Columns > o.Columns
	}
	return s.NegFields > o.NegFields
}

// Less reports whether s ranks strictly below o.
func (s MatchScore) Less(o MatchScore) bool {
	return o.Greater(s)
}

// columnCloseness maps |observed - fields| to a score.
func columnCloseness(observed, fields int) int {
	diff := observed - fields
	if diff < 0 {
		diff = -diff
	}
	switch diff {
	case 0:
		return 3
	case 1:
		return 2
	case 2:
		return 1
	}
	return 0
}

// nameSimilarity scores normalized header cells against normalized field
// names: 3 for an exact match, 1 for containment either way.
func nameSimilarity(header, fields []string) int {
	score := 0
	for _, h := range header {
		if h == "" {
			continue
		}
		exact, partial := false, false
		for _, f := range fields {
			if h == f {
				exact = true
				break
			}
			if strings.Contains(f, h) || strings.Contains(h, f) {
				partial = true
			}
		}
		switch {
		case exact:
			score += 3
		case partial:
			score++
		}
	}
	return score
}

func normalizeAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = NormalizeName(n)
	}
	return out
}

// ScoreSchema scores one schema. A nil header scores zero on names.
func ScoreSchema(header []string, observedCols int, schema Schema) MatchScore {
	return scoreNormalized(normalizeAll(header), observedCols, schema)
}

func scoreNormalized(header []string, observedCols int, schema Schema) MatchScore {
	return MatchScore{
		Name:      nameSimilarity(header, normalizeAll(schema.Fields)),
		Columns:   columnCloseness(observedCols, schema.FieldCount()),
		NegFields: -schema.FieldCount(),
	}
}

// MatchSchema returns the index of the best schema for the observed header
// and column count. The first schema with the maximal score wins. It
// returns false when schemas is empty or no columns were observed.
func MatchSchema(header []string, observedCols int, schemas []Schema) (int, bool) {
	if len(schemas) == 0 || observedCols == 0 {
		return -1, false
	}

	hdr := normalizeAll(header)
	best := -1
	var bestScore MatchScore
	for i, s := range schemas {
		score := scoreNormalized(hdr, observedCols, s)
		if best < 0 || score.Greater(bestScore) {
			best, bestScore = i, score
		}
	}
	return best, true
}

// ObservedColumns returns the widest row among the sample rows used for
// matching: up to SampleRows rows after the header, or from the top when
// there is none. Empty rows are ignored. A lone header row is its own sample.
func ObservedColumns(rows []Row, hasHeader bool) int {
	rows = NonEmptyRows(rows)
	if len(rows) == 0 {
		return 0
	}

	var sample []Row
	if hasHeader {
		sample = rows[1:min(len(rows), SampleRows+1)]
	} else {
		sample = rows[:min(len(rows), SampleRows)]
	}
	if len(sample) == 0 {
		sample = rows[:1]
	}

	widest := 0
	for _, r := range sample {
		widest = max(widest, len(r))
	}
	return widest
}

// builtinAliases maps shorthand names to built-in note type names.
var builtinAliases = map[string]string{
	"basic":                      "basic",
	"cloze":                      "cloze",
	"basic (and reversed card)":  "basic (and reversed card)",
	"basic (type in the answer)": "basic (type in the answer)",
	"reversed":                   "basic (and reversed card)",
	"basic reversed":             "basic (and reversed card)",
	"optional reversed":          "basic (optional reversed card)",
	"type in answer":             "basic (type in the answer)",
	"type in the answer":         "basic (type in the answer)",
}

// FindSchemaByName returns the index of the schema named name, ignoring case
// and surrounding whitespace. Built-in aliases are resolved first.
func FindSchemaByName(name string, schemas []Schema) (int, bool) {
	target := strings.ToLower(strings.TrimSpace(name))
	if target == "" {
		return -1, false
	}
	if alias, ok := builtinAliases[target]; ok {
		target = alias
	}
	for i, s := range schemas {
		if strings.ToLower(strings.TrimSpace(s.Name)) == target {
			return i, true
		}
	}
	return -1, false
}
