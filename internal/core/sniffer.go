package core

// sniffer.go implements statistical dialect sniffing over a content sample.
//
// Delimiter sniffing runs two passes restricted to the supported delimiters:
//
//  1. Quote pass: a delimiter that sits directly around double-quoted fields
//     is almost certainly the separator.
//  2. Frequency pass: per-line occurrence counts are accumulated in chunks of
//     ten lines; a delimiter whose modal count covers at least 90% of lines
//     is accepted. Several survivors are resolved by preference order.
//
// Header sniffing compares the first row against the value types and lengths
// of the rows that follow it.

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// sniffChunkLines is the number of lines added per frequency-pass iteration.
const sniffChunkLines = 10

// sniffHeaderRows is how many rows after the first are inspected for a header.
const sniffHeaderRows = 20

// sniffPreferred breaks ties between equally consistent delimiters.
var sniffPreferred = []rune{Comma, Tab, Semicolon}

// sniffDelimiter returns the delimiter the sample most likely uses, or false
// if the sample is inconclusive.
func sniffDelimiter(sample string) (rune, bool) {
	if d, ok := sniffQuotedDelimiter(sample); ok {
		return d, true
	}
	return sniffFrequencyDelimiter(sample)
}

// sniffQuotedDelimiter looks for candidates adjacent to quoted fields:
// `,"x",`, a quoted field opening a line followed by a candidate, or a
// candidate followed by a quoted field closing a line. One space between the
// leading delimiter and the quote is tolerated.
func sniffQuotedDelimiter(sample string) (rune, bool) {
	counts := make(map[rune]int)
	found := false

	for i := 0; i < len(sample); i++ {
		if sample[i] != '"' {
			continue
		}
		j := strings.IndexByte(sample[i+1:], '"')
		if j < 0 {
			break
		}
		closeAt := i + 1 + j
		found = true

		lead, atLineStart := leadingDelimiter(sample, i)
		trail, atLineEnd := trailingDelimiter(sample, closeAt)

		switch {
		case lead != 0 && lead == trail:
			counts[lead]++
		case atLineStart && trail != 0:
			counts[trail]++
		case lead != 0 && atLineEnd:
			counts[lead]++
		}

		i = closeAt
	}

	if !found || len(counts) == 0 {
		return 0, false
	}

	best, bestCount := rune(0), 0
	for _, d := range candidateDelimiters {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best, bestCount > 0
}

// leadingDelimiter inspects the character(s) before an opening quote.
func leadingDelimiter(sample string, quoteAt int) (rune, bool) {
	p := quoteAt - 1
	if p >= 0 && sample[p] == ' ' {
		p--
	}
	if p < 0 || sample[p] == '\n' {
		return 0, p == quoteAt-1
	}
	d := rune(sample[p])
	if IsSupportedDelimiter(d) {
		return d, false
	}
	return 0, false
}

// trailingDelimiter inspects the character after a closing quote.
func trailingDelimiter(sample string, quoteAt int) (rune, bool) {
	p := quoteAt + 1
	if p >= len(sample) || sample[p] == '\n' || sample[p] == '\r' {
		return 0, true
	}
	d := rune(sample[p])
	if IsSupportedDelimiter(d) {
		return d, false
	}
	return 0, false
}

// freqMode is the most common per-line count of a delimiter and how many
// more lines have that count than do not.
type freqMode struct {
	count  int
	weight int
}

// freqTable tracks how many lines contain a delimiter n times, remembering
// the order in which counts were first seen.
type freqTable struct {
	order []int
	lines map[int]int
}

func (t *freqTable) add(n int) {
	if t.lines == nil {
		t.lines = make(map[int]int)
	}
	if _, ok := t.lines[n]; !ok {
		t.order = append(t.order, n)
	}
	t.lines[n]++
}

// mode returns the dominant count, or false if the delimiter never appears.
func (t *freqTable) mode() (freqMode, bool) {
	if len(t.order) == 1 && t.order[0] == 0 {
		return freqMode{}, false
	}
	best := -1
	for _, n := range t.order {
		if best < 0 || t.lines[n] > t.lines[best] {
			best = n
		}
	}
	others := 0
	for _, n := range t.order {
		if n != best {
			others += t.lines[n]
		}
	}
	return freqMode{count: best, weight: t.lines[best] - others}, true
}

func sniffFrequencyDelimiter(sample string) (rune, bool) {
	var data []string
	for _, line := range strings.Split(sample, "\n") {
		if line != "" {
			data = append(data, line)
		}
	}
	if len(data) == 0 {
		return 0, false
	}

	tables := make(map[rune]*freqTable, len(candidateDelimiters))
	for _, d := range candidateDelimiters {
		tables[d] = &freqTable{}
	}

	chunk := min(sniffChunkLines, len(data))
	delims := make(map[rune]freqMode)

	for start, end, iteration := 0, chunk, 1; start < len(data); iteration++ {
		for _, line := range data[start:min(end, len(data))] {
			for _, d := range candidateDelimiters {
				tables[d].add(strings.Count(line, string(d)))
			}
		}

		modes := make(map[rune]freqMode)
		for _, d := range candidateDelimiters {
			if m, ok := tables[d].mode(); ok {
				modes[d] = m
			}
		}

		total := float64(min(chunk*iteration, len(data)))
		for pct := 100; len(delims) == 0 && pct >= 90; pct-- {
			for _, d := range candidateDelimiters {
				m, ok := modes[d]
				if !ok || m.count <= 0 || m.weight <= 0 {
					continue
				}
				if float64(m.weight)/total >= float64(pct)/100 {
					delims[d] = m
				}
			}
		}

		if len(delims) == 1 {
			for d := range delims {
				return d, true
			}
		}

		start = end
		end += chunk
	}

	if len(delims) == 0 {
		return 0, false
	}
	for _, d := range sniffPreferred {
		if _, ok := delims[d]; ok {
			return d, true
		}
	}

	var best rune
	var bestMode freqMode
	for _, d := range candidateDelimiters {
		m, ok := delims[d]
		if !ok {
			continue
		}
		if best == 0 || m.count > bestMode.count || (m.count == bestMode.count && m.weight > bestMode.weight) {
			best, bestMode = d, m
		}
	}
	return best, best != 0
}

// columnKind is the inferred type of a column: numeric, or text of a fixed
// length.
type columnKind struct {
	numeric bool
	length  int
}

// sniffHasHeader guesses whether the first row of sample is a header.
// It returns false when the delimiter itself cannot be sniffed.
func sniffHasHeader(sample string) bool {
	delim, ok := sniffDelimiter(sample)
	if !ok {
		return false
	}

	rows, err := ParseRows(sample, delim)
	if err != nil || len(rows) == 0 {
		return false
	}

	header := rows[0]
	columns := len(header)
	kinds := make(map[int]*columnKind, columns)
	for i := 0; i < columns; i++ {
		kinds[i] = nil
	}

	for checked, row := range rows[1:] {
		if checked > sniffHeaderRows {
			break
		}
		if len(row) != columns {
			continue
		}
		for col, current := range kinds {
			kind := &columnKind{numeric: true}
			if !isNumberLiteral(row[col]) {
				kind = &columnKind{length: utf8.RuneCountInString(row[col])}
			}
			switch {
			case current == nil:
				kinds[col] = kind
			case *current != *kind:
				delete(kinds, col)
			}
		}
	}

	votes := 0
	for col, kind := range kinds {
		if kind == nil {
			continue
		}
		var differs bool
		if kind.numeric {
			differs = !isNumberLiteral(header[col])
		} else {
			differs = utf8.RuneCountInString(header[col]) != kind.length
		}
		if differs {
			votes++
		} else {
			votes--
		}
	}

	return votes > 0
}

// isNumberLiteral accepts real and complex literals such as "3", "-1.5e3",
// "inf" or "1+2j".
func isNumberLiteral(s string) bool {
	s = strings.TrimFunc(s, unicode.IsSpace)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if s == "" {
		return false
	}
	if last := s[len(s)-1]; last == 'j' || last == 'J' {
		s = s[:len(s)-1] + "i"
		if s == "i" || s == "+i" || s == "-i" {
			s = strings.Replace(s, "i", "1i", 1)
		}
	}
	_, err := strconv.ParseComplex(s, 128)
	return err == nil
}
