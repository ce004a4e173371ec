package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseRows tokenizes the body into rows using delim.
//
// Blank lines are kept as empty rows so callers can count them as skipped;
// encoding/csv drops them, so the gaps are recovered from record positions.
// Rows may have differing widths and stray quotes are accepted.
func ParseRows(content string, delim rune) ([]Row, error) {
	if !IsSupportedDelimiter(delim) {
		return nil, fmt.Errorf("%w: unsupported delimiter %q", ErrDetection, delim)
	}

	r := newReader(content, delim)

	var (
		rows    []Row
		newline int   // newlines consumed so far
		prevOff int64 // input offset after the previous record
		next    = 1   // line on which the next record would start
	)

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse row %d: %w", len(rows)+1, err)
		}

		start, _ := r.FieldPos(0)
		for ; next < start; next++ {
			rows = append(rows, Row{})
		}
		rows = append(rows, Row(rec))

		off := r.InputOffset()
		newline += strings.Count(content[prevOff:off], "\n")
		prevOff = off
		next = newline + 1
	}

	for i := strings.Count(content[prevOff:], "\n"); i > 0; i-- {
		rows = append(rows, Row{})
	}

	return rows, nil
}

// RowCount tokenizes the full content with delim and counts rows,
// including the header if there is one.
func RowCount(content string, delim rune) (int, error) {
	rows, err := ParseRows(content, delim)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// NonEmptyRows filters out rows whose cells are all blank.
func NonEmptyRows(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if !r.IsEmpty() {
			out = append(out, r)
		}
	}
	return out
}

func newReader(content string, delim rune) *csv.Reader {
	r := csv.NewReader(strings.NewReader(content))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r
}
