package core

import (
	"strings"

	"github.com/google/uuid"
)

// BuildRecords maps rows onto schema fields.
//
// The first row is discarded when headerPresent is set and more than one
// row exists. Empty rows are counted and skipped. Each record gets exactly
// one value per schema field; cells beyond the field count are not written.
// When a row has more cells than fields and tagOverflow is set, its last
// cell is split on whitespace into tags.
func BuildRecords(rows []Row, schema Schema, headerPresent, tagOverflow bool) ([]Record, int) {
	first := 0
	if headerPresent && len(rows) > 1 {
		first = 1
	}

	nFields := schema.FieldCount()
	records := make([]Record, 0, len(rows)-first)
	skipped := 0

	for i := first; i < len(rows); i++ {
		row := rows[i]
		if row.IsEmpty() {
			skipped++
			continue
		}

		fields := make([]string, nFields)
		for j := 0; j < min(len(row), nFields); j++ {
			fields[j] = strings.TrimSpace(row[j])
		}

		rec := Record{
			GUID:     uuid.NewString(),
			SchemaID: schema.ID,
			Fields:   fields,
			Line:     i + 1,
		}
		if tagOverflow && len(row) > nFields {
			rec.Tags = strings.Fields(row[len(row)-1])
		}
		records = append(records, rec)
	}

	return records, skipped
}
