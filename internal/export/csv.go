package export

import (
	"encoding/csv"
	"io"

	"trico-scraper/internal/domain"
)

// WriteRecordsCSV writes one row per record. The header is columns when given,
// otherwise every key seen across records in first-seen order. Missing fields
// are written as empty cells; multi-line values stay quoted in a single cell.
func WriteRecordsCSV(w io.Writer, records []domain.CourseRecord, columns ...string) error {
	header := columns
	if len(header) == 0 {
		header = domain.UnionKeys(records)
	}

	cw := csv.NewWriter(w)
	// match spreadsheet imports
	cw.UseCRLF = true

	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for _, r := range records {
		for i, key := range header {
			row[i], _ = r.Get(key)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
