package export

import (
	"encoding/json"
	"io"

	"trico-scraper/internal/domain"
)

// WriteRecordsJSON writes records as an indented JSON array, keeping each
// record's field order. A nil slice is written as [].
func WriteRecordsJSON(w io.Writer, records []domain.CourseRecord) error {
	if records == nil {
		records = []domain.CourseRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(records)
}
