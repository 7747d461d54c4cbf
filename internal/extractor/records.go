package extractor

import (
	"crypto/sha1"
	"encoding/hex"
)

// Record is one extracted product item: a flat field-to-value mapping exactly
// as rendered at scrape time.
type Record map[string]string

// BuildRecords zips header names with row cells. Cells beyond the header set
// are dropped, short rows simply produce smaller records, matching what the
// table actually rendered.
func BuildRecords(headers []string, rows [][]string) []Record {
	if len(rows) == 0 {
		return nil
	}

	records := make([]Record, 0, len(rows))
	for _, cells := range rows {
		record := Record{}
		for i, cell := range cells {
			if i >= len(headers) {
				break
			}
			record[headers[i]] = cell
		}
		records = append(records, record)
	}
	return records
}

// Fingerprint returns a stable digest of the rendered rows, used to detect
// whether pagination actually advanced and to skip pages already captured.
func Fingerprint(rows [][]string) string {
	h := sha1.New()
	for _, cells := range rows {
		for _, cell := range cells {
			h.Write([]byte(cell))
			h.Write([]byte{0x1f})
		}
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}
