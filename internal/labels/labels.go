package labels

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
)

// Record is one row of the label table after deduplication.
type Record struct {
	SubjectID string
	Target    int
}

// row mirrors the raw CSV columns. The bounding-box fields exist in the
// source table but play no part in classification.
type row struct {
	PatientID string  `csv:"patientId"`
	X         float64 `csv:"x,omitempty"`
	Y         float64 `csv:"y,omitempty"`
	Width     float64 `csv:"width,omitempty"`
	Height    float64 `csv:"height,omitempty"`
	Target    int     `csv:"Target"`
}

// Load reads the label table and returns one record per subject. Subjects
// with multiple rows (one per annotated bounding box) collapse to their
// first occurrence; input order is preserved.
func Load(path string) ([]Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open label table: %w", err)
	}
	defer file.Close()

	var rows []row
	if err := gocsv.Unmarshal(file, &rows); err != nil {
		return nil, fmt.Errorf("parse label table: %w", err)
	}

	records := make([]Record, 0, len(rows))
	for _, r := range rows {
		records = append(records, Record{SubjectID: r.PatientID, Target: r.Target})
	}
	return Dedupe(records), nil
}

// Dedupe keeps the first record per subject identifier, preserving order.
func Dedupe(records []Record) []Record {
	seen := make(map[string]struct{}, len(records))
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if _, ok := seen[rec.SubjectID]; ok {
			continue
		}
		seen[rec.SubjectID] = struct{}{}
		out = append(out, rec)
	}
	return out
}
