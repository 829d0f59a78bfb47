// Package clinical joins volume measurements with the study's clinical
// attributes table and runs the statistical validation battery against
// dementia measures.
package clinical

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"hippovol/internal/models"
)

// Row is one patient's clinical attributes.
type Row struct {
	PatientID string
	Group     string
	CDR       float64
	MMSE      float64
	Age       float64
}

// Table is the clinical attributes table keyed by patient identifier.
type Table struct {
	rows    map[string]Row
	idWidth int
}

// columnAliases maps accepted header spellings to canonical column names.
var columnAliases = map[string]string{
	"patient_id": "patient_id",
	"subject_id": "patient_id",
	"group":      "group",
	"cdr":        "cdr",
	"mmse":       "mmse",
	"age":        "age",
}

// LoadTable reads the clinical attributes CSV. The header must carry a
// patient identifier, diagnostic group, dementia rating (CDR), cognitive
// test score (MMSE) and age, in any column order.
func LoadTable(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open clinical table: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse clinical table: %v", err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("clinical table %s is empty", path)
	}

	columns := make(map[string]int)
	for i, name := range records[0] {
		key := strings.ToLower(strings.TrimSpace(name))
		if canonical, ok := columnAliases[key]; ok {
			columns[canonical] = i
		}
	}
	for _, required := range []string{"patient_id", "group", "cdr", "mmse", "age"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("clinical table %s is missing column %q", path, required)
		}
	}

	table := &Table{rows: make(map[string]Row, len(records)-1)}
	for lineNo, record := range records[1:] {
		id := strings.TrimSpace(record[columns["patient_id"]])
		if id == "" {
			continue
		}

		row := Row{
			PatientID: id,
			Group:     strings.TrimSpace(record[columns["group"]]),
		}
		for _, field := range []struct {
			name string
			dst  *float64
		}{
			{"cdr", &row.CDR},
			{"mmse", &row.MMSE},
			{"age", &row.Age},
		} {
			raw := strings.TrimSpace(record[columns[field.name]])
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("clinical table %s line %d: bad %s value %q",
					path, lineNo+2, field.name, raw)
			}
			*field.dst = value
		}

		table.rows[id] = row
		if len(id) > table.idWidth {
			table.idWidth = len(id)
		}
	}

	return table, nil
}

// Normalize zero-pads a patient identifier to the table's convention.
func (t *Table) Normalize(patientID string) string {
	if len(patientID) >= t.idWidth {
		return patientID
	}
	return strings.Repeat("0", t.idWidth-len(patientID)) + patientID
}

// Lookup returns the clinical row for a (possibly unpadded) patient id.
func (t *Table) Lookup(patientID string) (Row, bool) {
	row, ok := t.rows[t.Normalize(patientID)]
	return row, ok
}

// Len returns the number of clinical rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// MergedRow is one volume measurement joined with its clinical attributes.
type MergedRow struct {
	models.VolumeMeasurement
	Group string
	CDR   float64
	MMSE  float64
	Age   float64
}

// Merge inner-joins the measurements with the clinical table on the
// normalized patient identifier. Measurements without a matching clinical
// entry are dropped from the merged output; they remain in the standalone
// volume table, so the only trace is a reduced merged-row count.
func Merge(measurements []models.VolumeMeasurement, table *Table) []MergedRow {
	merged := make([]MergedRow, 0, len(measurements))
	for _, m := range measurements {
		row, ok := table.Lookup(m.PatientID)
		if !ok {
			continue
		}
		merged = append(merged, MergedRow{
			VolumeMeasurement: m,
			Group:             row.Group,
			CDR:               row.CDR,
			MMSE:              row.MMSE,
			Age:               row.Age,
		})
	}
	return merged
}

// WriteMergedTable writes the joined rows as CSV: the volume table columns
// followed by the clinical attributes.
func WriteMergedTable(path string, rows []MergedRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %v", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create merged table: %v", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := []string{
		"scan_name", "patient_id", "session", "status",
		"left_cm3", "right_cm3", "total_cm3", "voxel_size_mm",
		"group", "cdr", "mmse", "age",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write merged header: %v", err)
	}

	for _, r := range rows {
		record := []string{
			r.ScanName,
			r.PatientID,
			strconv.Itoa(r.Session),
			string(r.Status),
			"", "", "", "",
			r.Group,
			strconv.FormatFloat(r.CDR, 'f', 1, 64),
			strconv.FormatFloat(r.MMSE, 'f', 0, 64),
			strconv.FormatFloat(r.Age, 'f', 0, 64),
		}
		if r.Status == models.StatusSuccess {
			record[4] = strconv.FormatFloat(r.LeftCM3, 'f', 2, 64)
			record[5] = strconv.FormatFloat(r.RightCM3, 'f', 2, 64)
			record[6] = strconv.FormatFloat(r.TotalCM3, 'f', 2, 64)
		}
		if r.VoxelSize.X > 0 {
			record[7] = r.VoxelSize.String()
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write merged row for %s: %v", r.ScanName, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush merged table: %v", err)
	}
	return nil
}
