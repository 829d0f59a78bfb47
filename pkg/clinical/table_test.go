package clinical

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hippovol/internal/models"
)

func writeClinicalCSV(t *testing.T, content string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "clinical_test")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "clinical.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write clinical CSV: %v", err)
	}
	return path
}

// TestLoadTableParsesRows verifies header-driven parsing with columns in a
// non-canonical order.
func TestLoadTableParsesRows(t *testing.T) {
	path := writeClinicalCSV(t,
		"age,subject_id,mmse,group,cdr\n"+
			"74,0001,29,Nondemented,0\n"+
			"81,0002,21,Demented,1\n")

	table, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("Expected 2 rows, got %d", table.Len())
	}

	row, ok := table.Lookup("0002")
	if !ok {
		t.Fatal("Expected patient 0002 in table")
	}
	if row.Group != "Demented" || row.CDR != 1 || row.MMSE != 21 || row.Age != 81 {
		t.Errorf("Unexpected row for 0002: %+v", row)
	}
}

// TestLoadTableMissingColumn verifies that an absent required column is a
// hard error.
func TestLoadTableMissingColumn(t *testing.T) {
	path := writeClinicalCSV(t, "patient_id,group,cdr,age\n0001,Demented,1,80\n")

	if _, err := LoadTable(path); err == nil {
		t.Error("Expected error for table without mmse column")
	} else if !strings.Contains(err.Error(), "mmse") {
		t.Errorf("Expected error to name the missing column, got: %v", err)
	}
}

// TestLoadTableBadValue verifies that an unparsable numeric field fails with
// the line number.
func TestLoadTableBadValue(t *testing.T) {
	path := writeClinicalCSV(t,
		"patient_id,group,cdr,mmse,age\n"+
			"0001,Demented,n/a,21,80\n")

	if _, err := LoadTable(path); err == nil {
		t.Error("Expected error for non-numeric cdr value")
	} else if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("Expected error to name line 2, got: %v", err)
	}
}

// TestNormalizePadsShortIDs verifies zero-padding against the table's own
// identifier width.
func TestNormalizePadsShortIDs(t *testing.T) {
	path := writeClinicalCSV(t,
		"patient_id,group,cdr,mmse,age\n"+
			"0042,Nondemented,0,30,70\n")

	table, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}

	if got := table.Normalize("42"); got != "0042" {
		t.Errorf("Expected 42 to normalize to 0042, got %s", got)
	}
	if got := table.Normalize("0042"); got != "0042" {
		t.Errorf("Expected 0042 to stay unchanged, got %s", got)
	}
	if _, ok := table.Lookup("42"); !ok {
		t.Error("Expected lookup with unpadded id to find the row")
	}
}

func measurement(patient string, session int, total float64, status models.Status) models.VolumeMeasurement {
	return models.VolumeMeasurement{
		ScanName:  patient + "_MR1",
		PatientID: patient,
		Session:   session,
		Status:    status,
		LeftCM3:   total / 2,
		RightCM3:  total / 2,
		TotalCM3:  total,
	}
}

// TestMergeDropsUnmatchedPatients verifies the inner-join behavior: scans
// without a clinical entry silently disappear from the merged rows.
func TestMergeDropsUnmatchedPatients(t *testing.T) {
	path := writeClinicalCSV(t,
		"patient_id,group,cdr,mmse,age\n"+
			"0002,Demented,1,20,78\n")

	table, err := LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable failed: %v", err)
	}

	merged := Merge([]models.VolumeMeasurement{
		measurement("0001", 1, 4.5, models.StatusSuccess),
		measurement("0002", 1, 3.1, models.StatusSuccess),
	}, table)

	if len(merged) != 1 {
		t.Fatalf("Expected 1 merged row, got %d", len(merged))
	}
	if merged[0].PatientID != "0002" || merged[0].Group != "Demented" {
		t.Errorf("Unexpected merged row: %+v", merged[0])
	}
}

// TestWriteMergedTable verifies the CSV contract including empty volume
// fields for failed scans.
func TestWriteMergedTable(t *testing.T) {
	dir, err := os.MkdirTemp("", "merged_test")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(dir)

	ok := measurement("0001", 1, 4.77, models.StatusSuccess)
	ok.VoxelSize = models.VoxelSize{X: 1, Y: 1, Z: 1.25}
	failed := measurement("0002", 1, 0, models.StatusFailed)

	rows := []MergedRow{
		{VolumeMeasurement: ok, Group: "Nondemented", CDR: 0, MMSE: 30, Age: 71},
		{VolumeMeasurement: failed, Group: "Demented", CDR: 1, MMSE: 19, Age: 83},
	}

	path := filepath.Join(dir, "merged.csv")
	if err := WriteMergedTable(path, rows); err != nil {
		t.Fatalf("WriteMergedTable failed: %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read merged table: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d lines", len(lines))
	}

	if !strings.HasPrefix(lines[0], "scan_name,patient_id,session,status") {
		t.Errorf("Unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "4.77") || !strings.Contains(lines[1], "1.00x1.00x1.25") {
		t.Errorf("Expected volume and voxel size on success row, got: %s", lines[1])
	}
	if !strings.Contains(lines[2], ",failed,,,,") {
		t.Errorf("Expected empty volume fields on failed row, got: %s", lines[2])
	}
	if !strings.Contains(lines[2], "Demented,1.0,19,83") {
		t.Errorf("Expected clinical columns on failed row, got: %s", lines[2])
	}
}
