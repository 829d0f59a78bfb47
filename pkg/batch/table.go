package batch

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"hippovol/internal/models"
)

// VolumeTableName is the filename of the final volume table, kept stable for
// downstream consumers.
const VolumeTableName = "hippocampus_volumes_all.csv"

// WriteVolumeTable writes the accumulated measurements as CSV with the stable
// column contract. Failed rows carry empty volume fields.
func WriteVolumeTable(path string, measurements []models.VolumeMeasurement) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %v", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create volume table: %v", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := []string{
		"scan_name", "patient_id", "session", "status",
		"left_cm3", "right_cm3", "total_cm3", "voxel_size_mm",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write volume table header: %v", err)
	}

	for _, m := range measurements {
		row := []string{
			m.ScanName,
			m.PatientID,
			strconv.Itoa(m.Session),
			string(m.Status),
			"", "", "", "",
		}
		if m.Status == models.StatusSuccess {
			row[4] = strconv.FormatFloat(m.LeftCM3, 'f', 2, 64)
			row[5] = strconv.FormatFloat(m.RightCM3, 'f', 2, 64)
			row[6] = strconv.FormatFloat(m.TotalCM3, 'f', 2, 64)
		}
		if m.VoxelSize.X > 0 {
			row[7] = m.VoxelSize.String()
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write volume row for %s: %v", m.ScanName, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush volume table: %v", err)
	}
	return nil
}
