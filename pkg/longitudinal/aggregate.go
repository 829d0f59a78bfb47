// Package longitudinal derives per-patient change-over-time summaries from
// the volume measurements. Records are recomputed fresh on every aggregation
// pass; the measurement table remains the only source of truth.
package longitudinal

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"hippovol/internal/models"
)

// Aggregate groups successful measurements by patient, orders each patient's
// sessions ascending, and derives baseline/follow-up deltas from the first
// and last sessions. Patients with fewer than two successful sessions are
// discarded. The percent change is NaN when the baseline volume is zero;
// that case should not occur given the extractor invariants but is guarded
// rather than left to raise a division error.
func Aggregate(measurements []models.VolumeMeasurement) []models.LongitudinalRecord {
	byPatient := make(map[string][]models.VolumeMeasurement)
	for _, m := range measurements {
		if m.Status != models.StatusSuccess {
			continue
		}
		byPatient[m.PatientID] = append(byPatient[m.PatientID], m)
	}

	patients := make([]string, 0, len(byPatient))
	for id, sessions := range byPatient {
		if len(sessions) < 2 {
			continue
		}
		patients = append(patients, id)
	}
	sort.Strings(patients)

	records := make([]models.LongitudinalRecord, 0, len(patients))
	for _, id := range patients {
		sessions := byPatient[id]
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].Session < sessions[j].Session
		})

		first := sessions[0]
		last := sessions[len(sessions)-1]

		rec := models.LongitudinalRecord{
			PatientID:      id,
			NSessions:      len(sessions),
			FirstSession:   first.Session,
			LastSession:    last.Session,
			FirstVolumeCM3: first.TotalCM3,
			LastVolumeCM3:  last.TotalCM3,
			ChangeCM3:      last.TotalCM3 - first.TotalCM3,
		}

		if first.TotalCM3 != 0 {
			rec.ChangePct = rec.ChangeCM3 / first.TotalCM3 * 100
		} else {
			rec.ChangePct = math.NaN()
		}

		if last.Session != first.Session {
			rec.RateCM3PerSession = rec.ChangeCM3 / float64(last.Session-first.Session)
		} else {
			rec.RateCM3PerSession = math.NaN()
		}

		records = append(records, rec)
	}

	return records
}

// WriteTable writes the longitudinal records as CSV with the stable column
// contract. Undefined percent changes are written as empty fields.
func WriteTable(path string, records []models.LongitudinalRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %v", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create longitudinal table: %v", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	header := []string{
		"patient_id", "n_sessions", "first_session", "last_session",
		"first_volume_cm3", "last_volume_cm3", "change_cm3", "change_pct",
		"rate_cm3_per_session",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write longitudinal header: %v", err)
	}

	format := func(v float64) string {
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', 2, 64)
	}

	for _, r := range records {
		row := []string{
			r.PatientID,
			strconv.Itoa(r.NSessions),
			strconv.Itoa(r.FirstSession),
			strconv.Itoa(r.LastSession),
			format(r.FirstVolumeCM3),
			format(r.LastVolumeCM3),
			format(r.ChangeCM3),
			format(r.ChangePct),
			format(r.RateCM3PerSession),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write longitudinal row for %s: %v", r.PatientID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush longitudinal table: %v", err)
	}
	return nil
}
