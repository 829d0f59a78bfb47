package models

// ScanRecord is one discovered scan: a paired image/header file on disk,
// identified by patient and session following the study naming convention.
type ScanRecord struct {
	// PatientID is the fixed-width zero-padded numeric identifier, e.g. "0001"
	PatientID string

	// Session is the visit number within the longitudinal study, starting at 1
	Session int

	// ScanName is the canonical identifier composed as {PatientID}_MR{Session}
	ScanName string

	// ImagePath and HeaderPath locate the paired raw image files
	ImagePath  string
	HeaderPath string
}

// Status is the outcome of one scan attempt.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// VolumeMeasurement is one scan's volumetric outcome. Volumes are zero and
// meaningless when Status is StatusFailed; the tabular writers emit them as
// empty fields in that case.
type VolumeMeasurement struct {
	ScanName  string    `json:"scan_name"`
	PatientID string    `json:"patient_id"`
	Session   int       `json:"session"`
	Status    Status    `json:"status"`
	LeftCM3   float64   `json:"left_cm3"`
	RightCM3  float64   `json:"right_cm3"`
	TotalCM3  float64   `json:"total_cm3"`
	VoxelSize VoxelSize `json:"voxel_size_mm"`
}

// LongitudinalRecord is one patient's change-over-time summary, derived from
// at least two successful measurements for the same patient. ChangePct is NaN
// when the baseline volume is zero.
type LongitudinalRecord struct {
	PatientID         string
	NSessions         int
	FirstSession      int
	LastSession       int
	FirstVolumeCM3    float64
	LastVolumeCM3     float64
	ChangeCM3         float64
	ChangePct         float64
	RateCM3PerSession float64
}
