// Package batch runs the volumetric measurement pipeline over a scan
// inventory: per scan it invokes the external segmentation models, computes
// hippocampal volumes, and accumulates one measurement row per attempt.
// Progress is checkpointed at fixed intervals so an interrupted run resumes
// without reprocessing.
package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"hippovol/internal/models"
	"hippovol/pkg/analyze"
	"hippovol/pkg/checkpoint"
	"hippovol/pkg/segmentation"
	"hippovol/pkg/volume"
)

// DefaultCheckpointInterval is the number of scans between checkpoint writes.
const DefaultCheckpointInterval = 50

// Params holds the batch run configuration.
type Params struct {
	// Inventory is the ordered list of scans to process
	Inventory []models.ScanRecord

	// Segmenter is the boundary to the external models
	Segmenter segmentation.Segmenter

	// LoadVolume reads one scan from disk. Nil means the Analyze 7.5
	// pair reader.
	LoadVolume func(models.ScanRecord) (*models.Volume, error)

	// BrainDir and MaskDir receive the per-scan intermediate artifacts
	// ({scan}_brain.nii.gz, {scan}_hippo.nii.gz). Empty disables the writes.
	BrainDir string
	MaskDir  string

	// CheckpointPath is where progress snapshots are written.
	// Empty disables checkpointing.
	CheckpointPath string

	// CheckpointInterval is the number of scans between snapshots.
	// Zero means DefaultCheckpointInterval.
	CheckpointInterval int

	// Resume loads an existing checkpoint before processing, skipping scans
	// already attempted.
	Resume bool
}

// Summary is the observable outcome of a run.
type Summary struct {
	// Attempted is the total number of scans attempted across restarts
	Attempted int

	// Succeeded and Failed partition the attempted scans
	Succeeded int
	Failed    int

	// Resumed is how many scans were restored from the checkpoint this run
	Resumed int

	// Checkpoints is how many snapshots this run wrote
	Checkpoints int

	// Elapsed is this run's wall-clock duration
	Elapsed time.Duration
}

// Runner executes the batch. It exclusively owns the checkpoint state and the
// accumulated measurements for the duration of a run; there is no concurrent
// writer.
type Runner struct {
	params *Params
	state  *checkpoint.State
}

// NewRunner creates a runner for the given parameters.
func NewRunner(params *Params) *Runner {
	return &Runner{params: params}
}

// Measurements returns the accumulated rows in inventory order.
func (r *Runner) Measurements() []models.VolumeMeasurement {
	if r.state == nil {
		return nil
	}
	return r.state.Measurements
}

// Run processes every scan in the inventory exactly once across restarts.
// A single scan's failure is never fatal: it is recorded with a failed status
// and the run continues. Only setup problems abort the run.
func (r *Runner) Run() (*Summary, error) {
	start := time.Now()
	summary := &Summary{}

	if err := r.prepare(summary); err != nil {
		return nil, err
	}

	interval := r.params.CheckpointInterval
	if interval <= 0 {
		interval = DefaultCheckpointInterval
	}

	total := len(r.params.Inventory)
	done := summary.Resumed
	sinceCheckpoint := 0

	for _, rec := range r.params.Inventory {
		if r.state.Processed(rec.ScanName) {
			continue
		}

		m := r.processScan(rec)
		r.state.Record(m)

		done++
		sinceCheckpoint++
		fmt.Printf("\rProcessing scans: %d/%d (%.1f%%)", done, total, float64(done)/float64(total)*100)

		if r.params.CheckpointPath != "" && sinceCheckpoint >= interval {
			if err := checkpoint.Save(r.params.CheckpointPath, r.state); err != nil {
				return nil, fmt.Errorf("failed to write checkpoint: %v", err)
			}
			summary.Checkpoints++
			sinceCheckpoint = 0
		}
	}
	if total > 0 {
		fmt.Println()
	}

	// Final snapshot marks the batch as complete for any later re-run
	if r.params.CheckpointPath != "" {
		if err := checkpoint.Save(r.params.CheckpointPath, r.state); err != nil {
			return nil, fmt.Errorf("failed to write final checkpoint: %v", err)
		}
		summary.Checkpoints++
	}

	for _, m := range r.state.Measurements {
		summary.Attempted++
		if m.Status == models.StatusSuccess {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	summary.Elapsed = time.Since(start)

	return summary, nil
}

// prepare restores checkpoint state and creates the artifact directories.
func (r *Runner) prepare(summary *Summary) error {
	r.state = checkpoint.New()

	if r.params.Resume && r.params.CheckpointPath != "" {
		state, err := checkpoint.Load(r.params.CheckpointPath)
		switch {
		case err == nil:
			r.state = state
			summary.Resumed = len(state.ProcessedScans)
			fmt.Printf("Resuming from checkpoint: %d scans already processed\n", summary.Resumed)
		case os.IsNotExist(err):
			// No prior run, start fresh
		default:
			return fmt.Errorf("failed to load checkpoint: %v", err)
		}
	}

	for _, dir := range []string{r.params.BrainDir, r.params.MaskDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create artifact directory: %v", err)
		}
	}
	return nil
}

// processScan attempts one scan and always produces a measurement row.
// Every error along the chain (scan I/O, either model, volume extraction)
// downgrades to a failed row.
func (r *Runner) processScan(rec models.ScanRecord) models.VolumeMeasurement {
	m := models.VolumeMeasurement{
		ScanName:  rec.ScanName,
		PatientID: rec.PatientID,
		Session:   rec.Session,
		Status:    models.StatusFailed,
	}

	load := r.params.LoadVolume
	if load == nil {
		load = func(rec models.ScanRecord) (*models.Volume, error) {
			return analyze.ReadPair(rec.ImagePath, rec.HeaderPath)
		}
	}

	vol, err := load(rec)
	if err != nil {
		fmt.Printf("\n%s: failed to read scan: %v\n", rec.ScanName, err)
		return m
	}
	m.VoxelSize = vol.VoxelSize

	brain, _, err := r.params.Segmenter.ExtractBrain(vol)
	if err != nil {
		fmt.Printf("\n%s: %v\n", rec.ScanName, err)
		return m
	}
	if r.params.BrainDir != "" {
		path := filepath.Join(r.params.BrainDir, rec.ScanName+"_brain.nii.gz")
		if err := analyze.WriteNIfTI(path, brain); err != nil {
			fmt.Printf("\nWarning: %s: failed to save brain volume: %v\n", rec.ScanName, err)
		}
	}

	labels, err := r.params.Segmenter.SegmentHippocampus(brain)
	if err != nil {
		fmt.Printf("\n%s: %v\n", rec.ScanName, err)
		return m
	}
	if r.params.MaskDir != "" {
		path := filepath.Join(r.params.MaskDir, rec.ScanName+"_hippo.nii.gz")
		if err := analyze.WriteMask(path, labels, vol.VoxelSize); err != nil {
			fmt.Printf("\nWarning: %s: failed to save segmentation mask: %v\n", rec.ScanName, err)
		}
	}

	meas, err := volume.Compute(labels, vol.VoxelSize)
	if err != nil {
		fmt.Printf("\n%s: %v\n", rec.ScanName, err)
		return m
	}

	m.Status = models.StatusSuccess
	m.LeftCM3 = meas.LeftCM3
	m.RightCM3 = meas.RightCM3
	m.TotalCM3 = meas.TotalCM3
	return m
}
