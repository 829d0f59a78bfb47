// Package segmentation defines the boundary to the external deep-learning
// models used by the pipeline: the brain-extraction network and the
// hippocampus segmentation model (HippMapp3r). The models themselves are
// opaque collaborators; this package only owns the input/output contract and
// the plumbing to invoke them.
package segmentation

import (
	"fmt"

	"hippovol/internal/models"
)

// Error reports that an external model could not process a volume. This is
// the dominant real-world failure mode: the models place undocumented
// constraints on input geometry and reject incompatible dimensions.
type Error struct {
	// Stage names the model that failed: "brain-extraction" or "hippocampus"
	Stage string

	// Reason describes the failure
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("segmentation failed at %s: %s", e.Stage, e.Reason)
}

// Segmenter is the capability interface the core pipeline depends on.
// Both operations are blocking calls with non-deterministic latency; any
// internal parallelism of the models is opaque to the caller.
type Segmenter interface {
	// ExtractBrain returns the input restricted to brain tissue along with
	// the binary brain mask. Fails with *Error when the model cannot process
	// the input's geometry.
	ExtractBrain(vol *models.Volume) (*models.Volume, *models.Mask, error)

	// SegmentHippocampus returns a labeled mask with values in {0,1,2}
	// (background, left, right) matching the geometry of the input.
	// Same failure class as ExtractBrain.
	SegmentHippocampus(brain *models.Volume) (*models.Mask, error)
}
