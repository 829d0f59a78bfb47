// Package volume computes hippocampal volumes from labeled segmentation masks.
// Volumes are expressed in cm³ using the physical voxel spacing of the scan.
package volume

import (
	"fmt"

	"hippovol/internal/models"
)

// InvalidMaskError reports a segmentation result with unexpected shape or
// label values. It is recoverable at the batch level: the affected scan is
// recorded as failed and the run continues.
type InvalidMaskError struct {
	Reason string
}

func (e *InvalidMaskError) Error() string {
	return fmt.Sprintf("invalid segmentation mask: %s", e.Reason)
}

// Measurement holds the left/right/total hippocampal volumes for one mask.
// Total is always the exact sum of Left and Right.
type Measurement struct {
	LeftCM3  float64
	RightCM3 float64
	TotalCM3 float64
}

// Compute derives the hippocampal volumes from a labeled mask and the voxel
// spacing in mm. The mask must carry only labels 0 (background), 1 (left) and
// 2 (right); one voxel contributes spacing.X*spacing.Y*spacing.Z/1000 cm³.
func Compute(mask *models.Mask, spacing models.VoxelSize) (Measurement, error) {
	if mask == nil {
		return Measurement{}, &InvalidMaskError{Reason: "nil mask"}
	}
	if mask.Width <= 0 || mask.Height <= 0 || mask.Depth <= 0 {
		return Measurement{}, &InvalidMaskError{
			Reason: fmt.Sprintf("non-positive dimensions %dx%dx%d", mask.Width, mask.Height, mask.Depth),
		}
	}
	if len(mask.Data) != mask.Width*mask.Height*mask.Depth {
		return Measurement{}, &InvalidMaskError{
			Reason: fmt.Sprintf("data length %d does not match dimensions %dx%dx%d",
				len(mask.Data), mask.Width, mask.Height, mask.Depth),
		}
	}
	if spacing.X <= 0 || spacing.Y <= 0 || spacing.Z <= 0 {
		return Measurement{}, &InvalidMaskError{
			Reason: fmt.Sprintf("non-positive voxel spacing %s", spacing),
		}
	}

	// Count labeled voxels in a single pass, rejecting unknown labels
	var leftVoxels, rightVoxels int
	for i, label := range mask.Data {
		switch label {
		case models.LabelBackground:
			// skip
		case models.LabelLeft:
			leftVoxels++
		case models.LabelRight:
			rightVoxels++
		default:
			return Measurement{}, &InvalidMaskError{
				Reason: fmt.Sprintf("unexpected label %d at voxel %d", label, i),
			}
		}
	}

	// Convert voxel counts to physical volume in cm³
	voxelCM3 := spacing.X * spacing.Y * spacing.Z / 1000.0
	m := Measurement{
		LeftCM3:  float64(leftVoxels) * voxelCM3,
		RightCM3: float64(rightVoxels) * voxelCM3,
	}
	m.TotalCM3 = m.LeftCM3 + m.RightCM3

	return m, nil
}
