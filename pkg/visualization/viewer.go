// Package visualization renders quality-control views of segmented scans
// and the study-level HTML report.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"

	"hippovol/internal/models"
)

// Viewer renders 2D quality-control views of a brain volume with its
// hippocampal mask overlaid.
type Viewer struct {
	brain *models.Volume
	mask  *models.Mask

	// intensity window for grayscale normalization
	lo float64
	hi float64
}

// BestSlices holds the slice index with the largest hippocampal cross
// section along each anatomical axis.
type BestSlices struct {
	Axial    int
	Coronal  int
	Sagittal int
}

// NewViewer creates a viewer for a brain volume and its matching mask.
func NewViewer(brain *models.Volume, mask *models.Mask) (*Viewer, error) {
	if brain == nil || mask == nil {
		return nil, fmt.Errorf("viewer requires both a brain volume and a mask")
	}
	if !mask.MatchesGeometry(brain) {
		return nil, fmt.Errorf("mask dimensions %dx%dx%d do not match brain %dx%dx%d",
			mask.Width, mask.Height, mask.Depth, brain.Width, brain.Height, brain.Depth)
	}

	v := &Viewer{brain: brain, mask: mask}
	v.lo, v.hi = brain.Data[0], brain.Data[0]
	for _, value := range brain.Data {
		if value < v.lo {
			v.lo = value
		}
		if value > v.hi {
			v.hi = value
		}
	}
	return v, nil
}

// gray maps a raw intensity into the viewer's window.
func (v *Viewer) gray(value float64) uint8 {
	if v.hi == v.lo {
		return 0
	}
	norm := (value - v.lo) / (v.hi - v.lo)
	if norm < 0 {
		norm = 0
	} else if norm > 1 {
		norm = 1
	}
	return uint8(norm * 255)
}

// overlay colors a pixel from the brain intensity and the mask label. Left
// hippocampus renders red, right renders blue.
func (v *Viewer) overlay(x, y, z int) color.RGBA {
	g := v.gray(v.brain.At(x, y, z))
	switch v.mask.At(x, y, z) {
	case models.LabelLeft:
		return color.RGBA{R: 255, G: g / 3, B: g / 3, A: 255}
	case models.LabelRight:
		return color.RGBA{R: g / 3, G: g / 3, B: 255, A: 255}
	default:
		return color.RGBA{R: g, G: g, B: g, A: 255}
	}
}

// FindBestSlices locates the slice with the largest hippocampal cross
// section along each axis. Axial slices stack along y, coronal along x and
// sagittal along z.
func (v *Viewer) FindBestSlices() BestSlices {
	axial := make([]int, v.mask.Height)
	coronal := make([]int, v.mask.Width)
	sagittal := make([]int, v.mask.Depth)

	for z := 0; z < v.mask.Depth; z++ {
		for y := 0; y < v.mask.Height; y++ {
			for x := 0; x < v.mask.Width; x++ {
				if v.mask.At(x, y, z) != models.LabelBackground {
					axial[y]++
					coronal[x]++
					sagittal[z]++
				}
			}
		}
	}

	return BestSlices{
		Axial:    argmax(axial),
		Coronal:  argmax(coronal),
		Sagittal: argmax(sagittal),
	}
}

func argmax(counts []int) int {
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return best
}

// RenderView renders the overlay image for one anatomical view at the given
// slice position.
func (v *Viewer) RenderView(view string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	var img *image.RGBA

	switch view {
	case "axial":
		// Slice along the XZ plane at a fixed y
		if position >= v.brain.Height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, v.brain.Height)
		}
		img = image.NewRGBA(image.Rect(0, 0, v.brain.Width, v.brain.Depth))
		for z := 0; z < v.brain.Depth; z++ {
			for x := 0; x < v.brain.Width; x++ {
				img.SetRGBA(x, z, v.overlay(x, position, z))
			}
		}

	case "coronal":
		// Slice along the YZ plane at a fixed x
		if position >= v.brain.Width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, v.brain.Width)
		}
		img = image.NewRGBA(image.Rect(0, 0, v.brain.Depth, v.brain.Height))
		for y := 0; y < v.brain.Height; y++ {
			for z := 0; z < v.brain.Depth; z++ {
				img.SetRGBA(z, y, v.overlay(position, y, z))
			}
		}

	case "sagittal":
		// Slice along the XY plane at a fixed z
		if position >= v.brain.Depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, v.brain.Depth)
		}
		img = image.NewRGBA(image.Rect(0, 0, v.brain.Width, v.brain.Height))
		for y := 0; y < v.brain.Height; y++ {
			for x := 0; x < v.brain.Width; x++ {
				img.SetRGBA(x, y, v.overlay(x, y, position))
			}
		}

	default:
		return nil, fmt.Errorf("invalid view: %s (must be axial, coronal, or sagittal)", view)
	}

	return img, nil
}

// SaveView saves a rendered view as a JPEG image
func (v *Viewer) SaveView(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveBestViews renders the best axial, coronal and sagittal overlays and
// writes them as JPEGs named after the scan.
func (v *Viewer) SaveBestViews(outputDir, scanName string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	best := v.FindBestSlices()
	views := []struct {
		name     string
		position int
	}{
		{"axial", best.Axial},
		{"coronal", best.Coronal},
		{"sagittal", best.Sagittal},
	}

	for _, view := range views {
		img, err := v.RenderView(view.name, view.position)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("%s_%s.jpg", scanName, view.name))
		if err := v.SaveView(img, filename); err != nil {
			return err
		}
	}

	return nil
}
