package models

import "fmt"

// VoxelSize is the physical spacing of one voxel along each axis in millimeters.
type VoxelSize struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// String renders the spacing in the tabular output convention, e.g. "1.00x1.00x1.25".
func (v VoxelSize) String() string {
	return fmt.Sprintf("%.2fx%.2fx%.2f", v.X, v.Y, v.Z)
}

// Volume represents a 3D volumetric image.
type Volume struct {
	// Data is the voxel intensities as a 1D array in row-major order,
	// indexed as z*Width*Height + y*Width + x
	Data []float64

	// Width, Height and Depth are the grid dimensions in voxels
	Width  int
	Height int
	Depth  int

	// VoxelSize is the physical size of each voxel in mm
	VoxelSize VoxelSize
}

// NewVolume allocates a zero-filled volume with the given dimensions and spacing.
func NewVolume(width, height, depth int, spacing VoxelSize) *Volume {
	return &Volume{
		Data:      make([]float64, width*height*depth),
		Width:     width,
		Height:    height,
		Depth:     depth,
		VoxelSize: spacing,
	}
}

// At returns the intensity at the given voxel coordinates.
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[z*v.Width*v.Height+y*v.Width+x]
}

// Set stores the intensity at the given voxel coordinates.
func (v *Volume) Set(x, y, z int, value float64) {
	v.Data[z*v.Width*v.Height+y*v.Width+x] = value
}

// Hippocampus segmentation labels.
const (
	LabelBackground uint8 = 0
	LabelLeft       uint8 = 1
	LabelRight      uint8 = 2
)

// Mask represents a labeled segmentation mask matching the geometry of a volume.
// Values denote anatomical class membership per voxel.
type Mask struct {
	// Data is the label values as a 1D array in the same order as Volume.Data
	Data []uint8

	// Width, Height and Depth are the grid dimensions in voxels
	Width  int
	Height int
	Depth  int
}

// NewMask allocates a background-filled mask with the given dimensions.
func NewMask(width, height, depth int) *Mask {
	return &Mask{
		Data:   make([]uint8, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
}

// At returns the label at the given voxel coordinates.
func (m *Mask) At(x, y, z int) uint8 {
	return m.Data[z*m.Width*m.Height+y*m.Width+x]
}

// Set stores the label at the given voxel coordinates.
func (m *Mask) Set(x, y, z int, label uint8) {
	m.Data[z*m.Width*m.Height+y*m.Width+x] = label
}

// Count returns the number of voxels carrying the given label.
func (m *Mask) Count(label uint8) int {
	count := 0
	for _, v := range m.Data {
		if v == label {
			count++
		}
	}
	return count
}

// MatchesGeometry reports whether the mask has the same grid dimensions as the volume.
func (m *Mask) MatchesGeometry(v *Volume) bool {
	return m.Width == v.Width && m.Height == v.Height && m.Depth == v.Depth
}
