// Package analyze reads and writes the volumetric image formats used by the
// study data and the external models: Analyze 7.5 image/header pairs
// (.img/.hdr) and NIfTI-1 single files (.nii, .nii.gz). NIfTI-1 shares the
// 348-byte Analyze header layout, so one codec covers both.
package analyze

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"hippovol/internal/models"
)

// headerSize is the fixed size of an Analyze 7.5 / NIfTI-1 header in bytes.
const headerSize = 348

// niftiVoxOffset is the standard data offset for single-file NIfTI-1.
const niftiVoxOffset = 352

// Voxel datatype codes shared by Analyze 7.5 and NIfTI-1.
const (
	dtUint8   = 2
	dtInt16   = 4
	dtInt32   = 8
	dtFloat32 = 16
	dtFloat64 = 64
)

// header mirrors the on-disk Analyze 7.5 / NIfTI-1 header byte layout.
// Field names follow the NIfTI-1 reference definition.
type header struct {
	SizeofHdr     int32
	DataTypeName  [10]byte
	DBName        [18]byte
	Extents       int32
	SessionError  int16
	Regular       byte
	DimInfo       byte
	Dim           [8]int16
	IntentP1      float32
	IntentP2      float32
	IntentP3      float32
	IntentCode    int16
	Datatype      int16
	Bitpix        int16
	SliceStart    int16
	Pixdim        [8]float32
	VoxOffset     float32
	SclSlope      float32
	SclInter      float32
	SliceEnd      int16
	SliceCode     byte
	XyztUnits     byte
	CalMax        float32
	CalMin        float32
	SliceDuration float32
	Toffset       float32
	Glmax         int32
	Glmin         int32
	Descrip       [80]byte
	AuxFile       [24]byte
	QformCode     int16
	SformCode     int16
	QuaternB      float32
	QuaternC      float32
	QuaternD      float32
	QoffsetX      float32
	QoffsetY      float32
	QoffsetZ      float32
	SrowX         [4]float32
	SrowY         [4]float32
	SrowZ         [4]float32
	IntentName    [16]byte
	Magic         [4]byte
}

// decodeHeader parses a header from raw bytes, detecting byte order from the
// sizeof_hdr field (348 in the file's native order).
func decodeHeader(raw []byte) (header, binary.ByteOrder, error) {
	if len(raw) < headerSize {
		return header{}, nil, fmt.Errorf("header too short: %d bytes, need %d", len(raw), headerSize)
	}

	var hdr header
	orders := []binary.ByteOrder{binary.LittleEndian, binary.BigEndian}
	for _, order := range orders {
		if err := binary.Read(bytes.NewReader(raw[:headerSize]), order, &hdr); err != nil {
			return header{}, nil, fmt.Errorf("failed to decode header: %v", err)
		}
		if hdr.SizeofHdr == headerSize {
			return hdr, order, nil
		}
	}

	return header{}, nil, fmt.Errorf("not an Analyze/NIfTI header: sizeof_hdr is %d", hdr.SizeofHdr)
}

// dims extracts and validates the 3D grid dimensions from the header.
func (h *header) dims() (nx, ny, nz int, err error) {
	if h.Dim[0] < 3 {
		return 0, 0, 0, fmt.Errorf("expected at least 3 dimensions, header declares %d", h.Dim[0])
	}
	nx, ny, nz = int(h.Dim[1]), int(h.Dim[2]), int(h.Dim[3])
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return 0, 0, 0, fmt.Errorf("non-positive grid dimensions %dx%dx%d", nx, ny, nz)
	}
	return nx, ny, nz, nil
}

// spacing extracts the voxel spacing in mm from the header pixdim field.
func (h *header) spacing() models.VoxelSize {
	return models.VoxelSize{
		X: float64(h.Pixdim[1]),
		Y: float64(h.Pixdim[2]),
		Z: float64(h.Pixdim[3]),
	}
}

// readAllMaybeGzip reads the whole file, transparently decompressing when the
// path carries a .gz suffix.
func readAllMaybeGzip(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %v", err)
		}
		defer gz.Close()
		reader = gz
	}

	return io.ReadAll(reader)
}

// decodeVoxels converts raw voxel bytes to float64 intensities according to
// the header datatype and byte order.
func decodeVoxels(raw []byte, count int, datatype int16, order binary.ByteOrder) ([]float64, error) {
	bytesPer := map[int16]int{dtUint8: 1, dtInt16: 2, dtInt32: 4, dtFloat32: 4, dtFloat64: 8}
	size, ok := bytesPer[datatype]
	if !ok {
		return nil, fmt.Errorf("unsupported voxel datatype %d", datatype)
	}
	if len(raw) < count*size {
		return nil, fmt.Errorf("image data truncated: have %d bytes, need %d", len(raw), count*size)
	}

	data := make([]float64, count)
	for i := 0; i < count; i++ {
		off := i * size
		switch datatype {
		case dtUint8:
			data[i] = float64(raw[off])
		case dtInt16:
			data[i] = float64(int16(order.Uint16(raw[off:])))
		case dtInt32:
			data[i] = float64(int32(order.Uint32(raw[off:])))
		case dtFloat32:
			data[i] = float64(math.Float32frombits(order.Uint32(raw[off:])))
		case dtFloat64:
			data[i] = math.Float64frombits(order.Uint64(raw[off:]))
		}
	}
	return data, nil
}

// ReadPair loads an Analyze 7.5 volume from its paired image and header files.
func ReadPair(imgPath, hdrPath string) (*models.Volume, error) {
	rawHdr, err := readAllMaybeGzip(hdrPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read header %s: %v", hdrPath, err)
	}
	hdr, order, err := decodeHeader(rawHdr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse header %s: %v", hdrPath, err)
	}

	nx, ny, nz, err := hdr.dims()
	if err != nil {
		return nil, fmt.Errorf("bad header %s: %v", hdrPath, err)
	}

	rawImg, err := readAllMaybeGzip(imgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %v", imgPath, err)
	}
	data, err := decodeVoxels(rawImg, nx*ny*nz, hdr.Datatype, order)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %v", imgPath, err)
	}

	return &models.Volume{
		Data:      data,
		Width:     nx,
		Height:    ny,
		Depth:     nz,
		VoxelSize: hdr.spacing(),
	}, nil
}

// ReadNIfTI loads a single-file NIfTI-1 volume (.nii or .nii.gz).
func ReadNIfTI(path string) (*models.Volume, error) {
	raw, err := readAllMaybeGzip(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %v", path, err)
	}
	hdr, order, err := decodeHeader(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %v", path, err)
	}

	nx, ny, nz, err := hdr.dims()
	if err != nil {
		return nil, fmt.Errorf("bad header in %s: %v", path, err)
	}

	offset := int(hdr.VoxOffset)
	if offset < headerSize {
		offset = niftiVoxOffset
	}
	if offset > len(raw) {
		return nil, fmt.Errorf("image data truncated in %s: offset %d beyond %d bytes", path, offset, len(raw))
	}

	data, err := decodeVoxels(raw[offset:], nx*ny*nz, hdr.Datatype, order)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %v", path, err)
	}

	return &models.Volume{
		Data:      data,
		Width:     nx,
		Height:    ny,
		Depth:     nz,
		VoxelSize: hdr.spacing(),
	}, nil
}

// ReadMask loads a NIfTI-1 file as a labeled segmentation mask. Voxel values
// are rounded to the nearest integer label.
func ReadMask(path string) (*models.Mask, error) {
	vol, err := ReadNIfTI(path)
	if err != nil {
		return nil, err
	}

	mask := models.NewMask(vol.Width, vol.Height, vol.Depth)
	for i, v := range vol.Data {
		label := math.Round(v)
		if label < 0 || label > 255 {
			return nil, fmt.Errorf("voxel %d in %s is not a label value: %f", i, path, v)
		}
		mask.Data[i] = uint8(label)
	}
	return mask, nil
}

// newNIfTIHeader builds a minimal valid single-file NIfTI-1 header.
func newNIfTIHeader(width, height, depth int, spacing models.VoxelSize, datatype, bitpix int16) header {
	var hdr header
	hdr.SizeofHdr = headerSize
	hdr.Regular = 'r'
	hdr.Dim = [8]int16{3, int16(width), int16(height), int16(depth), 1, 1, 1, 1}
	hdr.Datatype = datatype
	hdr.Bitpix = bitpix
	hdr.Pixdim = [8]float32{1, float32(spacing.X), float32(spacing.Y), float32(spacing.Z), 0, 0, 0, 0}
	hdr.VoxOffset = niftiVoxOffset
	hdr.SclSlope = 1
	hdr.Magic = [4]byte{'n', '+', '1', 0}
	return hdr
}

// writeNIfTIFile encodes a header plus raw voxel payload, gzip-compressed
// when the path carries a .gz suffix.
func writeNIfTIFile(path string, hdr header, payload []byte) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %v", path, err)
	}
	defer file.Close()

	var writer io.Writer = file
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(file)
		defer gz.Close()
		writer = gz
	}

	if err := binary.Write(writer, binary.LittleEndian, hdr); err != nil {
		return fmt.Errorf("failed to write header: %v", err)
	}
	// Pad header to the 352-byte data offset
	if _, err := writer.Write(make([]byte, niftiVoxOffset-headerSize)); err != nil {
		return fmt.Errorf("failed to write header padding: %v", err)
	}
	if _, err := writer.Write(payload); err != nil {
		return fmt.Errorf("failed to write voxel data: %v", err)
	}

	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("failed to finish gzip stream: %v", err)
		}
	}
	return nil
}

// WriteNIfTI saves a volume as single-file NIfTI-1 with float32 voxels,
// gzip-compressed when the path ends in .gz.
func WriteNIfTI(path string, vol *models.Volume) error {
	hdr := newNIfTIHeader(vol.Width, vol.Height, vol.Depth, vol.VoxelSize, dtFloat32, 32)

	payload := make([]byte, len(vol.Data)*4)
	for i, v := range vol.Data {
		binary.LittleEndian.PutUint32(payload[i*4:], math.Float32bits(float32(v)))
	}

	return writeNIfTIFile(path, hdr, payload)
}

// WriteMask saves a labeled mask as single-file NIfTI-1 with uint8 voxels,
// gzip-compressed when the path ends in .gz. The spacing is taken from the
// source volume the mask was derived from.
func WriteMask(path string, mask *models.Mask, spacing models.VoxelSize) error {
	hdr := newNIfTIHeader(mask.Width, mask.Height, mask.Depth, spacing, dtUint8, 8)
	return writeNIfTIFile(path, hdr, mask.Data)
}
