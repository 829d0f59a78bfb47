package segmentation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hippovol/internal/models"
	"hippovol/pkg/analyze"
)

func testVolume() *models.Volume {
	vol := models.NewVolume(4, 4, 4, models.VoxelSize{X: 1, Y: 1, Z: 1})
	for i := range vol.Data {
		vol.Data[i] = float64(i % 7)
	}
	return vol
}

// writeFakeTool writes an executable shell script standing in for an
// external model.
func writeFakeTool(t *testing.T, dir, name, script string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755); err != nil {
		t.Fatalf("Failed to write fake tool: %v", err)
	}
	return path
}

// TestExtractBrainMissingTool verifies that an unavailable command maps to
// the adapter's error type rather than aborting.
func TestExtractBrainMissingTool(t *testing.T) {
	segmenter := NewToolSegmenter(ToolConfig{
		BrainTool:       "/nonexistent/brain_extract",
		HippocampusTool: "/nonexistent/hippo_segment",
	})

	_, _, err := segmenter.ExtractBrain(testVolume())
	var segErr *Error
	if !errors.As(err, &segErr) {
		t.Fatalf("Expected *Error, got %v", err)
	}
	if segErr.Stage != "brain-extraction" {
		t.Errorf("Expected brain-extraction stage, got %s", segErr.Stage)
	}
}

// TestExtractBrainCapturesStderr verifies that a failing model's diagnostic
// output ends up in the error reason.
func TestExtractBrainCapturesStderr(t *testing.T) {
	dir, err := os.MkdirTemp("", "segmentation_test")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(dir)

	tool := writeFakeTool(t, dir, "brain_extract",
		"echo 'incompatible input dimensions' >&2\nexit 1\n")
	segmenter := NewToolSegmenter(ToolConfig{BrainTool: tool, WorkDir: dir})

	_, _, err = segmenter.ExtractBrain(testVolume())
	var segErr *Error
	if !errors.As(err, &segErr) {
		t.Fatalf("Expected *Error, got %v", err)
	}
	if !strings.Contains(segErr.Reason, "incompatible input dimensions") {
		t.Errorf("Expected stderr in reason, got: %s", segErr.Reason)
	}
}

// TestExtractBrainRoundTrip verifies the file plumbing with a fake model
// that emits prepared artifacts.
func TestExtractBrainRoundTrip(t *testing.T) {
	dir, err := os.MkdirTemp("", "segmentation_test")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(dir)

	vol := testVolume()

	brainFixture := filepath.Join(dir, "brain_fixture.nii.gz")
	if err := analyze.WriteNIfTI(brainFixture, vol); err != nil {
		t.Fatalf("Failed to write brain fixture: %v", err)
	}

	mask := models.NewMask(4, 4, 4)
	mask.Set(1, 1, 1, models.LabelLeft)
	maskFixture := filepath.Join(dir, "mask_fixture.nii.gz")
	if err := analyze.WriteMask(maskFixture, mask, vol.VoxelSize); err != nil {
		t.Fatalf("Failed to write mask fixture: %v", err)
	}

	// Invocation is: tool -i input -o brain -m mask
	tool := writeFakeTool(t, dir, "brain_extract",
		fmt.Sprintf("cp %s \"$4\"\ncp %s \"$6\"\n", brainFixture, maskFixture))
	segmenter := NewToolSegmenter(ToolConfig{BrainTool: tool, WorkDir: dir})

	brain, brainMask, err := segmenter.ExtractBrain(vol)
	if err != nil {
		t.Fatalf("ExtractBrain failed: %v", err)
	}
	if brain.Width != 4 || brain.Height != 4 || brain.Depth != 4 {
		t.Errorf("Unexpected brain dimensions: %dx%dx%d", brain.Width, brain.Height, brain.Depth)
	}
	if brainMask.Count(models.LabelLeft) != 1 {
		t.Errorf("Expected 1 labeled voxel in mask, got %d", brainMask.Count(models.LabelLeft))
	}
}

// TestSegmentHippocampusGeometryMismatch verifies that a model emitting a
// mask of the wrong shape is reported as a segmentation error.
func TestSegmentHippocampusGeometryMismatch(t *testing.T) {
	dir, err := os.MkdirTemp("", "segmentation_test")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(dir)

	wrongMask := models.NewMask(2, 2, 2)
	wrongFixture := filepath.Join(dir, "wrong_fixture.nii.gz")
	if err := analyze.WriteMask(wrongFixture, wrongMask, models.VoxelSize{X: 1, Y: 1, Z: 1}); err != nil {
		t.Fatalf("Failed to write mask fixture: %v", err)
	}

	// Invocation is: tool -i input -o labels
	tool := writeFakeTool(t, dir, "hippo_segment",
		fmt.Sprintf("cp %s \"$4\"\n", wrongFixture))
	segmenter := NewToolSegmenter(ToolConfig{HippocampusTool: tool, WorkDir: dir})

	_, err = segmenter.SegmentHippocampus(testVolume())
	var segErr *Error
	if !errors.As(err, &segErr) {
		t.Fatalf("Expected *Error, got %v", err)
	}
	if segErr.Stage != "hippocampus" || !strings.Contains(segErr.Reason, "geometry") {
		t.Errorf("Expected hippocampus geometry error, got: %v", segErr)
	}
}

// TestErrorFormat verifies the error string names the failed stage.
func TestErrorFormat(t *testing.T) {
	err := &Error{Stage: "hippocampus", Reason: "bad input"}
	expected := "segmentation failed at hippocampus: bad input"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
}
