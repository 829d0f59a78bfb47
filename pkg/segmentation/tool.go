package segmentation

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"hippovol/internal/models"
	"hippovol/pkg/analyze"
)

// ToolConfig configures the external model command lines.
type ToolConfig struct {
	// BrainTool is the brain-extraction command. It is invoked as
	// <tool> -i <input.nii.gz> -o <brain.nii.gz> -m <mask.nii.gz>
	BrainTool string

	// HippocampusTool is the hippocampus segmentation command. It is invoked
	// as <tool> -i <brain.nii.gz> -o <labels.nii.gz>
	HippocampusTool string

	// WorkDir is where per-call scratch directories are created.
	// Empty means the system temp directory.
	WorkDir string
}

// ToolSegmenter invokes the pretrained models as external commands,
// exchanging volumes through temporary NIfTI files. The models remain black
// boxes; this type only owns the file plumbing around them.
type ToolSegmenter struct {
	cfg ToolConfig
}

// NewToolSegmenter creates a segmenter backed by the configured commands.
func NewToolSegmenter(cfg ToolConfig) *ToolSegmenter {
	return &ToolSegmenter{cfg: cfg}
}

// run executes one model command, mapping any failure to the adapter's
// single documented error variant.
func (s *ToolSegmenter) run(stage string, tool string, args ...string) error {
	cmd := exec.Command(tool, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		reason := strings.TrimSpace(stderr.String())
		if reason == "" {
			reason = err.Error()
		}
		return &Error{Stage: stage, Reason: reason}
	}
	return nil
}

// ExtractBrain implements Segmenter using the configured brain-extraction command.
func (s *ToolSegmenter) ExtractBrain(vol *models.Volume) (*models.Volume, *models.Mask, error) {
	dir, err := os.MkdirTemp(s.cfg.WorkDir, "hippovol-brainx-*")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create scratch directory: %v", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.nii.gz")
	brainOut := filepath.Join(dir, "brain.nii.gz")
	maskOut := filepath.Join(dir, "mask.nii.gz")

	if err := analyze.WriteNIfTI(input, vol); err != nil {
		return nil, nil, fmt.Errorf("failed to stage input volume: %v", err)
	}

	if err := s.run("brain-extraction", s.cfg.BrainTool, "-i", input, "-o", brainOut, "-m", maskOut); err != nil {
		return nil, nil, err
	}

	brain, err := analyze.ReadNIfTI(brainOut)
	if err != nil {
		return nil, nil, &Error{Stage: "brain-extraction", Reason: fmt.Sprintf("unreadable output: %v", err)}
	}
	mask, err := analyze.ReadMask(maskOut)
	if err != nil {
		return nil, nil, &Error{Stage: "brain-extraction", Reason: fmt.Sprintf("unreadable mask: %v", err)}
	}
	if !mask.MatchesGeometry(vol) {
		return nil, nil, &Error{
			Stage: "brain-extraction",
			Reason: fmt.Sprintf("mask geometry %dx%dx%d does not match input %dx%dx%d",
				mask.Width, mask.Height, mask.Depth, vol.Width, vol.Height, vol.Depth),
		}
	}

	return brain, mask, nil
}

// SegmentHippocampus implements Segmenter using the configured hippocampus model.
func (s *ToolSegmenter) SegmentHippocampus(brain *models.Volume) (*models.Mask, error) {
	dir, err := os.MkdirTemp(s.cfg.WorkDir, "hippovol-hippo-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %v", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "brain.nii.gz")
	labelsOut := filepath.Join(dir, "labels.nii.gz")

	if err := analyze.WriteNIfTI(input, brain); err != nil {
		return nil, fmt.Errorf("failed to stage brain volume: %v", err)
	}

	if err := s.run("hippocampus", s.cfg.HippocampusTool, "-i", input, "-o", labelsOut); err != nil {
		return nil, err
	}

	mask, err := analyze.ReadMask(labelsOut)
	if err != nil {
		return nil, &Error{Stage: "hippocampus", Reason: fmt.Sprintf("unreadable labels: %v", err)}
	}
	if !mask.MatchesGeometry(brain) {
		return nil, &Error{
			Stage: "hippocampus",
			Reason: fmt.Sprintf("label geometry %dx%dx%d does not match input %dx%dx%d",
				mask.Width, mask.Height, mask.Depth, brain.Width, brain.Height, brain.Depth),
		}
	}

	return mask, nil
}
