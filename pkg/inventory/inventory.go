// Package inventory discovers the study's scans on disk. A scan is a paired
// image/header file whose basename follows the study naming convention
// <PREFIX>_<patientID>_MR<session>, e.g. OAS2_0001_MR1.img + OAS2_0001_MR1.hdr.
package inventory

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"hippovol/internal/models"
)

// Options controls scan discovery.
type Options struct {
	// StudyPrefix is the study identifier in scan basenames, e.g. "OAS2"
	StudyPrefix string

	// ImageExt and HeaderExt are the extensions of the paired files
	ImageExt  string
	HeaderExt string
}

// DefaultOptions returns the discovery settings for the study layout.
func DefaultOptions() Options {
	return Options{
		StudyPrefix: "OAS2",
		ImageExt:    ".img",
		HeaderExt:   ".hdr",
	}
}

// Build walks the directory tree under root and produces the ordered list of
// discoverable scans. Entries whose header pair is missing are logged and
// excluded: absence of a file is an expected data-collection artifact, not a
// programming error. A missing or unreadable root is a fatal configuration
// error returned to the caller.
func Build(root string, opts Options) ([]models.ScanRecord, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("input directory is not readable: %v", err)
	}

	pattern, err := regexp.Compile(
		fmt.Sprintf(`^%s_(\d+)_MR(\d+)$`, regexp.QuoteMeta(opts.StudyPrefix)))
	if err != nil {
		return nil, fmt.Errorf("bad study prefix %q: %v", opts.StudyPrefix, err)
	}

	var records []models.ScanRecord
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), opts.ImageExt) {
			return nil
		}

		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		match := pattern.FindStringSubmatch(base)
		if match == nil {
			return nil
		}

		session, err := strconv.Atoi(match[2])
		if err != nil || session < 1 {
			return nil
		}

		headerPath := strings.TrimSuffix(path, filepath.Ext(path)) + opts.HeaderExt
		if _, err := os.Stat(headerPath); err != nil {
			fmt.Printf("Warning: skipping %s: header file not found\n", base)
			return nil
		}

		records = append(records, models.ScanRecord{
			PatientID:  match[1],
			Session:    session,
			ScanName:   fmt.Sprintf("%s_MR%d", match[1], session),
			ImagePath:  path,
			HeaderPath: headerPath,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk input directory: %v", err)
	}

	// Deterministic downstream processing: patient ascending, then session
	sort.Slice(records, func(i, j int) bool {
		if records[i].PatientID != records[j].PatientID {
			return records[i].PatientID < records[j].PatientID
		}
		return records[i].Session < records[j].Session
	})

	return records, nil
}
