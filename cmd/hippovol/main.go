package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"hippovol/internal/models"
	"hippovol/pkg/analyze"
	"hippovol/pkg/batch"
	"hippovol/pkg/clinical"
	"hippovol/pkg/config"
	"hippovol/pkg/inventory"
	"hippovol/pkg/longitudinal"
	"hippovol/pkg/segmentation"
	"hippovol/pkg/visualization"
)

// LongitudinalTableName is the file name of the per-patient change table.
const LongitudinalTableName = "hippocampus_longitudinal.csv"

// MergedTableName is the file name of the volume and clinical join.
const MergedTableName = "hippocampus_volumes_clinical.csv"

func main() {
	// Parse command line arguments
	inputDir := flag.String("input", "", "Directory containing the study scans")
	outputDir := flag.String("output", "results", "Directory for tables, artifacts and reports")
	clinicalPath := flag.String("clinical", "", "Clinical attributes CSV for merge and validation")
	configPath := flag.String("config", "hippovol.yaml", "Configuration file path")
	createConfig := flag.Bool("create-config", false, "Write the default configuration file and exit")
	checkpointInterval := flag.Int("checkpoint-interval", 0, "Scans between checkpoint saves (0: use config)")
	noResume := flag.Bool("no-resume", false, "Ignore any existing checkpoint and start fresh")
	qcViews := flag.Bool("qc-views", false, "Render quality-control overlays for every successful scan")
	htmlReport := flag.Bool("report", false, "Render the study HTML report")
	flag.Parse()

	if *createConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to create config file: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	// Validate inputs
	if *inputDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("================================")
	fmt.Println("HIPPOCAMPAL VOLUME PIPELINE")
	fmt.Println("Batch segmentation and longitudinal volumetry for structural MRI studies")
	fmt.Println("================================")

	// Step 1: discover the scans
	fmt.Println("\nStep 1: Building scan inventory...")
	records, err := inventory.Build(*inputDir, inventory.Options{
		StudyPrefix: cfg.Study.Prefix,
		ImageExt:    cfg.Study.ImageExt,
		HeaderExt:   cfg.Study.HeaderExt,
	})
	if err != nil {
		log.Fatalf("Inventory failed: %v", err)
	}
	fmt.Printf("Found %d scans under %s\n", len(records), *inputDir)

	// Step 2: run the checkpointed batch
	fmt.Println("\nStep 2: Processing scans...")
	interval := cfg.Batch.CheckpointInterval
	if *checkpointInterval > 0 {
		interval = *checkpointInterval
	}

	brainDir, maskDir := "", ""
	if cfg.Output.SaveArtifacts {
		brainDir = filepath.Join(*outputDir, "artifacts", "brain")
		maskDir = filepath.Join(*outputDir, "artifacts", "mask")
	}

	segmenter := segmentation.NewToolSegmenter(segmentation.ToolConfig{
		BrainTool:       cfg.Segmentation.BrainTool,
		HippocampusTool: cfg.Segmentation.HippocampusTool,
		WorkDir:         cfg.Segmentation.WorkDir,
	})

	runner := batch.NewRunner(&batch.Params{
		Inventory:          records,
		Segmenter:          segmenter,
		BrainDir:           brainDir,
		MaskDir:            maskDir,
		CheckpointPath:     filepath.Join(*outputDir, "checkpoint.json"),
		CheckpointInterval: interval,
		Resume:             cfg.Batch.Resume && !*noResume,
	})

	summary, err := runner.Run()
	if err != nil {
		log.Fatalf("Batch run failed: %v", err)
	}
	measurements := runner.Measurements()

	// Step 3: write the volume table
	fmt.Println("\nStep 3: Writing volume table...")
	volumePath := filepath.Join(*outputDir, "volumes", batch.VolumeTableName)
	if err := batch.WriteVolumeTable(volumePath, measurements); err != nil {
		log.Fatalf("Failed to write volume table: %v", err)
	}
	fmt.Printf("Volume table saved to: %s\n", volumePath)

	// Step 4: longitudinal aggregation
	fmt.Println("\nStep 4: Aggregating longitudinal change...")
	longRecords := longitudinal.Aggregate(measurements)
	longPath := filepath.Join(*outputDir, "volumes", LongitudinalTableName)
	if err := longitudinal.WriteTable(longPath, longRecords); err != nil {
		log.Fatalf("Failed to write longitudinal table: %v", err)
	}
	fmt.Printf("Longitudinal table saved to: %s (%d patients with repeat scans)\n",
		longPath, len(longRecords))

	// Step 5: clinical merge and validation
	var merged []clinical.MergedRow
	if *clinicalPath != "" {
		fmt.Println("\nStep 5: Merging clinical attributes...")
		table, err := clinical.LoadTable(*clinicalPath)
		if err != nil {
			log.Fatalf("Failed to load clinical table: %v", err)
		}

		merged = clinical.Merge(measurements, table)
		mergedPath := filepath.Join(*outputDir, "volumes", MergedTableName)
		if err := clinical.WriteMergedTable(mergedPath, merged); err != nil {
			log.Fatalf("Failed to write merged table: %v", err)
		}
		fmt.Printf("Merged %d of %d measurements against %d clinical rows\n",
			len(merged), len(measurements), table.Len())

		fmt.Println("\nValidation against clinical measures:")
		fmt.Println("=====================================")
		for _, finding := range clinical.Validate(merged) {
			fmt.Println(finding)
		}
	}

	// Step 6: quality-control overlays from the saved artifacts
	if *qcViews {
		if brainDir == "" {
			log.Println("Warning: QC views need saved artifacts; enable output.saveArtifacts")
		} else {
			fmt.Println("\nStep 6: Rendering quality-control views...")
			qcDir := filepath.Join(*outputDir, "qc")
			rendered := 0
			for _, m := range measurements {
				if m.Status != models.StatusSuccess {
					continue
				}
				if err := renderQCViews(brainDir, maskDir, qcDir, m.ScanName); err != nil {
					log.Printf("Warning: QC views for %s: %v", m.ScanName, err)
					continue
				}
				rendered++
			}
			fmt.Printf("Rendered QC views for %d scans to: %s\n", rendered, qcDir)
		}
	}

	// Step 7: HTML report
	if *htmlReport {
		fmt.Println("\nStep 7: Rendering HTML report...")
		if err := visualization.WriteReport(*outputDir, measurements, merged); err != nil {
			log.Fatalf("Failed to write report: %v", err)
		}
		fmt.Printf("Report saved to: %s\n", filepath.Join(*outputDir, visualization.ReportName))
	}

	fmt.Printf("\nRun completed in %.2f seconds\n", summary.Elapsed.Seconds())
	fmt.Println("\nBatch summary:")
	fmt.Println("==============")
	fmt.Printf("Scans attempted: %d\n", summary.Attempted)
	fmt.Printf("Succeeded: %d\n", summary.Succeeded)
	fmt.Printf("Failed: %d\n", summary.Failed)
	fmt.Printf("Restored from checkpoint: %d\n", summary.Resumed)
	fmt.Printf("Checkpoints written: %d\n", summary.Checkpoints)
}

// renderQCViews loads one scan's saved artifacts and writes its best-slice
// overlays.
func renderQCViews(brainDir, maskDir, qcDir, scanName string) error {
	brain, err := analyze.ReadNIfTI(filepath.Join(brainDir, scanName+"_brain.nii.gz"))
	if err != nil {
		return fmt.Errorf("failed to load brain artifact: %v", err)
	}
	mask, err := analyze.ReadMask(filepath.Join(maskDir, scanName+"_hippo.nii.gz"))
	if err != nil {
		return fmt.Errorf("failed to load mask artifact: %v", err)
	}

	viewer, err := visualization.NewViewer(brain, mask)
	if err != nil {
		return err
	}
	return viewer.SaveBestViews(qcDir, scanName)
}
