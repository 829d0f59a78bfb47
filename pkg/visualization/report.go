package visualization

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"hippovol/internal/models"
	"hippovol/pkg/clinical"
)

// ReportName is the file name of the study HTML report.
const ReportName = "hippocampus_report.html"

// WriteReport renders the study-level HTML report: per-patient volume
// trajectories, group means and the volume against cognitive score scatter.
// Sections without data are skipped.
func WriteReport(outputDir string, measurements []models.VolumeMeasurement, merged []clinical.MergedRow) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %v", err)
	}

	page := components.NewPage()
	page.PageTitle = "Hippocampal Volume Report"

	if chart := buildTrajectoryChart(measurements); chart != nil {
		page.AddCharts(chart)
	}
	if len(merged) > 0 {
		page.AddCharts(buildGroupMeansChart(merged))
		page.AddCharts(buildCognitiveScatter(merged))
	}

	path := filepath.Join(outputDir, ReportName)
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %v", err)
	}
	defer file.Close()

	if err := page.Render(file); err != nil {
		return fmt.Errorf("failed to render report: %v", err)
	}
	return nil
}

// buildTrajectoryChart draws one line per patient with at least two
// successful sessions, total volume over session number.
func buildTrajectoryChart(measurements []models.VolumeMeasurement) *charts.Line {
	bySession := make(map[string]map[int]float64)
	maxSession := 0
	for _, m := range measurements {
		if m.Status != models.StatusSuccess {
			continue
		}
		if bySession[m.PatientID] == nil {
			bySession[m.PatientID] = make(map[int]float64)
		}
		bySession[m.PatientID][m.Session] = m.TotalCM3
		if m.Session > maxSession {
			maxSession = m.Session
		}
	}

	patients := make([]string, 0, len(bySession))
	for patient, sessions := range bySession {
		if len(sessions) >= 2 {
			patients = append(patients, patient)
		}
	}
	if len(patients) == 0 {
		return nil
	}
	sort.Strings(patients)

	labels := make([]string, maxSession)
	for s := 1; s <= maxSession; s++ {
		labels[s-1] = fmt.Sprintf("MR%d", s)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Volume Trajectories",
			Subtitle: "Total hippocampal volume per patient across sessions",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Session"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Volume (cm3)"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)
	line.SetXAxis(labels)

	for _, patient := range patients {
		data := make([]opts.LineData, maxSession)
		for s := 1; s <= maxSession; s++ {
			if total, ok := bySession[patient][s]; ok {
				data[s-1] = opts.LineData{Value: total}
			} else {
				data[s-1] = opts.LineData{Value: "-"}
			}
		}
		line.AddSeries(patient, data,
			charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false)}),
		)
	}

	return line
}

// buildGroupMeansChart draws the mean total volume per diagnostic group.
func buildGroupMeansChart(merged []clinical.MergedRow) *charts.Bar {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range merged {
		if r.Status != models.StatusSuccess {
			continue
		}
		sums[r.Group] += r.TotalCM3
		counts[r.Group]++
	}

	groups := make([]string, 0, len(sums))
	for name := range sums {
		groups = append(groups, name)
	}
	sort.Strings(groups)

	data := make([]opts.BarData, len(groups))
	for i, name := range groups {
		data[i] = opts.BarData{Value: sums[name] / float64(counts[name])}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Group Means",
			Subtitle: "Mean total hippocampal volume per diagnostic group",
		}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Volume (cm3)"}),
	)
	bar.SetXAxis(groups)
	bar.AddSeries("Mean volume", data)

	return bar
}

// buildCognitiveScatter plots total volume against the cognitive test score,
// one series per diagnostic group.
func buildCognitiveScatter(merged []clinical.MergedRow) *charts.Scatter {
	byGroup := make(map[string][]opts.ScatterData)
	for _, r := range merged {
		if r.Status != models.StatusSuccess {
			continue
		}
		byGroup[r.Group] = append(byGroup[r.Group], opts.ScatterData{
			Value:      []any{r.MMSE, r.TotalCM3},
			SymbolSize: 10,
		})
	}

	groups := make([]string, 0, len(byGroup))
	for name := range byGroup {
		groups = append(groups, name)
	}
	sort.Strings(groups)

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Volume vs MMSE",
			Subtitle: "Total hippocampal volume against cognitive score",
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "MMSE", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Volume (cm3)", Type: "value"}),
	)

	for _, name := range groups {
		scatter.AddSeries(name, byGroup[name])
	}

	return scatter
}
