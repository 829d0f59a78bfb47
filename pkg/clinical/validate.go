package clinical

import (
	"fmt"
	"sort"

	"hippovol/internal/models"
)

// Finding is one entry of the validation battery: a named test over the
// merged dataset with its sample size and result.
type Finding struct {
	Name   string
	N      int
	Result TestResult
}

// String formats a finding for the run summary.
func (f Finding) String() string {
	return fmt.Sprintf("%-48s n=%-4d stat=%8.3f p=%.4f", f.Name, f.N, f.Result.Statistic, f.Result.PValue)
}

// Validate runs the standard battery against the merged dataset: rank and
// linear correlations of total hippocampal volume with the clinical
// measures, plus group comparisons. Only successful measurements enter the
// tests.
func Validate(rows []MergedRow) []Finding {
	var totals, cdrs, mmses, ages []float64
	byGroup := make(map[string][]float64)

	for _, r := range rows {
		if r.Status != models.StatusSuccess {
			continue
		}
		totals = append(totals, r.TotalCM3)
		cdrs = append(cdrs, r.CDR)
		mmses = append(mmses, r.MMSE)
		ages = append(ages, r.Age)
		byGroup[r.Group] = append(byGroup[r.Group], r.TotalCM3)
	}

	n := len(totals)
	findings := []Finding{
		{Name: "Total volume vs CDR (Spearman)", N: n, Result: Spearman(totals, cdrs)},
		{Name: "Total volume vs MMSE (Pearson)", N: n, Result: Pearson(totals, mmses)},
		{Name: "Total volume vs age (Pearson)", N: n, Result: Pearson(totals, ages)},
	}

	groups := make([]string, 0, len(byGroup))
	for name := range byGroup {
		groups = append(groups, name)
	}
	// Largest groups first, name as tiebreaker for determinism
	sort.Slice(groups, func(i, j int) bool {
		if len(byGroup[groups[i]]) != len(byGroup[groups[j]]) {
			return len(byGroup[groups[i]]) > len(byGroup[groups[j]])
		}
		return groups[i] < groups[j]
	})

	if len(groups) >= 2 {
		a, b := groups[0], groups[1]
		findings = append(findings, Finding{
			Name:   fmt.Sprintf("Total volume: %s vs %s (Welch t-test)", a, b),
			N:      len(byGroup[a]) + len(byGroup[b]),
			Result: Welch(byGroup[a], byGroup[b]),
		})
	}
	if len(groups) >= 3 {
		all := make([][]float64, len(groups))
		for i, name := range groups {
			all[i] = byGroup[name]
		}
		findings = append(findings, Finding{
			Name:   "Total volume across groups (ANOVA)",
			N:      n,
			Result: ANOVA(all),
		})
	}

	return findings
}
