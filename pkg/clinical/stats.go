package clinical

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// TestResult is the outcome of one statistical hypothesis test. The tests
// retain no state between calls.
type TestResult struct {
	Statistic float64
	PValue    float64
}

// undefinedResult is returned when a sample is too small for the test.
func undefinedResult() TestResult {
	return TestResult{Statistic: math.NaN(), PValue: math.NaN()}
}

// Welch runs Welch's two-sample t-test for a difference in means between
// independent samples with possibly unequal variances.
func Welch(a, b []float64) TestResult {
	if len(a) < 2 || len(b) < 2 {
		return undefinedResult()
	}

	n1, n2 := float64(len(a)), float64(len(b))
	m1, m2 := stat.Mean(a, nil), stat.Mean(b, nil)
	v1, v2 := stat.Variance(a, nil), stat.Variance(b, nil)

	se2 := v1/n1 + v2/n2
	if se2 == 0 {
		return undefinedResult()
	}

	t := (m1 - m2) / math.Sqrt(se2)

	// Welch–Satterthwaite degrees of freedom
	df := se2 * se2 / ((v1*v1)/(n1*n1*(n1-1)) + (v2*v2)/(n2*n2*(n2-1)))

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return TestResult{
		Statistic: t,
		PValue:    2 * dist.CDF(-math.Abs(t)),
	}
}

// ANOVA runs a one-way analysis of variance across two or more groups.
func ANOVA(groups [][]float64) TestResult {
	k := len(groups)
	if k < 2 {
		return undefinedResult()
	}

	var n int
	var grandSum float64
	for _, g := range groups {
		if len(g) < 2 {
			return undefinedResult()
		}
		n += len(g)
		for _, v := range g {
			grandSum += v
		}
	}
	grandMean := grandSum / float64(n)

	var ssBetween, ssWithin float64
	for _, g := range groups {
		mean := stat.Mean(g, nil)
		diff := mean - grandMean
		ssBetween += float64(len(g)) * diff * diff
		for _, v := range g {
			d := v - mean
			ssWithin += d * d
		}
	}

	dfBetween := float64(k - 1)
	dfWithin := float64(n - k)
	if ssWithin == 0 {
		return undefinedResult()
	}

	f := (ssBetween / dfBetween) / (ssWithin / dfWithin)
	dist := distuv.F{D1: dfBetween, D2: dfWithin}
	return TestResult{
		Statistic: f,
		PValue:    1 - dist.CDF(f),
	}
}

// Pearson computes the Pearson correlation coefficient between paired
// samples and its two-sided p-value.
func Pearson(x, y []float64) TestResult {
	n := len(x)
	if n != len(y) || n < 3 {
		return undefinedResult()
	}

	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) {
		return undefinedResult()
	}

	return TestResult{Statistic: r, PValue: correlationPValue(r, n)}
}

// Spearman computes the Spearman rank correlation between paired samples and
// its two-sided p-value. Ties receive the average of their ranks.
func Spearman(x, y []float64) TestResult {
	n := len(x)
	if n != len(y) || n < 3 {
		return undefinedResult()
	}

	r := stat.Correlation(ranks(x), ranks(y), nil)
	if math.IsNaN(r) {
		return undefinedResult()
	}

	return TestResult{Statistic: r, PValue: correlationPValue(r, n)}
}

// correlationPValue derives the two-sided p-value of a correlation
// coefficient via the t-distribution with n-2 degrees of freedom.
func correlationPValue(r float64, n int) float64 {
	if math.Abs(r) >= 1 {
		return 0
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * dist.CDF(-math.Abs(t))
}

// ranks returns the 1-based ranks of the values, averaging tied ranks.
func ranks(values []float64) []float64 {
	n := len(values)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return values[order[i]] < values[order[j]]
	})

	result := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && values[order[j+1]] == values[order[i]] {
			j++
		}
		// Average rank for the tie run i..j
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			result[order[k]] = avg
		}
		i = j + 1
	}
	return result
}
