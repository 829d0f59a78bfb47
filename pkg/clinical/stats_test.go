package clinical

import (
	"math"
	"testing"
)

// TestPearsonPerfectLinear verifies r=1 and p=0 for an exact linear relation.
func TestPearsonPerfectLinear(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 6, 8, 10}

	res := Pearson(x, y)
	if math.Abs(res.Statistic-1.0) > 1e-9 {
		t.Errorf("Expected r=1 for perfect linear relation, got %f", res.Statistic)
	}
	if res.PValue > 1e-9 {
		t.Errorf("Expected p=0 for perfect correlation, got %f", res.PValue)
	}
}

// TestPearsonNegative verifies the sign of a decreasing relation.
func TestPearsonNegative(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}
	y := []float64{9.8, 8.1, 7.4, 5.2, 4.4, 2.9}

	res := Pearson(x, y)
	if res.Statistic >= 0 {
		t.Errorf("Expected negative correlation, got %f", res.Statistic)
	}
	if res.PValue <= 0 || res.PValue >= 0.05 {
		t.Errorf("Expected small positive p-value for a strong relation, got %f", res.PValue)
	}
}

// TestSpearmanMonotonic verifies rho=1 for a nonlinear but strictly
// increasing relation, where Pearson would be below 1.
func TestSpearmanMonotonic(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{1, 8, 27, 64, 125}

	res := Spearman(x, y)
	if math.Abs(res.Statistic-1.0) > 1e-9 {
		t.Errorf("Expected rho=1 for monotonic relation, got %f", res.Statistic)
	}
}

// TestSpearmanTies verifies that tied values receive averaged ranks instead
// of breaking the computation.
func TestSpearmanTies(t *testing.T) {
	x := []float64{1, 2, 2, 3}
	y := []float64{10, 20, 20, 30}

	res := Spearman(x, y)
	if math.Abs(res.Statistic-1.0) > 1e-9 {
		t.Errorf("Expected rho=1 with consistent ties, got %f", res.Statistic)
	}
}

// TestRanksAveragesTies verifies the rank transform directly.
func TestRanksAveragesTies(t *testing.T) {
	got := ranks([]float64{30, 10, 20, 20})
	expected := []float64{4, 1, 2.5, 2.5}

	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Rank %d: expected %f, got %f", i, expected[i], got[i])
		}
	}
}

// TestWelchIdenticalSamples verifies t=0 and p close to 1 when the samples
// share a mean.
func TestWelchIdenticalSamples(t *testing.T) {
	a := []float64{4.1, 4.5, 4.9, 4.3, 4.7}
	res := Welch(a, a)

	if math.Abs(res.Statistic) > 1e-9 {
		t.Errorf("Expected t=0 for identical samples, got %f", res.Statistic)
	}
	if math.Abs(res.PValue-1.0) > 1e-9 {
		t.Errorf("Expected p=1 for identical samples, got %f", res.PValue)
	}
}

// TestWelchSeparatedSamples verifies a clearly significant separation.
func TestWelchSeparatedSamples(t *testing.T) {
	a := []float64{4.6, 4.8, 4.7, 4.9, 4.5}
	b := []float64{2.1, 2.3, 2.2, 2.0, 2.4}

	res := Welch(a, b)
	if res.Statistic <= 0 {
		t.Errorf("Expected positive t for larger first sample, got %f", res.Statistic)
	}
	if res.PValue >= 0.001 {
		t.Errorf("Expected very small p-value for separated samples, got %f", res.PValue)
	}
}

// TestWelchTooSmall verifies the undefined result for degenerate input.
func TestWelchTooSmall(t *testing.T) {
	res := Welch([]float64{1}, []float64{2, 3})
	if !math.IsNaN(res.Statistic) || !math.IsNaN(res.PValue) {
		t.Errorf("Expected NaN result for one-element sample, got %v", res)
	}
}

// TestANOVASeparatedGroups verifies a large F and small p when group means
// differ far beyond the within-group spread.
func TestANOVASeparatedGroups(t *testing.T) {
	groups := [][]float64{
		{4.5, 4.6, 4.7, 4.4},
		{3.0, 3.1, 2.9, 3.2},
		{1.5, 1.6, 1.4, 1.5},
	}

	res := ANOVA(groups)
	if res.Statistic < 10 {
		t.Errorf("Expected large F for separated groups, got %f", res.Statistic)
	}
	if res.PValue >= 0.001 {
		t.Errorf("Expected very small p-value, got %f", res.PValue)
	}
}

// TestANOVASimilarGroups verifies a modest F for overlapping groups.
func TestANOVASimilarGroups(t *testing.T) {
	groups := [][]float64{
		{4.1, 4.6, 4.3, 4.8},
		{4.2, 4.7, 4.4, 4.5},
	}

	res := ANOVA(groups)
	if res.PValue < 0.1 {
		t.Errorf("Expected non-significant p-value for similar groups, got %f", res.PValue)
	}
}
