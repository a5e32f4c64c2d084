package evaluate

import "math"

// Bin is one equal-width confidence interval. Intervals are closed on the
// left; the last one is also closed on the right so a confidence of 1 lands in it.
type Bin struct {
	Lower          float64
	Upper          float64
	Count          int
	Correct        int
	MeanConfidence float64
	Accuracy       float64
	Gap            float64
}

// Calibration holds the expected calibration error and its per-bin breakdown.
type Calibration struct {
	ECE  float64
	Bins []Bin
}

// Calibrate computes the expected calibration error over n equal-width bins:
// the population-weighted mean of |accuracy - mean confidence| across
// non-empty bins.
func Calibrate(pairs []Pair, n int) Calibration {
	bins := make([]Bin, n)
	sums := make([]float64, n)
	for i := range bins {
		bins[i].Lower = float64(i) / float64(n)
		bins[i].Upper = float64(i+1) / float64(n)
	}
	for _, p := range pairs {
		i := binIndex(p.Confidence, n)
		bins[i].Count++
		sums[i] += p.Confidence
		if p.Correct() {
			bins[i].Correct++
		}
	}

	var cal Calibration
	total := float64(len(pairs))
	for i := range bins {
		b := &bins[i]
		if b.Count == 0 {
			continue
		}
		b.MeanConfidence = sums[i] / float64(b.Count)
		b.Accuracy = float64(b.Correct) / float64(b.Count)
		b.Gap = math.Abs(b.Accuracy - b.MeanConfidence)
		cal.ECE += b.Gap * float64(b.Count) / total
	}
	cal.Bins = bins
	return cal
}

// binIndex places c in [0,1] into one of n bins whose lower edges are i/n.
// Edges are compared directly so that, say, 0.3 lands in [0.3, 0.4).
func binIndex(c float64, n int) int {
	if c <= 0 || math.IsNaN(c) {
		return 0
	}
	if c >= 1 {
		return n - 1
	}
	i := int(c * float64(n))
	if i+1 < n && float64(i+1)/float64(n) <= c {
		i++
	}
	if i > 0 && float64(i)/float64(n) > c {
		i--
	}
	if i >= n {
		i = n - 1
	}
	return i
}
