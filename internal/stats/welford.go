// Package stats keeps running summaries over streams of values.
package stats

import "math"

// Welford accumulates count, mean and variance in one pass.
type Welford struct {
	Count int
	Mean  float64
	M2    float64
	Min   float64
	Max   float64
}

// Add folds x into the running summary.
func (w *Welford) Add(x float64) {
	w.Count++
	if w.Count == 1 {
		w.Min, w.Max = x, x
	} else {
		w.Min = math.Min(w.Min, x)
		w.Max = math.Max(w.Max, x)
	}
	delta := x - w.Mean
	w.Mean += delta / float64(w.Count)
	delta2 := x - w.Mean
	w.M2 += delta * delta2
}

// Variance returns the sample variance, or 0 with fewer than two values.
func (w *Welford) Variance() float64 {
	if w.Count < 2 {
		return 0
	}
	return w.M2 / float64(w.Count-1)
}

// StdDev returns the sample standard deviation.
func (w *Welford) StdDev() float64 {
	return math.Sqrt(w.Variance())
}
