package evaluate

import "github.com/rewired-gh/finsent/internal/models"

// Scores are precision, recall and F1 with their gold support.
type Scores struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Classification is the per-label report plus summary rows. Every label in
// models.LabelOrder appears, with zeros when it never occurs.
type Classification struct {
	PerLabel    [models.NumLabels]Scores
	Accuracy    float64
	MacroAvg    Scores
	WeightedAvg Scores
}

// For returns the scores of label l.
func (c Classification) For(l models.Label) Scores {
	return c.PerLabel[l.Index()]
}

// Classify computes the classification report. Ratios with a zero
// denominator are reported as 0.
func Classify(pairs []Pair) Classification {
	var tp, predicted, support [models.NumLabels]int
	correct := 0
	for _, p := range pairs {
		g, q := p.Gold.Index(), p.Predicted.Index()
		support[g]++
		predicted[q]++
		if g == q {
			tp[g]++
			correct++
		}
	}

	var c Classification
	total := 0
	for i := range c.PerLabel {
		s := Scores{
			Precision: ratio(tp[i], predicted[i]),
			Recall:    ratio(tp[i], support[i]),
			Support:   support[i],
		}
		if s.Precision+s.Recall > 0 {
			s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
		}
		c.PerLabel[i] = s
		total += support[i]

		c.MacroAvg.Precision += s.Precision / models.NumLabels
		c.MacroAvg.Recall += s.Recall / models.NumLabels
		c.MacroAvg.F1 += s.F1 / models.NumLabels

		c.WeightedAvg.Precision += s.Precision * float64(s.Support)
		c.WeightedAvg.Recall += s.Recall * float64(s.Support)
		c.WeightedAvg.F1 += s.F1 * float64(s.Support)
	}
	c.MacroAvg.Support = total
	c.WeightedAvg.Support = total
	if total > 0 {
		c.WeightedAvg.Precision /= float64(total)
		c.WeightedAvg.Recall /= float64(total)
		c.WeightedAvg.F1 /= float64(total)
		c.Accuracy = float64(correct) / float64(total)
	}
	return c
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// Confusion counts gold labels (rows) against predictions (columns) in
// models.LabelOrder.
type Confusion struct {
	Counts [models.NumLabels][models.NumLabels]int
}

// NewConfusion tallies pairs into a confusion matrix.
func NewConfusion(pairs []Pair) Confusion {
	var c Confusion
	for _, p := range pairs {
		c.Counts[p.Gold.Index()][p.Predicted.Index()]++
	}
	return c
}

// Normalized divides each row by its total. A gold label that never occurs
// keeps an all-zero row.
func (c Confusion) Normalized() [models.NumLabels][models.NumLabels]float64 {
	var out [models.NumLabels][models.NumLabels]float64
	for i, row := range c.Counts {
		sum := 0
		for _, n := range row {
			sum += n
		}
		if sum == 0 {
			continue
		}
		for j, n := range row {
			out[i][j] = float64(n) / float64(sum)
		}
	}
	return out
}
