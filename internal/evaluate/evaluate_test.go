package evaluate

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/finsent/internal/models"
)

func verdict(key string, l models.Label, conf float64) models.ArticleVerdict {
	return models.ArticleVerdict{HeadlineSummary: key, Overall: models.Overall{Label: l, Confidence: conf}}
}

func TestEvaluate_PerfectCalibration(t *testing.T) {
	var pred, gold []models.ArticleVerdict
	for i, l := range []models.Label{models.Negative, models.Neutral, models.Positive, models.Positive} {
		key := fmt.Sprintf("h%d", i)
		pred = append(pred, verdict(key, l, 100))
		gold = append(gold, verdict(key, l, 90))
	}

	r, err := Evaluate(pred, gold, DefaultBins)
	require.NoError(t, err)
	assert.Equal(t, 4, r.Matched)
	assert.Equal(t, 0.0, r.Calibration.ECE)
	assert.Equal(t, 1.0, r.Classification.Accuracy)
	assert.InDelta(t, 1.0, r.Classification.MacroAvg.F1, 1e-12)
	assert.Equal(t, 4, r.Calibration.Bins[9].Count)
}

func TestEvaluate_HalfCorrectBin(t *testing.T) {
	pred := []models.ArticleVerdict{
		verdict("a", models.Positive, 80),
		verdict("b", models.Positive, 80),
		verdict("c", models.Negative, 100),
		verdict("d", models.Negative, 100),
	}
	gold := []models.ArticleVerdict{
		verdict("a", models.Positive, 0),
		verdict("b", models.Negative, 0),
		verdict("c", models.Negative, 0),
		verdict("d", models.Negative, 0),
	}
	r, err := Evaluate(pred, gold, DefaultBins)
	require.NoError(t, err)

	bin := r.Calibration.Bins[8]
	assert.Equal(t, 2, bin.Count)
	assert.InDelta(t, 0.5, bin.Accuracy, 1e-12)
	assert.InDelta(t, 0.8, bin.MeanConfidence, 1e-12)
	assert.InDelta(t, 0.3, bin.Gap, 1e-12)
	// the 80% bin holds half the population; the 100% bin is perfectly calibrated
	assert.InDelta(t, 0.15, r.Calibration.ECE, 1e-12)
}

func TestEvaluate_NoOverlap(t *testing.T) {
	_, err := Evaluate(
		[]models.ArticleVerdict{verdict("a", models.Neutral, 50)},
		[]models.ArticleVerdict{verdict("b", models.Neutral, 50)},
		DefaultBins,
	)
	assert.ErrorIs(t, err, models.ErrNoOverlap)
}

func TestEvaluate_CountsAndDuplicates(t *testing.T) {
	pred := []models.ArticleVerdict{
		verdict("a", models.Neutral, 50),
		verdict("a", models.Positive, 70),
		verdict("p-only", models.Neutral, 50),
	}
	gold := []models.ArticleVerdict{
		verdict("a", models.Positive, 0),
		verdict("g-only", models.Neutral, 0),
	}
	r, err := Evaluate(pred, gold, DefaultBins)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Matched)
	assert.Equal(t, 1, r.PredOnly)
	assert.Equal(t, 1, r.GoldOnly)
	assert.Equal(t, []string{"a"}, r.PredDuplicates)
	assert.Empty(t, r.GoldDuplicates)
	assert.Equal(t, 1.0, r.Classification.Accuracy, "last duplicate wins")
}

func TestEvaluate_DoesNotMutateInputs(t *testing.T) {
	pred := []models.ArticleVerdict{verdict("a", models.Neutral, 55)}
	gold := []models.ArticleVerdict{verdict("a", models.Positive, 0)}
	_, err := Evaluate(pred, gold, DefaultBins)
	require.NoError(t, err)
	assert.Equal(t, 55.0, pred[0].Overall.Confidence)
	assert.Equal(t, models.Positive, gold[0].Overall.Label)
}

func TestEvaluate_InvalidBins(t *testing.T) {
	_, err := Evaluate(nil, nil, 0)
	assert.Error(t, err)
}

func TestClassify_AbsentLabelsStillReported(t *testing.T) {
	pairs := []Pair{
		{Gold: models.Negative, Predicted: models.Negative},
		{Gold: models.Negative, Predicted: models.Neutral},
		{Gold: models.Neutral, Predicted: models.Neutral},
	}
	c := Classify(pairs)

	neg := c.For(models.Negative)
	assert.Equal(t, 1.0, neg.Precision)
	assert.Equal(t, 0.5, neg.Recall)
	assert.InDelta(t, 2.0/3.0, neg.F1, 1e-12)
	assert.Equal(t, 2, neg.Support)

	neu := c.For(models.Neutral)
	assert.Equal(t, 0.5, neu.Precision)
	assert.Equal(t, 1.0, neu.Recall)

	pos := c.For(models.Positive)
	assert.Equal(t, Scores{}, pos)

	assert.InDelta(t, (1.0+0.5+0)/3, c.MacroAvg.Precision, 1e-12)
	assert.InDelta(t, (0.5+1.0+0)/3, c.MacroAvg.Recall, 1e-12)
	assert.InDelta(t, (2.0/3.0+2.0/3.0+0)/3, c.MacroAvg.F1, 1e-12)
	assert.Equal(t, 3, c.MacroAvg.Support)
	assert.InDelta(t, 2.0/3.0, c.Accuracy, 1e-12)
	assert.InDelta(t, (2*(2.0/3.0)+1*(2.0/3.0))/3, c.WeightedAvg.F1, 1e-12)
}

func TestConfusion_Normalized(t *testing.T) {
	pairs := []Pair{
		{Gold: models.Negative, Predicted: models.Negative},
		{Gold: models.Negative, Predicted: models.Negative},
		{Gold: models.Negative, Predicted: models.Positive},
		{Gold: models.Positive, Predicted: models.Neutral},
	}
	c := NewConfusion(pairs)
	assert.Equal(t, 2, c.Counts[0][0])
	assert.Equal(t, 1, c.Counts[0][2])

	n := c.Normalized()
	assert.InDelta(t, 2.0/3.0, n[0][0], 1e-12)
	assert.InDelta(t, 1.0/3.0, n[0][2], 1e-12)
	assert.Equal(t, [3]float64{0, 0, 0}, n[1], "gold NEU never occurs")
	assert.Equal(t, [3]float64{0, 1, 0}, n[2])
}

func TestBinIndex(t *testing.T) {
	tests := []struct {
		c    float64
		want int
	}{
		{0, 0},
		{0.05, 0},
		{0.1, 1},
		{0.3, 3},
		{0.7, 7},
		{0.8, 8},
		{0.8999, 8},
		{0.9, 9},
		{1.0, 9},
		{-0.1, 0},
		{1.2, 9},
	}
	for _, tt := range tests {
		if got := binIndex(tt.c, 10); got != tt.want {
			t.Errorf("binIndex(%v) = %d, want %d", tt.c, got, tt.want)
		}
	}
}

func TestCalibrate_BinEdges(t *testing.T) {
	cal := Calibrate(nil, 4)
	require.Len(t, cal.Bins, 4)
	assert.Equal(t, 0.0, cal.Bins[0].Lower)
	assert.Equal(t, 0.25, cal.Bins[0].Upper)
	assert.Equal(t, 1.0, cal.Bins[3].Upper)
	assert.Equal(t, 0.0, cal.ECE)
}
