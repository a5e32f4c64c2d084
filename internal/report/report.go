// Package report writes an evaluation report to a results directory.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rewired-gh/finsent/internal/evaluate"
	"github.com/rewired-gh/finsent/internal/models"
)

// Artifact file names.
const (
	OverallReportFile   = "overall_report.csv"
	ConfusionMatrixFile = "confusion_matrix.csv"
	ConfusionCountsFile = "confusion_counts.csv"
	ECEFile             = "ece.txt"
	CalibrationBinsFile = "calibration_bins.csv"
)

// Write creates dir if needed and writes every artifact into it.
func Write(dir string, r *evaluate.Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}
	writers := []struct {
		name string
		rows [][]string
	}{
		{OverallReportFile, classificationRows(r.Classification, r.Matched)},
		{ConfusionMatrixFile, confusionRows(r.Confusion.Normalized())},
		{ConfusionCountsFile, confusionRows(countsAsFloats(r.Confusion))},
		{CalibrationBinsFile, binRows(r.Calibration.Bins)},
	}
	for _, w := range writers {
		if err := writeCSV(filepath.Join(dir, w.name), w.rows); err != nil {
			return err
		}
	}
	ece := formatFloat(r.Calibration.ECE) + "\n"
	if err := os.WriteFile(filepath.Join(dir, ECEFile), []byte(ece), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", ECEFile, err)
	}
	return nil
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}

// classificationRows mirrors the usual report layout: one row per label, then
// accuracy, macro avg and weighted avg.
func classificationRows(c evaluate.Classification, total int) [][]string {
	rows := [][]string{{"", "precision", "recall", "f1-score", "support"}}
	for i, l := range models.LabelOrder {
		rows = append(rows, scoreRow(string(l), c.PerLabel[i]))
	}
	acc := formatFloat(c.Accuracy)
	rows = append(rows,
		[]string{"accuracy", acc, acc, acc, strconv.Itoa(total)},
		scoreRow("macro avg", c.MacroAvg),
		scoreRow("weighted avg", c.WeightedAvg),
	)
	return rows
}

func scoreRow(name string, s evaluate.Scores) []string {
	return []string{name, formatFloat(s.Precision), formatFloat(s.Recall), formatFloat(s.F1), strconv.Itoa(s.Support)}
}

func countsAsFloats(c evaluate.Confusion) [models.NumLabels][models.NumLabels]float64 {
	var out [models.NumLabels][models.NumLabels]float64
	for i := range c.Counts {
		for j := range c.Counts[i] {
			out[i][j] = float64(c.Counts[i][j])
		}
	}
	return out
}

// confusionRows has gold labels down the side and predictions across the top.
func confusionRows(m [models.NumLabels][models.NumLabels]float64) [][]string {
	header := []string{"gold\\pred"}
	for _, l := range models.LabelOrder {
		header = append(header, string(l))
	}
	rows := [][]string{header}
	for i, l := range models.LabelOrder {
		row := []string{string(l)}
		for j := range m[i] {
			row = append(row, formatFloat(m[i][j]))
		}
		rows = append(rows, row)
	}
	return rows
}

func binRows(bins []evaluate.Bin) [][]string {
	rows := [][]string{{"lower", "upper", "count", "correct", "mean_confidence", "accuracy", "gap"}}
	for _, b := range bins {
		rows = append(rows, []string{
			formatFloat(b.Lower), formatFloat(b.Upper),
			strconv.Itoa(b.Count), strconv.Itoa(b.Correct),
			formatFloat(b.MeanConfidence), formatFloat(b.Accuracy), formatFloat(b.Gap),
		})
	}
	return rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
