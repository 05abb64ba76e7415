// Package metrics scores classifier predictions.
package metrics

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paveg/segmentation/internal/errors"
	"gonum.org/v1/gonum/stat"
)

// ClassMetrics holds precision, recall, F1 and support for one row of a report.
type ClassMetrics struct {
	Label     string
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// ClassificationReport summarises per-class and averaged scores.
type ClassificationReport struct {
	Classes     []ClassMetrics
	Accuracy    float64
	MacroAvg    ClassMetrics
	WeightedAvg ClassMetrics
	Total       int
}

// NewClassificationReport scores yPred against yTrue. Labels are class
// indices into names; with nil names, rows are the sorted distinct labels.
// Undefined ratios (no predictions or no support for a class) are 0.
func NewClassificationReport(yTrue, yPred []int, names []string) (*ClassificationReport, error) {
	const op = "NewClassificationReport"
	if len(yTrue) != len(yPred) {
		return nil, errors.NewValidationError(op, "",
			fmt.Sprintf("%d true labels but %d predictions", len(yTrue), len(yPred)))
	}
	if len(yTrue) == 0 {
		return nil, errors.NewInvalidInputError(op, "no labels to score")
	}

	if names == nil {
		names = defaultNames(yTrue, yPred)
	}
	k := len(names)

	cm, err := ConfusionMatrix(yTrue, yPred, k)
	if err != nil {
		return nil, err
	}

	r := &ClassificationReport{Classes: make([]ClassMetrics, k), Total: len(yTrue)}
	precision := make([]float64, k)
	recall := make([]float64, k)
	f1 := make([]float64, k)
	support := make([]float64, k)

	correct := 0
	for c := range k {
		tp := cm[c][c]
		correct += tp
		predicted, actual := 0, 0
		for o := range k {
			predicted += cm[o][c]
			actual += cm[c][o]
		}

		precision[c] = ratio(tp, predicted)
		recall[c] = ratio(tp, actual)
		if s := precision[c] + recall[c]; s > 0 {
			f1[c] = 2 * precision[c] * recall[c] / s
		}
		support[c] = float64(actual)

		r.Classes[c] = ClassMetrics{
			Label:     names[c],
			Precision: precision[c],
			Recall:    recall[c],
			F1:        f1[c],
			Support:   actual,
		}
	}

	r.Accuracy = ratio(correct, len(yTrue))
	r.MacroAvg = ClassMetrics{
		Label:     "macro avg",
		Precision: stat.Mean(precision, nil),
		Recall:    stat.Mean(recall, nil),
		F1:        stat.Mean(f1, nil),
		Support:   len(yTrue),
	}
	r.WeightedAvg = ClassMetrics{
		Label:     "weighted avg",
		Precision: stat.Mean(precision, support),
		Recall:    stat.Mean(recall, support),
		F1:        stat.Mean(f1, support),
		Support:   len(yTrue),
	}
	return r, nil
}

// String renders the report as a fixed-width table with two decimals.
func (r *ClassificationReport) String() string {
	headers := []string{"precision", "recall", "f1-score", "support"}

	width := len(r.WeightedAvg.Label)
	for _, c := range r.Classes {
		width = max(width, len(c.Label))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s ", width, "")
	for _, h := range headers {
		fmt.Fprintf(&b, " %9s", h)
	}
	b.WriteString("\n\n")

	row := func(m ClassMetrics) {
		fmt.Fprintf(&b, "%*s  %9.2f %9.2f %9.2f %9d\n", width, m.Label, m.Precision, m.Recall, m.F1, m.Support)
	}
	for _, c := range r.Classes {
		row(c)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s  %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.Total)
	row(r.MacroAvg)
	row(r.WeightedAvg)
	return b.String()
}

// ConfusionMatrix counts rows by (true, predicted) class. Labels must lie in [0, k).
func ConfusionMatrix(yTrue, yPred []int, k int) ([][]int, error) {
	if len(yTrue) != len(yPred) {
		return nil, errors.ErrMismatchedLength
	}
	cm := make([][]int, k)
	for i := range cm {
		cm[i] = make([]int, k)
	}
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		if t < 0 || t >= k || p < 0 || p >= k {
			return nil, errors.NewValidationError("ConfusionMatrix", "",
				fmt.Sprintf("label pair (%d, %d) at row %d outside [0, %d)", t, p, i, k))
		}
		cm[t][p]++
	}
	return cm, nil
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// defaultNames names classes 0..max(label) by their number.
func defaultNames(yTrue, yPred []int) []string {
	top := 0
	for i := range yTrue {
		top = max(top, yTrue[i], yPred[i])
	}
	names := make([]string, top+1)
	for i := range names {
		names[i] = strconv.Itoa(i)
	}
	return names
}
