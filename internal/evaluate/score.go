package evaluate

import (
	"errors"
	"fmt"
	"sort"
)

// ErrNoSamples is returned when there is nothing to score.
var ErrNoSamples = errors.New("no samples to score")

// ClassScore holds the per-class metrics.
type ClassScore struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report is a full classification report. Confusion[i][j] counts samples
// whose true label is Labels[i] and predicted label is Labels[j].
type Report struct {
	Samples    int          `json:"samples"`
	Accuracy   float64      `json:"accuracy"`
	MacroF1    float64      `json:"macro_f1"`
	WeightedF1 float64      `json:"weighted_f1"`
	Labels     []string     `json:"labels"`
	PerClass   []ClassScore `json:"per_class"`
	Confusion  [][]int      `json:"confusion"`
}

// Score compares predictions to ground truth. With nil labels the sorted
// union of both inputs is used. Any ratio with a zero denominator is 0.
func Score(yTrue, yPred, labels []string) (*Report, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("length mismatch: %d true labels, %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return nil, ErrNoSamples
	}
	if labels == nil {
		labels = unionSorted(yTrue, yPred)
	}

	idx := make(map[string]int, len(labels))
	for i, l := range labels {
		idx[l] = i
	}
	cm := make([][]int, len(labels))
	for i := range cm {
		cm[i] = make([]int, len(labels))
	}

	var correct int
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
		ti, ok1 := idx[yTrue[i]]
		pi, ok2 := idx[yPred[i]]
		if ok1 && ok2 {
			cm[ti][pi]++
		}
	}

	r := &Report{
		Samples:   len(yTrue),
		Accuracy:  float64(correct) / float64(len(yTrue)),
		Labels:    labels,
		Confusion: cm,
	}

	var supportTotal int
	for i, l := range labels {
		tp := cm[i][i]
		var predicted, support int
		for k := range labels {
			predicted += cm[k][i]
			support += cm[i][k]
		}
		s := ClassScore{
			Label:     l,
			Precision: ratio(tp, predicted),
			Recall:    ratio(tp, support),
			Support:   support,
		}
		if s.Precision+s.Recall > 0 {
			s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
		}
		r.PerClass = append(r.PerClass, s)
		r.MacroF1 += s.F1
		r.WeightedF1 += s.F1 * float64(support)
		supportTotal += support
	}
	if len(labels) > 0 {
		r.MacroF1 /= float64(len(labels))
	}
	if supportTotal > 0 {
		r.WeightedF1 /= float64(supportTotal)
	}
	return r, nil
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

func unionSorted(a, b []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range append(append([]string(nil), a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
