// Package naivebayes implements multinomial and complement Naive Bayes
// classifiers over sparse TF-IDF features.
package naivebayes

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/deepak-highbeam/complaint-classifier/internal/vectorize"
)

// Kind names a model variant.
type Kind string

const (
	Multinomial Kind = "multinomial"
	Complement  Kind = "complement"
)

// DefaultAlpha is the additive smoothing used when none is configured.
const DefaultAlpha = 0.1

var (
	ErrInvalidAlpha = errors.New("alpha must be > 0")
	ErrUnknownKind  = errors.New("unknown model type")
	ErrNotFitted    = errors.New("model is not fitted")
	ErrBadInput     = errors.New("invalid training input")
)

// ParseKind validates a model type name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Multinomial, Complement:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Classifier is a fitted or fittable Naive Bayes model.
type Classifier interface {
	Fit(X vectorize.Matrix, y []string) error
	PredictProba(x vectorize.Vector) []float64
	Predict(x vectorize.Vector) string
	Classes() []string
	Params() Params
}

// Params is the complete learned state of a model.
type Params struct {
	Kind           Kind        `json:"kind"`
	Alpha          float64     `json:"alpha"`
	Classes        []string    `json:"classes"`
	ClassCount     []float64   `json:"class_count"`
	ClassLogPrior  []float64   `json:"class_log_prior"`
	FeatureLogProb [][]float64 `json:"feature_log_prob"`
	NumFeatures    int         `json:"num_features"`
}

// New returns an unfitted classifier of the given kind.
func New(kind Kind, alpha float64) (Classifier, error) {
	if !(alpha > 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidAlpha, alpha)
	}
	p := Params{Kind: kind, Alpha: alpha}
	switch kind {
	case Multinomial:
		return &MultinomialNB{model{p: p}}, nil
	case Complement:
		return &ComplementNB{model{p: p}}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// FromParams restores a fitted classifier.
func FromParams(p Params) (Classifier, error) {
	c, err := New(p.Kind, p.Alpha)
	if err != nil {
		return nil, err
	}
	n := len(p.Classes)
	if n == 0 || len(p.ClassLogPrior) != n || len(p.FeatureLogProb) != n {
		return nil, fmt.Errorf("%w: inconsistent class parameters", ErrNotFitted)
	}
	for _, row := range p.FeatureLogProb {
		if len(row) != p.NumFeatures {
			return nil, fmt.Errorf("%w: feature row has %d entries, want %d", ErrNotFitted, len(row), p.NumFeatures)
		}
	}
	switch m := c.(type) {
	case *MultinomialNB:
		m.p = p
	case *ComplementNB:
		m.p = p
	}
	return c, nil
}

// MultinomialNB scores a document by its class log prior plus the dot
// product with per-class smoothed feature log probabilities.
type MultinomialNB struct{ model }

// Fit estimates class priors and smoothed feature distributions.
func (m *MultinomialNB) Fit(X vectorize.Matrix, y []string) error {
	fc, err := m.count(X, y)
	if err != nil {
		return err
	}
	m.p.FeatureLogProb = make([][]float64, len(fc))
	for c, row := range fc {
		var sum float64
		for _, v := range row {
			sum += v + m.p.Alpha
		}
		logSum := math.Log(sum)
		flp := make([]float64, len(row))
		for j, v := range row {
			flp[j] = math.Log(v+m.p.Alpha) - logSum
		}
		m.p.FeatureLogProb[c] = flp
	}
	return nil
}

// PredictProba returns class probabilities in Classes order. The model must
// be fitted.
func (m *MultinomialNB) PredictProba(x vectorize.Vector) []float64 {
	return softmax(m.jll(x, true))
}

func (m *MultinomialNB) Predict(x vectorize.Vector) string {
	return m.p.Classes[argmax(m.jll(x, true))]
}

// ComplementNB weights each feature by how rare it is in every other class.
type ComplementNB struct{ model }

// Fit estimates complement feature weights. Weights are left unnormalized.
func (m *ComplementNB) Fit(X vectorize.Matrix, y []string) error {
	fc, err := m.count(X, y)
	if err != nil {
		return err
	}
	all := make([]float64, X.NumFeatures)
	for _, row := range fc {
		for j, v := range row {
			all[j] += v
		}
	}
	m.p.FeatureLogProb = make([][]float64, len(fc))
	for c, row := range fc {
		comp := make([]float64, len(row))
		var sum float64
		for j, v := range row {
			comp[j] = all[j] + m.p.Alpha - v
			sum += comp[j]
		}
		flp := make([]float64, len(row))
		for j := range comp {
			flp[j] = -math.Log(comp[j] / sum)
		}
		m.p.FeatureLogProb[c] = flp
	}
	return nil
}

// With a single class the prior is the only signal, so it is added back.
func (m *ComplementNB) PredictProba(x vectorize.Vector) []float64 {
	return softmax(m.jll(x, len(m.p.Classes) == 1))
}

func (m *ComplementNB) Predict(x vectorize.Vector) string {
	return m.p.Classes[argmax(m.jll(x, len(m.p.Classes) == 1))]
}

type model struct {
	p Params
}

func (m *model) Classes() []string { return append([]string(nil), m.p.Classes...) }

func (m *model) Params() Params { return m.p }

// count validates the training input, sets classes, class counts and
// priors, and returns per-class feature sums.
func (m *model) count(X vectorize.Matrix, y []string) ([][]float64, error) {
	if len(X.Rows) == 0 {
		return nil, fmt.Errorf("%w: no training rows", ErrBadInput)
	}
	if len(X.Rows) != len(y) {
		return nil, fmt.Errorf("%w: %d rows but %d labels", ErrBadInput, len(X.Rows), len(y))
	}

	seen := make(map[string]bool)
	var classes []string
	for _, label := range y {
		if !seen[label] {
			seen[label] = true
			classes = append(classes, label)
		}
	}
	sort.Strings(classes)
	idx := make(map[string]int, len(classes))
	for i, c := range classes {
		idx[c] = i
	}

	fc := make([][]float64, len(classes))
	for i := range fc {
		fc[i] = make([]float64, X.NumFeatures)
	}
	counts := make([]float64, len(classes))
	for i, row := range X.Rows {
		c := idx[y[i]]
		counts[c]++
		for k, j := range row.Indices {
			if j < 0 || j >= X.NumFeatures {
				return nil, fmt.Errorf("%w: feature index %d out of range", ErrBadInput, j)
			}
			fc[c][j] += row.Values[k]
		}
	}

	m.p.Classes = classes
	m.p.ClassCount = counts
	m.p.NumFeatures = X.NumFeatures
	m.p.ClassLogPrior = make([]float64, len(classes))
	n := float64(len(y))
	for c, cnt := range counts {
		m.p.ClassLogPrior[c] = math.Log(cnt / n)
	}
	return fc, nil
}

// jll is the joint log likelihood of x for every class. Features outside
// the fitted space are ignored.
func (m *model) jll(x vectorize.Vector, withPrior bool) []float64 {
	out := make([]float64, len(m.p.Classes))
	for c := range out {
		var s float64
		flp := m.p.FeatureLogProb[c]
		for k, j := range x.Indices {
			if j < len(flp) {
				s += x.Values[k] * flp[j]
			}
		}
		if withPrior {
			s += m.p.ClassLogPrior[c]
		}
		out[c] = s
	}
	return out
}

func softmax(logits []float64) []float64 {
	hi := math.Inf(-1)
	for _, v := range logits {
		hi = math.Max(hi, v)
	}
	var sum float64
	out := make([]float64, len(logits))
	for i, v := range logits {
		out[i] = math.Exp(v - hi)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// argmax returns the first index of the largest value.
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
