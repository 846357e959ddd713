// Package vectorize turns text into sparse TF-IDF feature vectors.
//
// Weights follow the common smoothed formulation: idf(t) = ln((1+n)/(1+df))+1,
// tf is the raw term count (or 1+ln(tf) when sublinear), and every row is
// L2-normalized.
package vectorize

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// Analyzer selects how a document is split into features.
type Analyzer string

const (
	// Word uses runs of two or more letters, digits or underscores.
	Word Analyzer = "word"
	// Char uses character n-grams over whitespace-collapsed text.
	Char Analyzer = "char"
	// CharWB uses character n-grams inside space-padded words only.
	CharWB Analyzer = "char_wb"
)

var (
	ErrInvalidConfig   = errors.New("invalid vectorizer config")
	ErrEmptyVocabulary = errors.New("empty vocabulary")
	ErrNotFitted       = errors.New("vectorizer is not fitted")
)

var (
	tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)
	whitespace   = regexp.MustCompile(`\s\s+`)
)

// Config holds the vectorizer hyperparameters. MinDF is an absolute
// document count, MaxDF a proportion of documents, and MaxFeatures 0 means
// no cap.
type Config struct {
	Analyzer    Analyzer `json:"analyzer" yaml:"analyzer" mapstructure:"analyzer"`
	NGramMin    int      `json:"ngram_min" yaml:"ngram_min" mapstructure:"ngram_min"`
	NGramMax    int      `json:"ngram_max" yaml:"ngram_max" mapstructure:"ngram_max"`
	MinDF       int      `json:"min_df" yaml:"min_df" mapstructure:"min_df"`
	MaxDF       float64  `json:"max_df" yaml:"max_df" mapstructure:"max_df"`
	MaxFeatures int      `json:"max_features" yaml:"max_features" mapstructure:"max_features"`
	SublinearTF bool     `json:"sublinear_tf" yaml:"sublinear_tf" mapstructure:"sublinear_tf"`
	Lowercase   bool     `json:"lowercase" yaml:"lowercase" mapstructure:"lowercase"`
}

// DefaultConfig returns word unigrams and bigrams seen in at least two
// documents.
func DefaultConfig() Config {
	return Config{
		Analyzer:  Word,
		NGramMin:  1,
		NGramMax:  2,
		MinDF:     2,
		MaxDF:     1.0,
		Lowercase: true,
	}
}

// Validate reports the first invalid hyperparameter.
func (c Config) Validate() error {
	switch c.Analyzer {
	case Word, Char, CharWB:
	default:
		return fmt.Errorf("%w: unknown analyzer %q", ErrInvalidConfig, c.Analyzer)
	}
	if c.NGramMin < 1 || c.NGramMax < c.NGramMin {
		return fmt.Errorf("%w: ngram range (%d, %d)", ErrInvalidConfig, c.NGramMin, c.NGramMax)
	}
	if c.MinDF < 1 {
		return fmt.Errorf("%w: min_df must be >= 1, got %d", ErrInvalidConfig, c.MinDF)
	}
	if c.MaxDF <= 0 || c.MaxDF > 1 {
		return fmt.Errorf("%w: max_df must be in (0, 1], got %v", ErrInvalidConfig, c.MaxDF)
	}
	if c.MaxFeatures < 0 {
		return fmt.Errorf("%w: max_features must be >= 0, got %d", ErrInvalidConfig, c.MaxFeatures)
	}
	return nil
}

// Vector is a sparse row. Indices are strictly increasing.
type Vector struct {
	Indices []int     `json:"indices"`
	Values  []float64 `json:"values"`
}

// Matrix is a batch of rows over a fixed feature space.
type Matrix struct {
	Rows        []Vector
	NumFeatures int
}

// TFIDF is a fitted (or fittable) vectorizer.
type TFIDF struct {
	cfg   Config
	terms []string
	index map[string]int
	idf   []float64
}

// New returns an unfitted vectorizer.
func New(cfg Config) (*TFIDF, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TFIDF{cfg: cfg}, nil
}

// State is the serializable form of a fitted vectorizer.
type State struct {
	Config Config    `json:"config"`
	Terms  []string  `json:"terms"`
	IDF    []float64 `json:"idf"`
}

// State exports the fitted vocabulary and weights.
func (v *TFIDF) State() (State, error) {
	if v.terms == nil {
		return State{}, ErrNotFitted
	}
	return State{Config: v.cfg, Terms: v.Terms(), IDF: v.IDF()}, nil
}

// FromState rebuilds a fitted vectorizer. Terms must be strictly sorted and
// match IDF in length.
func FromState(s State) (*TFIDF, error) {
	if err := s.Config.Validate(); err != nil {
		return nil, err
	}
	if len(s.Terms) == 0 {
		return nil, ErrEmptyVocabulary
	}
	if len(s.Terms) != len(s.IDF) {
		return nil, fmt.Errorf("%w: %d terms but %d idf weights", ErrInvalidConfig, len(s.Terms), len(s.IDF))
	}
	v := &TFIDF{
		cfg:   s.Config,
		terms: append([]string(nil), s.Terms...),
		idf:   append([]float64(nil), s.IDF...),
		index: make(map[string]int, len(s.Terms)),
	}
	for i, t := range v.terms {
		if i > 0 && v.terms[i-1] >= t {
			return nil, fmt.Errorf("%w: vocabulary not sorted at %q", ErrInvalidConfig, t)
		}
		v.index[t] = i
	}
	return v, nil
}

// Config returns the hyperparameters.
func (v *TFIDF) Config() Config { return v.cfg }

// Terms returns the vocabulary in feature-index order.
func (v *TFIDF) Terms() []string { return append([]string(nil), v.terms...) }

// IDF returns the per-feature inverse document frequencies.
func (v *TFIDF) IDF() []float64 { return append([]float64(nil), v.idf...) }

// NumFeatures is the vocabulary size.
func (v *TFIDF) NumFeatures() int { return len(v.terms) }

// Analyze splits one document into features according to the analyzer.
func (v *TFIDF) Analyze(doc string) []string {
	if v.cfg.Lowercase {
		doc = strings.ToLower(doc)
	}
	switch v.cfg.Analyzer {
	case Char:
		return charNGrams(whitespace.ReplaceAllString(doc, " "), v.cfg.NGramMin, v.cfg.NGramMax)
	case CharWB:
		return charWBNGrams(whitespace.ReplaceAllString(doc, " "), v.cfg.NGramMin, v.cfg.NGramMax)
	default:
		return wordNGrams(tokenPattern.FindAllString(doc, -1), v.cfg.NGramMin, v.cfg.NGramMax)
	}
}

// Fit learns the vocabulary and idf weights from docs.
func (v *TFIDF) Fit(docs []string) error {
	df := make(map[string]int)
	total := make(map[string]int)
	for _, d := range docs {
		seen := make(map[string]bool)
		for _, f := range v.Analyze(d) {
			total[f]++
			if !seen[f] {
				seen[f] = true
				df[f]++
			}
		}
	}
	if len(df) == 0 {
		return fmt.Errorf("%w: documents contain no features", ErrEmptyVocabulary)
	}

	n := len(docs)
	maxCount := v.cfg.MaxDF * float64(n)
	if maxCount < float64(v.cfg.MinDF) {
		return fmt.Errorf("%w: max_df corresponds to fewer documents than min_df", ErrInvalidConfig)
	}

	kept := make([]string, 0, len(df))
	for t, c := range df {
		if c >= v.cfg.MinDF && float64(c) <= maxCount {
			kept = append(kept, t)
		}
	}
	if v.cfg.MaxFeatures > 0 && len(kept) > v.cfg.MaxFeatures {
		sort.Slice(kept, func(i, j int) bool {
			if total[kept[i]] != total[kept[j]] {
				return total[kept[i]] > total[kept[j]]
			}
			return kept[i] < kept[j]
		})
		kept = kept[:v.cfg.MaxFeatures]
	}
	if len(kept) == 0 {
		return fmt.Errorf("%w: no terms remain after pruning", ErrEmptyVocabulary)
	}
	sort.Strings(kept)

	v.terms = kept
	v.index = make(map[string]int, len(kept))
	v.idf = make([]float64, len(kept))
	for i, t := range kept {
		v.index[t] = i
		v.idf[i] = math.Log(float64(1+n)/float64(1+df[t])) + 1
	}
	return nil
}

// Transform vectorizes docs with the fitted vocabulary. Unknown features are
// ignored; a document with none yields an empty vector.
func (v *TFIDF) Transform(docs []string) (Matrix, error) {
	if v.terms == nil {
		return Matrix{}, ErrNotFitted
	}
	m := Matrix{Rows: make([]Vector, len(docs)), NumFeatures: len(v.terms)}
	for i, d := range docs {
		m.Rows[i] = v.transformOne(d)
	}
	return m, nil
}

// FitTransform is Fit followed by Transform on the same docs.
func (v *TFIDF) FitTransform(docs []string) (Matrix, error) {
	if err := v.Fit(docs); err != nil {
		return Matrix{}, err
	}
	return v.Transform(docs)
}

func (v *TFIDF) transformOne(doc string) Vector {
	counts := make(map[int]float64)
	for _, f := range v.Analyze(doc) {
		if j, ok := v.index[f]; ok {
			counts[j]++
		}
	}

	vec := Vector{Indices: make([]int, 0, len(counts)), Values: make([]float64, 0, len(counts))}
	for j := range counts {
		vec.Indices = append(vec.Indices, j)
	}
	sort.Ints(vec.Indices)

	var norm float64
	for _, j := range vec.Indices {
		tf := counts[j]
		if v.cfg.SublinearTF {
			tf = 1 + math.Log(tf)
		}
		w := tf * v.idf[j]
		vec.Values = append(vec.Values, w)
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for k := range vec.Values {
			vec.Values[k] /= norm
		}
	}
	return vec
}

func wordNGrams(tokens []string, lo, hi int) []string {
	if lo == 1 && hi == 1 {
		return tokens
	}
	var out []string
	if lo == 1 {
		out = append(out, tokens...)
		lo = 2
	}
	for n := lo; n <= hi; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

func charNGrams(text string, lo, hi int) []string {
	r := []rune(text)
	var out []string
	for n := lo; n <= hi; n++ {
		for i := 0; i+n <= len(r); i++ {
			out = append(out, string(r[i:i+n]))
		}
	}
	return out
}

func charWBNGrams(text string, lo, hi int) []string {
	var out []string
	for _, w := range strings.Fields(text) {
		r := []rune(" " + w + " ")
		for n := lo; n <= hi; n++ {
			// A padded word no longer than n contributes itself once.
			if len(r) <= n {
				out = append(out, string(r))
				break
			}
			for i := 0; i+n <= len(r); i++ {
				out = append(out, string(r[i:i+n]))
			}
		}
	}
	return out
}
