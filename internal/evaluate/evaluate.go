// Package evaluate scores a trained model on a labeled split and predicts
// the category of single messages.
package evaluate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/deepak-highbeam/complaint-classifier/internal/artifact"
	"github.com/deepak-highbeam/complaint-classifier/internal/blob"
	"github.com/deepak-highbeam/complaint-classifier/internal/dataset"
	"github.com/deepak-highbeam/complaint-classifier/internal/metrics"
	"github.com/deepak-highbeam/complaint-classifier/internal/naivebayes"
	"github.com/deepak-highbeam/complaint-classifier/internal/vectorize"
)

// ErrEmptyText is returned by Predict for blank or whitespace-only input.
var ErrEmptyText = errors.New("text is empty")

// Options configures an evaluation run.
type Options struct {
	Data       string
	Vectorizer string
	Model      string

	// ConfusionXLSX, when set, receives a workbook with the confusion
	// matrix and per-class metrics.
	ConfusionXLSX string

	Store   blob.Store
	Metrics *metrics.Pipeline
}

// Result wraps the report with the paths it was computed from.
type Result struct {
	Data          string `json:"data"`
	ConfusionXLSX string `json:"confusion_xlsx,omitempty"`
	*Report
}

// Run loads both artifacts, predicts every row of Data, and scores the
// predictions.
func Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	if opts.Store == nil {
		opts.Store = blob.NewRouter()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	vec, clf, err := load(ctx, opts.Store, opts.Vectorizer, opts.Model)
	if err != nil {
		return nil, err
	}

	data, err := opts.Store.Read(ctx, opts.Data)
	if err != nil {
		return nil, fmt.Errorf("read data: %w", err)
	}
	rows, err := dataset.ReadLabeled(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", opts.Data, err)
	}
	opts.Metrics.RowsRead.Add(float64(len(rows)))

	texts := make([]string, len(rows))
	yTrue := make([]string, len(rows))
	for i, r := range rows {
		texts[i] = r.Text
		yTrue[i] = string(r.Category)
	}
	X, err := vec.Transform(texts)
	if err != nil {
		return nil, err
	}
	yPred := make([]string, len(X.Rows))
	for i, x := range X.Rows {
		yPred[i] = clf.Predict(x)
	}

	rep, err := Score(yTrue, yPred, nil)
	if err != nil {
		return nil, err
	}
	res := &Result{Data: opts.Data, Report: rep}

	if opts.ConfusionXLSX != "" {
		wb, err := Workbook(rep)
		if err != nil {
			return nil, err
		}
		if err := opts.Store.Write(ctx, opts.ConfusionXLSX, wb); err != nil {
			return nil, fmt.Errorf("write confusion matrix: %w", err)
		}
		res.ConfusionXLSX = opts.ConfusionXLSX
	}
	opts.Metrics.ObserveStage("evaluate", time.Since(start))
	return res, nil
}

// ClassProbability pairs a class with its predicted probability.
type ClassProbability struct {
	Category    string  `json:"category"`
	Probability float64 `json:"probability"`
}

// Prediction is the outcome for one message.
type Prediction struct {
	Text          string             `json:"text"`
	Category      string             `json:"category"`
	Probabilities []ClassProbability `json:"probabilities"`
}

// Predict classifies one message using the artifacts at the given
// locations.
func Predict(ctx context.Context, s blob.Store, text, vectorizerPath, modelPath string) (*Prediction, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if s == nil {
		s = blob.NewRouter()
	}
	vec, clf, err := load(ctx, s, vectorizerPath, modelPath)
	if err != nil {
		return nil, err
	}
	return PredictWith(vec, clf, text)
}

// PredictWith classifies one message with already loaded artifacts.
// Probabilities are sorted from most to least likely.
func PredictWith(vec *vectorize.TFIDF, clf naivebayes.Classifier, text string) (*Prediction, error) {
	X, err := vec.Transform([]string{text})
	if err != nil {
		return nil, err
	}
	proba := clf.PredictProba(X.Rows[0])
	classes := clf.Classes()

	p := &Prediction{Text: text, Category: clf.Predict(X.Rows[0])}
	for i, c := range classes {
		p.Probabilities = append(p.Probabilities, ClassProbability{Category: c, Probability: proba[i]})
	}
	sort.SliceStable(p.Probabilities, func(i, j int) bool {
		return p.Probabilities[i].Probability > p.Probabilities[j].Probability
	})
	return p, nil
}

func load(ctx context.Context, s blob.Store, vectorizerPath, modelPath string) (*vectorize.TFIDF, naivebayes.Classifier, error) {
	vec, err := artifact.LoadVectorizer(ctx, s, vectorizerPath)
	if err != nil {
		return nil, nil, err
	}
	clf, err := artifact.LoadModel(ctx, s, modelPath)
	if err != nil {
		return nil, nil, err
	}
	if got, want := clf.Params().NumFeatures, vec.NumFeatures(); got != want {
		return nil, nil, fmt.Errorf("model expects %d features but vectorizer has %d", got, want)
	}
	return vec, clf, nil
}
