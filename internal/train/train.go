// Package train fits the TF-IDF vectorizer and Naive Bayes classifier on a
// labeled training split and saves both artifacts.
package train

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/deepak-highbeam/complaint-classifier/internal/artifact"
	"github.com/deepak-highbeam/complaint-classifier/internal/blob"
	"github.com/deepak-highbeam/complaint-classifier/internal/dataset"
	"github.com/deepak-highbeam/complaint-classifier/internal/metrics"
	"github.com/deepak-highbeam/complaint-classifier/internal/naivebayes"
	"github.com/deepak-highbeam/complaint-classifier/internal/vectorize"
)

// Options configures a training run.
type Options struct {
	TrainPath     string
	VectorizerOut string
	ModelOut      string

	ModelType  naivebayes.Kind
	Alpha      float64
	Vectorizer vectorize.Config

	Store   blob.Store
	Metrics *metrics.Pipeline
}

// Result summarizes a training run.
type Result struct {
	TrainPath        string               `json:"train_path"`
	VectorizerOut    string               `json:"vectorizer_out"`
	ModelOut         string               `json:"model_out"`
	ModelType        naivebayes.Kind      `json:"model_type"`
	Rows             int                  `json:"rows"`
	Features         int                  `json:"features"`
	Classes          []string             `json:"classes"`
	TrainingAccuracy float64              `json:"training_accuracy"`
	Distribution     dataset.Distribution `json:"distribution"`
}

// Fit trains a vectorizer and classifier in memory.
func Fit(rows []dataset.Row, cfg vectorize.Config, kind naivebayes.Kind, alpha float64) (*vectorize.TFIDF, naivebayes.Classifier, float64, error) {
	vec, err := vectorize.New(cfg)
	if err != nil {
		return nil, nil, 0, err
	}
	clf, err := naivebayes.New(kind, alpha)
	if err != nil {
		return nil, nil, 0, err
	}

	texts := make([]string, len(rows))
	labels := make([]string, len(rows))
	for i, r := range rows {
		texts[i] = r.Text
		labels[i] = string(r.Category)
	}

	X, err := vec.FitTransform(texts)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("fit vectorizer: %w", err)
	}
	if err := clf.Fit(X, labels); err != nil {
		return nil, nil, 0, fmt.Errorf("fit classifier: %w", err)
	}

	var correct int
	for i, x := range X.Rows {
		if clf.Predict(x) == labels[i] {
			correct++
		}
	}
	return vec, clf, float64(correct) / float64(len(rows)), nil
}

// Run reads the training split, fits, and writes both artifacts. Artifacts
// are only written once fitting succeeds.
func Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	if opts.Store == nil {
		opts.Store = blob.NewRouter()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	data, err := opts.Store.Read(ctx, opts.TrainPath)
	if err != nil {
		return nil, fmt.Errorf("read training data: %w", err)
	}
	rows, err := dataset.ReadLabeled(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", opts.TrainPath, err)
	}
	opts.Metrics.RowsRead.Add(float64(len(rows)))

	vec, clf, acc, err := Fit(rows, opts.Vectorizer, opts.ModelType, opts.Alpha)
	if err != nil {
		return nil, err
	}

	if err := artifact.SaveVectorizer(ctx, opts.Store, opts.VectorizerOut, vec); err != nil {
		return nil, fmt.Errorf("save vectorizer: %w", err)
	}
	if err := artifact.SaveModel(ctx, opts.Store, opts.ModelOut, clf); err != nil {
		return nil, fmt.Errorf("save model: %w", err)
	}
	opts.Metrics.ObserveStage("train", time.Since(start))

	slog.Debug("training complete",
		"rows", len(rows),
		"features", vec.NumFeatures(),
		"model_type", opts.ModelType,
		"training_accuracy", acc)

	return &Result{
		TrainPath:        opts.TrainPath,
		VectorizerOut:    opts.VectorizerOut,
		ModelOut:         opts.ModelOut,
		ModelType:        opts.ModelType,
		Rows:             len(rows),
		Features:         vec.NumFeatures(),
		Classes:          clf.Classes(),
		TrainingAccuracy: acc,
		Distribution:     dataset.Distribute(rows),
	}, nil
}
