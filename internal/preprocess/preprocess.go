// Package preprocess cleans a labeled dataset and splits it into
// stratified train and test sets.
package preprocess

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/deepak-highbeam/complaint-classifier/internal/blob"
	"github.com/deepak-highbeam/complaint-classifier/internal/dataset"
	"github.com/deepak-highbeam/complaint-classifier/internal/metrics"
	"github.com/deepak-highbeam/complaint-classifier/internal/normalize"
)

// File names written into the output directory.
const (
	TrainFile = "train.csv"
	TestFile  = "test.csv"
)

const (
	DefaultTestSize       = 0.2
	DefaultSeed     int64 = 42
)

// ErrInvalidTestSize is returned when the test fraction is outside (0, 1).
var ErrInvalidTestSize = errors.New("test size must be in (0, 1)")

// Options configures cleaning and splitting.
type Options struct {
	Dedup    bool
	TestSize float64
	Seed     int64
}

// Split holds the two partitions.
type Split struct {
	Train []dataset.Row
	Test  []dataset.Row
}

// Clean lowercases and trims every text, optionally dropping exact
// duplicates afterwards.
func Clean(rows []dataset.Row, dedup bool) []dataset.Row {
	out := make([]dataset.Row, len(rows))
	for i, r := range rows {
		out[i] = dataset.Row{Text: normalize.Text(r.Text), Category: r.Category}
	}
	if dedup {
		out = dataset.Dedup(out)
	}
	return out
}

// Stratify partitions rows so each category keeps roughly the same share in
// train and test. For a category of n rows, round(n*testSize) go to test,
// clamped so that any category with at least two rows has a row on each
// side. A single-row category always lands in train.
func Stratify(rows []dataset.Row, testSize float64, seed int64) (Split, error) {
	if !(testSize > 0 && testSize < 1) {
		return Split{}, fmt.Errorf("%w: got %v", ErrInvalidTestSize, testSize)
	}

	keys, groups := dataset.GroupByCategory(rows)
	var s Split
	for _, k := range keys {
		g := dataset.Shuffle(groups[k], seed)
		n := int(math.Round(float64(len(g)) * testSize))
		if len(g) >= 2 {
			n = max(1, min(n, len(g)-1))
		} else {
			n = 0
		}
		s.Test = append(s.Test, g[:n]...)
		s.Train = append(s.Train, g[n:]...)
	}
	s.Train = dataset.Shuffle(s.Train, seed)
	s.Test = dataset.Shuffle(s.Test, seed)
	return s, nil
}

// Prepare runs Clean followed by Stratify.
func Prepare(rows []dataset.Row, opts Options) (Split, error) {
	return Stratify(Clean(rows, opts.Dedup), opts.TestSize, opts.Seed)
}

// RunOptions adds I/O to Options.
type RunOptions struct {
	Options
	Input     string
	OutputDir string

	Store   blob.Store
	Metrics *metrics.Pipeline
}

// Result summarizes a preprocessing run.
type Result struct {
	Input     string `json:"input"`
	TrainPath string `json:"train_path"`
	TestPath  string `json:"test_path"`
	RowsRead  int    `json:"rows_read"`
	Train     int    `json:"train"`
	Test      int    `json:"test"`
}

// Run reads Input, prepares the split, and writes train.csv and test.csv
// under OutputDir. Nothing is written if the split fails.
func Run(ctx context.Context, opts RunOptions) (*Result, error) {
	start := time.Now()
	if opts.Store == nil {
		opts.Store = blob.NewRouter()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	data, err := opts.Store.Read(ctx, opts.Input)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	rows, err := dataset.ReadLabeled(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", opts.Input, err)
	}
	opts.Metrics.RowsRead.Add(float64(len(rows)))

	cleaned := Clean(rows, opts.Dedup)
	opts.Metrics.Drop(metrics.DropDuplicate, len(rows)-len(cleaned))

	split, err := Stratify(cleaned, opts.TestSize, opts.Seed)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Input:     opts.Input,
		TrainPath: blob.Join(opts.OutputDir, TrainFile),
		TestPath:  blob.Join(opts.OutputDir, TestFile),
		RowsRead:  len(rows),
		Train:     len(split.Train),
		Test:      len(split.Test),
	}

	train, err := dataset.EncodeLabeled(split.Train)
	if err != nil {
		return nil, err
	}
	test, err := dataset.EncodeLabeled(split.Test)
	if err != nil {
		return nil, err
	}
	if err := opts.Store.Write(ctx, res.TrainPath, train); err != nil {
		return nil, fmt.Errorf("write train split: %w", err)
	}
	if err := opts.Store.Write(ctx, res.TestPath, test); err != nil {
		return nil, fmt.Errorf("write test split: %w", err)
	}

	opts.Metrics.RowsWritten.Add(float64(res.Train + res.Test))
	opts.Metrics.ObserveStage("preprocess", time.Since(start))
	return res, nil
}
