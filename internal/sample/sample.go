// Package sample builds a class-capped subset of a labeled dataset so that
// the dominant "other" bucket does not swamp training.
package sample

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deepak-highbeam/complaint-classifier/internal/blob"
	"github.com/deepak-highbeam/complaint-classifier/internal/dataset"
	"github.com/deepak-highbeam/complaint-classifier/internal/labeler"
	"github.com/deepak-highbeam/complaint-classifier/internal/metrics"
)

// Defaults match the original sampling script.
const (
	DefaultCap            = 30000
	DefaultCapOther       = 12000
	DefaultSeed     int64 = 42
)

// ErrInvalidCap is returned for a negative cap.
var ErrInvalidCap = errors.New("cap must be >= 0")

// Options configures a sampling run.
type Options struct {
	Src      string
	Dst      string
	Cap      int // per-category cap for every category except other
	CapOther int // cap for the other bucket
	Seed     int64

	Store   blob.Store
	Metrics *metrics.Pipeline
}

// Result reports the class balance before and after sampling.
type Result struct {
	Src    string               `json:"src"`
	Dst    string               `json:"dst"`
	Full   dataset.Distribution `json:"full"`
	Sample dataset.Distribution `json:"sample"`
}

// Cap draws at most cap rows per category (capOther for other), then
// shuffles the concatenation. Categories are processed in name order so the
// result depends only on rows and seed.
func Cap(rows []dataset.Row, limit, limitOther int, seed int64) []dataset.Row {
	keys, groups := dataset.GroupByCategory(rows)

	var out []dataset.Row
	for _, k := range keys {
		g := groups[k]
		n := limit
		if k == labeler.Other {
			n = limitOther
		}
		if n > len(g) {
			n = len(g)
		}
		out = append(out, dataset.Shuffle(g, seed)[:n]...)
	}
	return dataset.Shuffle(out, seed)
}

// Run reads Src, caps each category, and writes Dst.
func Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	if opts.Cap < 0 || opts.CapOther < 0 {
		return nil, ErrInvalidCap
	}
	if opts.Store == nil {
		opts.Store = blob.NewRouter()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	data, err := opts.Store.Read(ctx, opts.Src)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	rows, err := dataset.ReadLabeled(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", opts.Src, err)
	}
	opts.Metrics.RowsRead.Add(float64(len(rows)))

	sampled := Cap(rows, opts.Cap, opts.CapOther, opts.Seed)

	encoded, err := dataset.EncodeLabeled(sampled)
	if err != nil {
		return nil, err
	}
	if err := opts.Store.Write(ctx, opts.Dst, encoded); err != nil {
		return nil, fmt.Errorf("write sample: %w", err)
	}
	opts.Metrics.RowsWritten.Add(float64(len(sampled)))
	opts.Metrics.ObserveStage("sample", time.Since(start))

	return &Result{
		Src:    opts.Src,
		Dst:    opts.Dst,
		Full:   dataset.Distribute(rows),
		Sample: dataset.Distribute(sampled),
	}, nil
}
