// Package ingest turns a raw complaint export into the labeled two-column
// dataset: it normalizes headers, filters rows by product and narrative
// length, labels each surviving row with the rule labeler, deduplicates,
// shuffles deterministically, and writes text,category CSV.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/schollz/progressbar/v3"

	"github.com/deepak-highbeam/complaint-classifier/internal/blob"
	"github.com/deepak-highbeam/complaint-classifier/internal/dataset"
	"github.com/deepak-highbeam/complaint-classifier/internal/labeler"
	"github.com/deepak-highbeam/complaint-classifier/internal/metrics"
	"github.com/deepak-highbeam/complaint-classifier/internal/normalize"
)

// Normalized names of the columns ingestion understands.
const (
	NarrativeColumn = "consumer_complaint_narrative"
	ProductColumn   = "product"
	IssueColumn     = "issue"
)

const (
	// DefaultMinTextLen drops super-short narratives.
	DefaultMinTextLen = 15

	// DefaultSeed seeds the final shuffle.
	DefaultSeed int64 = 42
)

// DefaultAllowedProducts returns the normalized product values whose
// complaints fit the five categories. Older and newer export naming
// variants are both listed.
func DefaultAllowedProducts() []string {
	return []string{
		"credit_card_or_prepaid_card",
		"bank_account_or_service",
		"money_transfer_virtual_currency_or_money_service",
		"checking_or_savings_account",
		"credit_card",
		"prepaid_card",
		"money_transfers",
	}
}

// Options configures one ingestion run.
type Options struct {
	Input  string
	Output string

	// AllowedProducts are compared after normalize.Identifier is applied to
	// both sides. Nil means DefaultAllowedProducts.
	AllowedProducts []string
	MinTextLen      int
	Seed            int64

	Labeler *labeler.Labeler
	Store   blob.Store
	Metrics *metrics.Pipeline

	// Progress receives a progress bar while rows are labeled; nil disables it.
	Progress io.Writer
}

// Result summarizes a completed ingestion run.
type Result struct {
	Input        string               `json:"input"`
	Output       string               `json:"output"`
	RowsRead     int                  `json:"rows_read"`
	Dropped      map[string]int       `json:"dropped"`
	Distribution dataset.Distribution `json:"distribution"`
}

// Rows is the number of rows written.
func (r *Result) Rows() int {
	return r.Distribution.Total
}

// Run executes ingestion end to end. Any fatal error (missing input,
// undecodable content, missing narrative column) is returned before the
// output is touched.
func Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	opts = withDefaults(opts)

	data, err := opts.Store.Read(ctx, opts.Input)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	tbl, err := dataset.Decode(opts.Input, data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", opts.Input, err)
	}

	res := &Result{
		Input:   opts.Input,
		Output:  opts.Output,
		Dropped: make(map[string]int),
	}
	rows, err := label(tbl, opts, res)
	if err != nil {
		return nil, err
	}

	unique := dataset.Dedup(rows)
	res.Dropped[metrics.DropDuplicate] = len(rows) - len(unique)
	opts.Metrics.Drop(metrics.DropDuplicate, res.Dropped[metrics.DropDuplicate])

	out := dataset.Shuffle(unique, opts.Seed)

	encoded, err := dataset.EncodeLabeled(out)
	if err != nil {
		return nil, err
	}
	if err := opts.Store.Write(ctx, opts.Output, encoded); err != nil {
		return nil, fmt.Errorf("write output: %w", err)
	}

	res.Distribution = dataset.Distribute(out)
	opts.Metrics.RowsWritten.Add(float64(len(out)))
	opts.Metrics.ObserveStage("ingest", time.Since(start))

	slog.Debug("ingest complete",
		"input", opts.Input,
		"output", opts.Output,
		"rows_read", res.RowsRead,
		"rows_written", len(out))
	return res, nil
}

func withDefaults(opts Options) Options {
	if opts.AllowedProducts == nil {
		opts.AllowedProducts = DefaultAllowedProducts()
	}
	if opts.Labeler == nil {
		opts.Labeler = labeler.Default()
	}
	if opts.Store == nil {
		opts.Store = blob.NewRouter()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	return opts
}

// label applies header normalization, the product and narrative filters,
// and the labeler. The returned rows are in input order.
func label(tbl *dataset.Table, opts Options, res *Result) ([]dataset.Row, error) {
	for i, h := range tbl.Header {
		tbl.Header[i] = normalize.Identifier(h)
	}

	textIdx := tbl.Column(NarrativeColumn)
	if textIdx < 0 {
		available := tbl.Header
		if len(available) > 20 {
			available = available[:20]
		}
		return nil, fmt.Errorf("%w: %q not found, available = %s",
			dataset.ErrMissingColumn, NarrativeColumn, strings.Join(available, ", "))
	}
	productIdx := tbl.Column(ProductColumn)
	issueIdx := tbl.Column(IssueColumn)

	allowed := make(map[string]bool, len(opts.AllowedProducts))
	for _, p := range opts.AllowedProducts {
		allowed[normalize.Identifier(p)] = true
	}

	res.RowsRead = len(tbl.Rows)
	opts.Metrics.RowsRead.Add(float64(len(tbl.Rows)))

	type candidate struct {
		text, issue, product string
	}
	kept := make([]candidate, 0, len(tbl.Rows))
	for _, r := range tbl.Rows {
		product := ""
		if productIdx >= 0 {
			product = r[productIdx]
			// The product filter only applies when the column exists.
			if !allowed[normalize.Identifier(product)] {
				res.Dropped[metrics.DropProduct]++
				continue
			}
		}

		raw := r[textIdx]
		if raw == "" {
			res.Dropped[metrics.DropNullNarrative]++
			continue
		}
		text := strings.TrimSpace(raw)
		if utf8.RuneCountInString(text) < opts.MinTextLen {
			res.Dropped[metrics.DropShortNarrative]++
			continue
		}

		issue := ""
		if issueIdx >= 0 {
			issue = r[issueIdx]
		}
		kept = append(kept, candidate{text: text, issue: issue, product: product})
	}
	for _, reason := range []string{metrics.DropProduct, metrics.DropNullNarrative, metrics.DropShortNarrative} {
		opts.Metrics.Drop(reason, res.Dropped[reason])
	}

	bar := newBar(opts.Progress, len(kept))
	rows := make([]dataset.Row, 0, len(kept))
	for _, c := range kept {
		m := opts.Labeler.Explain(c.text, c.issue, c.product)
		opts.Metrics.Labeled(string(m.Category), m.RuleSet)
		rows = append(rows, dataset.Row{Text: c.text, Category: m.Category})
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	return rows, nil
}

func newBar(w io.Writer, total int) *progressbar.ProgressBar {
	if w == nil || total == 0 {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Labeling complaints"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() { _, _ = io.WriteString(w, "\n") }),
	)
}
