package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deepak-highbeam/complaint-classifier/internal/blob"
	"github.com/deepak-highbeam/complaint-classifier/internal/config"
	"github.com/deepak-highbeam/complaint-classifier/internal/dataset"
	"github.com/deepak-highbeam/complaint-classifier/internal/metrics"
	"github.com/deepak-highbeam/complaint-classifier/internal/report"
	"github.com/deepak-highbeam/complaint-classifier/internal/store"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	jsonOut bool

	cfg     *config.Config
	blobs   *blob.Router
	metrics *metrics.Pipeline
}

func (a *app) store() blob.Store {
	if a.blobs == nil {
		a.blobs = blob.NewRouter()
	}
	return a.blobs
}

func (a *app) pipeline() *metrics.Pipeline {
	if a.metrics == nil {
		a.metrics = metrics.New()
	}
	return a.metrics
}

// outcome is what a stage hands back for history, metrics and display.
type outcome struct {
	rows       int
	categories map[string]int
	values     map[string]float64
	result     any
	text       string
}

// runStage wraps one pipeline stage: it records the run in history, writes
// the metrics textfile, and prints the result. History and metrics export
// failures are logged, never returned.
func (a *app) runStage(cmd *cobra.Command, stage, input, output string, fn func(ctx context.Context) (*outcome, error)) error {
	h := a.openHistory()
	defer h.close()

	runID := h.start(stage, input, output)
	start := time.Now()

	out, err := fn(cmd.Context())
	a.exportMetrics()
	if err != nil {
		h.fail(runID, err)
		return fmt.Errorf("%s: %w", stage, err)
	}
	h.finish(runID, out)

	slog.Info("stage finished", "stage", stage, "rows", out.rows, "elapsed", time.Since(start).Round(time.Millisecond))
	return a.print(cmd.OutOrStdout(), out.result, out.text)
}

func (a *app) print(w io.Writer, v any, text string) error {
	var err error
	if a.jsonOut {
		_, err = fmt.Fprintln(w, report.FormatJSON(v))
	} else {
		_, err = fmt.Fprint(w, text)
	}
	return err
}

func (a *app) exportMetrics() {
	path := a.cfg.Metrics.Textfile
	if path == "" || a.metrics == nil {
		return
	}
	if err := a.metrics.WriteTextfile(path); err != nil {
		slog.Warn("failed to write metrics textfile", "path", path, "error", err)
	}
}

// history records runs in the SQLite store. A nil db means history is
// disabled or could not be opened; every method is then a no-op.
type history struct {
	db *store.Store
}

func (a *app) openHistory() *history {
	if !a.cfg.History.Enabled {
		return &history{}
	}
	db, err := store.New(a.cfg.History.DBPath)
	if err != nil {
		slog.Warn("run history unavailable", "path", a.cfg.History.DBPath, "error", err)
		return &history{}
	}
	return &history{db: db}
}

func (h *history) start(stage, input, output string) string {
	if h.db == nil {
		return ""
	}
	id, err := h.db.StartRun(stage, input, output)
	if err != nil {
		slog.Warn("failed to record run start", "stage", stage, "error", err)
		return ""
	}
	return id
}

func (h *history) finish(id string, out *outcome) {
	if h.db == nil || id == "" {
		return
	}
	if len(out.categories) > 0 {
		if err := h.db.RecordCategories(id, out.categories); err != nil {
			slog.Warn("failed to record run categories", "run", id, "error", err)
		}
	}
	if len(out.values) > 0 {
		if err := h.db.RecordMetrics(id, out.values); err != nil {
			slog.Warn("failed to record run metrics", "run", id, "error", err)
		}
	}
	if err := h.db.FinishRun(id, out.rows); err != nil {
		slog.Warn("failed to record run result", "run", id, "error", err)
	}
}

func (h *history) fail(id string, runErr error) {
	if h.db == nil || id == "" {
		return
	}
	if err := h.db.FailRun(id, runErr); err != nil {
		slog.Warn("failed to record run failure", "run", id, "error", err)
	}
}

func (h *history) close() {
	if h.db != nil {
		_ = h.db.Close()
	}
}

func categoryCounts(d dataset.Distribution) map[string]int {
	m := make(map[string]int, len(d.Counts))
	for _, c := range d.Counts {
		m[string(c.Category)] = c.Count
	}
	return m
}
