// Package metrics exposes per-run pipeline counters as Prometheus metrics.
// Each run owns its own registry so repeated runs (and tests) never share
// state; the registry can be exported in node_exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Drop reasons recorded by rows_dropped_total.
const (
	DropProduct        = "product"
	DropNullNarrative  = "null_narrative"
	DropShortNarrative = "short_narrative"
	DropDuplicate      = "duplicate"
)

// Pipeline holds the counters for one pipeline run.
type Pipeline struct {
	reg *prometheus.Registry

	RowsRead      prometheus.Counter
	RowsWritten   prometheus.Counter
	RowsDropped   *prometheus.CounterVec
	RowsLabeled   *prometheus.CounterVec
	RuleMatches   *prometheus.CounterVec
	StageDuration *prometheus.GaugeVec
}

// New creates a Pipeline with a fresh registry.
func New() *Pipeline {
	p := &Pipeline{
		reg: prometheus.NewRegistry(),
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedback_rows_read_total",
			Help: "Rows read from the stage input",
		}),
		RowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "feedback_rows_written_total",
			Help: "Rows written to the stage output",
		}),
		RowsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedback_rows_dropped_total",
				Help: "Rows excluded during ingestion, by reason",
			},
			[]string{"reason"},
		),
		RowsLabeled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedback_rows_labeled_total",
				Help: "Rows assigned each category by the rule labeler",
			},
			[]string{"category"},
		),
		RuleMatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedback_rule_matches_total",
				Help: "Labeling decisions per winning rule set (none = fallback)",
			},
			[]string{"rule_set"},
		),
		StageDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "feedback_stage_duration_seconds",
				Help: "Wall-clock duration of the last run of each stage",
			},
			[]string{"stage"},
		),
	}

	p.reg.MustRegister(
		p.RowsRead,
		p.RowsWritten,
		p.RowsDropped,
		p.RowsLabeled,
		p.RuleMatches,
		p.StageDuration,
	)
	return p
}

// Registry returns the underlying registry.
func (p *Pipeline) Registry() *prometheus.Registry {
	return p.reg
}

// Drop adds n rows to the dropped counter for reason.
func (p *Pipeline) Drop(reason string, n int) {
	if n <= 0 {
		return
	}
	p.RowsDropped.WithLabelValues(reason).Add(float64(n))
}

// Labeled records one labeling decision.
func (p *Pipeline) Labeled(category, ruleSet string) {
	if ruleSet == "" {
		ruleSet = "none"
	}
	p.RowsLabeled.WithLabelValues(category).Inc()
	p.RuleMatches.WithLabelValues(ruleSet).Inc()
}

// ObserveStage records how long a stage took.
func (p *Pipeline) ObserveStage(stage string, d time.Duration) {
	p.StageDuration.WithLabelValues(stage).Set(d.Seconds())
}

// WriteTextfile writes every metric in the registry to path in the text
// exposition format. The file is written atomically.
func (p *Pipeline) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.reg)
}
