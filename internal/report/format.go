// Package report renders pipeline results for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/deepak-highbeam/complaint-classifier/internal/dataset"
	"github.com/deepak-highbeam/complaint-classifier/internal/evaluate"
	"github.com/deepak-highbeam/complaint-classifier/internal/ingest"
	"github.com/deepak-highbeam/complaint-classifier/internal/labeler"
	"github.com/deepak-highbeam/complaint-classifier/internal/metrics"
	"github.com/deepak-highbeam/complaint-classifier/internal/preprocess"
	"github.com/deepak-highbeam/complaint-classifier/internal/sample"
	"github.com/deepak-highbeam/complaint-classifier/internal/store"
	"github.com/deepak-highbeam/complaint-classifier/internal/train"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	goodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	fairStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	poorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

func title(b *strings.Builder, s string) {
	b.WriteString(titleStyle.Render(s) + "\n")
	b.WriteString(strings.Repeat("=", 40) + "\n\n")
}

func section(b *strings.Builder, s string, width int) {
	b.WriteString(headerStyle.Render(s) + "\n")
	b.WriteString(strings.Repeat("-", width) + "\n")
}

// FormatDistribution renders a class distribution table.
func FormatDistribution(heading string, d dataset.Distribution) string {
	var b strings.Builder
	section(&b, heading, 40)
	b.WriteString(fmt.Sprintf("%-20s %8s %8s\n", "Category", "Rows", "Share"))
	for _, c := range d.Counts {
		b.WriteString(fmt.Sprintf("%-20s %8d %7.1f%%\n", c.Category, c.Count, c.Percent))
	}
	b.WriteString(fmt.Sprintf("%-20s %8d\n", "total", d.Total))
	return b.String()
}

// FormatIngest summarizes an ingestion run.
func FormatIngest(r *ingest.Result) string {
	var b strings.Builder
	title(&b, "Ingestion")

	b.WriteString(fmt.Sprintf("Input:        %s\n", r.Input))
	b.WriteString(fmt.Sprintf("Output:       %s\n", r.Output))
	b.WriteString(fmt.Sprintf("Rows read:    %d\n", r.RowsRead))
	b.WriteString(fmt.Sprintf("Rows written: %d\n\n", r.Rows()))

	section(&b, "Dropped", 40)
	for _, reason := range []string{metrics.DropProduct, metrics.DropNullNarrative, metrics.DropShortNarrative, metrics.DropDuplicate} {
		b.WriteString(fmt.Sprintf("%-20s %8d\n", reason, r.Dropped[reason]))
	}
	b.WriteString("\n")

	b.WriteString(FormatDistribution("Category distribution", r.Distribution))
	return b.String()
}

// FormatSample shows class balance before and after capping.
func FormatSample(r *sample.Result) string {
	var b strings.Builder
	title(&b, "Sample")
	b.WriteString(fmt.Sprintf("Source:      %s\n", r.Src))
	b.WriteString(fmt.Sprintf("Destination: %s\n\n", r.Dst))
	b.WriteString(FormatDistribution("Full distribution", r.Full))
	b.WriteString("\n")
	b.WriteString(FormatDistribution("Sample distribution", r.Sample))
	return b.String()
}

// FormatPreprocess reports the split sizes.
func FormatPreprocess(r *preprocess.Result) string {
	return fmt.Sprintf("Saved %d training rows and %d test rows to %s and %s\n",
		r.Train, r.Test, r.TrainPath, r.TestPath)
}

// FormatTrain summarizes a training run.
func FormatTrain(r *train.Result) string {
	var b strings.Builder
	title(&b, "Training")
	b.WriteString(fmt.Sprintf("Model type:        %s\n", r.ModelType))
	b.WriteString(fmt.Sprintf("Training rows:     %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Features:          %d\n", r.Features))
	b.WriteString(fmt.Sprintf("Classes:           %s\n", strings.Join(r.Classes, ", ")))
	b.WriteString(fmt.Sprintf("Training accuracy: %s\n\n", scoreStyle(r.TrainingAccuracy).Render(fmt.Sprintf("%.3f", r.TrainingAccuracy))))
	b.WriteString(fmt.Sprintf("Saved vectorizer to %s and classifier to %s\n", r.VectorizerOut, r.ModelOut))
	return b.String()
}

// FormatEvaluation renders accuracy, macro F1, the per-class report and the
// confusion matrix.
func FormatEvaluation(r *evaluate.Result) string {
	var b strings.Builder
	title(&b, "Evaluation")

	b.WriteString(fmt.Sprintf("Accuracy: %s\n", scoreStyle(r.Accuracy).Render(fmt.Sprintf("%.3f", r.Accuracy))))
	b.WriteString(fmt.Sprintf("Macro F1: %s\n\n", scoreStyle(r.MacroF1).Render(fmt.Sprintf("%.3f", r.MacroF1))))

	width := labelWidth(r.Labels)
	section(&b, "Classification report", width+42)
	b.WriteString(fmt.Sprintf("%-*s %10s %10s %10s %10s\n", width, "", "precision", "recall", "f1-score", "support"))
	for _, c := range r.PerClass {
		b.WriteString(fmt.Sprintf("%-*s %10.2f %10.2f %s %10d\n",
			width, c.Label, c.Precision, c.Recall,
			scoreStyle(c.F1).Render(fmt.Sprintf("%10.2f", c.F1)), c.Support))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%-*s %10s %10s %10.2f %10d\n", width, "accuracy", "", "", r.Accuracy, r.Samples))
	b.WriteString(fmt.Sprintf("%-*s %10s %10s %10.2f %10d\n", width, "macro avg", "", "", r.MacroF1, r.Samples))
	b.WriteString(fmt.Sprintf("%-*s %10s %10s %10.2f %10d\n\n", width, "weighted avg", "", "", r.WeightedF1, r.Samples))

	section(&b, "Confusion matrix (rows = true, columns = predicted)", width+len(r.Labels)*8)
	b.WriteString(fmt.Sprintf("%-*s", width, ""))
	for i := range r.Labels {
		b.WriteString(fmt.Sprintf(" %7s", fmt.Sprintf("[%d]", i)))
	}
	b.WriteString("\n")
	for i, l := range r.Labels {
		b.WriteString(fmt.Sprintf("%-*s", width, fmt.Sprintf("[%d] %s", i, l)))
		for _, v := range r.Confusion[i] {
			b.WriteString(fmt.Sprintf(" %7d", v))
		}
		b.WriteString("\n")
	}

	if r.ConfusionXLSX != "" {
		b.WriteString(fmt.Sprintf("\nConfusion matrix saved to %s\n", r.ConfusionXLSX))
	}
	return b.String()
}

// FormatPrediction prints the predicted category followed by every class
// probability, most likely first.
func FormatPrediction(p *evaluate.Prediction) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Predicted category: %s\n", headerStyle.Render(p.Category)))
	for _, cp := range p.Probabilities {
		b.WriteString(fmt.Sprintf("%s: %.3f\n", cp.Category, cp.Probability))
	}
	return b.String()
}

// FormatMatch explains which rule decided a label.
func FormatMatch(m labeler.Match) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Category: %s\n", headerStyle.Render(string(m.Category))))
	if !m.Matched {
		b.WriteString(mutedStyle.Render("No rule set matched; fell back to other") + "\n")
		return b.String()
	}
	b.WriteString(fmt.Sprintf("Rule set: %s\n", m.RuleSet))
	b.WriteString(fmt.Sprintf("Field:    %s\n", m.Field))
	b.WriteString(fmt.Sprintf("Pattern:  %s\n", m.Pattern))
	return b.String()
}

// FormatRuleSets lists rule sets in evaluation order.
func FormatRuleSets(sets []labeler.RuleSet) string {
	var b strings.Builder
	title(&b, "Labeling rules (first match wins)")
	for i, rs := range sets {
		b.WriteString(fmt.Sprintf("%d. %s  %s\n", i+1, headerStyle.Render(rs.Name),
			mutedStyle.Render(fmt.Sprintf("field=%s category=%s", rs.Field, rs.Category))))
		for _, p := range rs.Patterns {
			b.WriteString(fmt.Sprintf("     %s\n", p))
		}
	}
	b.WriteString(fmt.Sprintf("%d. %s\n", len(sets)+1, mutedStyle.Render("otherwise: "+string(labeler.Other))))
	return b.String()
}

// FormatRuns renders the run history table.
func FormatRuns(runs []store.Run) string {
	if len(runs) == 0 {
		return mutedStyle.Render("No runs recorded.") + "\n"
	}
	var b strings.Builder
	section(&b, "Run history", 86)
	b.WriteString(fmt.Sprintf("%-8s %-11s %-10s %8s %10s  %s\n", "ID", "Stage", "Status", "Rows", "Duration", "Started"))
	for _, r := range runs {
		b.WriteString(fmt.Sprintf("%-8s %-11s %s %8d %10s  %s\n",
			shortID(r.ID), r.Stage, statusStyle(r.Status).Render(fmt.Sprintf("%-10s", r.Status)),
			r.Rows, formatDuration(r.Duration()), r.StartedAt.Local().Format("2006-01-02 15:04:05")))
	}
	return b.String()
}

// FormatRun renders one run with its categories and metrics.
func FormatRun(r *store.Run) string {
	var b strings.Builder
	title(&b, "Run "+r.ID)
	b.WriteString(fmt.Sprintf("Stage:    %s\n", r.Stage))
	b.WriteString(fmt.Sprintf("Status:   %s\n", statusStyle(r.Status).Render(r.Status)))
	if r.Input != "" {
		b.WriteString(fmt.Sprintf("Input:    %s\n", r.Input))
	}
	if r.Output != "" {
		b.WriteString(fmt.Sprintf("Output:   %s\n", r.Output))
	}
	b.WriteString(fmt.Sprintf("Rows:     %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Started:  %s\n", r.StartedAt.Local().Format(time.RFC3339)))
	if !r.FinishedAt.IsZero() {
		b.WriteString(fmt.Sprintf("Duration: %s\n", formatDuration(r.Duration())))
	}
	if r.Error != "" {
		b.WriteString(fmt.Sprintf("Error:    %s\n", poorStyle.Render(r.Error)))
	}

	if len(r.Categories) > 0 {
		b.WriteString("\n")
		section(&b, "Categories", 30)
		for _, c := range r.Categories {
			b.WriteString(fmt.Sprintf("%-20s %8d\n", c.Category, c.Count))
		}
	}
	if len(r.Metrics) > 0 {
		b.WriteString("\n")
		section(&b, "Metrics", 30)
		for _, name := range r.MetricNames() {
			b.WriteString(fmt.Sprintf("%-20s %8s\n", name, formatNumber(r.Metrics[name])))
		}
	}
	return b.String()
}

// FormatJSON marshals any value as indented JSON.
func FormatJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}

// scoreStyle colors a 0..1 score: >= 0.8 good, >= 0.5 fair, below poor.
func scoreStyle(v float64) lipgloss.Style {
	switch {
	case v >= 0.8:
		return goodStyle
	case v >= 0.5:
		return fairStyle
	default:
		return poorStyle
	}
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case store.StatusSucceeded:
		return goodStyle
	case store.StatusFailed:
		return poorStyle
	default:
		return fairStyle
	}
}

func labelWidth(labels []string) int {
	w := len("weighted avg")
	for i, l := range labels {
		w = max(w, len(fmt.Sprintf("[%d] %s", i, l)))
	}
	return w
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}

// formatNumber prints integral values without decimals.
func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.4f", v)
}
