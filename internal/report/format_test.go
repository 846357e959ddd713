package report

import (
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/deepak-highbeam/complaint-classifier/internal/dataset"
	"github.com/deepak-highbeam/complaint-classifier/internal/evaluate"
	"github.com/deepak-highbeam/complaint-classifier/internal/ingest"
	"github.com/deepak-highbeam/complaint-classifier/internal/labeler"
	"github.com/deepak-highbeam/complaint-classifier/internal/metrics"
	"github.com/deepak-highbeam/complaint-classifier/internal/store"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func assertContains(t *testing.T, out string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(out, w) {
			t.Errorf("output missing %q:\n%s", w, out)
		}
	}
}

func TestFormatIngest(t *testing.T) {
	rows := []dataset.Row{
		{Text: "a", Category: labeler.Other},
		{Text: "b", Category: labeler.Other},
		{Text: "c", Category: labeler.AppBug},
	}
	out := FormatIngest(&ingest.Result{
		Input:        "complaints.csv",
		Output:       "customer_feedback.csv",
		RowsRead:     10,
		Dropped:      map[string]int{metrics.DropProduct: 4, metrics.DropDuplicate: 3},
		Distribution: dataset.Distribute(rows),
	})

	assertContains(t, out,
		"Ingestion",
		"Rows read:    10",
		"Rows written: 3",
		"product",
		"short_narrative",
		"other",
		"66.7%",
	)
	if strings.Index(out, "other") > strings.Index(out, "app_bug") {
		t.Errorf("distribution should list the largest category first:\n%s", out)
	}
}

func TestFormatEvaluation(t *testing.T) {
	rep, err := evaluate.Score(
		[]string{"app_bug", "app_bug", "other"},
		[]string{"app_bug", "other", "other"},
		nil,
	)
	if err != nil {
		t.Fatal(err)
	}
	out := FormatEvaluation(&evaluate.Result{Data: "test.csv", Report: rep, ConfusionXLSX: "cm.xlsx"})

	assertContains(t, out,
		"Accuracy: 0.667",
		"Macro F1: 0.667",
		"precision",
		"weighted avg",
		"[0] app_bug",
		"[1] other",
		"Confusion matrix saved to cm.xlsx",
	)
}

func TestFormatPrediction(t *testing.T) {
	out := FormatPrediction(&evaluate.Prediction{
		Text:     "App keeps crashing",
		Category: "app_bug",
		Probabilities: []evaluate.ClassProbability{
			{Category: "app_bug", Probability: 0.91},
			{Category: "other", Probability: 0.09},
		},
	})

	assertContains(t, out, "Predicted category: app_bug", "app_bug: 0.910", "other: 0.090")
}

func TestFormatMatch(t *testing.T) {
	l := labeler.Default()

	out := FormatMatch(l.Explain("I want my money back", "", ""))
	assertContains(t, out, "refund_request", labeler.NarrativeRefund, "narrative")

	out = FormatMatch(l.Explain("thanks for the great service", "", ""))
	assertContains(t, out, "other", "No rule set matched")
}

func TestFormatRuleSets(t *testing.T) {
	sets := labeler.DefaultRuleSets()
	out := FormatRuleSets(sets)

	assertContains(t, out, "1. "+labeler.IssueRefund, "otherwise: other", `\bcharged\b`)
	if strings.Index(out, labeler.NarrativeApp) > strings.Index(out, labeler.NarrativeRefund) {
		t.Errorf("rule sets out of order:\n%s", out)
	}
}

func TestFormatRuns(t *testing.T) {
	if out := FormatRuns(nil); !strings.Contains(out, "No runs recorded") {
		t.Errorf("empty history = %q", out)
	}

	start := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	runs := []store.Run{
		{ID: "0123456789abcdef", Stage: "ingest", Status: store.StatusSucceeded, Rows: 42, StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond)},
		{ID: "fedcba9876543210", Stage: "train", Status: store.StatusRunning, StartedAt: start},
	}
	out := FormatRuns(runs)
	assertContains(t, out, "01234567", "ingest", "succeeded", "42", "1.5s", "running")
	if strings.Contains(out, "0123456789abcdef") {
		t.Errorf("IDs should be shortened:\n%s", out)
	}
}

func TestFormatRun(t *testing.T) {
	start := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	out := FormatRun(&store.Run{
		ID:         "run-1",
		Stage:      "evaluate",
		Status:     store.StatusFailed,
		Error:      errors.New("read model: not found").Error(),
		StartedAt:  start,
		FinishedAt: start.Add(time.Second),
		Categories: []store.CategoryCount{{Category: "other", Count: 5}},
		Metrics:    map[string]float64{"accuracy": 0.8125, "samples": 16},
	})

	assertContains(t, out, "Run run-1", "failed", "read model: not found", "other", "accuracy", "0.8125", "samples")
	if strings.Contains(out, "16.0000") {
		t.Errorf("integral metrics should print without decimals:\n%s", out)
	}
}

func TestFormatJSON(t *testing.T) {
	out := FormatJSON(map[string]int{"rows": 3})

	var got map[string]int
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("FormatJSON produced invalid JSON: %v", err)
	}
	if got["rows"] != 3 {
		t.Errorf("rows = %d, want 3", got["rows"])
	}

	if out := FormatJSON(func() {}); !strings.Contains(out, `"error"`) {
		t.Errorf("unmarshalable value = %q, want error object", out)
	}
}
