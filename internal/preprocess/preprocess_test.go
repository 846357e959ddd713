package preprocess

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepak-highbeam/complaint-classifier/internal/dataset"
	"github.com/deepak-highbeam/complaint-classifier/internal/labeler"
)

func rowsFor(c labeler.Category, n int) []dataset.Row {
	rows := make([]dataset.Row, n)
	for i := range rows {
		rows[i] = dataset.Row{Text: fmt.Sprintf("%s complaint %d", c, i), Category: c}
	}
	return rows
}

func TestClean(t *testing.T) {
	rows := []dataset.Row{
		{Text: "  The App Crashed  ", Category: labeler.AppBug},
		{Text: "the app crashed", Category: labeler.AppBug},
		{Text: "the app crashed", Category: labeler.Other},
	}

	deduped := Clean(rows, true)
	assert.Equal(t, []dataset.Row{
		{Text: "the app crashed", Category: labeler.AppBug},
		{Text: "the app crashed", Category: labeler.Other},
	}, deduped)

	assert.Len(t, Clean(rows, false), 3)
	assert.Equal(t, "  The App Crashed  ", rows[0].Text, "input must not be mutated")
}

func TestStratify_PreservesProportions(t *testing.T) {
	var rows []dataset.Row
	rows = append(rows, rowsFor(labeler.Other, 100)...)
	rows = append(rows, rowsFor(labeler.AppBug, 50)...)
	rows = append(rows, rowsFor(labeler.RefundRequest, 10)...)

	s, err := Stratify(rows, 0.2, 42)
	require.NoError(t, err)

	assert.Len(t, s.Test, 32)
	assert.Len(t, s.Train, 128)

	test := dataset.Distribute(s.Test)
	assert.Equal(t, 20, test.Count(labeler.Other))
	assert.Equal(t, 10, test.Count(labeler.AppBug))
	assert.Equal(t, 2, test.Count(labeler.RefundRequest))

	all := append(append([]dataset.Row(nil), s.Train...), s.Test...)
	assert.ElementsMatch(t, rows, all, "split must be a partition")
}

func TestStratify_SmallClasses(t *testing.T) {
	var rows []dataset.Row
	rows = append(rows, rowsFor(labeler.DeliveryIssue, 1)...)
	rows = append(rows, rowsFor(labeler.BillingProblem, 2)...)

	s, err := Stratify(rows, 0.1, 42)
	require.NoError(t, err)

	test := dataset.Distribute(s.Test)
	train := dataset.Distribute(s.Train)
	assert.Equal(t, 0, test.Count(labeler.DeliveryIssue))
	assert.Equal(t, 1, train.Count(labeler.DeliveryIssue))
	assert.Equal(t, 1, test.Count(labeler.BillingProblem))
	assert.Equal(t, 1, train.Count(labeler.BillingProblem))
}

func TestStratify_Deterministic(t *testing.T) {
	rows := append(rowsFor(labeler.Other, 30), rowsFor(labeler.AppBug, 30)...)

	a, err := Stratify(rows, 0.25, 42)
	require.NoError(t, err)
	b, err := Stratify(rows, 0.25, 42)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestStratify_InvalidTestSize(t *testing.T) {
	for _, ts := range []float64{0, 1, -0.5, 1.5} {
		_, err := Stratify(nil, ts, 42)
		assert.ErrorIs(t, err, ErrInvalidTestSize, "test size %v", ts)
	}
}

func TestRun_WritesSplits(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "customer_feedback.csv")
	rows := append(rowsFor(labeler.Other, 20), rowsFor(labeler.AppBug, 10)...)
	rows = append(rows, dataset.Row{Text: "OTHER complaint 0", Category: labeler.Other})
	data, err := dataset.EncodeLabeled(rows)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(in, data, 0o644))

	outDir := filepath.Join(dir, "processed")
	res, err := Run(context.Background(), RunOptions{
		Options:   Options{Dedup: true, TestSize: 0.2, Seed: 42},
		Input:     in,
		OutputDir: outDir,
	})
	require.NoError(t, err)
	assert.Equal(t, 31, res.RowsRead)
	assert.Equal(t, 24, res.Train)
	assert.Equal(t, 6, res.Test)

	for _, name := range []string{TrainFile, TestFile} {
		b, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err)
		got, err := dataset.ReadLabeled(b)
		require.NoError(t, err)
		for _, r := range got {
			assert.Equal(t, strings.ToLower(r.Text), r.Text)
		}
	}
}

func TestRun_InvalidTestSizeWritesNothing(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.csv")
	data, err := dataset.EncodeLabeled(rowsFor(labeler.Other, 4))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(in, data, 0o644))

	outDir := filepath.Join(dir, "processed")
	_, err = Run(context.Background(), RunOptions{
		Options:   Options{TestSize: 1.2},
		Input:     in,
		OutputDir: outDir,
	})
	require.ErrorIs(t, err, ErrInvalidTestSize)
	assert.NoDirExists(t, outDir)
}
