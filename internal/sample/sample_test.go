package sample

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepak-highbeam/complaint-classifier/internal/dataset"
	"github.com/deepak-highbeam/complaint-classifier/internal/labeler"
)

func makeRows(counts map[labeler.Category]int) []dataset.Row {
	var rows []dataset.Row
	for _, c := range labeler.AllCategories() {
		for i := 0; i < counts[c]; i++ {
			rows = append(rows, dataset.Row{Text: fmt.Sprintf("%s %d", c, i), Category: c})
		}
	}
	return rows
}

func TestCap_PerCategoryLimits(t *testing.T) {
	rows := makeRows(map[labeler.Category]int{
		labeler.Other:          50,
		labeler.AppBug:         30,
		labeler.BillingProblem: 5,
	})

	out := Cap(rows, 10, 20, 42)
	d := dataset.Distribute(out)

	assert.Equal(t, 35, d.Total)
	assert.Equal(t, 20, d.Count(labeler.Other))
	assert.Equal(t, 10, d.Count(labeler.AppBug))
	assert.Equal(t, 5, d.Count(labeler.BillingProblem), "groups smaller than the cap are kept whole")
	assert.Subset(t, rows, out)
}

func TestCap_Deterministic(t *testing.T) {
	rows := makeRows(map[labeler.Category]int{labeler.Other: 40, labeler.DeliveryIssue: 40})

	assert.Equal(t, Cap(rows, 7, 9, 42), Cap(rows, 7, 9, 42))
	assert.NotEqual(t, Cap(rows, 7, 9, 42), Cap(rows, 7, 9, 1))
}

func TestCap_ZeroCapDropsCategory(t *testing.T) {
	rows := makeRows(map[labeler.Category]int{labeler.Other: 3, labeler.AppBug: 3})
	out := Cap(rows, 3, 0, 42)
	assert.Equal(t, 0, dataset.Distribute(out).Count(labeler.Other))
	assert.Len(t, out, 3)
}

func TestRun_WritesSample(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "full.csv")
	dst := filepath.Join(dir, "sample.csv")

	data, err := dataset.EncodeLabeled(makeRows(map[labeler.Category]int{
		labeler.Other:         12,
		labeler.RefundRequest: 8,
	}))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(src, data, 0o644))

	res, err := Run(context.Background(), Options{Src: src, Dst: dst, Cap: 4, CapOther: 6, Seed: 42})
	require.NoError(t, err)
	assert.Equal(t, 20, res.Full.Total)
	assert.Equal(t, 10, res.Sample.Total)

	first, err := os.ReadFile(dst)
	require.NoError(t, err)

	_, err = Run(context.Background(), Options{Src: src, Dst: dst, Cap: 4, CapOther: 6, Seed: 42})
	require.NoError(t, err)
	second, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, first, second, "same seed must give byte-identical output")
}

func TestRun_RejectsNegativeCap(t *testing.T) {
	_, err := Run(context.Background(), Options{Cap: -1})
	assert.ErrorIs(t, err, ErrInvalidCap)
}

func TestRun_MissingColumns(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(src, []byte("narrative,label\nx,y\n"), 0o644))

	_, err := Run(context.Background(), Options{Src: src, Dst: filepath.Join(dir, "out.csv"), Cap: 1, CapOther: 1})
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)
}
