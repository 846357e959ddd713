package ingest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepak-highbeam/complaint-classifier/internal/blob"
	"github.com/deepak-highbeam/complaint-classifier/internal/dataset"
	"github.com/deepak-highbeam/complaint-classifier/internal/labeler"
	"github.com/deepak-highbeam/complaint-classifier/internal/metrics"
)

const rawCSV = "\ufeffDate received,Product,Issue,Consumer complaint narrative\n" +
	"2024-01-01,Credit card or prepaid card,Billing dispute,I was charged for something I never bought\n" +
	"2024-01-02,Mortgage,Billing dispute,Mortgage servicer charged me an extra fee\n" +
	"2024-01-03,Checking or savings account,,The mobile app crashes whenever I open it\n" +
	"2024-01-04,Credit card,,\n" +
	"2024-01-05,Credit card,,  abcdefghijklmn  \n" +
	"2024-01-06,Credit card,,abcdefghijklmno\n" +
	"2024-01-07,Prepaid card,Card not received,Still waiting after a month\n" +
	"2024-01-08,Checking or savings account,,The mobile app crashes whenever I open it\n" +
	"2024-01-09,,Billing dispute,No product on this row at all\n"

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readOutput(t *testing.T, path string) []dataset.Row {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := dataset.ReadLabeled(data)
	require.NoError(t, err)
	return rows
}

func TestRun_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "complaints.csv", rawCSV)
	out := filepath.Join(dir, "out", "customer_feedback.csv")
	m := metrics.New()

	res, err := Run(context.Background(), Options{
		Input:      in,
		Output:     out,
		MinTextLen: DefaultMinTextLen,
		Seed:       DefaultSeed,
		Metrics:    m,
	})
	require.NoError(t, err)

	rows := readOutput(t, out)
	assert.ElementsMatch(t, []dataset.Row{
		{Text: "I was charged for something I never bought", Category: labeler.BillingProblem},
		{Text: "The mobile app crashes whenever I open it", Category: labeler.AppBug},
		{Text: "abcdefghijklmno", Category: labeler.Other},
		{Text: "Still waiting after a month", Category: labeler.DeliveryIssue},
	}, rows)

	assert.Equal(t, 9, res.RowsRead)
	assert.Equal(t, 4, res.Rows())
	assert.Equal(t, 2, res.Dropped[metrics.DropProduct])
	assert.Equal(t, 1, res.Dropped[metrics.DropNullNarrative])
	assert.Equal(t, 1, res.Dropped[metrics.DropShortNarrative])
	assert.Equal(t, 1, res.Dropped[metrics.DropDuplicate])
	assert.Equal(t, 1, res.Distribution.Count(labeler.AppBug))

	assert.Equal(t, 9.0, testutil.ToFloat64(m.RowsRead))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.RowsWritten))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RowsLabeled.WithLabelValues("app_bug")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RuleMatches.WithLabelValues(labeler.IssueDelivery)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RuleMatches.WithLabelValues("none")))
}

func TestRun_LengthBoundary(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "in.csv", "Consumer complaint narrative\n"+
		"12345678901234\n"+
		"123456789012345\n"+
		"   12345678901234   \n")
	out := filepath.Join(dir, "out.csv")

	_, err := Run(context.Background(), Options{Input: in, Output: out, MinTextLen: 15})
	require.NoError(t, err)

	rows := readOutput(t, out)
	require.Len(t, rows, 1)
	assert.Equal(t, "123456789012345", rows[0].Text)
}

func TestRun_NoProductColumnSkipsFilter(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "in.csv", "Issue,Consumer complaint narrative\n"+
		"Billing dispute,Something happened with my account\n"+
		",My card was never received in the mail\n")
	out := filepath.Join(dir, "out.csv")

	res, err := Run(context.Background(), Options{Input: in, Output: out, MinTextLen: 15})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows())
	assert.Equal(t, 0, res.Dropped[metrics.DropProduct])

	rows := readOutput(t, out)
	assert.ElementsMatch(t, []dataset.Row{
		{Text: "Something happened with my account", Category: labeler.BillingProblem},
		{Text: "My card was never received in the mail", Category: labeler.DeliveryIssue},
	}, rows)
}

func TestRun_ProductFilterIgnoresContent(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "in.csv", "Product,Issue,Consumer complaint narrative\n"+
		"Student loan,Refund,The app crashed and I want a refund\n")
	out := filepath.Join(dir, "out.csv")

	res, err := Run(context.Background(), Options{Input: in, Output: out, MinTextLen: 15})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Rows())
	assert.Empty(t, readOutput(t, out))
}

func TestRun_CustomAllowList(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "in.csv", "Product,Consumer complaint narrative\n"+
		"Student loan,My loan statement shows the wrong interest\n"+
		"Credit card,My card statement shows the wrong interest\n")
	out := filepath.Join(dir, "out.csv")

	res, err := Run(context.Background(), Options{
		Input:           in,
		Output:          out,
		MinTextLen:      15,
		AllowedProducts: []string{"Student Loan"},
	})
	require.NoError(t, err)
	rows := readOutput(t, out)
	require.Len(t, rows, 1)
	assert.Equal(t, "My loan statement shows the wrong interest", rows[0].Text)
	assert.Equal(t, 1, res.Dropped[metrics.DropProduct])
}

func TestRun_Deterministic(t *testing.T) {
	dir := t.TempDir()
	var b bytes.Buffer
	b.WriteString("Consumer complaint narrative\n")
	for i := 0; i < 200; i++ {
		b.WriteString("complaint number ")
		b.WriteString(string(rune('a' + i%26)))
		b.WriteString(string(rune('a' + (i/26)%26)))
		b.WriteString(" about my online login\n")
	}
	in := writeInput(t, dir, "in.csv", b.String())
	out1 := filepath.Join(dir, "one.csv")
	out2 := filepath.Join(dir, "two.csv")

	_, err := Run(context.Background(), Options{Input: in, Output: out1, MinTextLen: 15, Seed: 42})
	require.NoError(t, err)
	_, err = Run(context.Background(), Options{Input: in, Output: out2, MinTextLen: 15, Seed: 42})
	require.NoError(t, err)

	a, err := os.ReadFile(out1)
	require.NoError(t, err)
	c, err := os.ReadFile(out2)
	require.NoError(t, err)
	assert.Equal(t, a, c)
}

func TestRun_MissingNarrativeColumn(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "in.csv", "Product,Issue\nCredit card,Billing\n")
	out := filepath.Join(dir, "out.csv")

	_, err := Run(context.Background(), Options{Input: in, Output: out, MinTextLen: 15})
	require.ErrorIs(t, err, dataset.ErrMissingColumn)
	assert.Contains(t, err.Error(), "product, issue")
	assert.NoFileExists(t, out)
}

func TestRun_MissingInput(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.csv")

	_, err := Run(context.Background(), Options{Input: filepath.Join(dir, "nope.csv"), Output: out})
	require.ErrorIs(t, err, blob.ErrNotFound)
	assert.NoFileExists(t, out)
}

func TestRun_Undecodable(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "in.csv", "Consumer complaint narrative\n\xff\xfe\xfd broken bytes here\n")
	out := filepath.Join(dir, "out.csv")

	_, err := Run(context.Background(), Options{Input: in, Output: out, MinTextLen: 15})
	require.ErrorIs(t, err, dataset.ErrUndecodable)
	assert.NoFileExists(t, out)
}

func TestRun_ProgressBar(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir, "in.csv", "Consumer complaint narrative\nThe website is down again today\n")
	var progress bytes.Buffer

	_, err := Run(context.Background(), Options{
		Input:      in,
		Output:     filepath.Join(dir, "out.csv"),
		MinTextLen: 15,
		Progress:   &progress,
	})
	require.NoError(t, err)
	assert.Contains(t, progress.String(), "Labeling complaints")
}

func TestDefaultAllowedProducts(t *testing.T) {
	assert.Len(t, DefaultAllowedProducts(), 7)
	assert.Contains(t, DefaultAllowedProducts(), "money_transfer_virtual_currency_or_money_service")
}
