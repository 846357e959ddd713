package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/deepak-highbeam/complaint-classifier/internal/labeler"
)

func TestDecodeCSV_StripsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Product,Issue\nCredit card,Billing\n")...)

	tbl, err := DecodeCSV(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Product", "Issue"}, tbl.Header)
	assert.Equal(t, [][]string{{"Credit card", "Billing"}}, tbl.Rows)
}

func TestDecodeCSV_PlainUTF8(t *testing.T) {
	tbl, err := DecodeCSV([]byte("a,b\n\"x, y\",\"multi\nline\"\n"))
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "x, y", tbl.Rows[0][0])
	assert.Equal(t, "multi\nline", tbl.Rows[0][1])
}

func TestDecodeCSV_InvalidUTF8(t *testing.T) {
	_, err := DecodeCSV([]byte("a,b\n\xff\xfe,oops\n"))
	assert.ErrorIs(t, err, ErrUndecodable)
}

func TestDecodeCSV_Empty(t *testing.T) {
	_, err := DecodeCSV(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestDecodeCSV_RaggedRows(t *testing.T) {
	tbl, err := DecodeCSV([]byte("a,b,c\n1\n1,2,3,4\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "", ""}, tbl.Rows[0])
	assert.Equal(t, []string{"1", "2", "3"}, tbl.Rows[1])
}

func TestDecode_XLSX(t *testing.T) {
	f := excelize.NewFile()
	_, err := f.NewSheet("ReadMe")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Product", "Consumer complaint narrative"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Credit card", "The app crashed on login"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	tbl, err := Decode("complaints.XLSX", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"Product", "Consumer complaint narrative"}, tbl.Header)
	assert.Equal(t, [][]string{{"Credit card", "The app crashed on login"}}, tbl.Rows)
}

func TestDecode_XLSUnsupported(t *testing.T) {
	_, err := Decode("old.xls", []byte("whatever"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestTableColumn(t *testing.T) {
	tbl := &Table{Header: []string{"a", "b"}}
	assert.Equal(t, 1, tbl.Column("b"))
	assert.Equal(t, -1, tbl.Column("c"))
}

func TestReadLabeled(t *testing.T) {
	rows, err := ReadLabeled([]byte("text,category,extra\nhello there,other,x\napp broke,app_bug,y\n"))
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{Text: "hello there", Category: labeler.Other},
		{Text: "app broke", Category: labeler.AppBug},
	}, rows)
}

func TestReadLabeled_MissingColumn(t *testing.T) {
	_, err := ReadLabeled([]byte("text,label\nhello,other\n"))
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestReadLabeled_UnknownCategory(t *testing.T) {
	_, err := ReadLabeled([]byte("text,category\nhello,spam\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestEncodeLabeled_RoundTrip(t *testing.T) {
	rows := []Row{
		{Text: `He said "refund", then left`, Category: labeler.RefundRequest},
		{Text: "line one\nline two", Category: labeler.Other},
	}
	data, err := EncodeLabeled(rows)
	require.NoError(t, err)
	assert.True(t, len(data) > 0)
	assert.Equal(t, "text,category\n", string(data[:len("text,category\n")]))

	back, err := ReadLabeled(data)
	require.NoError(t, err)
	assert.Equal(t, rows, back)
}

func TestEncodeLabeled_Empty(t *testing.T) {
	data, err := EncodeLabeled(nil)
	require.NoError(t, err)
	assert.Equal(t, "text,category\n", string(data))
}

func TestDedup(t *testing.T) {
	rows := []Row{
		{"a", labeler.Other},
		{"b", labeler.AppBug},
		{"a", labeler.Other},
		{"a", labeler.AppBug},
	}
	assert.Equal(t, []Row{
		{"a", labeler.Other},
		{"b", labeler.AppBug},
		{"a", labeler.AppBug},
	}, Dedup(rows))
}

func TestShuffle_Deterministic(t *testing.T) {
	rows := make([]Row, 50)
	for i := range rows {
		rows[i] = Row{Text: string(rune('a' + i%26)), Category: labeler.AllCategories()[i%5]}
	}

	a := Shuffle(rows, 42)
	b := Shuffle(rows, 42)
	c := Shuffle(rows, 7)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.ElementsMatch(t, rows, a)
	assert.Equal(t, "a", rows[0].Text, "input must not be modified")
}

func TestGroupByCategory(t *testing.T) {
	keys, groups := GroupByCategory([]Row{
		{"1", labeler.Other},
		{"2", labeler.AppBug},
		{"3", labeler.Other},
	})
	assert.Equal(t, []labeler.Category{labeler.AppBug, labeler.Other}, keys)
	assert.Equal(t, []Row{{"1", labeler.Other}, {"3", labeler.Other}}, groups[labeler.Other])
}

func TestDistribute(t *testing.T) {
	d := Distribute([]Row{
		{"1", labeler.Other},
		{"2", labeler.AppBug},
		{"3", labeler.Other},
		{"4", labeler.BillingProblem},
	})

	assert.Equal(t, 4, d.Total)
	require.Len(t, d.Counts, 3)
	assert.Equal(t, labeler.Other, d.Counts[0].Category)
	assert.InDelta(t, 50.0, d.Counts[0].Percent, 1e-9)
	// Ties sort by name.
	assert.Equal(t, labeler.AppBug, d.Counts[1].Category)
	assert.Equal(t, labeler.BillingProblem, d.Counts[2].Category)
	assert.Equal(t, 2, d.Count(labeler.Other))
	assert.Equal(t, 0, d.Count(labeler.DeliveryIssue))
}

func TestDistribute_Empty(t *testing.T) {
	d := Distribute(nil)
	assert.Equal(t, 0, d.Total)
	assert.Empty(t, d.Counts)
}
