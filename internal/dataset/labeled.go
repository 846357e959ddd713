package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/deepak-highbeam/complaint-classifier/internal/labeler"
)

// Column names of the labeled schema.
const (
	TextColumn     = "text"
	CategoryColumn = "category"
)

// Row is one labeled example: the only schema that survives ingestion.
type Row struct {
	Text     string           `json:"text"`
	Category labeler.Category `json:"category"`
}

// ReadLabeled decodes a labeled CSV. The text and category columns are
// required; any other columns are ignored.
func ReadLabeled(data []byte) ([]Row, error) {
	t, err := DecodeCSV(data)
	if err != nil {
		return nil, err
	}

	textIdx, catIdx := t.Column(TextColumn), t.Column(CategoryColumn)
	if textIdx < 0 || catIdx < 0 {
		return nil, fmt.Errorf("%w: expected columns %q and %q, have %v",
			ErrMissingColumn, TextColumn, CategoryColumn, t.Header)
	}

	rows := make([]Row, 0, len(t.Rows))
	for i, r := range t.Rows {
		cat, err := labeler.ParseCategory(r[catIdx])
		if err != nil {
			// Line numbers are 1-based and the header is line 1.
			return nil, fmt.Errorf("line %d: %w", i+2, err)
		}
		rows = append(rows, Row{Text: r[textIdx], Category: cat})
	}
	return rows, nil
}

// EncodeLabeled writes rows as a UTF-8 CSV with a text,category header and
// no index column.
func EncodeLabeled(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{TextColumn, CategoryColumn}); err != nil {
		return nil, err
	}
	for _, r := range rows {
		if err := w.Write([]string{r.Text, string(r.Category)}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode CSV: %w", err)
	}
	return buf.Bytes(), nil
}

// Dedup drops exact duplicate (text, category) rows, keeping the first
// occurrence and the original order.
func Dedup(rows []Row) []Row {
	seen := make(map[Row]struct{}, len(rows))
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// NewRand returns the deterministic generator used for every shuffle, sample
// and split. The same seed always yields the same sequence.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))
}

// Shuffle returns a permuted copy of rows. Output depends only on the input
// order and the seed.
func Shuffle(rows []Row, seed int64) []Row {
	out := append([]Row(nil), rows...)
	r := NewRand(seed)
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// GroupByCategory splits rows by category, preserving order within each
// group. Categories are returned sorted by name.
func GroupByCategory(rows []Row) ([]labeler.Category, map[labeler.Category][]Row) {
	groups := make(map[labeler.Category][]Row)
	for _, r := range rows {
		groups[r.Category] = append(groups[r.Category], r)
	}
	keys := make([]labeler.Category, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, groups
}

// CategoryCount is one line of a class distribution.
type CategoryCount struct {
	Category labeler.Category `json:"category"`
	Count    int              `json:"count"`
	Percent  float64          `json:"percent"`
}

// Distribution summarizes how many rows fall into each category.
type Distribution struct {
	Total  int             `json:"total"`
	Counts []CategoryCount `json:"counts"`
}

// Count returns the number of rows with category c.
func (d Distribution) Count(c labeler.Category) int {
	for _, cc := range d.Counts {
		if cc.Category == c {
			return cc.Count
		}
	}
	return 0
}

// Distribute computes per-category counts and percentages, ordered by count
// descending with ties broken by category name.
func Distribute(rows []Row) Distribution {
	counts := make(map[labeler.Category]int)
	for _, r := range rows {
		counts[r.Category]++
	}

	d := Distribution{Total: len(rows)}
	for c, n := range counts {
		pct := 0.0
		if len(rows) > 0 {
			pct = float64(n) / float64(len(rows)) * 100.0
		}
		d.Counts = append(d.Counts, CategoryCount{Category: c, Count: n, Percent: pct})
	}
	sort.Slice(d.Counts, func(i, j int) bool {
		if d.Counts[i].Count != d.Counts[j].Count {
			return d.Counts[i].Count > d.Counts[j].Count
		}
		return d.Counts[i].Category < d.Counts[j].Category
	})
	return d
}
