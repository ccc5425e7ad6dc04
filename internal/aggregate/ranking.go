package aggregate

import (
	"sort"

	"github.com/newstrend-lab/keyword-trends/internal/core/domain"
	apperrors "github.com/newstrend-lab/keyword-trends/internal/core/errors"
)

// TopN returns the ranking view for a scope: at most n entries sorted by
// weight descending, ties broken by keyword ascending so the order is fully
// deterministic regardless of ingestion order. Zero-weight entries sort last
// by construction. n greater than the number of distinct keywords returns all
// of them without padding; n below one is an invalid query.
func (t *Table) TopN(scope Scope, n int) ([]domain.RankingEntry, error) {
	if n <= 0 {
		return nil, apperrors.ErrInvalidTopN
	}

	slice, err := t.Query(scope)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]int64)

	for _, bucket := range slice {
		for keyword, weight := range bucket {
			totals[keyword] += weight
		}
	}

	entries := make([]domain.RankingEntry, 0, len(totals))
	for keyword, weight := range totals {
		entries = append(entries, domain.RankingEntry{Keyword: keyword, Weight: weight})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Weight != entries[j].Weight {
			return entries[i].Weight > entries[j].Weight
		}

		return entries[i].Keyword < entries[j].Keyword
	})

	if len(entries) > n {
		entries = entries[:n]
	}

	return entries, nil
}

// TimeSeries returns one keyword's monthly trend within a category, in
// chronological order across the category's full observed month range.
// Months with no accumulated weight for the keyword are reported explicitly
// as zero, never omitted. A category with zero ingested records yields
// ErrCategoryNotIngested.
func (t *Table) TimeSeries(c domain.Category, keyword string) ([]domain.TimeSeriesPoint, error) {
	first, last, ok := t.monthRange(c)
	if !ok {
		return nil, apperrors.ErrCategoryNotIngested
	}

	var points []domain.TimeSeriesPoint

	for m := first; ; m = m.Next() {
		points = append(points, domain.TimeSeriesPoint{
			Month:  m,
			Weight: t.weightAt(c, m, keyword),
		})

		if m == last {
			break
		}
	}

	return points, nil
}
