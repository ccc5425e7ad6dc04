// Package aggregate implements the weighted aggregation engine: issue
// weighting, temporal bucketing, the monthly aggregation table and its
// deterministic ranking views.
//
// Weights are impact-weighted frequencies: a keyword's in-issue occurrence
// count multiplied by the issue's article count. Raw keyword frequency alone
// rewards verbose single articles; scaling by the cluster's coverage volume
// rewards keywords tied to issues with broad media coverage, which tracks
// societal salience rather than lexical noise.
package aggregate

import (
	"sort"

	"github.com/newstrend-lab/keyword-trends/internal/core/domain"
)

// Contributions expands one weekly issue record into one weighted
// contribution per keyword. It is a pure function of the record: the input is
// never mutated and repeated calls yield the same result.
//
// An article count of zero is a valid state, not a failure: the issue still
// exists for coverage statistics, every contribution just carries weight
// zero. An empty keyword map yields no contributions.
func Contributions(rec domain.WeeklyIssueRecord) []domain.IssueContribution {
	if len(rec.KeywordCounts) == 0 {
		return nil
	}

	bucket := BucketOf(rec)
	out := make([]domain.IssueContribution, 0, len(rec.KeywordCounts))

	for keyword, count := range rec.KeywordCounts {
		out = append(out, domain.IssueContribution{
			Category: bucket.Category,
			Month:    bucket.Month,
			Keyword:  keyword,
			Weight:   int64(rec.ArticleCount) * int64(count),
		})
	}

	// Map iteration order is random; callers and tests rely on a stable order.
	sort.Slice(out, func(i, j int) bool { return out[i].Keyword < out[j].Keyword })

	return out
}

// BucketOf maps a record to its (category, month) aggregation bucket. The
// month is the calendar month of the week's start date; see domain.MonthOf
// for the truncation rule.
func BucketOf(rec domain.WeeklyIssueRecord) domain.BucketKey {
	return domain.BucketKey{
		Category: rec.Category,
		Month:    domain.MonthOf(rec.WeekStart),
	}
}
