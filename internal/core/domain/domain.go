// Package domain holds the core entities shared across the aggregation
// pipeline: weekly issue records coming in from the token source, the
// derived contributions, and the read-side projections served to consumers.
package domain

import (
	"fmt"
	"time"
)

// Category identifies a news category. The set of valid categories is closed
// and fixed per deployment (see config.CategoryMap); records carrying a
// category outside that set are rejected at the ingestion boundary.
type Category string

// Well-known categories present in every deployment.
const (
	CategoryTotal   Category = "total"
	CategoryEconomy Category = "economy"
)

// CategorySet maps each valid category to the data source identifier used by
// the upstream crawler (e.g. the issue-category select value on the source
// site). Membership in this map is what makes a category valid.
type CategorySet map[Category]string

// Contains reports whether c is a known category.
func (s CategorySet) Contains(c Category) bool {
	_, ok := s[c]
	return ok
}

// Month is a calendar year-month. It is the temporal half of a bucket key.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf truncates t to its calendar month. A week is assigned to the month
// containing its start date and is never split across a month boundary, even
// when its 7-day span crosses one. The start date is authoritative; this is a
// stated design choice, not an oversight.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a "YYYY-MM" string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("parse month %q: %w", s, err)
	}

	return MonthOf(t), nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Before reports whether m is chronologically before o.
func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}

	return m.Month < o.Month
}

// Next returns the month immediately after m.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}

	return Month{Year: m.Year, Month: m.Month + 1}
}

// Time returns the first instant of the month in UTC. Used when a Month has
// to round-trip through a DATE column.
func (m Month) Time() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// WeeklyIssueRecord is one weekly news-issue cluster as delivered by the
// token source: a top-ranked discourse topic of one week within one category,
// with the cluster's media coverage volume and its already tokenized keyword
// occurrence counts. Records are immutable once ingested and consumed exactly
// once.
type WeeklyIssueRecord struct {
	Category      Category
	WeekStart     time.Time
	IssueRank     int
	ArticleCount  int
	KeywordCounts map[string]int
}

// Issue rank bounds: the source publishes at most ten ranked issues per week.
const (
	MinIssueRank = 1
	MaxIssueRank = 10
)

// IssueContribution is the ephemeral weighted contribution of one keyword of
// one issue. It only exists between weighting and accumulation and is never
// persisted on its own.
type IssueContribution struct {
	Category Category
	Month    Month
	Keyword  string
	Weight   int64
}

// BucketKey addresses one (category, month) aggregation bucket.
type BucketKey struct {
	Category Category
	Month    Month
}

// RankingEntry is one row of a ranking view: a keyword and its accumulated
// weight within the queried scope.
type RankingEntry struct {
	Keyword string `json:"keyword"`
	Weight  int64  `json:"weight"`
}

// TimeSeriesPoint is one month of a keyword's trend line. Months inside the
// observed range that have no accumulated weight are reported explicitly with
// a zero weight so chart consumers need no gap-filling of their own.
type TimeSeriesPoint struct {
	Month  Month
	Weight int64
}
