package aggregate

import (
	"sync"

	"github.com/newstrend-lab/keyword-trends/internal/core/domain"
	apperrors "github.com/newstrend-lab/keyword-trends/internal/core/errors"
)

// Table is the monthly aggregation table: a sparse mapping from
// (category, month, keyword) to the accumulated weight over every
// contributing issue. A keyword absent from a bucket is equivalent to weight
// zero.
//
// Accumulate is deliberately not idempotent: folding the same contribution in
// twice double-counts. Exactly-once delivery is the ingestion driver's job;
// re-running ingestion over an already folded dataset must rebuild the table
// from scratch.
//
// All methods are safe for concurrent use. The preferred parallelization
// strategy is still to build independent partial tables and reduce them with
// Merge, which needs no shared mutable state at all.
type Table struct {
	mu      sync.RWMutex
	buckets map[domain.BucketKey]map[string]int64
}

// NewTable returns an empty aggregation table.
func NewTable() *Table {
	return &Table{buckets: make(map[domain.BucketKey]map[string]int64)}
}

// Accumulate adds the contribution's weight to the entry at its
// (category, month, keyword) key, creating the entry if absent. Zero-weight
// contributions still create their bucket so that coverage statistics see it.
func (t *Table) Accumulate(c domain.IssueContribution) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.accumulateLocked(c)
}

// AccumulateRecord expands one record and folds every contribution in under
// a single critical section, so readers never observe a half-applied record.
func (t *Table) AccumulateRecord(rec domain.WeeklyIssueRecord) {
	contribs := Contributions(rec)

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, c := range contribs {
		t.accumulateLocked(c)
	}
}

func (t *Table) accumulateLocked(c domain.IssueContribution) {
	key := domain.BucketKey{Category: c.Category, Month: c.Month}

	bucket, ok := t.buckets[key]
	if !ok {
		bucket = make(map[string]int64)
		t.buckets[key] = bucket
	}

	bucket[c.Keyword] += c.Weight
}

// Merge folds other into t bucket-wise by summation. Merge is associative and
// commutative, so partial tables built per category or per week can be
// reduced in any order and yield the same result. Tables disagreeing on the
// set of known categories merge to the union; that is documented behavior,
// not a conflict.
//
// other must not be mutated concurrently with the merge.
func (t *Table) Merge(other *Table) {
	if other == nil || other == t {
		return
	}

	other.mu.RLock()
	defer other.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	for key, bucket := range other.buckets {
		dst, ok := t.buckets[key]
		if !ok {
			dst = make(map[string]int64, len(bucket))
			t.buckets[key] = dst
		}

		for keyword, weight := range bucket {
			dst[keyword] += weight
		}
	}
}

// Scope selects the slice of the table a query operates on: a single bucket
// (category and month set), one category across all months (category set), or
// the whole table (neither set).
type Scope struct {
	Category *domain.Category
	Month    *domain.Month
}

// Global returns the scope covering the whole table.
func Global() Scope { return Scope{} }

// ByCategory returns the scope covering one category across all months.
func ByCategory(c domain.Category) Scope {
	return Scope{Category: &c}
}

// ByBucket returns the scope covering a single (category, month) bucket.
func ByBucket(c domain.Category, m domain.Month) Scope {
	return Scope{Category: &c, Month: &m}
}

func (s Scope) matches(key domain.BucketKey) bool {
	if s.Category != nil && key.Category != *s.Category {
		return false
	}

	if s.Month != nil && key.Month != *s.Month {
		return false
	}

	return true
}

// Validate rejects scopes that name a month without a category; a bare month
// spans categories and is not a queryable bucket.
func (s Scope) Validate() error {
	if s.Month != nil && s.Category == nil {
		return apperrors.ErrInvalidScope
	}

	return nil
}

// Query returns a copy of the sparse mapping for the scope. The result never
// aliases internal state and the table is not mutated.
func (t *Table) Query(scope Scope) (map[domain.BucketKey]map[string]int64, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[domain.BucketKey]map[string]int64)

	for key, bucket := range t.buckets {
		if !scope.matches(key) {
			continue
		}

		cp := make(map[string]int64, len(bucket))
		for keyword, weight := range bucket {
			cp[keyword] = weight
		}

		out[key] = cp
	}

	return out, nil
}

// Categories returns the set of categories present in the table.
func (t *Table) Categories() []domain.Category {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := make(map[domain.Category]struct{})
	for key := range t.buckets {
		seen[key.Category] = struct{}{}
	}

	out := make([]domain.Category, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}

	return out
}

// monthRange returns the earliest and latest months present for a category.
// ok is false when the category has no buckets at all.
func (t *Table) monthRange(c domain.Category) (first, last domain.Month, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for key := range t.buckets {
		if key.Category != c {
			continue
		}

		if !ok {
			first, last, ok = key.Month, key.Month, true
			continue
		}

		if key.Month.Before(first) {
			first = key.Month
		}

		if last.Before(key.Month) {
			last = key.Month
		}
	}

	return first, last, ok
}

// weightAt returns the accumulated weight for a single key, zero if absent.
func (t *Table) weightAt(c domain.Category, m domain.Month, keyword string) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.buckets[domain.BucketKey{Category: c, Month: m}][keyword]
}
