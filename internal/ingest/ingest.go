// Package ingest drives batch ingestion of weekly issue records into an
// aggregation table. It owns the validation boundary (invalid records are
// skipped and reported, or abort the batch in strict mode) and the
// exactly-once discipline: every record of a batch is folded in exactly once,
// and a re-run rebuilds the table from scratch instead of re-accumulating.
package ingest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/newstrend-lab/keyword-trends/internal/aggregate"
	"github.com/newstrend-lab/keyword-trends/internal/core/domain"
	apperrors "github.com/newstrend-lab/keyword-trends/internal/core/errors"
	"github.com/newstrend-lab/keyword-trends/internal/platform/observability"
)

// Ingester validates and folds weekly issue records into aggregation tables.
type Ingester struct {
	categories domain.CategorySet
	strict     bool
	workers    int
	logger     *zerolog.Logger
}

// New creates an ingester. In strict mode the first invalid record fails the
// whole batch; otherwise invalid records are skipped and reported. workers
// above one enables per-category parallel ingestion, reduced via table merge.
func New(categories domain.CategorySet, strict bool, workers int, logger *zerolog.Logger) *Ingester {
	if workers < 1 {
		workers = 1
	}

	return &Ingester{categories: categories, strict: strict, workers: workers, logger: logger}
}

// SkippedRecord pairs a rejected record with the reason, giving the driver
// enough context to log and move on.
type SkippedRecord struct {
	Record domain.WeeklyIssueRecord
	Reason error
}

// Report summarizes one batch run.
type Report struct {
	Ingested int
	Skipped  []SkippedRecord
	Duration time.Duration
}

// Run ingests the batch and returns the resulting table. The table is a
// fresh value whose lifetime matches this batch; abandoning it has no side
// effects beyond memory.
func (in *Ingester) Run(ctx context.Context, records []domain.WeeklyIssueRecord) (*aggregate.Table, *Report, error) {
	start := time.Now()

	var (
		table  *aggregate.Table
		report *Report
		err    error
	)

	if in.workers > 1 {
		table, report, err = in.runParallel(ctx, records)
	} else {
		table, report, err = in.runSequential(ctx, records)
	}

	if err != nil {
		return nil, nil, err
	}

	report.Duration = time.Since(start)
	observability.BatchDurationSeconds.Observe(report.Duration.Seconds())

	return table, report, nil
}

func (in *Ingester) runSequential(ctx context.Context, records []domain.WeeklyIssueRecord) (*aggregate.Table, *Report, error) {
	table := aggregate.NewTable()
	report := &Report{}

	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		if err := in.ingestOne(table, rec); err != nil {
			if in.strict {
				return nil, nil, fmt.Errorf("record %d: %w", i, err)
			}

			report.Skipped = append(report.Skipped, SkippedRecord{Record: rec, Reason: err})

			continue
		}

		report.Ingested++
	}

	return table, report, nil
}

// runParallel partitions records by category, builds one partial table per
// partition with no shared mutable state, and reduces the partials with
// Merge. Merge is associative and commutative, so the reduction order does
// not matter and the result equals sequential ingestion.
func (in *Ingester) runParallel(ctx context.Context, records []domain.WeeklyIssueRecord) (*aggregate.Table, *Report, error) {
	partitions := make(map[domain.Category][]domain.WeeklyIssueRecord)
	for _, rec := range records {
		partitions[rec.Category] = append(partitions[rec.Category], rec)
	}

	// Deterministic partition order so strict-mode failures are stable.
	cats := make([]domain.Category, 0, len(partitions))
	for c := range partitions {
		cats = append(cats, c)
	}

	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })

	type partial struct {
		table  *aggregate.Table
		report *Report
		err    error
	}

	results := make([]partial, len(cats))
	sem := make(chan struct{}, in.workers)

	var wg sync.WaitGroup

	for i, cat := range cats {
		wg.Add(1)

		go func(i int, recs []domain.WeeklyIssueRecord) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			table, report, err := in.runSequential(ctx, recs)
			results[i] = partial{table: table, report: report, err: err}
		}(i, partitions[cat])
	}

	wg.Wait()

	merged := aggregate.NewTable()
	report := &Report{}

	for _, res := range results {
		if res.err != nil {
			return nil, nil, res.err
		}

		merged.Merge(res.table)
		report.Ingested += res.report.Ingested
		report.Skipped = append(report.Skipped, res.report.Skipped...)
	}

	return merged, report, nil
}

// ingestOne validates the record fully before touching the table, so a
// rejected record never leaves partial per-keyword writes behind.
func (in *Ingester) ingestOne(table *aggregate.Table, rec domain.WeeklyIssueRecord) error {
	if err := in.validate(rec); err != nil {
		observability.RecordsRejected.WithLabelValues(reasonLabel(err)).Inc()

		if in.logger != nil {
			in.logger.Warn().
				Str("category", string(rec.Category)).
				Time("week_start", rec.WeekStart).
				Int("issue_rank", rec.IssueRank).
				Err(err).
				Msg("skipping invalid record")
		}

		return err
	}

	table.AccumulateRecord(rec)
	observability.RecordsIngested.WithLabelValues(string(rec.Category)).Inc()

	return nil
}

func (in *Ingester) validate(rec domain.WeeklyIssueRecord) error {
	if !in.categories.Contains(rec.Category) {
		return fmt.Errorf("%w: %q", apperrors.ErrUnknownCategory, rec.Category)
	}

	if rec.WeekStart.IsZero() {
		return apperrors.ErrInvalidWeekStart
	}

	if rec.IssueRank < domain.MinIssueRank || rec.IssueRank > domain.MaxIssueRank {
		return fmt.Errorf("%w: %d", apperrors.ErrInvalidIssueRank, rec.IssueRank)
	}

	if rec.ArticleCount < 0 {
		return fmt.Errorf("%w: %d", apperrors.ErrNegativeArticleCount, rec.ArticleCount)
	}

	keywords := make([]string, 0, len(rec.KeywordCounts))
	for kw := range rec.KeywordCounts {
		keywords = append(keywords, kw)
	}

	sort.Strings(keywords)

	for _, kw := range keywords {
		if rec.KeywordCounts[kw] < 1 {
			return fmt.Errorf("%w: %q has count %d", apperrors.ErrInvalidKeywordCount, kw, rec.KeywordCounts[kw])
		}
	}

	return nil
}

func reasonLabel(err error) string {
	switch {
	case apperrors.Is(err, apperrors.ErrUnknownCategory):
		return "unknown_category"
	case apperrors.Is(err, apperrors.ErrInvalidWeekStart):
		return "invalid_week_start"
	case apperrors.Is(err, apperrors.ErrInvalidIssueRank):
		return "invalid_issue_rank"
	case apperrors.Is(err, apperrors.ErrNegativeArticleCount):
		return "negative_article_count"
	case apperrors.Is(err, apperrors.ErrInvalidKeywordCount):
		return "invalid_keyword_count"
	default:
		return "other"
	}
}
