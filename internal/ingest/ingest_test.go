package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newstrend-lab/keyword-trends/internal/aggregate"
	"github.com/newstrend-lab/keyword-trends/internal/core/domain"
	apperrors "github.com/newstrend-lab/keyword-trends/internal/core/errors"
)

func testCategories() domain.CategorySet {
	return domain.CategorySet{
		domain.CategoryTotal:   "ALL",
		domain.CategoryEconomy: "002000000",
	}
}

func testLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func validRecord(cat domain.Category, day int, articles int, counts map[string]int) domain.WeeklyIssueRecord {
	return domain.WeeklyIssueRecord{
		Category:      cat,
		WeekStart:     time.Date(2025, 3, day, 0, 0, 0, 0, time.UTC),
		IssueRank:     1,
		ArticleCount:  articles,
		KeywordCounts: counts,
	}
}

func TestRunLenientSkipsInvalidRecords(t *testing.T) {
	in := New(testCategories(), false, 1, testLogger())

	records := []domain.WeeklyIssueRecord{
		validRecord(domain.CategoryEconomy, 7, 100, map[string]int{"tariff": 3}),
		validRecord(domain.Category("politics"), 7, 10, map[string]int{"vote": 1}),
		validRecord(domain.CategoryEconomy, 14, -5, map[string]int{"rates": 1}),
	}

	table, report, err := in.Run(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Ingested)
	require.Len(t, report.Skipped, 2)
	assert.ErrorIs(t, report.Skipped[0].Reason, apperrors.ErrUnknownCategory)
	assert.ErrorIs(t, report.Skipped[1].Reason, apperrors.ErrNegativeArticleCount)

	march := domain.Month{Year: 2025, Month: time.March}
	top, err := table.TopN(aggregate.ByBucket(domain.CategoryEconomy, march), 10)
	require.NoError(t, err)
	assert.Equal(t, []domain.RankingEntry{{Keyword: "tariff", Weight: 300}}, top)
}

func TestRunStrictAbortsOnFirstInvalid(t *testing.T) {
	in := New(testCategories(), true, 1, testLogger())

	records := []domain.WeeklyIssueRecord{
		validRecord(domain.CategoryEconomy, 7, 100, map[string]int{"tariff": 3}),
		validRecord(domain.Category("politics"), 7, 10, map[string]int{"vote": 1}),
	}

	_, _, err := in.Run(context.Background(), records)
	assert.ErrorIs(t, err, apperrors.ErrUnknownCategory)
}

func TestRunRejectedRecordLeavesNoPartialWrites(t *testing.T) {
	// One bad keyword count poisons the whole record; the good keywords of
	// the same record must not be folded in either.
	in := New(testCategories(), false, 1, testLogger())

	records := []domain.WeeklyIssueRecord{
		validRecord(domain.CategoryEconomy, 7, 100, map[string]int{"good": 2, "bad": 0, "fine": 1}),
	}

	table, report, err := in.Run(context.Background(), records)
	require.NoError(t, err)

	assert.Zero(t, report.Ingested)
	require.Len(t, report.Skipped, 1)
	assert.ErrorIs(t, report.Skipped[0].Reason, apperrors.ErrInvalidKeywordCount)

	slice, err := table.Query(aggregate.Global())
	require.NoError(t, err)
	assert.Empty(t, slice)
}

func TestRunValidationCases(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.WeeklyIssueRecord)
		want   error
	}{
		{
			name:   "zero week start",
			mutate: func(r *domain.WeeklyIssueRecord) { r.WeekStart = time.Time{} },
			want:   apperrors.ErrInvalidWeekStart,
		},
		{
			name:   "rank below range",
			mutate: func(r *domain.WeeklyIssueRecord) { r.IssueRank = 0 },
			want:   apperrors.ErrInvalidIssueRank,
		},
		{
			name:   "rank above range",
			mutate: func(r *domain.WeeklyIssueRecord) { r.IssueRank = 11 },
			want:   apperrors.ErrInvalidIssueRank,
		},
		{
			name:   "negative keyword count",
			mutate: func(r *domain.WeeklyIssueRecord) { r.KeywordCounts = map[string]int{"k": -1} },
			want:   apperrors.ErrInvalidKeywordCount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := New(testCategories(), false, 1, testLogger())
			rec := validRecord(domain.CategoryTotal, 7, 10, map[string]int{"k": 1})
			tt.mutate(&rec)

			_, report, err := in.Run(context.Background(), []domain.WeeklyIssueRecord{rec})
			require.NoError(t, err)
			require.Len(t, report.Skipped, 1)
			assert.ErrorIs(t, report.Skipped[0].Reason, tt.want)
		})
	}
}

func TestRunParallelMatchesSequential(t *testing.T) {
	var records []domain.WeeklyIssueRecord

	for day := 1; day <= 28; day += 7 {
		records = append(records,
			validRecord(domain.CategoryTotal, day, day*10, map[string]int{"ai": 2, "election": 1}),
			validRecord(domain.CategoryEconomy, day, day*5, map[string]int{"tariff": 3, "rates": 2}),
		)
	}

	seq := New(testCategories(), false, 1, testLogger())
	seqTable, seqReport, err := seq.Run(context.Background(), records)
	require.NoError(t, err)

	par := New(testCategories(), false, 4, testLogger())
	parTable, parReport, err := par.Run(context.Background(), records)
	require.NoError(t, err)

	assert.Equal(t, seqReport.Ingested, parReport.Ingested)

	wantSlice, err := seqTable.Query(aggregate.Global())
	require.NoError(t, err)
	gotSlice, err := parTable.Query(aggregate.Global())
	require.NoError(t, err)
	assert.Equal(t, wantSlice, gotSlice)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	in := New(testCategories(), false, 1, testLogger())

	_, _, err := in.Run(ctx, []domain.WeeklyIssueRecord{
		validRecord(domain.CategoryTotal, 7, 10, map[string]int{"k": 1}),
	})
	assert.ErrorIs(t, err, context.Canceled)
}
