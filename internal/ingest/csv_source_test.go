package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newstrend-lab/keyword-trends/internal/core/domain"
)

func TestReadBracketedKeywordList(t *testing.T) {
	src := NewCSVSource(testLogger())

	data := "date,category,title,article_count,keywords\n" +
		"2025-03-07,economy,ignored,100,\"['tariff', 'Hyundai']\"\n"

	records, rowErrs, err := src.Read(strings.NewReader(data))
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, domain.CategoryEconomy, rec.Category)
	assert.Equal(t, time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC), rec.WeekStart)
	assert.Equal(t, 100, rec.ArticleCount)
	assert.Equal(t, domain.MinIssueRank, rec.IssueRank)
	assert.Equal(t, map[string]int{"tariff": 1, "Hyundai": 1}, rec.KeywordCounts)
}

func TestReadDelimitedKeywordCells(t *testing.T) {
	tests := []struct {
		name string
		cell string
		want map[string]int
	}{
		{"semicolon separated", "tariff;Hyundai;tariff", map[string]int{"tariff": 2, "Hyundai": 1}},
		{"comma fallback", "\"tariff, rates\"", map[string]int{"tariff": 1, "rates": 1}},
		{"empty cell", "\"\"", nil},
		{"only delimiters", "\";;\"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewCSVSource(testLogger())

			data := "week_start_date,category,issue_rank,article_count,keywords\n" +
				"2025-03-07,total,2,10," + tt.cell + "\n"

			records, rowErrs, err := src.Read(strings.NewReader(data))
			require.NoError(t, err)
			assert.Empty(t, rowErrs)
			require.Len(t, records, 1)
			assert.Equal(t, 2, records[0].IssueRank)
			assert.Equal(t, tt.want, records[0].KeywordCounts)
		})
	}
}

func TestReadReportsBadRowsAndKeepsGoing(t *testing.T) {
	src := NewCSVSource(testLogger())

	data := "date,category,article_count,keywords\n" +
		"not-a-date,total,10,ai\n" +
		"2025-03-07,total,ten,ai\n" +
		"2025-03-14,total,10,ai\n"

	records, rowErrs, err := src.Read(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), records[0].WeekStart)

	require.Len(t, rowErrs, 2)
	assert.Equal(t, 2, rowErrs[0].Line)
	assert.Equal(t, 3, rowErrs[1].Line)
}

func TestReadMissingRequiredColumns(t *testing.T) {
	src := NewCSVSource(testLogger())

	_, _, err := src.Read(strings.NewReader("date,title\n2025-03-07,x\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns")
}

func TestReadNegativeArticleCountPassesThrough(t *testing.T) {
	// Validation of the value is the ingester's job; the adapter only parses.
	src := NewCSVSource(testLogger())

	data := "date,category,article_count,keywords\n2025-03-07,total,-3,ai\n"

	records, rowErrs, err := src.Read(strings.NewReader(data))
	require.NoError(t, err)
	assert.Empty(t, rowErrs)
	require.Len(t, records, 1)
	assert.Equal(t, -3, records[0].ArticleCount)
}
