package trendapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newstrend-lab/keyword-trends/internal/aggregate"
	"github.com/newstrend-lab/keyword-trends/internal/core/domain"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()

	table := aggregate.NewTable()
	table.AccumulateRecord(domain.WeeklyIssueRecord{
		Category:      domain.CategoryEconomy,
		WeekStart:     time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
		IssueRank:     1,
		ArticleCount:  100,
		KeywordCounts: map[string]int{"tariff": 3},
	})
	table.AccumulateRecord(domain.WeeklyIssueRecord{
		Category:      domain.CategoryEconomy,
		WeekStart:     time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		IssueRank:     2,
		ArticleCount:  50,
		KeywordCounts: map[string]int{"tariff": 2, "Hyundai": 5},
	})

	categories := domain.CategorySet{
		domain.CategoryTotal:   "ALL",
		domain.CategoryEconomy: "002000000",
	}

	logger := zerolog.Nop()
	handler := NewHandler(table, categories, 1000, 1000, &logger)

	srv := httptest.NewServer(NewRouter(handler))
	t.Cleanup(srv.Close)

	return srv
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)

	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}

func TestTopNEndpoint(t *testing.T) {
	srv := testServer(t)

	var resp topResponse

	status := getJSON(t, srv.URL+"/api/v1/top?category=economy&month=2025-03&n=1", &resp)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "economy", resp.Category)
	assert.Equal(t, "2025-03", resp.Month)
	assert.Equal(t, []domain.RankingEntry{{Keyword: "tariff", Weight: 400}}, resp.Entries)
}

func TestTopNInvalidQueries(t *testing.T) {
	srv := testServer(t)

	tests := []struct {
		name string
		path string
	}{
		{"zero n", "/api/v1/top?n=0"},
		{"negative n", "/api/v1/top?n=-3"},
		{"non-numeric n", "/api/v1/top?n=many"},
		{"unknown category", "/api/v1/top?category=politics"},
		{"month without category", "/api/v1/top?month=2025-03"},
		{"bad month", "/api/v1/top?category=economy&month=March"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := getJSON(t, srv.URL+tt.path, nil)
			assert.Equal(t, http.StatusBadRequest, status)
		})
	}
}

func TestTimeSeriesEndpoint(t *testing.T) {
	srv := testServer(t)

	var resp timeSeriesResponse

	status := getJSON(t, srv.URL+"/api/v1/timeseries?category=economy&keyword=Hyundai", &resp)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, resp.Points, 1)
	assert.Equal(t, timeSeriesPoint{Month: "2025-03", Weight: 250}, resp.Points[0])
}

func TestTimeSeriesCategoryWithNoData(t *testing.T) {
	// "total" is configured but nothing was ingested for it.
	srv := testServer(t)

	status := getJSON(t, srv.URL+"/api/v1/timeseries?category=total&keyword=tariff", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestWeightsEndpoint(t *testing.T) {
	srv := testServer(t)

	var rows []weightRow

	status := getJSON(t, srv.URL+"/api/v1/weights?category=economy", &rows)
	assert.Equal(t, http.StatusOK, status)

	want := []weightRow{
		{Category: "economy", Month: "2025-03", Keyword: "tariff", Weight: 400},
		{Category: "economy", Month: "2025-03", Keyword: "Hyundai", Weight: 250},
	}
	assert.Equal(t, want, rows)
}

func TestHealthz(t *testing.T) {
	srv := testServer(t)

	status := getJSON(t, srv.URL+"/healthz", nil)
	assert.Equal(t, http.StatusOK, status)
}
