// Package trendapi exposes the read-only query surface of the aggregation
// engine over HTTP: ranking views, keyword time series and raw scope
// queries. The rendering consumer reads from here; nothing in this package
// mutates the table.
package trendapi

import (
	"encoding/json"
	"net"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/newstrend-lab/keyword-trends/internal/aggregate"
	"github.com/newstrend-lab/keyword-trends/internal/core/domain"
	apperrors "github.com/newstrend-lab/keyword-trends/internal/core/errors"
	"github.com/newstrend-lab/keyword-trends/internal/platform/observability"
)

const (
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json; charset=utf-8"

	defaultTopN = 10
)

// Handler serves trend queries against one loaded aggregation table.
type Handler struct {
	table      *aggregate.Table
	categories domain.CategorySet
	logger     *zerolog.Logger

	limitRPS   rate.Limit
	limitBurst int

	// IP-based rate limiting
	limiters   map[string]*rate.Limiter
	limitersMu sync.Mutex
}

// NewHandler creates a query handler over a loaded table.
func NewHandler(table *aggregate.Table, categories domain.CategorySet, rps float64, burst int, logger *zerolog.Logger) *Handler {
	return &Handler{
		table:      table,
		categories: categories,
		logger:     logger,
		limitRPS:   rate.Limit(rps),
		limitBurst: burst,
		limiters:   make(map[string]*rate.Limiter),
	}
}

func (h *Handler) limiterFor(remoteAddr string) *rate.Limiter {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}

	h.limitersMu.Lock()
	defer h.limitersMu.Unlock()

	limiter, ok := h.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(h.limitRPS, h.limitBurst)
		h.limiters[host] = limiter
	}

	return limiter
}

// RateLimit is per-IP middleware guarding the query endpoints.
func (h *Handler) RateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.limiterFor(r.RemoteAddr).Allow() {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, endpoint string, status int, body any) {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil && h.logger != nil {
		h.logger.Error().Err(err).Str("endpoint", endpoint).Msg("encode response")
	}

	observability.QueriesServed.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

func (h *Handler) writeError(w http.ResponseWriter, endpoint string, status int, err error) {
	h.writeJSON(w, endpoint, status, errorResponse{Error: err.Error()})
}

// parseScope builds a scope from optional category and month query params.
func (h *Handler) parseScope(r *http.Request) (aggregate.Scope, error) {
	scope := aggregate.Global()

	if raw := r.URL.Query().Get("category"); raw != "" {
		cat := domain.Category(raw)
		if !h.categories.Contains(cat) {
			return scope, apperrors.ErrUnknownCategory
		}

		scope = aggregate.ByCategory(cat)

		if rawMonth := r.URL.Query().Get("month"); rawMonth != "" {
			month, err := domain.ParseMonth(rawMonth)
			if err != nil {
				return scope, err
			}

			scope = aggregate.ByBucket(cat, month)
		}

		return scope, nil
	}

	if r.URL.Query().Get("month") != "" {
		return scope, apperrors.ErrInvalidScope
	}

	return scope, nil
}

type topResponse struct {
	Category string                `json:"category,omitempty"`
	Month    string                `json:"month,omitempty"`
	Entries  []domain.RankingEntry `json:"entries"`
}

// TopN handles GET /api/v1/top?category=&month=&n=.
func (h *Handler) TopN(w http.ResponseWriter, r *http.Request) {
	const endpoint = "top"

	scope, err := h.parseScope(r)
	if err != nil {
		h.writeError(w, endpoint, http.StatusBadRequest, err)
		return
	}

	n := defaultTopN

	if raw := r.URL.Query().Get("n"); raw != "" {
		n, err = strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, endpoint, http.StatusBadRequest, apperrors.ErrInvalidTopN)
			return
		}
	}

	entries, err := h.table.TopN(scope, n)
	if err != nil {
		h.writeError(w, endpoint, http.StatusBadRequest, err)
		return
	}

	resp := topResponse{Entries: entries}
	if scope.Category != nil {
		resp.Category = string(*scope.Category)
	}

	if scope.Month != nil {
		resp.Month = scope.Month.String()
	}

	h.writeJSON(w, endpoint, http.StatusOK, resp)
}

type timeSeriesPoint struct {
	Month  string `json:"month"`
	Weight int64  `json:"weight"`
}

type timeSeriesResponse struct {
	Category string            `json:"category"`
	Keyword  string            `json:"keyword"`
	Points   []timeSeriesPoint `json:"points"`
}

// TimeSeries handles GET /api/v1/timeseries?category=&keyword=.
func (h *Handler) TimeSeries(w http.ResponseWriter, r *http.Request) {
	const endpoint = "timeseries"

	cat := domain.Category(r.URL.Query().Get("category"))
	if !h.categories.Contains(cat) {
		h.writeError(w, endpoint, http.StatusBadRequest, apperrors.ErrUnknownCategory)
		return
	}

	keyword := r.URL.Query().Get("keyword")
	if keyword == "" {
		h.writeError(w, endpoint, http.StatusBadRequest, apperrors.ErrNotFound)
		return
	}

	points, err := h.table.TimeSeries(cat, keyword)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrCategoryNotIngested) {
			h.writeError(w, endpoint, http.StatusNotFound, err)
			return
		}

		h.writeError(w, endpoint, http.StatusBadRequest, err)

		return
	}

	resp := timeSeriesResponse{Category: string(cat), Keyword: keyword, Points: make([]timeSeriesPoint, 0, len(points))}
	for _, p := range points {
		resp.Points = append(resp.Points, timeSeriesPoint{Month: p.Month.String(), Weight: p.Weight})
	}

	h.writeJSON(w, endpoint, http.StatusOK, resp)
}

type weightRow struct {
	Category string `json:"category"`
	Month    string `json:"month"`
	Keyword  string `json:"keyword"`
	Weight   int64  `json:"weight"`
}

// Weights handles GET /api/v1/weights?category=&month= and returns the raw
// sparse mapping for the scope as flat rows.
func (h *Handler) Weights(w http.ResponseWriter, r *http.Request) {
	const endpoint = "weights"

	scope, err := h.parseScope(r)
	if err != nil {
		h.writeError(w, endpoint, http.StatusBadRequest, err)
		return
	}

	slice, err := h.table.Query(scope)
	if err != nil {
		h.writeError(w, endpoint, http.StatusBadRequest, err)
		return
	}

	rows := make([]weightRow, 0)

	for key, bucket := range slice {
		for keyword, weight := range bucket {
			rows = append(rows, weightRow{
				Category: string(key.Category),
				Month:    key.Month.String(),
				Keyword:  keyword,
				Weight:   weight,
			})
		}
	}

	sortWeightRows(rows)
	h.writeJSON(w, endpoint, http.StatusOK, rows)
}

func sortWeightRows(rows []weightRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Category != rows[j].Category {
			return rows[i].Category < rows[j].Category
		}

		if rows[i].Month != rows[j].Month {
			return rows[i].Month < rows[j].Month
		}

		if rows[i].Weight != rows[j].Weight {
			return rows[i].Weight > rows[j].Weight
		}

		return rows[i].Keyword < rows[j].Keyword
	})
}
