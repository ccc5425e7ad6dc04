package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"

	"github.com/newstrend-lab/keyword-trends/internal/core/domain"
)

// CSVSource adapts the crawler's dataset files to the token source contract.
// Expected columns (header names, order-independent): category,
// week_start_date (or date), issue_rank (or rank, optional), article_count,
// keywords. The keywords cell is either a bracketed quoted list, e.g.
// ['tariff', 'Hyundai'], or a semicolon/comma separated string; a keyword
// appearing twice in the cell counts twice.
type CSVSource struct {
	logger *zerolog.Logger
}

// NewCSVSource creates a CSV token source adapter.
func NewCSVSource(logger *zerolog.Logger) *CSVSource {
	return &CSVSource{logger: logger}
}

// RowError reports one unusable CSV row. Row errors are not fatal to the
// file: the caller decides whether to log and continue or abort.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// ReadFile reads one dataset file.
func (s *CSVSource) ReadFile(path string) ([]domain.WeeklyIssueRecord, []RowError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()

	records, rowErrs, err := s.Read(f)
	if err != nil {
		return nil, nil, fmt.Errorf("read dataset %s: %w", path, err)
	}

	return records, rowErrs, nil
}

type columnIndex struct {
	category, weekStart, issueRank, articleCount, keywords int
}

// Read parses weekly issue records from r.
func (s *CSVSource) Read(r io.Reader) ([]domain.WeeklyIssueRecord, []RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	cols, err := resolveColumns(header)
	if err != nil {
		return nil, nil, err
	}

	var (
		records []domain.WeeklyIssueRecord
		rowErrs []RowError
	)

	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: err})
			continue
		}

		rec, err := parseRow(row, cols)
		if err != nil {
			rowErrs = append(rowErrs, RowError{Line: line, Err: err})

			if s.logger != nil {
				s.logger.Warn().Int("line", line).Err(err).Msg("skipping unparseable dataset row")
			}

			continue
		}

		records = append(records, rec)
	}

	return records, rowErrs, nil
}

func resolveColumns(header []string) (columnIndex, error) {
	cols := columnIndex{category: -1, weekStart: -1, issueRank: -1, articleCount: -1, keywords: -1}

	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "category":
			cols.category = i
		case "week_start_date", "date":
			cols.weekStart = i
		case "issue_rank", "rank":
			cols.issueRank = i
		case "article_count":
			cols.articleCount = i
		case "keywords":
			cols.keywords = i
		}
	}

	if cols.category < 0 || cols.weekStart < 0 || cols.articleCount < 0 || cols.keywords < 0 {
		return cols, fmt.Errorf("dataset header missing required columns, got %v", header)
	}

	return cols, nil
}

func parseRow(row []string, cols columnIndex) (domain.WeeklyIssueRecord, error) {
	var rec domain.WeeklyIssueRecord

	need := cols.category
	for _, i := range []int{cols.weekStart, cols.articleCount, cols.keywords, cols.issueRank} {
		if i > need {
			need = i
		}
	}

	if len(row) <= need {
		return rec, fmt.Errorf("short row: %d fields", len(row))
	}

	weekStart, err := dateparse.ParseAny(strings.TrimSpace(row[cols.weekStart]))
	if err != nil {
		return rec, fmt.Errorf("parse week start %q: %w", row[cols.weekStart], err)
	}

	articleCount, err := strconv.Atoi(strings.TrimSpace(row[cols.articleCount]))
	if err != nil {
		return rec, fmt.Errorf("parse article count %q: %w", row[cols.articleCount], err)
	}

	// The crawler only emits a rank column in newer datasets.
	issueRank := domain.MinIssueRank

	if cols.issueRank >= 0 {
		issueRank, err = strconv.Atoi(strings.TrimSpace(row[cols.issueRank]))
		if err != nil {
			return rec, fmt.Errorf("parse issue rank %q: %w", row[cols.issueRank], err)
		}
	}

	rec = domain.WeeklyIssueRecord{
		Category:      domain.Category(strings.TrimSpace(row[cols.category])),
		WeekStart:     weekStart,
		IssueRank:     issueRank,
		ArticleCount:  articleCount,
		KeywordCounts: parseKeywordsCell(row[cols.keywords]),
	}

	return rec, nil
}

// parseKeywordsCell converts a keywords cell into occurrence counts. Cells
// come in two shapes depending on which tool wrote the dataset: a bracketed
// quoted list, or a plain delimiter-separated string (semicolon preferred,
// comma fallback).
func parseKeywordsCell(cell string) map[string]int {
	text := strings.TrimSpace(cell)
	if text == "" {
		return nil
	}

	var parts []string

	switch {
	case strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]"):
		parts = strings.Split(strings.Trim(text, "[]"), ",")
	case strings.Contains(text, ";"):
		parts = strings.Split(text, ";")
	default:
		parts = strings.Split(text, ",")
	}

	counts := make(map[string]int, len(parts))

	for _, p := range parts {
		kw := strings.Trim(strings.TrimSpace(p), `'" `)
		if kw == "" {
			continue
		}

		counts[kw]++
	}

	if len(counts) == 0 {
		return nil
	}

	return counts
}
