// Package export writes the analysis tables consumed by the chart-rendering
// side: the overall top-keyword table (wordcloud feed), the monthly
// time series of the leading keywords, and per-category top tables. The
// engine mandates no format; these are plain CSV files whose integer weights
// round-trip exactly.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/newstrend-lab/keyword-trends/internal/aggregate"
	"github.com/newstrend-lab/keyword-trends/internal/core/domain"
	"github.com/newstrend-lab/keyword-trends/internal/platform/observability"
)

// Writer emits analysis tables into a target directory.
type Writer struct {
	dir    string
	logger *zerolog.Logger
}

// New creates an export writer rooted at dir.
func New(dir string, logger *zerolog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

func (w *Writer) create(name string) (*os.File, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir %s: %w", w.dir, err)
	}

	f, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		return nil, fmt.Errorf("create export file %s: %w", name, err)
	}

	return f, nil
}

func (w *Writer) finish(name string, cw *csv.Writer, f *os.File, rows int) error {
	cw.Flush()

	if err := cw.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write export %s: %w", name, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close export %s: %w", name, err)
	}

	observability.ExportRowsWritten.WithLabelValues(name).Add(float64(rows))

	if w.logger != nil {
		w.logger.Info().Str("file", name).Int("rows", rows).Msg("export written")
	}

	return nil
}

// WriteTopKeywords writes the global top-n keyword table, one
// (keyword, weight) row per keyword, ranking order.
func (w *Writer) WriteTopKeywords(table *aggregate.Table, n int) error {
	const name = "wordcloud_top_keywords.csv"

	entries, err := table.TopN(aggregate.Global(), n)
	if err != nil {
		return fmt.Errorf("rank top keywords: %w", err)
	}

	f, err := w.create(name)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(f)
	_ = cw.Write([]string{"keyword", "weight"})

	for _, e := range entries {
		_ = cw.Write([]string{e.Keyword, strconv.FormatInt(e.Weight, 10)})
	}

	return w.finish(name, cw, f, len(entries))
}

// WriteTimeSeries writes the gap-filled monthly series of a category's top-n
// keywords as (month, keyword, weight) rows, keyword-major, months
// chronological.
func (w *Writer) WriteTimeSeries(table *aggregate.Table, cat domain.Category, n int) error {
	name := fmt.Sprintf("top%d_monthly_timeseries.csv", n)

	entries, err := table.TopN(aggregate.ByCategory(cat), n)
	if err != nil {
		return fmt.Errorf("rank %s keywords: %w", cat, err)
	}

	f, err := w.create(name)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(f)
	_ = cw.Write([]string{"month", "keyword", "weight"})

	rows := 0

	for _, e := range entries {
		points, err := table.TimeSeries(cat, e.Keyword)
		if err != nil {
			f.Close()
			return fmt.Errorf("time series for %q: %w", e.Keyword, err)
		}

		for _, p := range points {
			_ = cw.Write([]string{p.Month.String(), e.Keyword, strconv.FormatInt(p.Weight, 10)})
			rows++
		}
	}

	return w.finish(name, cw, f, rows)
}

// WriteCategoryTop writes one category's top-n keyword table.
func (w *Writer) WriteCategoryTop(table *aggregate.Table, cat domain.Category, n int) error {
	name := fmt.Sprintf("%s_top%d_keywords.csv", cat, n)

	entries, err := table.TopN(aggregate.ByCategory(cat), n)
	if err != nil {
		return fmt.Errorf("rank %s keywords: %w", cat, err)
	}

	f, err := w.create(name)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(f)
	_ = cw.Write([]string{"keyword", "weight"})

	for _, e := range entries {
		_ = cw.Write([]string{e.Keyword, strconv.FormatInt(e.Weight, 10)})
	}

	return w.finish(name, cw, f, len(entries))
}
