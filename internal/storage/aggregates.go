package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/newstrend-lab/keyword-trends/internal/aggregate"
	"github.com/newstrend-lab/keyword-trends/internal/core/domain"
)

// WeightRow is the serialized form of one aggregation table entry.
type WeightRow struct {
	Category domain.Category
	Month    domain.Month
	Keyword  string
	Weight   int64
}

// Run is the audit record of one aggregation batch.
type Run struct {
	ID         uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Ingested   int
	Rejected   int
	Strict     bool
}

// ReplaceTable stores the table as the current aggregate, replacing whatever
// a previous batch wrote, and records the run audit row in the same
// transaction. Replacement rather than upsert keeps re-runs honest: the
// stored state is always exactly one table built from scratch.
func (db *DB) ReplaceTable(ctx context.Context, table *aggregate.Table, run Run) error {
	rows, err := tableRows(table)
	if err != nil {
		return err
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace table: %w", err)
	}

	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM keyword_weights`); err != nil {
		return fmt.Errorf("clear keyword weights: %w", err)
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO keyword_weights (category, month, keyword, weight)
			VALUES ($1, $2, $3, $4)
		`, string(row.Category), row.Month.Time(), row.Keyword, row.Weight)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert keyword weights: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO aggregation_runs (id, started_at, finished_at, ingested, rejected, strict)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.ID, run.StartedAt, run.FinishedAt, run.Ingested, run.Rejected, run.Strict); err != nil {
		return fmt.Errorf("record aggregation run: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace table: %w", err)
	}

	if db.logger != nil {
		db.logger.Info().
			Str("run_id", run.ID.String()).
			Int("rows", len(rows)).
			Msg("aggregation table stored")
	}

	return nil
}

// LoadTable rebuilds an aggregation table from the stored rows. The result
// carries exactly the weights that were saved; round-tripping is lossless
// since weights are plain integers.
func (db *DB) LoadTable(ctx context.Context) (*aggregate.Table, error) {
	rows, err := db.QueryWeights(ctx, aggregate.Global())
	if err != nil {
		return nil, err
	}

	table := aggregate.NewTable()
	for _, row := range rows {
		table.Accumulate(domain.IssueContribution{
			Category: row.Category,
			Month:    row.Month,
			Keyword:  row.Keyword,
			Weight:   row.Weight,
		})
	}

	return table, nil
}

// QueryWeights returns the stored rows matching a scope, ordered by
// category, month, then weight descending with keyword as the tie-break, the
// same ordering the analysis tables use.
func (db *DB) QueryWeights(ctx context.Context, scope aggregate.Scope) ([]WeightRow, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	builder := sq.Select("category", "month", "keyword", "weight").
		From("keyword_weights").
		OrderBy("category", "month", "weight DESC", "keyword").
		PlaceholderFormat(sq.Dollar)

	if scope.Category != nil {
		builder = builder.Where(sq.Eq{"category": string(*scope.Category)})
	}

	if scope.Month != nil {
		builder = builder.Where(sq.Eq{"month": scope.Month.Time()})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build weights query: %w", err)
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query keyword weights: %w", err)
	}
	defer rows.Close()

	var out []WeightRow

	for rows.Next() {
		var (
			category string
			month    time.Time
			keyword  string
			weight   int64
		)

		if err := rows.Scan(&category, &month, &keyword, &weight); err != nil {
			return nil, fmt.Errorf("scan keyword weight row: %w", err)
		}

		out = append(out, WeightRow{
			Category: domain.Category(category),
			Month:    domain.MonthOf(month),
			Keyword:  keyword,
			Weight:   weight,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keyword weight rows: %w", err)
	}

	return out, nil
}

// LastRun returns the most recent aggregation run audit row.
func (db *DB) LastRun(ctx context.Context) (*Run, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, started_at, finished_at, ingested, rejected, strict
		FROM aggregation_runs
		ORDER BY finished_at DESC
		LIMIT 1
	`)

	var run Run
	if err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Ingested, &run.Rejected, &run.Strict); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, fmt.Errorf("load last aggregation run: %w", err)
	}

	return &run, nil
}

// tableRows flattens a table into deterministically ordered rows.
func tableRows(table *aggregate.Table) ([]WeightRow, error) {
	slice, err := table.Query(aggregate.Global())
	if err != nil {
		return nil, err
	}

	var rows []WeightRow

	for key, bucket := range slice {
		for keyword, weight := range bucket {
			rows = append(rows, WeightRow{
				Category: key.Category,
				Month:    key.Month,
				Keyword:  keyword,
				Weight:   weight,
			})
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Category != rows[j].Category {
			return rows[i].Category < rows[j].Category
		}

		if rows[i].Month != rows[j].Month {
			return rows[i].Month.Before(rows[j].Month)
		}

		return rows[i].Keyword < rows[j].Keyword
	})

	return rows, nil
}
