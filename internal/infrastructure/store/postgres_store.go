package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/tilbudsradar/backend/internal/domain"
)

// priceRow is one product's latest lookup result
type priceRow struct {
	bun.BaseModel `bun:"table:market_prices,alias:mp"`

	ProductName string    `bun:"product_name,pk"`
	MarketPrice *int      `bun:"market_price"`
	LookedUpAt  string    `bun:"looked_up_at,notnull"`
	RunID       string    `bun:"run_id,notnull"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// runRow records one lookup run and its outcome counts
type runRow struct {
	bun.BaseModel `bun:"table:price_runs,alias:pr"`

	ID         string          `bun:"id,pk"`
	StartedAt  time.Time       `bun:"started_at,notnull"`
	FinishedAt time.Time       `bun:"finished_at"`
	Stats      domain.RunStats `bun:"stats,type:jsonb"`
}

// PostgresStore keeps the latest result per product plus a run history
type PostgresStore struct {
	db *bun.DB
}

// NewPostgresStore opens the database and creates the tables if needed
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))

	db := bun.NewDB(sqldb, pgdialect.New())
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)

	store := &PostgresStore{db: db}
	if err := store.InitializeDatabase(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: initialize database: %v", domain.ErrStoreUnavailable, err)
	}
	return store, nil
}

// InitializeDatabase creates the tables and indexes
func (s *PostgresStore) InitializeDatabase(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*runRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create price_runs table: %w", err)
	}

	if _, err := s.db.NewCreateTable().
		Model((*priceRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create market_prices table: %w", err)
	}

	if _, err := s.db.NewCreateIndex().
		Model((*priceRow)(nil)).
		Index("idx_market_prices_run_id").
		Column("run_id").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("failed to create run_id index: %w", err)
	}
	return nil
}

// Save records the run and upserts its results in one transaction
func (s *PostgresStore) Save(ctx context.Context, run *domain.PriceRun) error {
	if run == nil {
		return fmt.Errorf("%w: nil run", domain.ErrInvalidRequest)
	}

	rows := toRows(run)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().
			Model(&runRow{ID: run.ID, StartedAt: run.StartedAt, FinishedAt: run.FinishedAt, Stats: run.Stats}).
			On("CONFLICT (id) DO UPDATE").
			Set("finished_at = EXCLUDED.finished_at").
			Set("stats = EXCLUDED.stats").
			Exec(ctx); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		if len(rows) == 0 {
			return nil
		}

		query := tx.NewInsert().
			Model(&rows).
			On("CONFLICT (product_name) DO UPDATE")
		for _, col := range []string{"market_price", "looked_up_at", "run_id", "updated_at"} {
			query = query.Set("? = EXCLUDED.?", bun.Ident(col), bun.Ident(col))
		}
		if _, err := query.Exec(ctx); err != nil {
			return fmt.Errorf("upsert prices: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// Latest returns the results written by the most recent run
func (s *PostgresStore) Latest(ctx context.Context) (domain.PriceTable, error) {
	var run runRow
	err := s.db.NewSelect().
		Model(&run).
		Order("started_at DESC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	var rows []priceRow
	if err := s.db.NewSelect().
		Model(&rows).
		Where("run_id = ?", run.ID).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return rowsToTable(rows), nil
}

// Get returns the latest known result for one product name
func (s *PostgresStore) Get(ctx context.Context, productName string) (*domain.LookupResult, error) {
	var row priceRow
	err := s.db.NewSelect().
		Model(&row).
		Where("product_name = ?", productName).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return &domain.LookupResult{MarketPrice: row.MarketPrice, LookedUpAt: row.LookedUpAt}, nil
}

// Close closes the database
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func toRows(run *domain.PriceRun) []priceRow {
	updated := run.FinishedAt
	if updated.IsZero() {
		updated = run.StartedAt
	}

	rows := make([]priceRow, 0, len(run.Results))
	for name, result := range run.Results {
		rows = append(rows, priceRow{
			ProductName: name,
			MarketPrice: result.MarketPrice,
			LookedUpAt:  result.LookedUpAt,
			RunID:       run.ID,
			UpdatedAt:   updated,
		})
	}
	return rows
}

func rowsToTable(rows []priceRow) domain.PriceTable {
	table := make(domain.PriceTable, len(rows))
	for _, row := range rows {
		table[row.ProductName] = domain.LookupResult{MarketPrice: row.MarketPrice, LookedUpAt: row.LookedUpAt}
	}
	return table
}
