package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/dinahmaccodes/stellar-insights/internal/platform/observability"
)

// Store provides access to anchor metadata in Postgres
type Store struct {
	db     *sql.DB
	logger *observability.Logger
}

// StoreConfig holds Postgres connection configuration
type StoreConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	Logger          *observability.Logger
}

// NewStore opens a Postgres connection pool and verifies connectivity
func NewStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = 30 * time.Minute
	}
	if cfg.ConnMaxIdleTime <= 0 {
		cfg.ConnMaxIdleTime = 5 * time.Minute
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("postgres connected",
			"max_open_conns", cfg.MaxOpenConns,
			"max_idle_conns", cfg.MaxIdleConns,
		)
	}

	return &Store{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// ListAnchors returns a page of anchors ordered by name
func (s *Store) ListAnchors(ctx context.Context, limit, offset int) ([]Anchor, error) {
	const query = `
		SELECT id, name, stellar_account, reliability_score,
		       total_transactions, successful_transactions, failed_transactions
		FROM anchors
		ORDER BY name
		LIMIT $1 OFFSET $2`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list anchors: %w", err)
	}
	defer rows.Close()

	var anchors []Anchor
	for rows.Next() {
		var a Anchor
		if err := rows.Scan(
			&a.ID,
			&a.Name,
			&a.StellarAccount,
			&a.ReliabilityScore,
			&a.TotalTransactions,
			&a.SuccessfulTransactions,
			&a.FailedTransactions,
		); err != nil {
			return nil, fmt.Errorf("failed to scan anchor: %w", err)
		}
		anchors = append(anchors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate anchors: %w", err)
	}

	return anchors, nil
}

// GetAssetsByAnchor returns the assets issued by the given anchor
func (s *Store) GetAssetsByAnchor(ctx context.Context, anchorID uuid.UUID) ([]Asset, error) {
	const query = `
		SELECT id, code, issuer, anchor_id
		FROM assets
		WHERE anchor_id = $1
		ORDER BY code`

	rows, err := s.db.QueryContext(ctx, query, anchorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assets for anchor %s: %w", anchorID, err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		var a Asset
		if err := rows.Scan(&a.ID, &a.Code, &a.Issuer, &a.AnchorID); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assets: %w", err)
	}

	return assets, nil
}

// Ping verifies the database connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the connection pool
func (s *Store) Close() error {
	return s.db.Close()
}
