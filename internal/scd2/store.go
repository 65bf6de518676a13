package scd2

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/models"
)

// VersionStore is the persistence surface the reconciler drives. The SQL
// implementation runs every call inside the run transaction, so a close/open
// pair is never visible half-applied to readers.
type VersionStore interface {
	// Current returns the single current version for a natural key, or nil
	// when the key has never been seen.
	Current(ctx context.Context, naturalKey string) (*models.PriceVersion, error)

	// Insert appends a new version row.
	Insert(ctx context.Context, v *models.PriceVersion) error

	// CloseCurrent flips the current version of a key to historical, stamping
	// valid_to. It returns the number of rows closed.
	CloseCurrent(ctx context.Context, naturalKey string, at time.Time) (int64, error)
}

const insertVersionQuery = `
	INSERT INTO price_history (
		natural_key, product_name, brand, current_price, original_price,
		discount_percent, additional_info, image_url, product_url,
		source_name, source_url, crawl_date, crawl_time, full_date,
		valid_from, valid_to, is_current
	) VALUES (
		:natural_key, :product_name, :brand, :current_price, :original_price,
		:discount_percent, :additional_info, :image_url, :product_url,
		:source_name, :source_url, :crawl_date, :crawl_time, :full_date,
		:valid_from, NULL, TRUE
	)`

// sqlVersionStore implements VersionStore on top of a sqlx transaction.
type sqlVersionStore struct {
	tx *sqlx.Tx
}

func (s *sqlVersionStore) Current(ctx context.Context, naturalKey string) (*models.PriceVersion, error) {
	var v models.PriceVersion
	err := s.tx.GetContext(ctx, &v,
		"SELECT * FROM price_history WHERE natural_key = $1 AND is_current", naturalKey)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up current version for %q: %w", naturalKey, err)
	}
	return &v, nil
}

func (s *sqlVersionStore) Insert(ctx context.Context, v *models.PriceVersion) error {
	if _, err := s.tx.NamedExecContext(ctx, insertVersionQuery, v); err != nil {
		return fmt.Errorf("failed to insert version for %q: %w", v.NaturalKey, err)
	}
	return nil
}

func (s *sqlVersionStore) CloseCurrent(ctx context.Context, naturalKey string, at time.Time) (int64, error) {
	res, err := s.tx.ExecContext(ctx,
		"UPDATE price_history SET is_current = FALSE, valid_to = $2 WHERE natural_key = $1 AND is_current",
		naturalKey, at)
	if err != nil {
		return 0, fmt.Errorf("failed to close version for %q: %w", naturalKey, err)
	}
	return res.RowsAffected()
}
