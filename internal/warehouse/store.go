package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/TQK151204/2025-DW-Thu4-Ca1-Nhom14/internal/models"
)

// Dimension describes one warehouse dimension for the generic natural-key to
// surrogate-key resolver: which table to hit, which column carries the
// natural key, and which column carries the surrogate.
type Dimension struct {
	Table           string
	KeyColumn       string
	SurrogateColumn string
}

var (
	DimBrand   = Dimension{Table: "dim_brand", KeyColumn: "brand_name", SurrogateColumn: "brand_id"}
	DimProduct = Dimension{Table: "dim_product", KeyColumn: "product_name", SurrogateColumn: "product_id"}
	DimSource  = Dimension{Table: "dim_source", KeyColumn: "source_name", SurrogateColumn: "source_id"}
)

// Store is the warehouse persistence surface the loader drives.
type Store interface {
	// ResolveKey returns the surrogate key for a natural value, creating the
	// dimension row on first sight. Extra attributes are written only on
	// create and never update an existing row.
	ResolveKey(ctx context.Context, dim Dimension, naturalValue string, extras map[string]interface{}) (int64, error)

	// DateKey looks up the surrogate for a calendar date. The date dimension
	// is pre-populated out of band, so a miss is reported, never repaired.
	DateKey(ctx context.Context, date time.Time) (int64, bool, error)

	// InsertFact appends one immutable fact row.
	InsertFact(ctx context.Context, f *models.FactPriceObservation) error
}

const insertFactQuery = `
	INSERT INTO fact_price_observation (
		product_id, brand_id, source_id, date_sk,
		price, discount_percent, crawl_date, crawl_time, full_date
	) VALUES (
		:product_id, :brand_id, :source_id, :date_sk,
		:price, :discount_percent, :crawl_date, :crawl_time, :full_date
	)`

// sqlStore implements Store against the warehouse database.
type sqlStore struct {
	db *sqlx.DB
}

// NewStore creates the SQL warehouse store.
func NewStore(pool *sqlx.DB) Store {
	return &sqlStore{db: pool}
}

func (s *sqlStore) ResolveKey(ctx context.Context, dim Dimension, naturalValue string, extras map[string]interface{}) (int64, error) {
	var id int64
	selectQ := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1", dim.SurrogateColumn, dim.Table, dim.KeyColumn)
	err := s.db.GetContext(ctx, &id, selectQ, naturalValue)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, errors.Wrapf(err, "failed to look up %s %q", dim.Table, naturalValue)
	}

	// First sight: insert-if-absent and read the key back in one statement,
	// so two resolvers racing on the same natural value converge on one row.
	cols := []string{dim.KeyColumn}
	args := []interface{}{naturalValue}
	for _, k := range sortedKeys(extras) {
		cols = append(cols, k)
		args = append(args, extras[k])
	}
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	insertQ := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s = EXCLUDED.%s RETURNING %s",
		dim.Table, strings.Join(cols, ", "), strings.Join(placeholders, ", "),
		dim.KeyColumn, dim.KeyColumn, dim.KeyColumn, dim.SurrogateColumn,
	)

	if err := s.db.QueryRowxContext(ctx, insertQ, args...).Scan(&id); err != nil {
		return 0, errors.Wrapf(err, "failed to create %s %q", dim.Table, naturalValue)
	}
	return id, nil
}

func (s *sqlStore) DateKey(ctx context.Context, date time.Time) (int64, bool, error) {
	var sk int64
	err := s.db.GetContext(ctx, &sk, "SELECT date_sk FROM dim_date WHERE full_date = $1", date.Format("2006-01-02"))
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrapf(err, "failed to look up dim_date for %s", date.Format("2006-01-02"))
	}
	return sk, true, nil
}

func (s *sqlStore) InsertFact(ctx context.Context, f *models.FactPriceObservation) error {
	if _, err := s.db.NamedExecContext(ctx, insertFactQuery, f); err != nil {
		return errors.Wrapf(err, "failed to insert fact for product %d", f.ProductID)
	}
	return nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
