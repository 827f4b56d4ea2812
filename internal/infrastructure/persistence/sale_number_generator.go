package persistence

import (
	"context"
	"time"

	"github.com/erp/salesengine/internal/domain/sales"
	"gorm.io/gorm"
)

// upsertSequenceSQL bumps the day's counter in one statement. Under
// PostgreSQL the upsert holds the sequence row lock until the transaction
// ends, so a rolled back sale gives its number back instead of leaving a
// duplicate behind.
const upsertSequenceSQL = `INSERT INTO sale_number_sequences (prefix, day, last_value, updated_at)
VALUES (?, ?, 1, ?)
ON CONFLICT (prefix, day) DO UPDATE
SET last_value = sale_number_sequences.last_value + 1, updated_at = excluded.updated_at
RETURNING last_value`

// GormSaleNumberGenerator hands out daily sale number sequences from the
// sale_number_sequences table
type GormSaleNumberGenerator struct {
	db     *gorm.DB
	prefix string
}

// NewGormSaleNumberGenerator creates a generator for numbers with prefix
func NewGormSaleNumberGenerator(db *gorm.DB, prefix string) *GormSaleNumberGenerator {
	if prefix == "" {
		prefix = sales.DefaultNumberPrefix
	}
	return &GormSaleNumberGenerator{db: db, prefix: prefix}
}

// Next returns the next sequence value for day (formatted YYYYMMDD in day's
// location)
func (g *GormSaleNumberGenerator) Next(ctx context.Context, day time.Time) (int64, error) {
	var next int64
	err := g.db.WithContext(ctx).
		Raw(upsertSequenceSQL, g.prefix, day.Format("20060102"), time.Now().UTC()).
		Row().Scan(&next)
	if err != nil {
		return 0, classify("next sale number", "sale_number_sequence", err)
	}
	return next, nil
}

var _ sales.SaleNumberGenerator = (*GormSaleNumberGenerator)(nil)
