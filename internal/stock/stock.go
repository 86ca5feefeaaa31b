package stock

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"capstock/m/domain"
)

// Error taxonomy surfaced by stock routines. Anything else coming out of
// the driver is an upstream failure.
var (
	ErrNotFound   = errors.New("not found")
	ErrOutOfStock = errors.New("out of stock")
	ErrConflict   = errors.New("conflict")
)

// Line is one sale line: how many units of an item are sold.
type Line struct {
	ItemID   int64
	Quantity int64
}

// Service adjusts stock counters. Every adjustment is a single conditional
// UPDATE so two concurrent requests cannot lose each other's writes on one
// row. There is intentionally no transaction spanning multiple rows: a
// failure partway through a loop leaves earlier adjustments committed.
type Service struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Service {
	return &Service{db: db}
}

// decrementItem takes qty units of an item, refusing to go below zero.
func (s *Service) decrementItem(ctx context.Context, itemID, qty int64) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE items SET quantity = quantity - $1, updated_at = $2
        WHERE id = $3 AND quantity >= $1`, qty, domain.Now(), itemID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}

	// Zero rows: either the item is gone or the stock is short.
	var exists int
	err = s.db.GetContext(ctx, &exists, `SELECT 1 FROM items WHERE id = $1`, itemID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrOutOfStock
}

// incrementItem returns qty units of an item to stock. A missing item is
// not an error: restores are applied unconditionally and skip silently.
func (s *Service) incrementItem(ctx context.Context, itemID, qty int64) error {
	_, err := s.db.ExecContext(ctx, `
        UPDATE items SET quantity = quantity + $1, updated_at = $2
        WHERE id = $3`, qty, domain.Now(), itemID)
	return err
}

// incrementMaterial credits a raw material with a received quantity.
func (s *Service) incrementMaterial(ctx context.Context, materialID int64, qty float64) error {
	res, err := s.db.ExecContext(ctx, `
        UPDATE raw_materials SET quantity = quantity + $1, updated_at = $2
        WHERE id = $3`, qty, domain.Now(), materialID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
