package stock

import (
	"context"
	"database/sql"
	"errors"

	"capstock/m/domain"
)

type replenishment struct {
	MaterialID int64   `db:"material_id"`
	Quantity   float64 `db:"quantity"`
}

// CheckDelivery flips an order from ordered to received when the carrier
// reports delivery, then credits every requested material quantity back to
// stock. The returned bool says whether the flip (and replenishment) ran.
//
// The status flip is a conditional UPDATE on status='ordered', so repeated
// delivery checks are no-ops and can never credit materials twice. Material
// updates run sequentially; the first failure aborts the rest and applied
// credits stay.
func (s *Service) CheckDelivery(ctx context.Context, orderID int64, isDelivered bool) (bool, error) {
	var status string
	err := s.db.GetContext(ctx, &status, `SELECT status FROM order_materials WHERE id = $1`, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, err
	}

	if !isDelivered || status != domain.OrderStatusOrdered {
		return false, nil
	}

	res, err := s.db.ExecContext(ctx, `
        UPDATE order_materials SET status = $1, updated_at = $2
        WHERE id = $3 AND status = $4`,
		domain.OrderStatusReceived, domain.Now(), orderID, domain.OrderStatusOrdered)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		// Another request flipped it first.
		return false, nil
	}

	var designs []replenishment
	err = s.db.SelectContext(ctx, &designs, `
        SELECT d.material_id, d.quantity
        FROM order_designs d
        JOIN order_material_groups g ON g.id = d.group_id
        WHERE g.order_id = $1
        ORDER BY d.id`, orderID)
	if err != nil {
		return true, err
	}

	for _, d := range designs {
		if err := s.incrementMaterial(ctx, d.MaterialID, d.Quantity); err != nil {
			return true, err
		}
	}
	return true, nil
}
