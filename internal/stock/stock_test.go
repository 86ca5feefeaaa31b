package stock

import (
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"capstock/m/domain"
	"capstock/m/internal/database"
	"capstock/m/internal/migrations"
)

func newTestService(t *testing.T) (*Service, *sqlx.DB) {
	t.Helper()
	db := database.Connect("sqlite", ":memory:")
	t.Cleanup(func() { _ = db.Close() })
	migrations.Run(db)
	return New(db), db
}

func insertItem(t *testing.T, db *sqlx.DB, name string, qty int64, price float64) int64 {
	t.Helper()
	var id int64
	err := db.QueryRowx(`INSERT INTO items (name, category, quantity, price, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $5) RETURNING id`,
		name, domain.CategoryCap, qty, price, domain.Now()).Scan(&id)
	require.NoError(t, err)
	return id
}

func insertMaterial(t *testing.T, db *sqlx.DB, name string, qty float64) int64 {
	t.Helper()
	var id int64
	err := db.QueryRowx(`INSERT INTO raw_materials (name, width, height, quantity, unit, price, supplier, created_at, updated_at) VALUES ($1, 1.5, 1.0, $2, 'm', 8.5, 'Telas Center', $3, $3) RETURNING id`,
		name, qty, domain.Now()).Scan(&id)
	require.NoError(t, err)
	return id
}

type testDesign struct {
	materialID int64
	quantity   float64
}

func insertOrder(t *testing.T, db *sqlx.DB, status string, designs ...testDesign) int64 {
	t.Helper()
	var orderID int64
	err := db.QueryRowx(`INSERT INTO order_materials (distributor, status, tracking_number, carrier, created_at, updated_at) VALUES ('Telas Center', $1, 'TRK-1', 'correo', $2, $2) RETURNING id`,
		status, domain.Now()).Scan(&orderID)
	require.NoError(t, err)

	var groupID int64
	err = db.QueryRowx(`INSERT INTO order_material_groups (order_id, label) VALUES ($1, 'restock') RETURNING id`, orderID).Scan(&groupID)
	require.NoError(t, err)

	for _, d := range designs {
		_, err = db.Exec(`INSERT INTO order_designs (group_id, material_id, width, height, quantity) VALUES ($1, $2, 1.5, 1.0, $3)`,
			groupID, d.materialID, d.quantity)
		require.NoError(t, err)
	}
	return orderID
}

func itemQty(t *testing.T, db *sqlx.DB, id int64) int64 {
	t.Helper()
	var qty int64
	require.NoError(t, db.Get(&qty, `SELECT quantity FROM items WHERE id = $1`, id))
	return qty
}

func materialQty(t *testing.T, db *sqlx.DB, id int64) float64 {
	t.Helper()
	var qty float64
	require.NoError(t, db.Get(&qty, `SELECT quantity FROM raw_materials WHERE id = $1`, id))
	return qty
}

func orderStatus(t *testing.T, db *sqlx.DB, id int64) string {
	t.Helper()
	var status string
	require.NoError(t, db.Get(&status, `SELECT status FROM order_materials WHERE id = $1`, id))
	return status
}
