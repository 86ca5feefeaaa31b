package migrations

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// Run creates the schema. The only dialect difference between Postgres and
// SQLite is the autoincrement primary key column; date columns are TEXT and
// written by the application so both drivers scan them identically.
//
// Cross-entity references (sale_items.item_id, item_materials.material_id,
// order_designs.material_id) deliberately carry no FOREIGN KEY clause:
// referential integrity for those is a pre-flight check at the API layer.
func Run(db *sqlx.DB) {
	pk := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.DriverName() == "postgres" {
		pk = "BIGSERIAL PRIMARY KEY"
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id %s,
            username TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            role TEXT NOT NULL,
            created_at TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS items (
            id %s,
            name TEXT NOT NULL,
            category TEXT NOT NULL,
            quantity BIGINT NOT NULL DEFAULT 0,
            price REAL NOT NULL DEFAULT 0,
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS raw_materials (
            id %s,
            name TEXT NOT NULL,
            width REAL NOT NULL,
            height REAL NOT NULL,
            quantity REAL NOT NULL DEFAULT 0,
            unit TEXT NOT NULL,
            price REAL NOT NULL DEFAULT 0,
            supplier TEXT NOT NULL DEFAULT '',
            image_url TEXT,
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS item_materials (
            id %s,
            item_id BIGINT NOT NULL REFERENCES items(id),
            material_id BIGINT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS order_materials (
            id %s,
            distributor TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            tracking_number TEXT NOT NULL DEFAULT '',
            carrier TEXT NOT NULL DEFAULT '',
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS order_material_groups (
            id %s,
            order_id BIGINT NOT NULL REFERENCES order_materials(id),
            label TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS order_designs (
            id %s,
            group_id BIGINT NOT NULL REFERENCES order_material_groups(id),
            material_id BIGINT NOT NULL,
            width REAL NOT NULL DEFAULT 0,
            height REAL NOT NULL DEFAULT 0,
            quantity REAL NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS sales (
            id %s,
            reference TEXT NOT NULL,
            customer_name TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            social_media TEXT NOT NULL DEFAULT '',
            shipping_address TEXT NOT NULL DEFAULT '',
            total_amount REAL NOT NULL DEFAULT 0,
            discount REAL NOT NULL DEFAULT 0,
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS sale_items (
            id %s,
            sale_id BIGINT NOT NULL REFERENCES sales(id),
            item_id BIGINT NOT NULL,
            quantity BIGINT NOT NULL,
            unit_price REAL NOT NULL,
            subtotal REAL NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS sale_extras (
            id %s,
            sale_id BIGINT NOT NULL REFERENCES sales(id),
            description TEXT NOT NULL,
            price REAL NOT NULL
        );`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(fmt.Sprintf(stmt, pk)); err != nil {
			logrus.WithError(err).Fatal("migration failed")
		}
	}
}
