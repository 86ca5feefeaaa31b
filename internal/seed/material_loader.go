package seed

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"capstock/m/domain"
)

// LoadMaterials ingests the fabric catalog CSV into raw_materials, skipping
// names that already exist. Columns: name, width, height, unit, price, supplier.
func LoadMaterials(db *sqlx.DB, csvPath string) {
	file, err := os.Open(csvPath)
	if err != nil {
		logrus.Warnf("unable to load fabric catalog %s: %v", csvPath, err)
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Skip header
	if _, err := reader.Read(); err != nil {
		logrus.Warnf("unable to read fabric catalog header: %v", err)
		return
	}

	tx, err := db.Beginx()
	if err != nil {
		logrus.Warnf("unable to start fabric catalog transaction: %v", err)
		return
	}
	stmt, err := tx.Preparex(`
        INSERT INTO raw_materials (name, width, height, quantity, unit, price, supplier, created_at, updated_at)
        SELECT $1, $2, $3, 0, $4, $5, $6, $7, $7
        WHERE NOT EXISTS (SELECT 1 FROM raw_materials WHERE name = $1)`)
	if err != nil {
		logrus.Warnf("unable to prepare fabric insert: %v", err)
		_ = tx.Rollback()
		return
	}
	defer stmt.Close()

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logrus.Warnf("unable to read fabric row: %v", err)
			continue
		}
		if len(record) < 6 {
			continue
		}
		name := strings.TrimSpace(record[0])
		if name == "" {
			continue
		}
		width, _ := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		height, _ := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		unit := strings.TrimSpace(record[3])
		price, _ := strconv.ParseFloat(strings.TrimSpace(record[4]), 64)
		supplier := strings.TrimSpace(record[5])

		if _, err := stmt.Exec(name, width, height, unit, price, supplier, domain.Now()); err != nil {
			logrus.Warnf("unable to insert fabric %q: %v", name, err)
			continue
		}
		rows++
	}

	if err := tx.Commit(); err != nil {
		logrus.Warnf("unable to commit fabric catalog: %v", err)
		return
	}
	logrus.Infof("fabric catalog loaded, %d rows processed", rows)
}
