package main

import (
	"net/http"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"capstock/m/internal/api"
	"capstock/m/internal/config"
	"capstock/m/internal/database"
	"capstock/m/internal/migrations"
	"capstock/m/internal/seed"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	db := database.Connect(cfg.DatabaseDriver, cfg.DatabaseDSN)
	defer db.Close()

	migrations.Run(db)
	seed.LoadMaterials(db, "assets/materials.csv")

	handler := api.New(db, cfg.Secret)

	logrus.Infof("CapStock server starting on :%s", cfg.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, handler.Router()); err != nil {
		logrus.WithError(err).Fatal("server error")
	}
}
