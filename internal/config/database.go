package config

import (
	"database/sql"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

func InitDatabase(cfg *AppConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DBConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	slog.Info("Database connected successfully", "host", cfg.DBHost, "name", cfg.DBName)
	return db, nil
}
