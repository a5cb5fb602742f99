package main

import (
	"net/http"
	"os"

	"wordrace/internal/config"
	"wordrace/internal/db"
	"wordrace/internal/gateway"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		logrus.WithError(err).Warn("failed to load .env")
	}
	cfg := config.Load()

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	var archive gateway.Archiver
	if os.Getenv("DATABASE_URL") != "" {
		conn, err := db.Open(cfg)
		if err != nil {
			logger.WithError(err).Fatal("database connection failed")
		}
		if err := db.Migrate(conn); err != nil {
			logger.WithError(err).Fatal("database migration failed")
		}
		archive = db.NewStore(conn)
	} else {
		logger.Info("DATABASE_URL not set; event archival disabled")
	}

	gw := gateway.New(logger, archive)
	addr := ":" + cfg.Port
	logger.WithField("addr", addr).Info("wordrace realtime gateway listening")
	if err := http.ListenAndServe(addr, gw.Handler()); err != nil {
		logger.WithError(err).Fatal("server stopped")
	}
}
