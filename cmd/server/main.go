package main

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/leonelquinteros/gotext"
	"github.com/sirupsen/logrus"

	"terminus-realm/mapgen/config"
	"terminus-realm/mapgen/handlers"
	"terminus-realm/mapgen/logger"
	"terminus-realm/mapgen/persistence"
	"terminus-realm/mapgen/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin during development
		// In production, restrict this to your client's domain
		return true
	},
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	if cfg.LocaleDir != "" {
		gotext.Configure(cfg.LocaleDir, cfg.Locale, "default")
		logger.Log.WithFields(logrus.Fields{
			"dir":    cfg.LocaleDir,
			"locale": cfg.Locale,
		}).Info("Locale loaded")
	}

	// Initialize database
	var db persistence.Storage
	var err error

	if cfg.DBType == "postgres" {
		db, err = persistence.NewPostgresStore(cfg.DatabaseURL)
		logger.Log.Info("Using PostgreSQL persistence")
	} else {
		db, err = persistence.NewJSONStore(cfg.DBFile)
		logger.Log.Info("Using JSON persistence")
	}

	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize persistence")
	}
	defer db.Close()

	mapService := services.NewMapService(db, cfg.MaxRetries)
	clientManager := handlers.NewClientManager()

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Log.WithError(err).Warn("Failed to upgrade connection")
			return
		}
		defer conn.Close()

		handlers.HandleClientConnection(conn, mapService, clientManager)
	})

	logger.Log.WithFields(logrus.Fields{
		"port":        cfg.Port,
		"max_retries": cfg.MaxRetries,
	}).Info("Map server starting")
	logger.Log.Fatal(http.ListenAndServe(":"+cfg.Port, nil))
}
