package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/fr0stylo/manabot/internal/audit"
	"github.com/fr0stylo/manabot/internal/cards"
	"github.com/fr0stylo/manabot/internal/config"
	"github.com/fr0stylo/manabot/internal/hipchat"
	"github.com/fr0stylo/manabot/internal/server"
	"github.com/fr0stylo/manabot/internal/server/routes"
	"github.com/fr0stylo/manabot/internal/store"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		return
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		slog.Error("Failed to open installation store", "error", err)
		return
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("Failed to close installation store", "error", err)
		}
	}()

	httpClient := &http.Client{Timeout: cfg.OutboundTimeout()}
	platform := hipchat.NewClient(httpClient)
	dispatcher := hipchat.NewDispatcher(httpClient)
	cardClient := cards.NewClient(cfg.Cards.APIURL, httpClient)
	recorder := audit.NewRecorder(st, log, cfg.Integration.Key)
	descriptor := hipchat.NewDescriptor(cfg.Integration.Key, cfg.Integration.Name, cfg.Integration.PublicURL)

	srv := server.New(log)
	srv.RegisterRouter(routes.NewIntegrationRoutes(st, platform, dispatcher, recorder, descriptor, log))
	srv.RegisterRouter(routes.NewTriggerRoutes(st, cardClient, dispatcher, recorder, log))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	slog.Info("Starting server", "port", cfg.Server.Port)
	slog.Error("Closing server", "error", srv.Start(addr))
}
