package main

import (
	"flag"
	"log"
	"log/slog"

	"github.com/Marcemmanuel1/messagerie-app/internal/api"
	"github.com/Marcemmanuel1/messagerie-app/internal/config"
	"github.com/Marcemmanuel1/messagerie-app/internal/session"
	"github.com/Marcemmanuel1/messagerie-app/internal/store"
	"github.com/Marcemmanuel1/messagerie-app/internal/ui"
	"github.com/Marcemmanuel1/messagerie-app/internal/util"
)

func main() {
	configPath := flag.String("config", config.ConfigPath, "path to the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	_, closeLogger, err := util.InitLogger(cfg.LogLevel, cfg.StateDir)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer closeLogger()

	credStore, err := newCredentialStore(cfg)
	if err != nil {
		log.Fatalf("failed to init credential store: %v", err)
	}

	apiClient := api.NewClient(cfg.ServerURL)
	sess := session.New(apiClient, credStore)
	if _, err := sess.Restore(); err != nil {
		slog.Warn("session restore failed, starting signed out", "err", err)
	}

	slog.Info("starting", "server", cfg.ServerURL)
	if err := ui.Run(apiClient, sess); err != nil {
		log.Fatalf("ui error: %v", err)
	}
}

func newCredentialStore(cfg config.FileConfig) (store.CredentialStore, error) {
	if cfg.RedisAddr != "" {
		return store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, "messagerie")
	}
	return store.NewFileStore(cfg.StateDir)
}
