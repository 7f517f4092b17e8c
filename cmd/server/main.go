package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/simp-lee/marketdesk/internal/app"
	"github.com/simp-lee/marketdesk/internal/config"
)

func main() {
	configPath := flag.String("config", envOr("MARKETDESK_CONFIG", "configs/config.yaml"), "path to configuration file")
	check := flag.Bool("check", false, "validate the configuration, ping the backend and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	if *check {
		if err := checkBackend(cfg); err != nil {
			log.Fatal("backend check failed: ", err)
		}
		return
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal("failed to create app: ", err)
	}

	if err := a.Run(); err != nil {
		log.Fatal("server error: ", err)
	}
}

func checkBackend(cfg *config.Config) error {
	client, err := config.SetupBackend(&cfg.Backend, slog.Default())
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx); err != nil {
		return err
	}
	slog.Info("backend reachable", slog.String("base_url", cfg.Backend.BaseURL))
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
