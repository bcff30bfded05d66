package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/peterkuimelis/anchorlink/internal/config"
	"github.com/peterkuimelis/anchorlink/internal/store"
	"github.com/peterkuimelis/anchorlink/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("config: %v", err)
	}
	port := flag.Int("port", 8080, "HTTP port to listen on")
	flag.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "catalog YAML file (default built-in)")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite file holding match results (empty = no leaderboard)")
	flag.Parse()

	logger, err := cfg.Logger()
	if err != nil {
		config.Exitf("logger: %v", err)
	}
	defer logger.Sync()

	catalog, err := cfg.Catalog()
	if err != nil {
		config.Exitf("catalog: %v", err)
	}

	var board web.Leaderboard
	if cfg.DBPath != "" {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			config.Exitf("store: %v", err)
		}
		defer st.Close()
		board = st
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := web.NewServer(catalog, board, logger)
	addr := fmt.Sprintf(":%d", *port)
	logger.Info("anchorlink web UI listening", zap.String("url", fmt.Sprintf("http://localhost:%d", *port)))
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		logger.Error("serve", zap.Error(err))
		os.Exit(1)
	}
}
