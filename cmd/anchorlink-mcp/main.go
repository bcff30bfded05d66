package main

import (
	"context"
	"flag"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/peterkuimelis/anchorlink/internal/adjudicator"
	"github.com/peterkuimelis/anchorlink/internal/config"
	"github.com/peterkuimelis/anchorlink/internal/game"
	anchormcp "github.com/peterkuimelis/anchorlink/internal/mcp"
	"github.com/peterkuimelis/anchorlink/internal/otel"
	"github.com/peterkuimelis/anchorlink/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("config: %v", err)
	}
	port := flag.String("port", "9999", "TCP port for human player connections")
	flag.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "catalog YAML file (default built-in)")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite file for match results (empty = none)")
	flag.Parse()

	// stdout carries the MCP protocol, so operational logs go to stderr.
	ops, err := cfg.Logger()
	if err != nil {
		config.Exitf("logger: %v", err)
	}
	defer ops.Sync()

	shutdown, err := otel.Setup(context.Background(), "anchorlink-mcp")
	if err != nil {
		config.Exitf("otel: %v", err)
	}
	defer shutdown(context.Background())

	catalog, err := cfg.Catalog()
	if err != nil {
		config.Exitf("catalog: %v", err)
	}

	tc := anchormcp.Config{
		Catalog:       catalog,
		Policy:        cfg.ExhaustionPolicy(),
		RulingTimeout: cfg.RulingTimeout,
		Match:         game.MatchConfig{ThinkDelay: cfg.ThinkDelay, RoundDelay: cfg.RoundDelay},
		Port:          *port,
		Ops:           ops,
		Judge: adjudicator.New(adjudicator.HTTPConfig{
			URL:     cfg.JudgeURL,
			APIKey:  cfg.JudgeAPIKey,
			Timeout: cfg.JudgeTimeout,
			Logger:  ops,
		}),
	}
	if cfg.DBPath != "" {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			config.Exitf("store: %v", err)
		}
		defer st.Close()
		tc.Recorder = st
	}

	s := server.NewMCPServer("anchorlink", "1.0.0")
	anchormcp.NewTools(tc).Register(s)

	if err := server.ServeStdio(s); err != nil {
		ops.Error("serve stdio", zap.Error(err))
		config.Exitf("Error: %v", err)
	}
}
