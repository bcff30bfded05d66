package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/peterkuimelis/anchorlink/internal/adjudicator"
	"github.com/peterkuimelis/anchorlink/internal/config"
	"github.com/peterkuimelis/anchorlink/internal/game"
	"github.com/peterkuimelis/anchorlink/internal/log"
	anet "github.com/peterkuimelis/anchorlink/internal/net"
	"github.com/peterkuimelis/anchorlink/internal/otel"
	"github.com/peterkuimelis/anchorlink/internal/store"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		config.Exitf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := os.Args[1]
	switch cmd {
	case "solo":
		err = runHost(ctx, cfg, game.ModeSolo, os.Args[2:])
	case "local":
		err = runHost(ctx, cfg, game.ModeLocal, os.Args[2:])
	case "host":
		err = runHost(ctx, cfg, game.ModeOnline, os.Args[2:])
	case "play":
		err = runHost(ctx, cfg, cfg.PlayMode(), os.Args[2:])
	case "join":
		err = runJoin(ctx, os.Args[2:])
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		config.Exitf("Error: %v", err)
	}
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  anchorlink solo  [--name NAME] [--opponents N]")
	fmt.Println("  anchorlink local --players A,B[,C,D]")
	fmt.Println("  anchorlink host  [--name NAME] [--port P] [--seats N]")
	fmt.Println("  anchorlink join  [--addr ADDR] [--name NAME]")
	fmt.Println("  anchorlink play  (mode from ANCHORLINK_MODE)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  solo    Play against simulated opponents")
	fmt.Println("  local   Pass-and-play on this terminal")
	fmt.Println("  host    Host an online match and play seat 1")
	fmt.Println("  join    Join an online match")
	fmt.Println()
	fmt.Println("Shared flags: --seed, --catalog, --db, --judge-url, --log FILE")
}

func runHost(ctx context.Context, cfg config.Config, mode game.PlayMode, args []string) error {
	fs := flag.NewFlagSet(mode.String(), flag.ExitOnError)
	name := fs.String("name", firstOr(cfg.Players, "Player"), "your name")
	players := fs.String("players", strings.Join(cfg.Players, ","), "comma-separated names for pass-and-play")
	opponents := fs.Int("opponents", cfg.Opponents, "simulated opponents in solo mode")
	port := fs.String("port", "9000", "TCP port to listen on in host mode")
	seats := fs.Int("seats", 1, "remote players to wait for in host mode")
	seed := fs.Int64("seed", cfg.Seed, "shuffle seed (0 = random)")
	fs.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "catalog YAML file (default built-in)")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite file for match results (empty = none)")
	fs.StringVar(&cfg.JudgeURL, "judge-url", cfg.JudgeURL, "remote judge endpoint (empty = local heuristic)")
	logPath := fs.String("log", "", "write the full event log to this file")
	fs.Parse(args)

	ops, err := cfg.Logger()
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer ops.Sync()

	shutdown, err := otel.Setup(ctx, "anchorlink")
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer shutdown(context.Background())

	catalog, err := cfg.Catalog()
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	h := &anet.Host{
		Mode:          mode,
		Names:         []string{*name},
		Opponents:     *opponents,
		Port:          *port,
		Remote:        *seats,
		Catalog:       catalog,
		Policy:        cfg.ExhaustionPolicy(),
		Seed:          *seed,
		RulingTimeout: cfg.RulingTimeout,
		Match: game.MatchConfig{
			ThinkDelay: cfg.ThinkDelay,
			RoundDelay: cfg.RoundDelay,
		},
		Ops: ops,
		Judge: adjudicator.New(adjudicator.HTTPConfig{
			URL:     cfg.JudgeURL,
			APIKey:  cfg.JudgeAPIKey,
			Timeout: cfg.JudgeTimeout,
			Logger:  ops,
		}),
	}
	if mode == game.ModeLocal {
		h.Names = splitNames(*players)
	}

	if cfg.DBPath != "" {
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
		h.Recorder = st
	}

	if *logPath != "" {
		f, err := os.Create(*logPath)
		if err != nil {
			return fmt.Errorf("event log: %w", err)
		}
		defer f.Close()
		h.Logger = log.NewTextLogger(f)
	}

	ops.Debug("starting match", zap.Stringer("mode", mode), zap.Strings("names", h.Names))
	_, err = h.Run(ctx)
	return err
}

func runJoin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("join", flag.ExitOnError)
	addr := fs.String("addr", "localhost:9000", "host address to connect to")
	name := fs.String("name", "", "your name at the table")
	fs.Parse(args)

	return anet.Connect(ctx, *addr, *name)
}

func splitNames(s string) []string {
	var names []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func firstOr(names []string, fallback string) string {
	if len(names) > 0 && strings.TrimSpace(names[0]) != "" {
		return strings.TrimSpace(names[0])
	}
	return fallback
}
