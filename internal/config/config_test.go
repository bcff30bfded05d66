package config

import (
	"strings"
	"testing"
	"time"

	"github.com/peterkuimelis/anchorlink/internal/game"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PlayMode() != game.ModeSolo {
		t.Errorf("expected solo mode, got %s", cfg.PlayMode())
	}
	if cfg.ExhaustionPolicy() != game.PolicyReshuffle {
		t.Errorf("expected reshuffle policy, got %s", cfg.ExhaustionPolicy())
	}
	if cfg.JudgeTimeout != 15*time.Second || cfg.ThinkDelay != 800*time.Millisecond {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	cat, err := cfg.Catalog()
	if err != nil || len(cat.Connections) == 0 {
		t.Fatalf("catalog: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ANCHORLINK_MODE", "local")
	t.Setenv("ANCHORLINK_PLAYERS", "Ann,Ben,Cy")
	t.Setenv("ANCHORLINK_EXHAUSTION_POLICY", "noop")
	t.Setenv("ANCHORLINK_JUDGE_URL", "http://judge.local/rule")
	t.Setenv("ANCHORLINK_SEED", "77")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.PlayMode() != game.ModeLocal || cfg.ExhaustionPolicy() != game.PolicyNoOp {
		t.Errorf("unexpected parsed values %+v", cfg)
	}
	if strings.Join(cfg.Players, "|") != "Ann|Ben|Cy" {
		t.Errorf("players = %v", cfg.Players)
	}
	if cfg.Seed != 77 || cfg.JudgeURL != "http://judge.local/rule" {
		t.Errorf("unexpected %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]string{
		"ANCHORLINK_MODE":              "arcade",
		"ANCHORLINK_EXHAUSTION_POLICY": "burn",
		"ANCHORLINK_OPPONENTS":         "4",
		"ANCHORLINK_SEED":              "not-a-number",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg Config
	t.Setenv("ANCHORLINK_THINK_DELAY", "soon")

	err := ParseEnv(&cfg)
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}
