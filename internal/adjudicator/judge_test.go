package adjudicator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/peterkuimelis/anchorlink/internal/game"
	"github.com/peterkuimelis/anchorlink/internal/log"
)

func testRequest(justification string) game.JudgeRequest {
	cat := game.DefaultCatalog()
	return game.JudgeRequest{
		Anchor:        cat.Anchors[0],
		Card:          cat.Lookup("telegraph"),
		Justification: justification,
	}
}

func TestHeuristicJudge(t *testing.T) {
	j := HeuristicJudge{}
	long := j.Evaluate(context.Background(), testRequest("It sent words across whole continents."))
	if !long.Approved || !long.Fallback {
		t.Errorf("expected approved fallback, got %+v", long)
	}
	short := j.Evaluate(context.Background(), testRequest("   it talks          "))
	if short.Approved {
		t.Errorf("short justification approved: %+v", short)
	}
	// Length is counted in runes, not bytes.
	if r := j.Evaluate(context.Background(), testRequest(strings.Repeat("é", 19))); r.Approved {
		t.Error("19 runes should not pass")
	}
	if r := j.Evaluate(context.Background(), testRequest(strings.Repeat("é", 20))); !r.Approved {
		t.Error("20 runes should pass")
	}
}

func TestHTTPJudgeSendsRequestAndParsesRuling(t *testing.T) {
	var got ruleRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"approved":true,"reasoning":" Strong link. ","connection_type":"thematic","strength":140}`))
	}))
	defer srv.Close()

	j := NewHTTPJudge(HTTPConfig{URL: srv.URL, APIKey: "k1"})
	req := testRequest("short")
	req.OptionID = "opt-2"
	r := j.Evaluate(context.Background(), req)

	if !r.Approved || r.Fallback {
		t.Fatalf("expected a remote approval, got %+v", r)
	}
	if r.Reasoning != "Strong link." || r.ConnectionType != "thematic" || r.Strength != 100 {
		t.Errorf("unexpected ruling %+v", r)
	}
	if auth != "Bearer k1" {
		t.Errorf("unexpected auth header %q", auth)
	}
	if got.CardTitle != "Telegraph" || got.AnchorText != req.Anchor.Text || got.OptionID != "opt-2" {
		t.Errorf("unexpected request %+v", got)
	}
	if len(got.AnchorThemes) != len(req.Anchor.Themes) {
		t.Errorf("themes not forwarded: %v", got.AnchorThemes)
	}
}

func TestHTTPJudgeFallsBack(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
		"bad json": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"approved":`))
		},
		"missing field": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"reasoning":"?"}`))
		},
		"slow": func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()
			j := NewHTTPJudge(HTTPConfig{URL: srv.URL, Timeout: 50 * time.Millisecond})

			r := j.Evaluate(context.Background(), testRequest("Morse code carried news over wires."))
			if !r.Fallback || !r.Approved {
				t.Errorf("expected an approved fallback, got %+v", r)
			}
			r = j.Evaluate(context.Background(), testRequest("wires"))
			if !r.Fallback || r.Approved {
				t.Errorf("expected a denied fallback, got %+v", r)
			}
		})
	}
}

func TestNewPicksJudge(t *testing.T) {
	if _, ok := New(HTTPConfig{}).(HeuristicJudge); !ok {
		t.Error("expected the heuristic without a URL")
	}
	if _, ok := New(HTTPConfig{URL: "http://judge.local"}).(*HTTPJudge); !ok {
		t.Error("expected the HTTP judge with a URL")
	}
}

// TestUnreachableJudgeStillResolves: the judge endpoint refuses connections;
// the session must still receive a ruling and evaluate it.
func TestUnreachableJudgeStillResolves(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	logger := log.NewMemoryLogger()
	players := []*game.Player{
		game.NewPlayer("Ann", game.DriverInteractive),
		game.NewPlayer("Ben", game.DriverSimulated),
	}
	s, err := game.NewSession(game.SessionConfig{
		Players: players,
		Judge:   NewHTTPJudge(HTTPConfig{URL: url, Timeout: time.Second}),
		Logger:  logger,
		Seed:    3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Apply(game.Action{Type: game.ActionStart}); err != nil {
		t.Fatal(err)
	}
	var cardID string
	for _, c := range s.Snapshot(0).Me().Hand {
		if !c.IsSpecial() {
			cardID = c.ID
			break
		}
	}
	if err := s.Apply(game.Action{Type: game.ActionSelectCard, CardID: cardID}); err != nil {
		t.Fatal(err)
	}
	if err := s.Apply(game.Action{Type: game.ActionJustify, Justification: "It carried messages further than any rider."}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.AwaitRuling(ctx); err != nil {
		t.Fatal(err)
	}

	evaluating := false
	for _, e := range logger.EventsOfType(log.EventPhaseChange) {
		if e.Phase == game.TurnEvaluating.String() {
			evaluating = true
		}
	}
	if !evaluating {
		t.Fatal("session never reached Evaluating")
	}
	approved := logger.EventsOfType(log.EventApproved)
	if len(approved) != 1 || !strings.Contains(approved[0].Details, "judge unavailable") {
		t.Errorf("expected one fallback approval, got %v", approved)
	}
}
