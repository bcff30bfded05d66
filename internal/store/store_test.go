package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/peterkuimelis/anchorlink/internal/game"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(" "); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.db")
	for i := 0; i < 2; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("close %d: %v", i, err)
		}
	}
}

func TestRecordRoundTrip(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	ctx := context.Background()
	in := game.Result{
		PlayerID:   "p-1",
		PlayerName: "Ann",
		GameType:   game.GameType,
		FinalScore: 85,
		Mode:       "solo",
		Won:        true,
		Metadata:   game.ResultMetadata{Attempts: 9, Correct: 7, BestStreak: 4, HintsUsed: 2},
	}
	if err := s.Record(ctx, in); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := s.Results(ctx, "p-1")
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("results = %d, want 1", len(got))
	}
	if got[0] != in {
		t.Fatalf("result = %+v, want %+v", got[0], in)
	}
}

func TestRecordValidation(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	if err := s.Record(context.Background(), game.Result{}); err == nil {
		t.Fatal("expected missing player id error")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Record(ctx, game.Result{PlayerID: "p"}); err == nil {
		t.Fatal("expected canceled context error")
	}

	var nilStore *Store
	if err := nilStore.Record(context.Background(), game.Result{PlayerID: "p"}); err == nil {
		t.Fatal("expected unconfigured store error")
	}
}

func TestLeaderboard(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	tick := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	ctx := context.Background()
	results := []game.Result{
		{PlayerID: "a1", PlayerName: "Ann", FinalScore: 40, Mode: "solo", Won: true},
		{PlayerID: "a2", PlayerName: "Ann", FinalScore: 95, Mode: "solo", Won: true},
		{PlayerID: "b1", PlayerName: "Ben", FinalScore: 60, Mode: "local"},
		{PlayerID: "c1", PlayerName: "Cy", FinalScore: 10, Mode: "online"},
	}
	for _, r := range results {
		if err := s.Record(ctx, r); err != nil {
			t.Fatalf("record %s: %v", r.PlayerID, err)
		}
	}

	board, err := s.Leaderboard(ctx, 2)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 2 {
		t.Fatalf("leaderboard rows = %d, want 2", len(board))
	}
	if board[0] != (Entry{PlayerName: "Ann", BestScore: 95, Games: 2, Wins: 2}) {
		t.Fatalf("first row = %+v", board[0])
	}
	if board[1].PlayerName != "Ben" || board[1].BestScore != 60 || board[1].Wins != 0 {
		t.Fatalf("second row = %+v", board[1])
	}
}

// TestStoreRecordsFinishedMatch plays a short match against the store.
func TestStoreRecordsFinishedMatch(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	players := []*game.Player{
		game.NewPlayer("Ann", game.DriverSimulated),
		game.NewPlayer("Ben", game.DriverSimulated),
	}
	sess, err := game.NewSession(game.SessionConfig{
		Players:  players,
		Judge:    alwaysJudge{},
		Recorder: s,
		Seed:     21,
	})
	if err != nil {
		t.Fatal(err)
	}
	m, err := game.NewMatch(sess, []game.PlayerController{game.NewAgent(1), game.NewAgent(2)}, game.MatchConfig{})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	winner, err := m.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	sess.Wait()

	got, err := s.Results(ctx, players[winner].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || !got[0].Won || got[0].GameType != game.GameType {
		t.Fatalf("winner results = %+v", got)
	}
}

type alwaysJudge struct{}

func (alwaysJudge) Evaluate(context.Context, game.JudgeRequest) game.Ruling {
	return game.Ruling{Approved: true}
}

func TestOpenAppliesPragmas(t *testing.T) {
	t.Parallel()

	s := openTempStore(t)
	ctx := context.Background()
	var mode string
	if err := s.sqlDB.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
	var timeout, fk int
	if err := s.sqlDB.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout); err != nil {
		t.Fatalf("busy_timeout: %v", err)
	}
	if timeout != 5000 {
		t.Errorf("busy_timeout = %d, want 5000", timeout)
	}
	if err := s.sqlDB.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}
