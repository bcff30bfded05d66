package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/peterkuimelis/anchorlink/internal/log"
)

func runMatch(t *testing.T, s *Session, controllers []PlayerController, cfg MatchConfig) int {
	t.Helper()
	m, err := NewMatch(s, controllers, cfg)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	winner, err := m.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v\n%s", err, eventLog(s))
	}
	s.Wait()
	return winner
}

func checkTurnOrder(t *testing.T, s *Session, seats int) {
	t.Helper()
	turns := s.logger.(*log.MemoryLogger).EventsOfType(log.EventNewTurn)
	if len(turns) == 0 {
		t.Fatal("no turns were played")
	}
	if turns[0].Player != 0 {
		t.Errorf("first turn belongs to seat %d", turns[0].Player)
	}
	for i := 1; i < len(turns); i++ {
		if want := (turns[i-1].Player + 1) % seats; turns[i].Player != want {
			t.Fatalf("turn %d went to seat %d, want %d", turns[i].Turn, turns[i].Player, want)
		}
		if turns[i].Turn != turns[i-1].Turn+1 {
			t.Fatalf("turn counter jumped from %d to %d", turns[i-1].Turn, turns[i].Turn)
		}
	}
}

func TestAgentsPlayToCompletion(t *testing.T) {
	for seats := MinPlayers; seats <= MaxPlayers; seats++ {
		drivers := make([]DriverMode, seats)
		controllers := make([]PlayerController, seats)
		for i := range drivers {
			drivers[i] = DriverSimulated
			controllers[i] = NewAgent(int64(100 + i))
		}
		s := newTestSession(t, ModeSolo, denyJudge(), drivers...)
		winner := runMatch(t, s, controllers, MatchConfig{MaxTurns: 5000})

		s.Inspect(func(gs *GameState) {
			if gs.Phase != PhaseGameEnd || gs.Winner != winner {
				t.Errorf("%d seats: phase %s winner %d (Run said %d)", seats, gs.Phase, gs.Winner, winner)
			}
			if gs.Players[winner].RoundsWon < MatchThreshold {
				t.Errorf("%d seats: winner has %d rounds", seats, gs.Players[winner].RoundsWon)
			}
			for i, p := range gs.Players {
				if i != winner && p.RoundsWon >= MatchThreshold {
					t.Errorf("%d seats: %s also reached the threshold", seats, p.Name)
				}
			}
		})
		checkTurnOrder(t, s, seats)
		checkConservation(t, s)
	}
}

func TestSoloMatchWithScriptedHuman(t *testing.T) {
	rec := &memRecorder{}
	s := newTestSession(t, ModeSolo, approveJudge(), DriverInteractive, DriverSimulated)
	s.recorder = rec
	human := NewScriptedController(t, "Ann")
	agent := NewAgent(9)
	agent.SuccessRate = 0

	winner := runMatch(t, s, []PlayerController{human, agent}, MatchConfig{})
	if winner != 0 {
		t.Fatalf("expected the always-approved seat to win, got %d", winner)
	}
	checkTurnOrder(t, s, 2)

	human.mu.Lock()
	notified := len(human.events)
	human.mu.Unlock()
	if notified == 0 {
		t.Error("controllers should be notified of events")
	}
	if len(rec.results) != 2 {
		t.Errorf("expected results for both seats, got %d", len(rec.results))
	}
}

func TestPassAndPlayMatch(t *testing.T) {
	s := newTestSession(t, ModeLocal, approveJudge(), DriverPassAndPlay, DriverPassAndPlay, DriverPassAndPlay)
	controllers := []PlayerController{
		NewScriptedController(t, "Ann"),
		NewScriptedController(t, "Ben"),
		NewScriptedController(t, "Cy"),
	}
	winner := runMatch(t, s, controllers, MatchConfig{})
	if winner < 0 {
		t.Fatal("expected a winner")
	}
	acks := s.logger.(*log.MemoryLogger).EventsOfType(log.EventHandoffAck)
	turns := s.logger.(*log.MemoryLogger).EventsOfType(log.EventNewTurn)
	if len(acks) != len(turns) {
		t.Errorf("every turn should follow a handoff: %d acks, %d turns", len(acks), len(turns))
	}
	checkTurnOrder(t, s, 3)
}

func TestMatchTurnLimit(t *testing.T) {
	s := newTestSession(t, ModeSolo, denyJudge(), DriverSimulated, DriverSimulated)
	a, b := NewAgent(1), NewAgent(2)
	a.SuccessRate, b.SuccessRate = 0, 0

	m, err := NewMatch(s, []PlayerController{a, b}, MatchConfig{MaxTurns: 10})
	if err != nil {
		t.Fatal(err)
	}
	_, err = m.Run(context.Background())
	if !errors.Is(err, ErrTurnLimit) {
		t.Fatalf("expected ErrTurnLimit, got %v", err)
	}
}

func TestMatchHonorsCancel(t *testing.T) {
	s := newTestSession(t, ModeSolo, denyJudge(), DriverSimulated, DriverSimulated)
	m, err := NewMatch(s, []PlayerController{NewAgent(1), NewAgent(2)}, MatchConfig{ThinkDelay: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := m.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestNewMatchControllerCount(t *testing.T) {
	s := newTestSession(t, ModeSolo, denyJudge(), DriverSimulated, DriverSimulated)
	if _, err := NewMatch(s, []PlayerController{NewAgent(1)}, MatchConfig{}); err == nil {
		t.Error("expected error for a missing controller")
	}
}

// deafAgent plays like an Agent but cannot receive events.
type deafAgent struct {
	*Agent
}

func (d deafAgent) Notify(ctx context.Context, event log.GameEvent) error {
	return errors.New("connection closed")
}

func TestFailedDeliveryIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	s := newTestSession(t, ModeSolo, denyJudge(), DriverSimulated, DriverSimulated)
	s.ops = zap.New(core)

	runMatch(t, s, []PlayerController{NewAgent(1), deafAgent{NewAgent(2)}}, MatchConfig{MaxTurns: 5000})

	failed := logs.FilterMessage("event delivery failed").All()
	if len(failed) == 0 {
		t.Fatal("expected delivery failures to be logged")
	}
	for _, entry := range failed {
		if seat := entry.ContextMap()["seat"]; seat != int64(1) {
			t.Errorf("failure logged for seat %v, want 1", seat)
		}
	}
}
