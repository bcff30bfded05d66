package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/peterkuimelis/anchorlink/internal/log"
)

// ScriptedController is a PlayerController that plays predictably: it picks
// the first non-special card in hand (or a named card when one is queued),
// justifies with a fixed sentence and acknowledges handoffs with its name.
type ScriptedController struct {
	t             *testing.T
	name          string
	justification string
	picks         []string

	mu     sync.Mutex
	events []log.GameEvent
}

func NewScriptedController(t *testing.T, name string) *ScriptedController {
	return &ScriptedController{
		t:             t,
		name:          name,
		justification: "Both of these are about carrying ideas across great distances.",
	}
}

// AddPick queues a card ID to select on a future turn.
func (sc *ScriptedController) AddPick(cardID string) *ScriptedController {
	sc.picks = append(sc.picks, cardID)
	return sc
}

func (sc *ScriptedController) RequestAction(ctx context.Context, sn *Snapshot) (Action, error) {
	switch sn.TurnPhase {
	case TurnPlayerHandoff:
		return Action{Type: ActionAcknowledgeHandoff, Name: sc.name}, nil
	case TurnMakingConnection:
		return Action{Type: ActionJustify, Justification: sc.justification}, nil
	}

	me := sn.Me()
	if me == nil || !me.HandVisible || len(me.Hand) == 0 {
		return Action{}, errors.New("scripted controller cannot see a hand")
	}
	if len(sc.picks) > 0 {
		id := sc.picks[0]
		for _, c := range me.Hand {
			if c.ID == id {
				sc.picks = sc.picks[1:]
				return Action{Type: ActionSelectCard, CardID: id}, nil
			}
		}
	}
	for _, c := range me.Hand {
		if !c.IsSpecial() {
			return Action{Type: ActionSelectCard, CardID: c.ID}, nil
		}
	}
	return Action{Type: ActionSelectCard, CardID: me.Hand[0].ID}, nil
}

func (sc *ScriptedController) Notify(ctx context.Context, event log.GameEvent) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.events = append(sc.events, event)
	return nil
}

// --- Judges ---

// fixedJudge always returns the same ruling.
type fixedJudge struct {
	mu     sync.Mutex
	ruling Ruling
	calls  []JudgeRequest
}

func (j *fixedJudge) Evaluate(ctx context.Context, req JudgeRequest) Ruling {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, req)
	return j.ruling
}

func approveJudge() *fixedJudge {
	return &fixedJudge{ruling: Ruling{Approved: true, Reasoning: "solid link"}}
}

func denyJudge() *fixedJudge {
	return &fixedJudge{ruling: Ruling{Approved: false, Reasoning: "too vague"}}
}

// gateJudge blocks every evaluation until the test releases a ruling.
type gateJudge struct {
	started chan struct{}
	release chan Ruling
}

func newGateJudge() *gateJudge {
	return &gateJudge{started: make(chan struct{}, 1), release: make(chan Ruling)}
}

func (j *gateJudge) Evaluate(ctx context.Context, req JudgeRequest) Ruling {
	j.started <- struct{}{}
	select {
	case r := <-j.release:
		return r
	case <-ctx.Done():
		return Ruling{Approved: false, Reasoning: "timed out", Fallback: true}
	}
}

// --- Recorders ---

type memRecorder struct {
	mu      sync.Mutex
	results []Result
	err     error
}

func (r *memRecorder) Record(ctx context.Context, result Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return r.err
}

// --- Session helpers ---

var seatNames = []string{"Ann", "Ben", "Cy", "Dee"}

func newTestSession(t *testing.T, mode PlayMode, judge Judge, drivers ...DriverMode) *Session {
	t.Helper()
	var players []*Player
	for i, d := range drivers {
		players = append(players, NewPlayer(seatNames[i], d))
	}
	s, err := NewSession(SessionConfig{
		Mode:          mode,
		Players:       players,
		Judge:         judge,
		Logger:        log.NewMemoryLogger(),
		Seed:          42,
		RulingTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func mustApply(t *testing.T, s *Session, a Action) {
	t.Helper()
	if err := s.Apply(a); err != nil {
		t.Fatalf("Apply(%s): %v", a, err)
	}
}

func mustReject(t *testing.T, s *Session, a Action) {
	t.Helper()
	err := s.Apply(a)
	if !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("Apply(%s): expected ErrInvalidMove, got %v", a, err)
	}
}

func awaitRuling(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.AwaitRuling(ctx); err != nil {
		t.Fatalf("AwaitRuling: %v", err)
	}
}

func checkConservation(t *testing.T, s *Session) {
	t.Helper()
	var err error
	s.Inspect(func(gs *GameState) { err = gs.CheckConservation(s.catalog) })
	if err != nil {
		t.Fatalf("conservation violated: %v", err)
	}
}

// takeCard removes a card from wherever it currently lives.
func takeCard(gs *GameState, id string) *Card {
	remove := func(cards []*Card) ([]*Card, *Card) {
		for i, c := range cards {
			if c.ID == id {
				return append(cards[:i], cards[i+1:]...), c
			}
		}
		return cards, nil
	}
	var c *Card
	if gs.Deck.draw, c = remove(gs.Deck.draw); c != nil {
		return c
	}
	if gs.Deck.discard, c = remove(gs.Deck.discard); c != nil {
		return c
	}
	for _, p := range gs.Players {
		if p.Hand, c = remove(p.Hand); c != nil {
			return c
		}
	}
	return nil
}

// giveHand replaces a seat's hand with exactly the listed cards. The old
// hand goes back under the draw pile so every card stays accounted for.
func giveHand(t *testing.T, s *Session, seat int, ids ...string) {
	t.Helper()
	s.Inspect(func(gs *GameState) {
		p := gs.Players[seat]
		old := p.Hand
		p.Hand = nil
		gs.Deck.draw = append(old, gs.Deck.draw...)
		for _, id := range ids {
			c := takeCard(gs, id)
			if c == nil {
				t.Fatalf("card %s not found", id)
			}
			p.Hand = append(p.Hand, c)
		}
	})
}

func eventLog(s *Session) string {
	if ml, ok := s.logger.(*log.MemoryLogger); ok {
		return log.FormatAll(ml.Events())
	}
	return ""
}
