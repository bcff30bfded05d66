package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/peterkuimelis/anchorlink/internal/log"
)

// ErrInvalidMove is returned when an action fails a precondition check.
// The state is never modified by a rejected action.
var ErrInvalidMove = errors.New("invalid move")

// DefaultRulingTimeout bounds how long a ruling may take before the judge is
// expected to fall back.
const DefaultRulingTimeout = 30 * time.Second

// SessionConfig holds configuration for creating a new session.
type SessionConfig struct {
	Mode          PlayMode
	Players       []*Player
	Catalog       *Catalog // nil uses DefaultCatalog
	Judge         Judge
	Recorder      Recorder // optional
	Logger        log.EventLogger
	Ops           *zap.Logger // operational logging, nil for none
	Scorer        *Scorer     // nil uses DefaultScorer
	Policy        ExhaustionPolicy
	Seed          int64 // RNG seed (0 for random)
	RulingTimeout time.Duration
}

// Session is the game session controller. It owns the GameState and is its
// only writer: every change goes through Apply or the ruling resolution path,
// both serialized by mu.
type Session struct {
	mu      sync.Mutex
	state   *GameState
	catalog *Catalog
	scorer  Scorer
	rng     *rand.Rand

	judge         Judge
	recorder      Recorder
	logger        log.EventLogger
	ops           *zap.Logger
	rulingTimeout time.Duration

	ctx      context.Context
	inFlight chan struct{} // closed when the pending ruling is applied
	bg       sync.WaitGroup

	outbox    []log.GameEvent
	flushMu   sync.Mutex
	observers []func(log.GameEvent)
}

// NewSession validates the configuration and creates a session in Setup.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Judge == nil {
		return nil, fmt.Errorf("session requires a judge")
	}
	if n := len(cfg.Players); n < MinPlayers || n > MaxPlayers {
		return nil, fmt.Errorf("need %d-%d players, got %d", MinPlayers, MaxPlayers, n)
	}
	names := make(map[string]bool)
	for _, p := range cfg.Players {
		key := strings.ToLower(strings.TrimSpace(p.Name))
		if key == "" {
			return nil, fmt.Errorf("player names must not be empty")
		}
		if names[key] {
			return nil, fmt.Errorf("duplicate player name %q", p.Name)
		}
		names[key] = true
	}

	catalog := cfg.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if need := InitialHandSize * len(cfg.Players); need > len(catalog.Connections) {
		return nil, fmt.Errorf("catalog holds %d cards, %d players need %d: %w", len(catalog.Connections), len(cfg.Players), need, ErrDeckExhausted)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	scorer := DefaultScorer()
	if cfg.Scorer != nil {
		scorer = *cfg.Scorer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewMemoryLogger()
	}
	ops := cfg.Ops
	if ops == nil {
		ops = zap.NewNop()
	}
	timeout := cfg.RulingTimeout
	if timeout <= 0 {
		timeout = DefaultRulingTimeout
	}

	s := &Session{
		state:         NewGameState(cfg.Mode, cfg.Players, catalog, cfg.Policy, rng),
		catalog:       catalog,
		scorer:        scorer,
		rng:           rng,
		judge:         cfg.Judge,
		recorder:      cfg.Recorder,
		logger:        logger,
		ops:           ops,
		rulingTimeout: timeout,
		ctx:           context.Background(),
	}
	s.state.Code = NewSessionCode(rng)
	s.state.Deck.OnReshuffle = func(n int) {
		s.emit(log.NewReshuffleEvent(s.state.Round, s.state.Turn, s.state.TurnPhase.String(), n))
	}
	return s, nil
}

// Code returns the display-only session code.
func (s *Session) Code() string {
	return s.state.Code
}

// Catalog returns the card catalog the session plays with.
func (s *Session) Catalog() *Catalog {
	return s.catalog
}

// Logger returns the session's event logger.
func (s *Session) Logger() log.EventLogger {
	return s.logger
}

// Observe registers fn to receive every event after it has been committed.
// Observers are called outside the session lock, in event order.
func (s *Session) Observe(fn func(log.GameEvent)) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	s.observers = append(s.observers, fn)
}

// SetContext sets the parent context for adjudication tasks.
func (s *Session) SetContext(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
}

// Over reports whether the match has ended.
func (s *Session) Over() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Over()
}

// Inspect runs fn with the live state under the session lock. fn must not
// retain or modify the state. Intended for tests and invariant checks.
func (s *Session) Inspect(fn func(gs *GameState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// Options returns the hint list for one of the current player's cards, or
// for the selected card when cardID is empty.
func (s *Session) Options(cardID string) []JustificationOption {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.optionsLocked(cardID)
}

func (s *Session) optionsLocked(cardID string) []JustificationOption {
	gs := s.state
	card := gs.Selected
	if cardID != "" && (card == nil || card.ID != cardID) {
		card = gs.CurrentPlayer().FindInHand(cardID)
	}
	return Options(gs.Anchor, card)
}

// AwaitRuling blocks until no ruling is in flight.
func (s *Session) AwaitRuling(ctx context.Context) error {
	s.mu.Lock()
	ch := s.inFlight
	s.mu.Unlock()
	if ch == nil {
		return nil
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Wait blocks until background work (adjudication and result writes) is done.
func (s *Session) Wait() {
	s.bg.Wait()
}

// Apply is the single entry point for proposed state changes.
func (s *Session) Apply(a Action) error {
	s.mu.Lock()
	err := s.apply(a)
	if err != nil {
		gs := s.state
		s.emit(log.NewRejectedEvent(gs.Round, gs.Turn, gs.TurnPhase.String(), a.Player, err.Error()))
	}
	s.mu.Unlock()
	s.flush()
	return err
}

func (s *Session) apply(a Action) error {
	switch a.Type {
	case ActionStart:
		return s.start()
	case ActionSelectCard:
		return s.selectCard(a)
	case ActionCancel:
		return s.cancel(a)
	case ActionJustify:
		return s.justify(a)
	case ActionSimulatedPlay:
		return s.simulatedPlay(a)
	case ActionAcknowledgeHandoff:
		return s.acknowledgeHandoff(a)
	case ActionNextRound:
		return s.nextRound()
	default:
		return fmt.Errorf("%w: unknown action %d", ErrInvalidMove, a.Type)
	}
}

// --- preconditions ---

func (s *Session) requireTurn(a Action, phase TurnPhase) error {
	gs := s.state
	if gs.Phase != PhasePlaying {
		return fmt.Errorf("%w: match is in %s", ErrInvalidMove, gs.Phase)
	}
	if gs.TurnPhase != phase {
		return fmt.Errorf("%w: %s not allowed while %s", ErrInvalidMove, a.Type, gs.TurnPhase)
	}
	if a.Player != gs.Current {
		return fmt.Errorf("%w: it is %s's turn", ErrInvalidMove, gs.CurrentPlayer().Name)
	}
	return nil
}

// --- transitions ---

func (s *Session) start() error {
	gs := s.state
	if gs.Phase != PhaseSetup {
		return fmt.Errorf("%w: match already started", ErrInvalidMove)
	}
	if err := gs.Deck.Deal(InitialHandSize, gs.Players); err != nil {
		return err
	}
	gs.Anchor = gs.AnchorDeck.Next(nil)
	gs.Round = 1
	gs.Turn = 1
	gs.Current = 0
	gs.Phase = PhasePlaying
	s.emit(log.NewDealEvent(gs.Round, len(gs.Players), InitialHandSize))
	s.emit(log.NewRoundEvent(gs.Round, gs.Anchor.Text))
	s.beginTurn()
	return nil
}

func (s *Session) selectCard(a Action) error {
	if err := s.requireTurn(a, TurnSelectingCard); err != nil {
		return err
	}
	gs := s.state
	p := gs.CurrentPlayer()
	card := p.FindInHand(a.CardID)
	if card == nil {
		return fmt.Errorf("%w: card %q is not in %s's hand", ErrInvalidMove, a.CardID, p.Name)
	}

	p.RemoveFromHand(card)
	if card.IsSpecial() {
		s.playSpecial(p, card)
		return nil
	}
	gs.Selected = card
	s.setTurnPhase(TurnMakingConnection)
	s.emit(log.NewSelectEvent(gs.Round, gs.Turn, gs.TurnPhase.String(), gs.Current, p.Name, card.Title))
	return nil
}

// playSpecial applies a special card's effect. Playing a special card uses
// up the turn and never ends a round: a player left with an empty hand draws
// one replacement, and keeps the special card when nothing can be drawn.
func (s *Session) playSpecial(p *Player, card *Card) {
	gs := s.state
	effect := "no effect"
	if handler, ok := SpecialEffects[card.Special]; ok {
		effect = handler(gs, p)
	}
	s.emit(log.NewSpecialEvent(gs.Round, gs.Turn, gs.TurnPhase.String(), gs.Current, p.Name, card.Title, effect))
	if card.Special == SpecialNewAnchor {
		s.emit(log.NewAnchorEvent(gs.Round, gs.Turn, gs.TurnPhase.String(), gs.Current, gs.Anchor.Text))
	}
	if len(p.Hand) == 0 && !s.drawInto(p) {
		p.Hand = append(p.Hand, card)
	} else {
		gs.Deck.Discard(card)
	}
	s.advanceTurn()
}

func (s *Session) cancel(a Action) error {
	if err := s.requireTurn(a, TurnMakingConnection); err != nil {
		return err
	}
	gs := s.state
	p := gs.CurrentPlayer()
	card := gs.Selected
	if card == nil {
		return fmt.Errorf("%w: no card selected", ErrInvalidMove)
	}
	p.Hand = append(p.Hand, card)
	gs.Selected = nil
	s.setTurnPhase(TurnSelectingCard)
	s.emit(log.NewCancelEvent(gs.Round, gs.Turn, gs.TurnPhase.String(), gs.Current, p.Name, card.Title))
	return nil
}

func (s *Session) justify(a Action) error {
	if err := s.requireTurn(a, TurnMakingConnection); err != nil {
		return err
	}
	gs := s.state
	if gs.Selected == nil {
		return fmt.Errorf("%w: no card selected", ErrInvalidMove)
	}
	p := gs.CurrentPlayer()

	text := strings.TrimSpace(a.Justification)
	if a.OptionID != "" {
		opt, ok := findOption(s.optionsLocked(""), a.OptionID)
		if !ok {
			return fmt.Errorf("%w: unknown option %q", ErrInvalidMove, a.OptionID)
		}
		text = opt.Text
		p.HintsUsed++
	}
	if text == "" {
		return fmt.Errorf("%w: justification is empty", ErrInvalidMove)
	}

	s.emit(log.NewJustifyEvent(gs.Round, gs.Turn, gs.TurnPhase.String(), gs.Current, p.Name, gs.Selected.Title, text))
	s.setTurnPhase(TurnAwaitingRuling)
	s.emit(log.NewRulingRequestedEvent(gs.Round, gs.Turn, gs.TurnPhase.String(), gs.Current, gs.Selected.Title))

	req := JudgeRequest{
		Anchor:        copyAnchor(gs.Anchor),
		Card:          gs.Selected,
		Justification: text,
		OptionID:      a.OptionID,
	}
	done := make(chan struct{})
	s.inFlight = done
	ctx, cancel := context.WithTimeout(s.ctx, s.rulingTimeout)
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		defer cancel()
		ruling := s.judge.Evaluate(ctx, req)
		s.resolve(ruling, done)
	}()
	return nil
}

// resolve applies a ruling that arrived from the judge.
func (s *Session) resolve(ruling Ruling, done chan struct{}) {
	s.mu.Lock()
	gs := s.state
	gs.Pending = &ruling
	s.setTurnPhase(TurnEvaluating)
	s.evaluate()
	s.inFlight = nil
	close(done)
	s.mu.Unlock()
	s.flush()
}

func (s *Session) simulatedPlay(a Action) error {
	if err := s.requireTurn(a, TurnSelectingCard); err != nil {
		return err
	}
	gs := s.state
	p := gs.CurrentPlayer()
	if p.Driver != DriverSimulated {
		return fmt.Errorf("%w: %s is not a simulated player", ErrInvalidMove, p.Name)
	}
	if a.Ruling == nil {
		return fmt.Errorf("%w: simulated play without a ruling", ErrInvalidMove)
	}
	card := p.FindInHand(a.CardID)
	if card == nil {
		return fmt.Errorf("%w: card %q is not in %s's hand", ErrInvalidMove, a.CardID, p.Name)
	}
	if card.IsSpecial() {
		return fmt.Errorf("%w: special cards are played by selection", ErrInvalidMove)
	}

	p.RemoveFromHand(card)
	gs.Selected = card
	s.emit(log.NewSelectEvent(gs.Round, gs.Turn, gs.TurnPhase.String(), gs.Current, p.Name, card.Title))
	ruling := *a.Ruling
	gs.Pending = &ruling
	s.setTurnPhase(TurnEvaluating)
	s.evaluate()
	return nil
}

// evaluate hands the pending ruling for the selected card to the scorer and
// moves on to the round end or the next turn.
func (s *Session) evaluate() {
	gs := s.state
	p := gs.CurrentPlayer()
	card := gs.Selected
	ruling := gs.Pending
	gs.Selected = nil

	var out Outcome
	if ruling.Approved {
		out = s.scorer.Approve(gs, p, card)
	} else {
		out = s.scorer.Deny(gs, p, card)
	}
	s.emit(log.NewRulingEvent(gs.Round, gs.Turn, gs.TurnPhase.String(), gs.Current, p.Name, card.Title, out.Approved, out.Points, ruling.Reasoning))
	if out.Drew != nil {
		s.emit(log.NewDrawEvent(gs.Round, gs.Turn, gs.TurnPhase.String(), gs.Current, p.Name, out.Drew.Title))
	}
	if out.Exhausted {
		s.emit(log.NewDeckExhaustedEvent(gs.Round, gs.Turn, gs.TurnPhase.String(), gs.Current))
	}
	gs.Pending = nil

	if !out.RoundWon {
		s.advanceTurn()
		return
	}

	gs.RoundWinner = gs.Current
	gs.TurnPhase = TurnNone
	s.setPhase(PhaseRoundEnd)
	s.emit(log.NewRoundWonEvent(gs.Round, gs.Turn, gs.Current, p.Name, p.RoundsWon))
	if out.MatchWon {
		gs.Winner = gs.Current
		s.setPhase(PhaseGameEnd)
		s.emit(log.NewWinEvent(gs.Round, gs.Turn, gs.Current, p.Name))
		s.recordResults()
	}
}

func (s *Session) acknowledgeHandoff(a Action) error {
	gs := s.state
	if gs.Phase != PhasePlaying || gs.TurnPhase != TurnPlayerHandoff {
		return fmt.Errorf("%w: no handoff pending", ErrInvalidMove)
	}
	p := gs.CurrentPlayer()
	if !strings.EqualFold(strings.TrimSpace(a.Name), p.Name) {
		return fmt.Errorf("%w: waiting for %s, not %q", ErrInvalidMove, p.Name, a.Name)
	}
	s.emit(log.NewHandoffAckEvent(gs.Round, gs.Turn, gs.Current, p.Name))
	s.setTurnPhase(TurnSelectingCard)
	s.emit(log.NewTurnEvent(gs.Round, gs.Turn, gs.Current, p.Name))
	return nil
}

func (s *Session) nextRound() error {
	gs := s.state
	if gs.Phase != PhaseRoundEnd {
		return fmt.Errorf("%w: round is not over", ErrInvalidMove)
	}
	if err := s.scorer.ResetRound(gs); err != nil {
		return err
	}
	gs.Round++
	s.setPhase(PhasePlaying)
	s.emit(log.NewDealEvent(gs.Round, len(gs.Players), InitialHandSize))
	s.emit(log.NewRoundEvent(gs.Round, gs.Anchor.Text))
	s.advanceTurn()
	return nil
}

// advanceTurn passes the turn to the next seat in order.
func (s *Session) advanceTurn() {
	gs := s.state
	gs.Current = gs.NextIndex()
	gs.Turn++
	s.beginTurn()
}

// beginTurn opens the current player's turn. In pass-and-play every turn
// starts behind a handoff screen.
func (s *Session) beginTurn() {
	gs := s.state
	p := gs.CurrentPlayer()
	if gs.Mode == ModeLocal {
		s.setTurnPhase(TurnPlayerHandoff)
		s.emit(log.NewHandoffEvent(gs.Round, gs.Turn, gs.Current, p.Name))
		return
	}
	s.setTurnPhase(TurnSelectingCard)
	s.emit(log.NewTurnEvent(gs.Round, gs.Turn, gs.Current, p.Name))
}

func (s *Session) drawInto(p *Player) bool {
	gs := s.state
	card, ok := gs.Deck.Draw()
	if !ok {
		s.emit(log.NewDeckExhaustedEvent(gs.Round, gs.Turn, gs.TurnPhase.String(), gs.Current))
		return false
	}
	p.Hand = append(p.Hand, card)
	s.emit(log.NewDrawEvent(gs.Round, gs.Turn, gs.TurnPhase.String(), gs.Current, p.Name, card.Title))
	return true
}

func (s *Session) setPhase(phase Phase) {
	gs := s.state
	gs.Phase = phase
	s.emit(log.NewPhaseChangeEvent(gs.Round, gs.Turn, phase.String()))
}

func (s *Session) setTurnPhase(phase TurnPhase) {
	gs := s.state
	gs.TurnPhase = phase
	s.emit(log.NewPhaseChangeEvent(gs.Round, gs.Turn, phase.String()))
}

// --- results ---

// recordResults writes every player's result in the background. A failing
// write is logged and otherwise ignored.
func (s *Session) recordResults() {
	if s.recorder == nil {
		return
	}
	gs := s.state
	results := make([]Result, len(gs.Players))
	for i, p := range gs.Players {
		results[i] = Result{
			PlayerID:   p.ID,
			PlayerName: p.Name,
			GameType:   GameType,
			FinalScore: p.Score,
			Mode:       gs.Mode.String(),
			Won:        i == gs.Winner,
			Metadata: ResultMetadata{
				Attempts:   p.Attempts,
				Correct:    p.Correct,
				BestStreak: p.BestStreak,
				HintsUsed:  p.HintsUsed,
			},
		}
	}
	ctx := context.WithoutCancel(s.ctx)
	s.bg.Add(1)
	go func() {
		defer s.bg.Done()
		for _, r := range results {
			if err := s.recorder.Record(ctx, r); err != nil {
				s.ops.Warn("record result failed",
					zap.String("player_id", r.PlayerID),
					zap.Int("final_score", r.FinalScore),
					zap.Error(err),
				)
			}
		}
	}()
}

// --- events ---

// emit logs an event immediately and queues it for observers. Must be
// called with mu held.
func (s *Session) emit(event log.GameEvent) {
	s.logger.Log(event)
	s.outbox = append(s.outbox, event)
}

// flush delivers queued events to observers outside the session lock.
func (s *Session) flush() {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	s.mu.Lock()
	events := s.outbox
	s.outbox = nil
	s.mu.Unlock()
	for _, ev := range events {
		for _, fn := range s.observers {
			fn(ev)
		}
	}
}

func copyAnchor(a *AnchorCard) *AnchorCard {
	if a == nil {
		return nil
	}
	c := *a
	c.Themes = append([]string(nil), a.Themes...)
	return &c
}
