package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/peterkuimelis/anchorlink/internal/game"
	"github.com/peterkuimelis/anchorlink/internal/log"
	anet "github.com/peterkuimelis/anchorlink/internal/net"
)

// DecisionType identifies what kind of decision the game engine is waiting for.
type DecisionType string

const (
	DecisionSelectCard     DecisionType = "select_card"
	DecisionMakeConnection DecisionType = "make_connection"
	DecisionGameOver       DecisionType = "game_over"
)

// PendingDecision represents a decision the game engine is waiting for.
type PendingDecision struct {
	Type   DecisionType    `json:"type"`
	Player int             `json:"player"`
	State  *anet.StateView `json:"state"`
}

// ToolResponse is the JSON envelope returned by all MCP tools.
type ToolResponse struct {
	Events   []anet.EventView `json:"events"`
	State    *anet.StateView  `json:"state,omitempty"`
	Pending  *PendingView     `json:"pending,omitempty"`
	GameOver bool             `json:"game_over"`
	Winner   int              `json:"winner,omitempty"`
	Result   string           `json:"result,omitempty"`
	Code     string           `json:"code,omitempty"`
	Port     string           `json:"port,omitempty"`
}

// PendingView is the pending decision as presented in the tool response JSON.
type PendingView struct {
	Type      DecisionType      `json:"type"`
	ForPlayer string            `json:"for_player"`
	Hand      []anet.CardView   `json:"hand,omitempty"`
	Options   []anet.OptionView `json:"options,omitempty"`
	Hint      string            `json:"hint,omitempty"`
}

// Config holds what every session started from the tools shares.
type Config struct {
	Catalog       *game.Catalog
	Judge         game.Judge
	Recorder      game.Recorder
	Policy        game.ExhaustionPolicy
	RulingTimeout time.Duration
	Match         game.MatchConfig
	Port          string // TCP port human players join on
	Ops           *zap.Logger

	// Ready, if set, receives the listener address once remote players can
	// join.
	Ready chan<- string
}

// StartOptions describes the table the assistant asked for.
type StartOptions struct {
	Name      string
	Opponents int // simulated seats
	Remote    int // human seats joining over TCP
	Seed      int64
}

// GameSession holds the state of a single MCP game session. The assistant
// always plays seat 0.
type GameSession struct {
	sess       *game.Session
	ctrl       *MCPController
	seat       int
	remote     []anet.RemoteSeat
	closeConns func()
	cancel     context.CancelFunc

	pendingCh      chan *PendingDecision
	currentPending *PendingDecision

	mu       sync.Mutex
	events   []anet.EventView
	gameOver bool
	winner   int
	result   string
}

// NewGameSession seats the assistant, any simulated opponents and, when
// opts.Remote is set, waits for that many humans to join with
// `anchorlink join`. The match then runs in the background.
func NewGameSession(ctx context.Context, cfg Config, opts StartOptions) (*GameSession, error) {
	if cfg.Ops == nil {
		cfg.Ops = zap.NewNop()
	}
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		name = "Assistant"
	}
	seats := 1 + opts.Opponents + opts.Remote
	if seats < game.MinPlayers || seats > game.MaxPlayers {
		return nil, fmt.Errorf("need %d-%d seats, got %d", game.MinPlayers, game.MaxPlayers, seats)
	}

	gs := &GameSession{
		pendingCh:  make(chan *PendingDecision, 1),
		winner:     -1,
		closeConns: func() {},
	}
	gs.ctrl = NewMCPController(gs.seat, gs)

	mode := game.ModeSolo
	players := []*game.Player{game.NewPlayer(name, game.DriverInteractive)}
	controllers := []game.PlayerController{gs.ctrl}

	if opts.Remote > 0 {
		mode = game.ModeOnline
		taken := map[string]bool{strings.ToLower(name): true}
		joined, closeAll, err := anet.AcceptSeats(ctx, cfg.Port, opts.Remote, 1, taken, cfg.Ops, cfg.Ready)
		if err != nil {
			return nil, err
		}
		gs.remote = joined
		gs.closeConns = closeAll
		for _, r := range joined {
			players = append(players, game.NewPlayer(r.Name, game.DriverRemote))
			controllers = append(controllers, r.Ctrl)
		}
	}
	for i := 0; i < opts.Opponents; i++ {
		var seed int64
		if opts.Seed != 0 {
			seed = opts.Seed + int64(i+1)
		}
		players = append(players, game.NewPlayer(fmt.Sprintf("Bot %d", i+1), game.DriverSimulated))
		controllers = append(controllers, game.NewAgent(seed))
	}

	sess, err := game.NewSession(game.SessionConfig{
		Mode:          mode,
		Players:       players,
		Catalog:       cfg.Catalog,
		Judge:         cfg.Judge,
		Recorder:      cfg.Recorder,
		Logger:        log.NewMemoryLogger(),
		Ops:           cfg.Ops,
		Policy:        cfg.Policy,
		Seed:          opts.Seed,
		RulingTimeout: cfg.RulingTimeout,
	})
	if err != nil {
		gs.closeConns()
		return nil, err
	}
	gs.sess = sess
	for _, r := range gs.remote {
		_ = r.Ctrl.Send(anet.ServerMessage{Type: "welcome", Seat: r.Ctrl.Seat(), Code: sess.Code()})
	}

	match, err := game.NewMatch(sess, controllers, cfg.Match)
	if err != nil {
		gs.closeConns()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	gs.cancel = cancel
	go func() {
		defer cancel()
		winner, err := match.Run(runCtx)
		var result string
		if err != nil {
			result = fmt.Sprintf("error: %v", err)
			cfg.Ops.Warn("match stopped", zap.Error(err))
		} else {
			sess.Wait()
			result = anet.Summary(sess, winner)
		}

		for _, r := range gs.remote {
			_ = r.Ctrl.SendGameOver(winner, result)
		}
		gs.closeConns()

		gs.mu.Lock()
		gs.gameOver = true
		gs.winner = winner
		gs.result = result
		gs.mu.Unlock()

		// A full channel means the match was abandoned mid-decision.
		select {
		case gs.pendingCh <- &PendingDecision{
			Type:   DecisionGameOver,
			Player: winner,
			State:  anet.BuildStateView(sess.Snapshot(gs.seat)),
		}:
		default:
		}
	}()

	return gs, nil
}

// Close stops the match if it is still running.
func (s *GameSession) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

// appendEvent adds an event to the session's event log. Thread-safe.
func (s *GameSession) appendEvent(ev anet.EventView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

// drainEvents returns all accumulated events and clears the buffer.
func (s *GameSession) drainEvents() []anet.EventView {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := s.events
	s.events = nil
	if events == nil {
		events = []anet.EventView{}
	}
	return events
}

// waitForPending blocks until the next decision arrives from the game engine,
// then builds a ToolResponse with accumulated events + the pending decision.
func (s *GameSession) waitForPending(ctx context.Context) (*ToolResponse, error) {
	var pending *PendingDecision
	select {
	case pending = <-s.pendingCh:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.currentPending = pending

	resp := &ToolResponse{
		Events: s.drainEvents(),
		State:  pending.State,
		Code:   s.sess.Code(),
	}

	if pending.Type == DecisionGameOver {
		s.mu.Lock()
		resp.GameOver = true
		resp.Winner = s.winner
		resp.Result = s.result
		s.mu.Unlock()
		return resp, nil
	}

	resp.Pending = pendingView(pending)
	return resp, nil
}

func pendingView(p *PendingDecision) *PendingView {
	pv := &PendingView{Type: p.Type, ForPlayer: "assistant"}
	switch p.Type {
	case DecisionSelectCard:
		pv.Hand = p.State.Hand
		pv.Hint = "call select_card with the index of a card to link to the anchor"
	case DecisionMakeConnection:
		pv.Options = p.State.Options
		pv.Hint = "call submit_justification with your reasoning or an option index, or cancel_selection"
	}
	return pv
}

// respondJSON marshals a ToolResponse to a JSON string.
func respondJSON(resp *ToolResponse) string {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Sprintf(`{"error": "marshal error: %v"}`, err)
	}
	return string(data)
}
