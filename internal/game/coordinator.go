package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/peterkuimelis/anchorlink/internal/log"
)

// PlayerController is implemented by every seat driver: terminal and remote
// seats, MCP seats, the simulated agent and scripted test drivers.
type PlayerController interface {
	// RequestAction presents the seat's view and waits for the next action.
	// Interactive drivers may wait indefinitely.
	RequestAction(ctx context.Context, sn *Snapshot) (Action, error)

	// Notify sends a game event notification (no response needed).
	Notify(ctx context.Context, event log.GameEvent) error
}

// ErrTurnLimit is returned by Run when a match exceeds its turn limit.
var ErrTurnLimit = errors.New("turn limit reached")

// MatchConfig tunes the turn coordinator.
type MatchConfig struct {
	ThinkDelay    time.Duration // pause before a simulated seat acts
	RoundDelay    time.Duration // pause between a round's end and the next deal
	MaxTurns      int           // stop after this many turns (0 = no limit)
	MaxRejections int           // consecutive invalid actions tolerated from one seat (0 = 100)
}

// Match is the turn coordinator: it decides whose action is expected next
// and asks that seat's controller for it.
type Match struct {
	Session     *Session
	Controllers []PlayerController
	cfg         MatchConfig
	ctx         context.Context
}

// NewMatch binds one controller to every seat of sess.
func NewMatch(sess *Session, controllers []PlayerController, cfg MatchConfig) (*Match, error) {
	var seats int
	sess.Inspect(func(gs *GameState) { seats = len(gs.Players) })
	if len(controllers) != seats {
		return nil, fmt.Errorf("have %d controllers for %d seats", len(controllers), seats)
	}
	if cfg.MaxRejections <= 0 {
		cfg.MaxRejections = 100
	}
	m := &Match{
		Session:     sess,
		Controllers: controllers,
		cfg:         cfg,
		ctx:         context.Background(),
	}
	sess.Observe(m.notify)
	return m, nil
}

// Run drives the match until GameEnd. Returns the winning seat.
func (m *Match) Run(ctx context.Context) (int, error) {
	m.ctx = ctx
	sess := m.Session
	sess.SetContext(ctx)

	if sn := sess.Snapshot(-1); sn.Phase == PhaseSetup {
		if err := sess.Apply(Action{Type: ActionStart}); err != nil {
			return -1, err
		}
	}

	rejections := 0
	for {
		if err := ctx.Err(); err != nil {
			return -1, err
		}
		sn := sess.Snapshot(-1)
		if m.cfg.MaxTurns > 0 && sn.Turn > m.cfg.MaxTurns {
			return -1, fmt.Errorf("%w (%d turns)", ErrTurnLimit, m.cfg.MaxTurns)
		}

		switch sn.Phase {
		case PhaseGameEnd:
			return sn.Winner, nil
		case PhaseRoundEnd:
			if err := sleep(ctx, m.cfg.RoundDelay); err != nil {
				return -1, err
			}
			if err := sess.Apply(Action{Type: ActionNextRound}); err != nil {
				return -1, err
			}
			continue
		}

		switch sn.TurnPhase {
		case TurnAwaitingRuling, TurnEvaluating:
			if err := sess.AwaitRuling(ctx); err != nil {
				return -1, err
			}
		default:
			err := m.step(ctx, sn.Current)
			if errors.Is(err, ErrInvalidMove) {
				rejections++
				if rejections >= m.cfg.MaxRejections {
					return -1, fmt.Errorf("seat %d: too many invalid actions: %w", sn.Current, err)
				}
				continue
			}
			if err != nil {
				return -1, err
			}
			rejections = 0
		}
	}
}

// step asks the acting seat for one action and applies it.
func (m *Match) step(ctx context.Context, seat int) error {
	view := m.Session.Snapshot(seat)
	if view.Players[seat].Driver == DriverSimulated && view.TurnPhase == TurnSelectingCard {
		if err := sleep(ctx, m.cfg.ThinkDelay); err != nil {
			return err
		}
	}

	action, err := m.Controllers[seat].RequestAction(ctx, view)
	if err != nil {
		return fmt.Errorf("seat %d: %w", seat, err)
	}
	action.Player = seat
	return m.Session.Apply(action)
}

// notify forwards a committed event to every controller. A failed delivery
// is logged; the seat's next RequestAction reports the broken controller.
func (m *Match) notify(event log.GameEvent) {
	for seat, c := range m.Controllers {
		if err := c.Notify(m.ctx, event); err != nil {
			m.Session.ops.Warn("event delivery failed",
				zap.Int("seat", seat),
				zap.String("event", event.Type.String()),
				zap.Error(err))
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
