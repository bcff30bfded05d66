package game

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/peterkuimelis/anchorlink/internal/log"
)

// DefaultSuccessRate is the chance a simulated connection is approved.
const DefaultSuccessRate = 0.7

// Agent is the simulated opponent. It never consults the judge: it picks a
// random card and rolls its own ruling. All randomness comes from rng so a
// given seed always replays the same decisions.
type Agent struct {
	rng         *rand.Rand
	SuccessRate float64
}

// NewAgent creates an agent seeded with seed (0 for a time-based seed).
func NewAgent(seed int64) *Agent {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Agent{
		rng:         rand.New(rand.NewSource(seed)),
		SuccessRate: DefaultSuccessRate,
	}
}

// Decide picks the agent's next play from hand.
func (a *Agent) Decide(anchor *AnchorCard, hand []Card) (Action, error) {
	if len(hand) == 0 {
		return Action{}, fmt.Errorf("agent has no cards to play")
	}
	card := hand[a.rng.Intn(len(hand))]
	if card.IsSpecial() {
		return Action{Type: ActionSelectCard, CardID: card.ID}, nil
	}

	approved := a.rng.Float64() < a.SuccessRate
	reasoning := fmt.Sprintf("The link between %s and %s did not hold up.", card.Title, anchor)
	if approved {
		reasoning = fmt.Sprintf("%s connects to %s.", card.Title, anchor)
	}
	return Action{
		Type:   ActionSimulatedPlay,
		CardID: card.ID,
		Ruling: &Ruling{Approved: approved, Reasoning: reasoning},
	}, nil
}

// RequestAction implements PlayerController.
func (a *Agent) RequestAction(ctx context.Context, sn *Snapshot) (Action, error) {
	me := sn.Me()
	if me == nil {
		return Action{}, fmt.Errorf("agent has no seat")
	}
	switch sn.TurnPhase {
	case TurnPlayerHandoff:
		return Action{Type: ActionAcknowledgeHandoff, Name: me.Name}, nil
	case TurnMakingConnection:
		// Only reachable if a selection was left over; put the card back.
		return Action{Type: ActionCancel}, nil
	default:
		return a.Decide(sn.Anchor, me.Hand)
	}
}

// Notify implements PlayerController.
func (a *Agent) Notify(ctx context.Context, event log.GameEvent) error {
	return nil
}
