package mcp

import (
	"context"

	"github.com/peterkuimelis/anchorlink/internal/game"
	"github.com/peterkuimelis/anchorlink/internal/log"
	"github.com/peterkuimelis/anchorlink/internal/net"
)

// MCPController implements game.PlayerController by sending decisions
// to the MCP session's pending channel and blocking on a response channel.
type MCPController struct {
	player     int
	session    *GameSession
	responseCh chan game.Action
}

// NewMCPController creates a controller for the given player.
func NewMCPController(player int, session *GameSession) *MCPController {
	return &MCPController{
		player:     player,
		session:    session,
		responseCh: make(chan game.Action),
	}
}

// RequestAction implements game.PlayerController. A rejected action is
// simply requested again, so the tool caller sees the Rejected event
// alongside the repeated decision.
func (c *MCPController) RequestAction(ctx context.Context, sn *game.Snapshot) (game.Action, error) {
	decision := &PendingDecision{
		Type:   DecisionSelectCard,
		Player: c.player,
		State:  net.BuildStateView(sn),
	}
	if sn.TurnPhase == game.TurnMakingConnection {
		decision.Type = DecisionMakeConnection
	}

	select {
	case c.session.pendingCh <- decision:
	case <-ctx.Done():
		return game.Action{}, ctx.Err()
	}

	select {
	case a := <-c.responseCh:
		a.Player = c.player
		return a, nil
	case <-ctx.Done():
		return game.Action{}, ctx.Err()
	}
}

// Notify implements game.PlayerController.
func (c *MCPController) Notify(ctx context.Context, event log.GameEvent) error {
	c.session.appendEvent(*net.BuildEventView(event))
	return nil
}
