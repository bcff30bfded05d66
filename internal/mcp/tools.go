package mcp

import (
	"context"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/peterkuimelis/anchorlink/internal/game"
	anet "github.com/peterkuimelis/anchorlink/internal/net"
)

// Tools holds the singleton game session (one per stdio process).
type Tools struct {
	cfg Config

	mu     sync.Mutex
	active *GameSession
}

// NewTools creates the tool set for cfg.
func NewTools(cfg Config) *Tools {
	return &Tools{cfg: cfg}
}

// Register adds all game tools to the MCP server.
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(startGameTool(), t.handleStartGame)
	s.AddTool(selectCardTool(), t.handleSelectCard)
	s.AddTool(submitJustificationTool(), t.handleSubmitJustification)
	s.AddTool(cancelSelectionTool(), t.handleCancelSelection)
	s.AddTool(getGameStateTool(), t.handleGetGameState)
}

// --- Tool definitions ---

func startGameTool() mcp.Tool {
	return mcp.NewTool("start_game",
		mcp.WithDescription("Start a new Anchorlink match. Each turn you link one Connection Card from your hand to the active "+
			"Anchor Card and justify the link; an adjudicator approves or denies it. Empty your hand to win the round, "+
			"win 3 rounds to win the match. Human players join with `anchorlink join --addr localhost:<port>`; "+
			"this call blocks until they have all joined."),
		mcp.WithString("player_name", mcp.Description("Your name at the table (default Assistant)")),
		mcp.WithNumber("opponents", mcp.Description("Number of simulated opponents (default 1 when no humans join)")),
		mcp.WithNumber("remote", mcp.Description("Number of human players joining over TCP (default 0)")),
		mcp.WithNumber("seed", mcp.Description("Seed for a reproducible shuffle (0 = random)")),
	)
}

func selectCardTool() mcp.Tool {
	return mcp.NewTool("select_card",
		mcp.WithDescription("Select a card from your hand. Use this when the pending decision type is 'select_card'. "+
			"Special cards take effect at once and end your turn."),
		mcp.WithNumber("index", mcp.Description("0-based index into your hand")),
		mcp.WithString("card_id", mcp.Description("Card ID, as an alternative to index")),
	)
}

func submitJustificationTool() mcp.Tool {
	return mcp.NewTool("submit_justification",
		mcp.WithDescription("Explain how the selected card connects to the anchor. Use this when the pending decision type is "+
			"'make_connection'. Blocks until the adjudicator rules and play comes back to you."),
		mcp.WithString("text", mcp.Description("Your justification in your own words")),
		mcp.WithNumber("option", mcp.Description("0-based index of a suggested justification, instead of text")),
	)
}

func cancelSelectionTool() mcp.Tool {
	return mcp.NewTool("cancel_selection",
		mcp.WithDescription("Put the selected card back in your hand and choose again. Only valid while making a connection."),
	)
}

func getGameStateTool() mcp.Tool {
	return mcp.NewTool("get_game_state",
		mcp.WithDescription("Get the current game state, accumulated events, and pending decision without submitting a response. Read-only."),
	)
}

// --- Tool handlers ---

func (t *Tools) handleStartGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active != nil {
		return mcp.NewToolResultError("A game is already running. Only one game at a time is supported."), nil
	}

	remote := request.GetInt("remote", 0)
	defaultOpponents := 1
	if remote > 0 {
		defaultOpponents = 0
	}
	opts := StartOptions{
		Name:      request.GetString("player_name", ""),
		Opponents: request.GetInt("opponents", defaultOpponents),
		Remote:    remote,
		Seed:      int64(request.GetInt("seed", 0)),
	}
	if opts.Opponents < 0 || opts.Remote < 0 {
		return mcp.NewToolResultError("opponents and remote must not be negative"), nil
	}
	if n := 1 + opts.Opponents + opts.Remote; n < game.MinPlayers || n > game.MaxPlayers {
		return mcp.NewToolResultErrorf("A match needs %d-%d players including you, got %d.", game.MinPlayers, game.MaxPlayers, n), nil
	}

	sess, err := NewGameSession(ctx, t.cfg, opts)
	if err != nil {
		return mcp.NewToolResultErrorf("Failed to start game: %v", err), nil
	}
	t.active = sess

	resp, err := sess.waitForPending(ctx)
	if err != nil {
		return mcp.NewToolResultErrorf("Error waiting for first decision: %v", err), nil
	}
	if opts.Remote > 0 {
		resp.Port = t.cfg.Port
	}
	t.finishIfOver(resp)
	return mcp.NewToolResultText(respondJSON(resp)), nil
}

func (t *Tools) handleSelectCard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, errResult := t.expect(DecisionSelectCard)
	if errResult != nil {
		return errResult, nil
	}

	hand := sess.currentPending.State.Hand
	cardID := strings.TrimSpace(request.GetString("card_id", ""))
	if cardID == "" {
		index := request.GetInt("index", -1)
		if index < 0 || index >= len(hand) {
			return mcp.NewToolResultErrorf("Invalid index %d. Must be 0-%d.", index, len(hand)-1), nil
		}
		cardID = hand[index].ID
	}
	return t.submit(ctx, sess, game.Action{Type: game.ActionSelectCard, CardID: cardID})
}

func (t *Tools) handleSubmitJustification(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, errResult := t.expect(DecisionMakeConnection)
	if errResult != nil {
		return errResult, nil
	}

	a := game.Action{Type: game.ActionJustify, Justification: strings.TrimSpace(request.GetString("text", ""))}
	if option := request.GetInt("option", -1); option >= 0 {
		options := sess.currentPending.State.Options
		if option >= len(options) {
			return mcp.NewToolResultErrorf("Invalid option %d. Must be 0-%d.", option, len(options)-1), nil
		}
		a.OptionID = options[option].ID
	}
	if a.Justification == "" && a.OptionID == "" {
		return mcp.NewToolResultError("Provide either text or option."), nil
	}
	return t.submit(ctx, sess, a)
}

func (t *Tools) handleCancelSelection(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess, errResult := t.expect(DecisionMakeConnection)
	if errResult != nil {
		return errResult, nil
	}
	return t.submit(ctx, sess, game.Action{Type: game.ActionCancel})
}

func (t *Tools) handleGetGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	sess := t.active
	if sess == nil {
		return mcp.NewToolResultError("No game is running. Use start_game first."), nil
	}

	sess.mu.Lock()
	resp := &ToolResponse{
		GameOver: sess.gameOver,
		Winner:   sess.winner,
		Result:   sess.result,
	}
	sess.mu.Unlock()
	resp.Events = sess.drainEvents()
	resp.Code = sess.sess.Code()
	resp.State = anet.BuildStateView(sess.sess.Snapshot(sess.seat))

	if !resp.GameOver {
		if p := sess.currentPending; p != nil && p.Type != DecisionGameOver {
			resp.Pending = pendingView(p)
		} else {
			resp.Pending = &PendingView{ForPlayer: resp.State.CurrentName}
		}
	}
	return mcp.NewToolResultText(respondJSON(resp)), nil
}

// expect checks that the assistant owes a decision of type want.
func (t *Tools) expect(want DecisionType) (*GameSession, *mcp.CallToolResult) {
	sess := t.active
	if sess == nil {
		return nil, mcp.NewToolResultError("No game is running. Use start_game first.")
	}
	pending := sess.currentPending
	if pending == nil {
		return nil, mcp.NewToolResultError("No pending decision.")
	}
	if pending.Type != want {
		return nil, mcp.NewToolResultErrorf("Wrong tool: pending decision is '%s', not '%s'. Use the correct tool.", pending.Type, want)
	}
	return sess, nil
}

// submit hands a to the waiting controller and blocks until the assistant
// owes its next decision or the match ends.
func (t *Tools) submit(ctx context.Context, sess *GameSession, a game.Action) (*mcp.CallToolResult, error) {
	select {
	case sess.ctrl.responseCh <- a:
	case <-ctx.Done():
		return mcp.NewToolResultErrorf("Cancelled: %v", ctx.Err()), nil
	}

	resp, err := sess.waitForPending(ctx)
	if err != nil {
		return mcp.NewToolResultErrorf("Error waiting for next decision: %v", err), nil
	}
	t.finishIfOver(resp)
	return mcp.NewToolResultText(respondJSON(resp)), nil
}

func (t *Tools) finishIfOver(resp *ToolResponse) {
	if resp.GameOver {
		t.active.Close()
		t.active = nil
	}
}
