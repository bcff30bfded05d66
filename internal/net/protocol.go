package net

import (
	"github.com/peterkuimelis/anchorlink/internal/game"
	"github.com/peterkuimelis/anchorlink/internal/log"
)

// Message types for the JSON protocol over TCP.

// --- Server → Client messages ---

// ServerMessage is the envelope for all server-to-client messages.
type ServerMessage struct {
	Type string `json:"type"`

	// For "welcome"
	Seat int    `json:"seat,omitempty"`
	Code string `json:"code,omitempty"`

	// For "notify"
	Event *EventView `json:"event,omitempty"`

	// For "request"
	State *StateView `json:"state,omitempty"`

	// For "game_over"
	Winner int    `json:"winner,omitempty"`
	Result string `json:"result,omitempty"`

	// For "error"
	Error string `json:"error,omitempty"`
}

// EventView is a simplified game event for the client.
type EventView struct {
	Round   int    `json:"round"`
	Turn    int    `json:"turn"`
	Phase   string `json:"phase"`
	Player  int    `json:"player"`
	Type    string `json:"type"`
	Card    string `json:"card,omitempty"`
	Details string `json:"details"`
}

// CardView describes a connection card.
type CardView struct {
	Index     int    `json:"index"`
	ID        string `json:"id"`
	Title     string `json:"title"`
	Reference string `json:"reference,omitempty"`
	Category  string `json:"category,omitempty"`
	Special   string `json:"special,omitempty"`
}

// AnchorView describes the active anchor card.
type AnchorView struct {
	Text      string   `json:"text"`
	Reference string   `json:"reference,omitempty"`
	Themes    []string `json:"themes,omitempty"`
}

// OptionView is a pre-generated justification the player may pick.
type OptionView struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Text  string `json:"text"`
}

// SeatView shows one seat at the table.
type SeatView struct {
	Index     int        `json:"index"`
	Name      string     `json:"name"`
	Score     int        `json:"score"`
	RoundsWon int        `json:"rounds_won"`
	HandCount int        `json:"hand_count"`
	IsAI      bool       `json:"is_ai,omitempty"`
	Hand      []CardView `json:"hand,omitempty"` // only for the viewer, when visible
}

// StateView is the game state from one seat's perspective.
type StateView struct {
	Seat         int          `json:"seat"`
	Mode         string       `json:"mode"`
	Phase        string       `json:"phase"`
	TurnPhase    string       `json:"turn_phase"`
	Round        int          `json:"round"`
	Turn         int          `json:"turn"`
	Code         string       `json:"code"`
	Current      int          `json:"current"`
	CurrentName  string       `json:"current_name"`
	IsYourTurn   bool         `json:"is_your_turn"`
	Anchor       *AnchorView  `json:"anchor,omitempty"`
	Seats        []SeatView   `json:"seats"`
	Hand         []CardView   `json:"hand,omitempty"`
	Selected     *CardView    `json:"selected,omitempty"`
	Options      []OptionView `json:"options,omitempty"`
	DrawCount    int          `json:"draw_count"`
	DiscardCount int          `json:"discard_count"`
	TopDiscard   string       `json:"top_discard,omitempty"`
}

// --- Client → Server messages ---

// ClientMessage is the envelope for all client-to-server messages.
type ClientMessage struct {
	Type string `json:"type"`

	// For "join" and "ready"
	Name string `json:"name,omitempty"`

	// For "select": a card ID, or a 0-based index into the hand
	CardID string `json:"card_id,omitempty"`
	Index  *int   `json:"index,omitempty"`

	// For "justify": free text or a pre-generated option
	Text     string `json:"text,omitempty"`
	OptionID string `json:"option_id,omitempty"`
}

// BuildStateView converts a seat's snapshot into its wire form.
func BuildStateView(sn *game.Snapshot) *StateView {
	sv := &StateView{
		Seat:         sn.Viewer,
		Mode:         sn.Mode.String(),
		Phase:        sn.Phase.String(),
		TurnPhase:    sn.TurnPhase.String(),
		Round:        sn.Round,
		Turn:         sn.Turn,
		Code:         sn.Code,
		Current:      sn.Current,
		CurrentName:  sn.CurrentName(),
		IsYourTurn:   sn.IsViewerTurn(),
		DrawCount:    sn.DrawCount,
		DiscardCount: sn.DiscardCount,
	}
	if sn.Anchor != nil {
		sv.Anchor = &AnchorView{Text: sn.Anchor.Text, Reference: sn.Anchor.Reference, Themes: sn.Anchor.Themes}
	}
	if sn.TopDiscard != nil {
		sv.TopDiscard = sn.TopDiscard.Title
	}
	if sn.Selected != nil && sn.IsViewerTurn() {
		cv := cardView(-1, *sn.Selected)
		sv.Selected = &cv
	}
	for _, pv := range sn.Players {
		seat := SeatView{
			Index:     pv.Index,
			Name:      pv.Name,
			Score:     pv.Score,
			RoundsWon: pv.RoundsWon,
			HandCount: pv.HandCount,
			IsAI:      pv.IsAI,
		}
		if pv.HandVisible {
			for i, c := range pv.Hand {
				seat.Hand = append(seat.Hand, cardView(i, c))
			}
			if pv.Index == sn.Viewer {
				sv.Hand = seat.Hand
			}
		}
		sv.Seats = append(sv.Seats, seat)
	}
	for i, o := range sn.Options {
		sv.Options = append(sv.Options, OptionView{Index: i, ID: o.ID, Text: o.Text})
	}
	return sv
}

func cardView(i int, c game.Card) CardView {
	return CardView{
		Index:     i,
		ID:        c.ID,
		Title:     c.Title,
		Reference: c.Reference,
		Category:  c.Category,
		Special:   c.Special.String(),
	}
}

// BuildEventView converts a game event into its wire form.
func BuildEventView(event log.GameEvent) *EventView {
	return &EventView{
		Round:   event.Round,
		Turn:    event.Turn,
		Phase:   event.Phase,
		Player:  event.Player,
		Type:    event.Type.String(),
		Card:    event.Card,
		Details: event.Details,
	}
}

// ToAction translates a client reply into a proposed action for seat. A
// reply that names no card becomes an action the session rejects, so the
// seat is simply asked again.
func ToAction(msg ClientMessage, seat int, sv *StateView) game.Action {
	a := game.Action{Player: seat}
	switch msg.Type {
	case "ready":
		a.Type = game.ActionAcknowledgeHandoff
		a.Name = msg.Name
	case "select":
		a.Type = game.ActionSelectCard
		a.CardID = msg.CardID
		if a.CardID == "" && msg.Index != nil && sv != nil {
			if i := *msg.Index; i >= 0 && i < len(sv.Hand) {
				a.CardID = sv.Hand[i].ID
			}
		}
	case "cancel":
		a.Type = game.ActionCancel
	case "justify":
		a.Type = game.ActionJustify
		a.Justification = msg.Text
		a.OptionID = msg.OptionID
	default:
		a.Type = game.ActionType(-1)
	}
	return a
}
