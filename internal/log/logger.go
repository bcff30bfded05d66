package log

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// EventLogger is the interface for logging game events.
type EventLogger interface {
	Log(event GameEvent)
	Events() []GameEvent
}

// --- MemoryLogger: stores events in memory for test assertions ---

// MemoryLogger is safe for use from the adjudication goroutine and the
// coordinator at the same time.
type MemoryLogger struct {
	mu     sync.Mutex
	events []GameEvent
	seq    int
}

func NewMemoryLogger() *MemoryLogger {
	return &MemoryLogger{}
}

func (l *MemoryLogger) Log(event GameEvent) {
	l.record(event)
}

func (l *MemoryLogger) record(event GameEvent) GameEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	event.Seq = l.seq
	l.events = append(l.events, event)
	return event
}

func (l *MemoryLogger) Events() []GameEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]GameEvent, len(l.events))
	copy(out, l.events)
	return out
}

// EventsOfType returns all events matching the given type.
func (l *MemoryLogger) EventsOfType(t EventType) []GameEvent {
	var result []GameEvent
	for _, e := range l.Events() {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// LastEvent returns the most recent event, or a zero event if none.
func (l *MemoryLogger) LastEvent() GameEvent {
	events := l.Events()
	if len(events) == 0 {
		return GameEvent{}
	}
	return events[len(events)-1]
}

// --- TextLogger: writes human-readable lines to an io.Writer ---

type TextLogger struct {
	MemoryLogger
	w io.Writer
}

func NewTextLogger(w io.Writer) *TextLogger {
	return &TextLogger{w: w}
}

func (l *TextLogger) Log(event GameEvent) {
	event = l.MemoryLogger.record(event)
	fmt.Fprintln(l.w, FormatEvent(event))
}

// --- Formatting ---

// FormatEvent formats a single event as a human-readable line.
func FormatEvent(e GameEvent) string {
	phase := e.Phase
	// Pad phase to 18 chars for alignment
	for len(phase) < 18 {
		phase += " "
	}
	return fmt.Sprintf("R%d T%-3d %s| %s", e.Round, e.Turn, phase, e.Details)
}

// FormatAll formats all events as a multi-line string.
func FormatAll(events []GameEvent) string {
	var sb strings.Builder
	for _, e := range events {
		sb.WriteString(FormatEvent(e))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// --- Helper constructors for common events ---

func NewPhaseChangeEvent(round, turn int, phase string) GameEvent {
	return GameEvent{
		Round:   round,
		Turn:    turn,
		Phase:   phase,
		Player:  -1,
		Type:    EventPhaseChange,
		Details: fmt.Sprintf("Phase → %s", phase),
	}
}

func NewRoundEvent(round int, anchor string) GameEvent {
	return GameEvent{
		Round:   round,
		Player:  -1,
		Type:    EventNewRound,
		Card:    anchor,
		Details: fmt.Sprintf("=== Round %d | anchor: %s ===", round, anchor),
	}
}

func NewTurnEvent(round, turn, player int, name string) GameEvent {
	return GameEvent{
		Round:   round,
		Turn:    turn,
		Phase:   "Selecting Card",
		Player:  player,
		Type:    EventNewTurn,
		Details: fmt.Sprintf("--- Turn %d (%s) ---", turn, name),
	}
}

func NewAnchorEvent(round, turn int, phase string, player int, anchor string) GameEvent {
	return GameEvent{
		Round:   round,
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventAnchor,
		Card:    anchor,
		Details: fmt.Sprintf("Anchor is now %s", anchor),
	}
}

func NewDealEvent(round int, players, perPlayer int) GameEvent {
	return GameEvent{
		Round:   round,
		Phase:   "Setup",
		Player:  -1,
		Type:    EventDeal,
		Details: fmt.Sprintf("Dealt %d cards to each of %d players", perPlayer, players),
	}
}

func NewDrawEvent(round, turn int, phase string, player int, name, card string) GameEvent {
	return GameEvent{
		Round:   round,
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventDraw,
		Card:    card,
		Details: fmt.Sprintf("%s draws a replacement card", name),
	}
}

func NewSelectEvent(round, turn int, phase string, player int, name, card string) GameEvent {
	return GameEvent{
		Round:   round,
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventSelect,
		Card:    card,
		Details: fmt.Sprintf("%s selects %s", name, card),
	}
}

func NewCancelEvent(round, turn int, phase string, player int, name, card string) GameEvent {
	return GameEvent{
		Round:   round,
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventCancel,
		Card:    card,
		Details: fmt.Sprintf("%s returns %s to hand", name, card),
	}
}

func NewJustifyEvent(round, turn int, phase string, player int, name, card, justification string) GameEvent {
	return GameEvent{
		Round:   round,
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventJustify,
		Card:    card,
		Details: fmt.Sprintf("%s links %s: %q", name, card, justification),
	}
}

func NewRulingRequestedEvent(round, turn int, phase string, player int, card string) GameEvent {
	return GameEvent{
		Round:   round,
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventRulingRequested,
		Card:    card,
		Details: "Waiting for a ruling...",
	}
}

func NewRulingEvent(round, turn int, phase string, player int, name, card string, approved bool, points int, reasoning string) GameEvent {
	if approved {
		return GameEvent{
			Round:   round,
			Turn:    turn,
			Phase:   phase,
			Player:  player,
			Type:    EventApproved,
			Card:    card,
			Details: fmt.Sprintf("Approved: %s plays %s (+%d); %s", name, card, points, reasoning),
		}
	}
	return GameEvent{
		Round:   round,
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventDenied,
		Card:    card,
		Details: fmt.Sprintf("Denied: %s keeps %s; %s", name, card, reasoning),
	}
}

func NewSpecialEvent(round, turn int, phase string, player int, name, card, effect string) GameEvent {
	return GameEvent{
		Round:   round,
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventSpecial,
		Card:    card,
		Details: fmt.Sprintf("%s plays special %s: %s", name, card, effect),
	}
}

func NewReshuffleEvent(round, turn int, phase string, count int) GameEvent {
	return GameEvent{
		Round:   round,
		Turn:    turn,
		Phase:   phase,
		Player:  -1,
		Type:    EventReshuffle,
		Details: fmt.Sprintf("Discard pile (%d cards) shuffled into the draw pile", count),
	}
}

func NewDeckExhaustedEvent(round, turn int, phase string, player int) GameEvent {
	return GameEvent{
		Round:   round,
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventDeckExhausted,
		Details: "No cards left to draw",
	}
}

func NewHandoffEvent(round, turn, player int, name string) GameEvent {
	return GameEvent{
		Round:   round,
		Turn:    turn,
		Phase:   "Player Handoff",
		Player:  player,
		Type:    EventHandoff,
		Details: fmt.Sprintf("Hands hidden, pass the device to %s", name),
	}
}

func NewHandoffAckEvent(round, turn, player int, name string) GameEvent {
	return GameEvent{
		Round:   round,
		Turn:    turn,
		Phase:   "Player Handoff",
		Player:  player,
		Type:    EventHandoffAck,
		Details: fmt.Sprintf("%s is ready", name),
	}
}

func NewRoundWonEvent(round, turn, player int, name string, roundsWon int) GameEvent {
	return GameEvent{
		Round:   round,
		Turn:    turn,
		Phase:   "Round End",
		Player:  player,
		Type:    EventRoundWon,
		Details: fmt.Sprintf("%s empties their hand and wins round %d (%d won)", name, round, roundsWon),
	}
}

func NewWinEvent(round, turn, player int, name string) GameEvent {
	return GameEvent{
		Round:   round,
		Turn:    turn,
		Phase:   "Game End",
		Player:  player,
		Type:    EventWin,
		Details: fmt.Sprintf("%s wins the match", name),
	}
}

func NewRejectedEvent(round, turn int, phase string, player int, reason string) GameEvent {
	return GameEvent{
		Round:   round,
		Turn:    turn,
		Phase:   phase,
		Player:  player,
		Type:    EventRejected,
		Details: reason,
	}
}
