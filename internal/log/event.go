package log

// EventType enumerates all observable game events.
type EventType int

const (
	EventPhaseChange EventType = iota
	EventNewRound
	EventNewTurn
	EventAnchor
	EventDeal
	EventDraw
	EventSelect
	EventCancel
	EventJustify
	EventRulingRequested
	EventApproved
	EventDenied
	EventSpecial
	EventReshuffle
	EventDeckExhausted
	EventHandoff
	EventHandoffAck
	EventRoundWon
	EventWin
	EventRejected // an action failed a precondition check
)

func (e EventType) String() string {
	switch e {
	case EventPhaseChange:
		return "PhaseChange"
	case EventNewRound:
		return "NewRound"
	case EventNewTurn:
		return "NewTurn"
	case EventAnchor:
		return "Anchor"
	case EventDeal:
		return "Deal"
	case EventDraw:
		return "Draw"
	case EventSelect:
		return "Select"
	case EventCancel:
		return "Cancel"
	case EventJustify:
		return "Justify"
	case EventRulingRequested:
		return "RulingRequested"
	case EventApproved:
		return "Approved"
	case EventDenied:
		return "Denied"
	case EventSpecial:
		return "Special"
	case EventReshuffle:
		return "Reshuffle"
	case EventDeckExhausted:
		return "DeckExhausted"
	case EventHandoff:
		return "Handoff"
	case EventHandoffAck:
		return "HandoffAck"
	case EventRoundWon:
		return "RoundWon"
	case EventWin:
		return "Win"
	case EventRejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// GameEvent represents a single observable event in a match.
type GameEvent struct {
	Seq     int       // monotonic sequence number
	Round   int       // which round (1-based)
	Turn    int       // which turn within the match (1-based)
	Phase   string    // current phase name (e.g. "Awaiting Ruling")
	Player  int       // acting player index, -1 when no player acts
	Type    EventType // event type
	Card    string    // card title (if applicable)
	Details string    // human-readable detail string
}
