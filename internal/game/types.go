package game

import "fmt"

// --- Enums ---

type Phase int

const (
	PhaseSetup Phase = iota
	PhasePlaying
	PhaseRoundEnd
	PhaseGameEnd
)

func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "Setup"
	case PhasePlaying:
		return "Playing"
	case PhaseRoundEnd:
		return "Round End"
	case PhaseGameEnd:
		return "Game End"
	default:
		return "Unknown"
	}
}

// TurnPhase is the sub-state of one player's turn while the match is Playing.
type TurnPhase int

const (
	TurnNone TurnPhase = iota
	TurnSelectingCard
	TurnMakingConnection
	TurnAwaitingRuling
	TurnEvaluating
	TurnPlayerHandoff
)

func (t TurnPhase) String() string {
	switch t {
	case TurnSelectingCard:
		return "Selecting Card"
	case TurnMakingConnection:
		return "Making Connection"
	case TurnAwaitingRuling:
		return "Awaiting Ruling"
	case TurnEvaluating:
		return "Evaluating"
	case TurnPlayerHandoff:
		return "Player Handoff"
	default:
		return "None"
	}
}

type PlayMode int

const (
	ModeSolo   PlayMode = iota // one human seat against simulated agents
	ModeLocal                  // pass-and-play on one device
	ModeOnline                 // host-authoritative remote seats
)

func (m PlayMode) String() string {
	switch m {
	case ModeSolo:
		return "solo"
	case ModeLocal:
		return "local"
	case ModeOnline:
		return "online"
	default:
		return "unknown"
	}
}

// ParsePlayMode maps a mode name back to its PlayMode.
func ParsePlayMode(s string) (PlayMode, error) {
	switch s {
	case "solo", "":
		return ModeSolo, nil
	case "local":
		return ModeLocal, nil
	case "online":
		return ModeOnline, nil
	default:
		return ModeSolo, fmt.Errorf("unknown play mode %q", s)
	}
}

// DriverMode tags how a seat's actions are produced.
type DriverMode int

const (
	DriverInteractive DriverMode = iota
	DriverPassAndPlay
	DriverSimulated
	DriverRemote
)

func (d DriverMode) String() string {
	switch d {
	case DriverInteractive:
		return "interactive"
	case DriverPassAndPlay:
		return "pass-and-play"
	case DriverSimulated:
		return "simulated"
	case DriverRemote:
		return "remote"
	default:
		return "unknown"
	}
}

type SpecialKind int

const (
	SpecialNone      SpecialKind = iota
	SpecialNewAnchor             // replace the active anchor card
	SpecialReshuffle             // shuffle the discard pile back into the draw pile
)

func (k SpecialKind) String() string {
	switch k {
	case SpecialNewAnchor:
		return "new-anchor"
	case SpecialReshuffle:
		return "reshuffle"
	default:
		return ""
	}
}

func parseSpecialKind(s string) (SpecialKind, error) {
	switch s {
	case "":
		return SpecialNone, nil
	case "new-anchor":
		return SpecialNewAnchor, nil
	case "reshuffle":
		return SpecialReshuffle, nil
	default:
		return SpecialNone, fmt.Errorf("unknown special kind %q", s)
	}
}

// --- Card definitions (static, from the catalog) ---

// Card is a Connection Card. Cards are never created or destroyed during a
// match, only relocated between the draw pile, hands, the selection and the
// discard pile.
type Card struct {
	ID        string
	Title     string
	Reference string
	Category  string
	Special   SpecialKind
}

func (c *Card) String() string {
	return c.Title
}

// IsSpecial reports whether the card applies an effect instead of requiring a ruling.
func (c *Card) IsSpecial() bool {
	return c.Special != SpecialNone
}

// AnchorCard is the shared card every connection must link to.
type AnchorCard struct {
	ID        string
	Text      string
	Reference string
	Themes    []string
}

func (a *AnchorCard) String() string {
	if a == nil {
		return "(none)"
	}
	return a.Text
}

// --- Ruling ---

// Ruling is the approve/deny decision for one connection attempt.
type Ruling struct {
	Approved       bool
	Reasoning      string
	ConnectionType string // optional classification from the judge
	Strength       int    // optional 0-100 strength from the judge
	Fallback       bool   // true when the ruling came from the local heuristic
}

// --- Action types ---

type ActionType int

const (
	ActionStart ActionType = iota
	ActionSelectCard
	ActionCancel
	ActionJustify
	ActionSimulatedPlay
	ActionAcknowledgeHandoff
	ActionNextRound
)

func (a ActionType) String() string {
	switch a {
	case ActionStart:
		return "Start"
	case ActionSelectCard:
		return "Select Card"
	case ActionCancel:
		return "Cancel"
	case ActionJustify:
		return "Justify"
	case ActionSimulatedPlay:
		return "Simulated Play"
	case ActionAcknowledgeHandoff:
		return "Acknowledge Handoff"
	case ActionNextRound:
		return "Next Round"
	default:
		return "Unknown"
	}
}

// Action is a proposed state change. Drivers produce actions; only the
// Session applies them.
type Action struct {
	Type          ActionType
	Player        int
	CardID        string  // ActionSelectCard, ActionSimulatedPlay
	Justification string  // ActionJustify free text
	OptionID      string  // ActionJustify pre-generated option
	Name          string  // ActionAcknowledgeHandoff: who says they are ready
	Ruling        *Ruling // ActionSimulatedPlay
}

func (a Action) String() string {
	switch a.Type {
	case ActionSelectCard, ActionSimulatedPlay:
		return fmt.Sprintf("%s %s", a.Type, a.CardID)
	case ActionAcknowledgeHandoff:
		return fmt.Sprintf("%s (%s)", a.Type, a.Name)
	default:
		return a.Type.String()
	}
}
