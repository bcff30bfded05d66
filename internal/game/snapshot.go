package game

// PlayerView is one seat as seen by a particular viewer.
type PlayerView struct {
	Index       int
	ID          string
	Name        string
	Score       int
	RoundsWon   int
	HandCount   int
	IsAI        bool
	Driver      DriverMode
	HandVisible bool
	Hand        []Card // nil unless HandVisible
}

// Snapshot is a deep copy of the game state from one viewer's perspective.
// Drivers only ever see snapshots, never the live state.
type Snapshot struct {
	Viewer    int // seat index, -1 for a spectator
	Mode      PlayMode
	Phase     Phase
	TurnPhase TurnPhase
	Current   int
	Round     int
	Turn      int
	Code      string

	Anchor       *AnchorCard
	Players      []PlayerView
	DrawCount    int
	DiscardCount int
	TopDiscard   *Card
	Selected     *Card
	Options      []JustificationOption // hints for the viewer's selected card
	Winner       int
	RoundWinner  int
}

// IsViewerTurn reports whether the viewer is the seat expected to act.
func (sn *Snapshot) IsViewerTurn() bool {
	return sn.Viewer >= 0 && sn.Viewer == sn.Current
}

// Me returns the viewer's own seat, or nil for a spectator.
func (sn *Snapshot) Me() *PlayerView {
	if sn.Viewer < 0 || sn.Viewer >= len(sn.Players) {
		return nil
	}
	return &sn.Players[sn.Viewer]
}

// CurrentName returns the name of the seat expected to act.
func (sn *Snapshot) CurrentName() string {
	if sn.Current < 0 || sn.Current >= len(sn.Players) {
		return ""
	}
	return sn.Players[sn.Current].Name
}

// Snapshot copies the state for viewer. A hand is visible only to its owner,
// never during a handoff, and in pass-and-play only to the seat whose turn
// it is, since every seat shares one screen.
func (s *Session) Snapshot(viewer int) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs := s.state

	sn := &Snapshot{
		Viewer:       viewer,
		Mode:         gs.Mode,
		Phase:        gs.Phase,
		TurnPhase:    gs.TurnPhase,
		Current:      gs.Current,
		Round:        gs.Round,
		Turn:         gs.Turn,
		Code:         gs.Code,
		Anchor:       copyAnchor(gs.Anchor),
		DrawCount:    gs.Deck.DrawCount(),
		DiscardCount: gs.Deck.DiscardCount(),
		TopDiscard:   copyCard(gs.Deck.TopDiscard()),
		Selected:     copyCard(gs.Selected),
		Winner:       gs.Winner,
		RoundWinner:  gs.RoundWinner,
	}
	for i, p := range gs.Players {
		pv := PlayerView{
			Index:     i,
			ID:        p.ID,
			Name:      p.Name,
			Score:     p.Score,
			RoundsWon: p.RoundsWon,
			HandCount: len(p.Hand),
			IsAI:      p.IsAI,
			Driver:    p.Driver,
		}
		if s.handVisible(i, viewer) {
			pv.HandVisible = true
			pv.Hand = make([]Card, len(p.Hand))
			for j, c := range p.Hand {
				pv.Hand[j] = *c
			}
		}
		sn.Players = append(sn.Players, pv)
	}
	if viewer == gs.Current && gs.TurnPhase == TurnMakingConnection {
		sn.Options = s.optionsLocked("")
	}
	return sn
}

func (s *Session) handVisible(seat, viewer int) bool {
	gs := s.state
	if seat != viewer || gs.TurnPhase == TurnPlayerHandoff {
		return false
	}
	if gs.Mode == ModeLocal {
		return seat == gs.Current && gs.Phase == PhasePlaying
	}
	return true
}

func copyCard(c *Card) *Card {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
