package game

// Scorer applies the point rules and the round/match termination conditions.
type Scorer struct {
	BasePoints     int // awarded for every approved connection
	StreakBonus    int // extra points per consecutive approval beyond the first
	MaxStreakSteps int // cap on streak bonus steps
	MatchThreshold int // rounds needed to win the match
}

// DefaultScorer returns the standard scoring rules.
func DefaultScorer() Scorer {
	return Scorer{
		BasePoints:     10,
		StreakBonus:    5,
		MaxStreakSteps: 4,
		MatchThreshold: MatchThreshold,
	}
}

// Outcome describes what a resolved ruling did to the state.
type Outcome struct {
	Approved  bool
	Points    int
	Drew      *Card // replacement card on denial, nil if none could be drawn
	RoundWon  bool
	MatchWon  bool
	Exhausted bool // denial could not draw a replacement
}

// Points returns the award for an approval that brings the streak to streak.
func (s Scorer) Points(streak int) int {
	steps := streak - 1
	if steps < 0 {
		steps = 0
	}
	if steps > s.MaxStreakSteps {
		steps = s.MaxStreakSteps
	}
	return s.BasePoints + s.StreakBonus*steps
}

// Approve discards the selected card and awards points. The round is won
// only when the player's hand is empty after this approved play.
func (s Scorer) Approve(gs *GameState, p *Player, card *Card) Outcome {
	gs.Deck.Discard(card)
	p.Attempts++
	p.Correct++
	p.Streak++
	if p.Streak > p.BestStreak {
		p.BestStreak = p.Streak
	}
	out := Outcome{Approved: true, Points: s.Points(p.Streak)}
	p.Score += out.Points

	if len(p.Hand) == 0 {
		p.RoundsWon++
		out.RoundWon = true
		out.MatchWon = p.RoundsWon >= s.MatchThreshold
	}
	return out
}

// Deny returns the selected card to the hand and draws one replacement.
func (s Scorer) Deny(gs *GameState, p *Player, card *Card) Outcome {
	p.Hand = append(p.Hand, card)
	p.Attempts++
	p.Streak = 0
	out := Outcome{}
	if drawn, ok := gs.Deck.Draw(); ok {
		p.Hand = append(p.Hand, drawn)
		out.Drew = drawn
	} else {
		out.Exhausted = true
	}
	return out
}

// ResetRound gathers every card, reshuffles, redeals and picks a new anchor.
// Scores and rounds-won are kept.
func (s Scorer) ResetRound(gs *GameState) error {
	cards := gs.allCards()
	gs.Deck.Reset(cards)
	gs.Pending = nil
	for _, p := range gs.Players {
		p.Streak = 0
	}
	if err := gs.Deck.Deal(InitialHandSize, gs.Players); err != nil {
		return err
	}
	gs.Anchor = gs.AnchorDeck.Next(gs.Anchor)
	return nil
}
