package game

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
)

const (
	InitialHandSize = 7
	MatchThreshold  = 3
	MinPlayers      = 2
	MaxPlayers      = 4
)

// Player represents one seat's entire state.
type Player struct {
	ID        string
	Name      string
	Hand      []*Card
	Score     int
	RoundsWon int
	IsAI      bool
	Driver    DriverMode

	// Match statistics
	Attempts   int
	Correct    int
	Streak     int
	BestStreak int
	HintsUsed  int
}

// NewPlayer creates a player with a fresh UUID.
func NewPlayer(name string, driver DriverMode) *Player {
	return &Player{
		ID:     uuid.NewString(),
		Name:   name,
		IsAI:   driver == DriverSimulated,
		Driver: driver,
	}
}

// HandCount returns the number of cards in hand.
func (p *Player) HandCount() int {
	return len(p.Hand)
}

// FindInHand returns the card with the given ID, or nil.
func (p *Player) FindInHand(id string) *Card {
	for _, c := range p.Hand {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// RemoveFromHand removes a card from the hand by ID.
func (p *Player) RemoveFromHand(card *Card) bool {
	for i, c := range p.Hand {
		if c.ID == card.ID {
			p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
			return true
		}
	}
	return false
}

// --- GameState ---

// GameState holds the complete state of a match. Only the Session writes it.
type GameState struct {
	Mode      PlayMode
	Phase     Phase
	TurnPhase TurnPhase
	Current   int // index of the player whose turn it is
	Round     int // 1-based round counter
	Turn      int // 1-based turn counter across the match
	Code      string

	Anchor      *AnchorCard
	AnchorDeck  *AnchorDeck
	Deck        *Deck
	Players     []*Player
	Selected    *Card   // card taken from the current player's hand, awaiting a ruling
	Pending     *Ruling // ruling being evaluated
	Winner      int     // match winner, -1 until GameEnd
	RoundWinner int     // winner of the last finished round, -1 before any
}

// NewGameState creates a fresh match state in the Setup phase.
func NewGameState(mode PlayMode, players []*Player, catalog *Catalog, policy ExhaustionPolicy, rng *rand.Rand) *GameState {
	return &GameState{
		Mode:        mode,
		Phase:       PhaseSetup,
		Players:     players,
		Deck:        NewDeck(rng, policy, catalog.Connections),
		AnchorDeck:  NewAnchorDeck(rng, catalog.Anchors),
		Winner:      -1,
		RoundWinner: -1,
	}
}

// CurrentPlayer returns the Player whose turn it is.
func (gs *GameState) CurrentPlayer() *Player {
	return gs.Players[gs.Current]
}

// NextIndex returns the seat that acts after the current one.
func (gs *GameState) NextIndex() int {
	return (gs.Current + 1) % len(gs.Players)
}

// RoundsWon returns the rounds-won tally indexed by seat.
func (gs *GameState) RoundsWon() []int {
	out := make([]int, len(gs.Players))
	for i, p := range gs.Players {
		out[i] = p.RoundsWon
	}
	return out
}

// Over reports whether the match reached its terminal phase.
func (gs *GameState) Over() bool {
	return gs.Phase == PhaseGameEnd
}

// CheckConservation verifies that hands, both piles and the selection hold
// every catalog card exactly once.
func (gs *GameState) CheckConservation(catalog *Catalog) error {
	count := make(map[string]int, len(catalog.Connections))
	add := func(cards ...*Card) {
		for _, c := range cards {
			count[c.ID]++
		}
	}
	add(gs.Deck.draw...)
	add(gs.Deck.discard...)
	for _, p := range gs.Players {
		add(p.Hand...)
	}
	if gs.Selected != nil {
		add(gs.Selected)
	}
	for _, c := range catalog.Connections {
		if count[c.ID] != 1 {
			return fmt.Errorf("card %s found %d times", c.ID, count[c.ID])
		}
		delete(count, c.ID)
	}
	for id := range count {
		return fmt.Errorf("card %s is not in the catalog", id)
	}
	return nil
}

// allCards gathers every connection card from every location, leaving all
// locations empty.
func (gs *GameState) allCards() []*Card {
	var cards []*Card
	cards = append(cards, gs.Deck.draw...)
	cards = append(cards, gs.Deck.discard...)
	gs.Deck.draw = nil
	gs.Deck.discard = nil
	for _, p := range gs.Players {
		cards = append(cards, p.Hand...)
		p.Hand = nil
	}
	if gs.Selected != nil {
		cards = append(cards, gs.Selected)
		gs.Selected = nil
	}
	return cards
}
