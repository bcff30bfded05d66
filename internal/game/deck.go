package game

import (
	"errors"
	"fmt"
	"math/rand"
)

// ErrDeckExhausted is returned by Deal when the draw pile cannot cover the request.
var ErrDeckExhausted = errors.New("deck exhausted")

// ExhaustionPolicy decides what Draw does when the draw pile is empty.
type ExhaustionPolicy int

const (
	// PolicyReshuffle shuffles the discard pile into the draw pile.
	PolicyReshuffle ExhaustionPolicy = iota
	// PolicyNoOp leaves both piles alone; the draw simply yields nothing.
	PolicyNoOp
)

func (p ExhaustionPolicy) String() string {
	if p == PolicyNoOp {
		return "noop"
	}
	return "reshuffle"
}

// ParseExhaustionPolicy maps a policy name back to its value.
func ParseExhaustionPolicy(s string) (ExhaustionPolicy, error) {
	switch s {
	case "reshuffle", "":
		return PolicyReshuffle, nil
	case "noop":
		return PolicyNoOp, nil
	default:
		return PolicyReshuffle, fmt.Errorf("unknown exhaustion policy %q", s)
	}
}

// Shuffle returns a uniformly random permutation of cards (Fisher–Yates).
// The input slice is left untouched.
func Shuffle[T any](rng *rand.Rand, cards []T) []T {
	out := make([]T, len(cards))
	copy(out, cards)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Deck owns the connection draw pile and the discard pile.
type Deck struct {
	draw    []*Card // top of the pile is the last element (pop from end)
	discard []*Card
	policy  ExhaustionPolicy
	rng     *rand.Rand

	// OnReshuffle is called with the number of cards moved whenever the
	// discard pile is recycled into the draw pile.
	OnReshuffle func(n int)
}

// NewDeck creates a deck holding a shuffled copy of cards.
func NewDeck(rng *rand.Rand, policy ExhaustionPolicy, cards []*Card) *Deck {
	return &Deck{
		draw:   Shuffle(rng, cards),
		policy: policy,
		rng:    rng,
	}
}

// Reset replaces both piles with a freshly shuffled draw pile of cards.
func (d *Deck) Reset(cards []*Card) {
	d.draw = Shuffle(d.rng, cards)
	d.discard = nil
}

// DrawCount returns the number of cards remaining in the draw pile.
func (d *Deck) DrawCount() int {
	return len(d.draw)
}

// DiscardCount returns the number of cards in the discard pile.
func (d *Deck) DiscardCount() int {
	return len(d.discard)
}

// DrawPile returns a copy of the draw pile, top card last.
func (d *Deck) DrawPile() []*Card {
	return append([]*Card(nil), d.draw...)
}

// DiscardPile returns a copy of the discard pile, most recent card last.
func (d *Deck) DiscardPile() []*Card {
	return append([]*Card(nil), d.discard...)
}

// TopDiscard returns the most recently discarded card, or nil.
func (d *Deck) TopDiscard() *Card {
	if len(d.discard) == 0 {
		return nil
	}
	return d.discard[len(d.discard)-1]
}

// Draw removes and returns the top card of the draw pile. When the pile is
// empty the exhaustion policy applies; ok is false if no card could be drawn.
func (d *Deck) Draw() (card *Card, ok bool) {
	if len(d.draw) == 0 {
		if d.policy != PolicyReshuffle || d.ReshuffleDiscard() == 0 {
			return nil, false
		}
	}
	card = d.draw[len(d.draw)-1]
	d.draw = d.draw[:len(d.draw)-1]
	return card, true
}

// Discard appends a card to the discard pile.
func (d *Deck) Discard(card *Card) {
	d.discard = append(d.discard, card)
}

// ReshuffleDiscard moves the discard pile under the draw pile and shuffles
// the result. Returns the number of cards moved.
func (d *Deck) ReshuffleDiscard() int {
	n := len(d.discard)
	if n == 0 {
		return 0
	}
	merged := append(d.discard, d.draw...)
	d.draw = Shuffle(d.rng, merged)
	d.discard = nil
	if d.OnReshuffle != nil {
		d.OnReshuffle(n)
	}
	return n
}

// Deal gives n cards to each player in turn order, one at a time. It never
// deals partially: if the draw pile cannot cover n cards per player nothing
// is dealt and ErrDeckExhausted is returned.
func (d *Deck) Deal(n int, players []*Player) error {
	need := n * len(players)
	if need > len(d.draw) {
		return fmt.Errorf("deal %d cards to %d players from %d: %w", n, len(players), len(d.draw), ErrDeckExhausted)
	}
	for i := 0; i < n; i++ {
		for _, p := range players {
			card := d.draw[len(d.draw)-1]
			d.draw = d.draw[:len(d.draw)-1]
			p.Hand = append(p.Hand, card)
		}
	}
	return nil
}

// AnchorDeck is the separate pile anchor cards are drawn from.
type AnchorDeck struct {
	pile []*AnchorCard // top is last
	used []*AnchorCard
	rng  *rand.Rand
}

// NewAnchorDeck creates a shuffled anchor deck.
func NewAnchorDeck(rng *rand.Rand, anchors []*AnchorCard) *AnchorDeck {
	return &AnchorDeck{pile: Shuffle(rng, anchors), rng: rng}
}

// Count returns the number of anchors left before a recycle is needed.
func (a *AnchorDeck) Count() int {
	return len(a.pile)
}

// Next retires the current anchor (may be nil) and draws the next one.
// Retired anchors are reshuffled back in once the pile runs out, so an anchor
// is always available as long as the catalog has one.
// The current anchor is never drawn straight back.
func (a *AnchorDeck) Next(current *AnchorCard) *AnchorCard {
	if len(a.pile) == 0 {
		a.pile = Shuffle(a.rng, a.used)
		a.used = nil
	}
	if current != nil {
		a.used = append(a.used, current)
	}
	if len(a.pile) == 0 {
		return current
	}
	next := a.pile[len(a.pile)-1]
	a.pile = a.pile[:len(a.pile)-1]
	return next
}
