package game

import "fmt"

// EffectHandler applies one special-card effect to the state and returns a
// description for the event log. Handlers run under the Session's lock and
// must not block.
type EffectHandler func(gs *GameState, player *Player) string

// SpecialEffects maps every special kind to its handler.
var SpecialEffects = map[SpecialKind]EffectHandler{
	SpecialNewAnchor: newAnchorEffect,
	SpecialReshuffle: reshuffleEffect,
}

func newAnchorEffect(gs *GameState, _ *Player) string {
	old := gs.Anchor
	gs.Anchor = gs.AnchorDeck.Next(old)
	return fmt.Sprintf("anchor %s replaced by %s", old, gs.Anchor)
}

func reshuffleEffect(gs *GameState, _ *Player) string {
	n := gs.Deck.ReshuffleDiscard()
	return fmt.Sprintf("%d discarded cards shuffled back into the draw pile", n)
}
