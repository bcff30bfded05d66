package game

import (
	"fmt"
	"strings"
)

// JustificationOption is a pre-generated justification a player may pick
// instead of writing their own. Picking one counts as a hint.
type JustificationOption struct {
	ID   string
	Text string
}

// Options generates the hint list for linking card to anchor. The list is
// deterministic for a given pair so an option ID stays valid between the
// moment it is shown and the moment it is submitted.
func Options(anchor *AnchorCard, card *Card) []JustificationOption {
	if anchor == nil || card == nil || card.IsSpecial() {
		return nil
	}
	var texts []string
	for _, theme := range anchor.Themes {
		texts = append(texts, fmt.Sprintf("%s is tied to %s, which is central to %s.", card.Title, theme, strings.ToLower(anchor.Text)))
	}
	texts = append(texts,
		fmt.Sprintf("%s (%s) changed how people experience %s.", card.Title, card.Reference, strings.ToLower(anchor.Text)),
		fmt.Sprintf("As a landmark of %s, %s is a lasting example of %s.", strings.ToLower(card.Category), card.Title, strings.ToLower(anchor.Text)),
	)

	opts := make([]JustificationOption, len(texts))
	for i, t := range texts {
		opts[i] = JustificationOption{ID: fmt.Sprintf("opt-%d", i+1), Text: t}
	}
	return opts
}

func findOption(opts []JustificationOption, id string) (JustificationOption, bool) {
	for _, o := range opts {
		if o.ID == id {
			return o, true
		}
	}
	return JustificationOption{}, false
}
