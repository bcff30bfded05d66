package web

import (
	"github.com/peterkuimelis/anchorlink/internal/game"
	"gopkg.in/yaml.v3"
)

// catalogYAML renders cat in the same format game.ParseCatalog reads, so a
// downloaded catalog can be edited and loaded back with ANCHORLINK_CATALOG.
func catalogYAML(cat *game.Catalog) ([]byte, error) {
	var cf game.CatalogFile
	for _, c := range cat.Connections {
		cf.Connections = append(cf.Connections, game.CardEntry{
			ID:        c.ID,
			Title:     c.Title,
			Reference: c.Reference,
			Category:  c.Category,
			Special:   c.Special.String(),
		})
	}
	for _, a := range cat.Anchors {
		cf.Anchors = append(cf.Anchors, game.AnchorEntry{
			ID:        a.ID,
			Text:      a.Text,
			Reference: a.Reference,
			Themes:    a.Themes,
		})
	}
	return yaml.Marshal(&cf)
}
