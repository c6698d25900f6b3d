package domain

import "slices"

type Theme string

const (
	ThemePleiaden     Theme = "pleiaden"
	ThemeArcturus     Theme = "arcturus"
	ThemeSirius       Theme = "sirius"
	ThemeLyra         Theme = "lyra"
	ThemeAndromeda    Theme = "andromeda"
	ThemeOrion        Theme = "orion"
	ThemeZetaReticuli Theme = "zeta-reticuli"
	ThemePolaris      Theme = "polaris"
)

// StarSystem is one portal of the catalog. Images and Video are filled in
// per creator from the media stores.
type StarSystem struct {
	ID      string   `json:"id"`
	Label   string   `json:"label"`
	Theme   Theme    `json:"theme"`
	Lore    string   `json:"lore"`
	Details string   `json:"details"`
	Image   string   `json:"image"`
	Images  []string `json:"images,omitempty"`
	Video   string   `json:"video,omitempty"`
}

// Clone returns a copy that does not share the Images slice.
func (s StarSystem) Clone() StarSystem {
	s.Images = slices.Clone(s.Images)
	return s
}
