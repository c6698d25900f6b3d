package service

import (
	"fmt"

	"github.com/set-night/cosmiccreator/internal/domain"
)

var starCatalog = []domain.StarSystem{
	{
		ID:      "polaris",
		Label:   "Polaris",
		Theme:   domain.ThemePolaris,
		Lore:    "The Still Point of the Turning Cosmos",
		Details: "Polaris, the North Star, serves as a celestial anchor. Its frequency is one of unwavering guidance, stability, and purpose. It is the constant in a universe of flux, a beacon for lost souls and a reminder of the unshakable core of one's being. Meditating on Polaris helps to find one's true north and navigate life's complexities with clarity.",
		Image:   "https://storage.googleapis.com/generative-ai-story/space/polaris.jpeg",
	},
	{
		ID:      "sirius",
		Label:   "Sirius",
		Theme:   domain.ThemeSirius,
		Lore:    "The Gateway of Liberation",
		Details: "Sirius, the brightest star in the night sky, radiates a frequency of freedom, spiritual evolution, and advanced knowledge. It is associated with great teachers and civilisations who brought profound wisdom to Earth. Connecting with Sirius can accelerate personal growth, unlock latent abilities, and reveal deeper truths about the nature of reality.",
		Image:   "https://storage.googleapis.com/generative-ai-story/space/sirius.jpeg",
	},
	{
		ID:      "pleiaden",
		Label:   "Pleiades",
		Theme:   domain.ThemePleiaden,
		Lore:    "The Cradle of Unconditional Love",
		Details: "The Pleiades star cluster emanates a gentle, nurturing frequency of love, compassion, and unity. It is considered a home for heart-centered beings dedicated to healing and harmony. This energy soothes the soul, fosters emotional healing, and encourages a deep sense of connection with all life, reminding us of our shared cosmic origins.",
		Image:   "https://storage.googleapis.com/generative-ai-story/space/pleiades.jpeg",
	},
	{
		ID:      "arcturus",
		Label:   "Arcturus",
		Theme:   domain.ThemeArcturus,
		Lore:    "The Forge of Celestial Healing",
		Details: "Arcturus is a star of immense healing power and technological advancement. Its frequency is one of integration, renewal, and spiritual technology. It offers blueprints for emotional and physical healing, using light and sound to restructure energetic fields. Connecting with Arcturus can aid in releasing old patterns and embracing a state of holistic well-being.",
		Image:   "https://storage.googleapis.com/generative-ai-story/space/arcturus.jpeg",
	},
	{
		ID:      "lyra",
		Label:   "Lyra",
		Theme:   domain.ThemeLyra,
		Lore:    "The Echo of Cosmic Creation",
		Details: "Lyra is believed to be the original source of humanoid consciousness in our galactic sector. Its frequency carries the codes of creation, sound, and the sacred feminine. It resonates with the primordial song of the universe, inspiring artistic expression, profound creativity, and a connection to the ancient history of the soul.",
		Image:   "https://storage.googleapis.com/generative-ai-story/space/lyra.jpeg",
	},
	{
		ID:      "orion",
		Label:   "Orion",
		Theme:   domain.ThemeOrion,
		Lore:    "The Crucible of Duality",
		Details: "The Orion constellation holds a complex frequency of duality, struggle, and integration. It represents the cosmic dance of light and dark, teaching lessons of sovereignty, resilience, and the courage to face one's shadow. Connecting with Orion can help integrate opposing forces within oneself and find strength in overcoming challenges.",
		Image:   "https://storage.googleapis.com/generative-ai-story/space/orion.jpeg",
	},
	{
		ID:      "andromeda",
		Label:   "Andromeda",
		Theme:   domain.ThemeAndromeda,
		Lore:    "The Weaver of Galactic Consciousness",
		Details: "The Andromeda Galaxy brings a frequency of expansion, interdimensional awareness, and unity consciousness. It challenges our limited perspectives and invites us to embrace a broader, galactic identity. Connecting with Andromeda fosters a sense of being part of a vast cosmic family and encourages collaboration on a universal scale.",
		Image:   "https://storage.googleapis.com/generative-ai-story/space/andromeda.jpeg",
	},
}

// Catalog returns a fresh copy of the built-in star systems.
func Catalog() []domain.StarSystem {
	out := make([]domain.StarSystem, len(starCatalog))
	for i, s := range starCatalog {
		out[i] = s.Clone()
	}
	return out
}

// FindStar looks a star up in the built-in catalog.
func FindStar(id string) (domain.StarSystem, error) {
	for _, s := range starCatalog {
		if s.ID == id {
			return s.Clone(), nil
		}
	}
	return domain.StarSystem{}, domain.ErrStarNotFound
}

// VisionPrompt seeds the forge when a creator asks for a vision of a star.
func VisionPrompt(star domain.StarSystem) string {
	return fmt.Sprintf("A vision of a being from the star system %s, a place known as %q. The being embodies the concepts of: %s",
		star.Label, star.Lore, star.Details)
}

// AnimationPrompt seeds the animator for a star.
func AnimationPrompt(star domain.StarSystem) string {
	return fmt.Sprintf("The being from %s comes to life. %s", star.Label, star.Lore)
}
