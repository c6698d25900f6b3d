package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/set-night/cosmiccreator/internal/domain"
	"github.com/set-night/cosmiccreator/internal/localstore"
	"github.com/set-night/cosmiccreator/internal/storage"
)

// Sanctuary keeps one copy of the catalog per creator, merged with the
// creator's stored media. Copies load lazily. A loaded copy is never
// mutated: updates swap in a new slice under mu.
type Sanctuary struct {
	links  *localstore.LinkMap
	videos *localstore.BlobStore
	images *storage.CloudStore // nil when cloud storage is not configured

	mu    sync.Mutex
	views map[string][]domain.StarSystem
}

func NewSanctuary(links *localstore.LinkMap, videos *localstore.BlobStore, images *storage.CloudStore) *Sanctuary {
	return &Sanctuary{
		links:  links,
		videos: videos,
		images: images,
		views:  make(map[string][]domain.StarSystem),
	}
}

// Stars returns the creator's view of the catalog.
func (s *Sanctuary) Stars(ctx context.Context, creator string) []domain.StarSystem {
	view := s.view(ctx, creator)
	out := make([]domain.StarSystem, len(view))
	for i, star := range view {
		out[i] = star.Clone()
	}
	return out
}

// Star returns one star of the creator's view.
func (s *Sanctuary) Star(ctx context.Context, creator, starID string) (domain.StarSystem, error) {
	for _, star := range s.view(ctx, creator) {
		if star.ID == starID {
			return star.Clone(), nil
		}
	}
	return domain.StarSystem{}, domain.ErrStarNotFound
}

// LinkImage makes m the primary image of the star. With cloud storage the
// image is uploaded and its public URL is linked; otherwise the image is
// linked inline as a data URL.
func (s *Sanctuary) LinkImage(ctx context.Context, creator, starID string, m domain.Media) (domain.StarSystem, error) {
	if _, err := FindStar(starID); err != nil {
		return domain.StarSystem{}, err
	}
	if m.Kind() != domain.MediaTypeImage {
		return domain.StarSystem{}, domain.ErrNotAnImage
	}
	// Load before uploading so the new object is added once, below.
	s.view(ctx, creator)

	var url string
	if s.images != nil {
		cloudURL, err := s.images.Save(ctx, creator, starID, m)
		if err != nil {
			return domain.StarSystem{}, fmt.Errorf("upload star image: %w", err)
		}
		if err := s.links.SaveURL(ctx, creator, starID, cloudURL); err != nil {
			return domain.StarSystem{}, fmt.Errorf("link star image: %w", err)
		}
		url = cloudURL
	} else {
		dataURL, err := s.links.Save(ctx, creator, starID, m)
		if err != nil {
			return domain.StarSystem{}, fmt.Errorf("link star image: %w", err)
		}
		url = dataURL
	}

	return s.update(ctx, creator, starID, func(star *domain.StarSystem) {
		star.Image = url
		if s.images != nil {
			images := slices.DeleteFunc(slices.Clone(star.Images), func(u string) bool { return u == url })
			star.Images = slices.Insert(images, 0, url)
		}
	})
}

// RemoveImage deletes the index-th cloud image of the star, or the linked
// image when cloud storage is not configured, and reloads the star.
func (s *Sanctuary) RemoveImage(ctx context.Context, creator, starID string, index int) (domain.StarSystem, error) {
	base, err := FindStar(starID)
	if err != nil {
		return domain.StarSystem{}, err
	}

	unlink := true
	if s.images != nil {
		removed, err := s.images.DeleteAt(ctx, creator, starID, index)
		if err != nil {
			return domain.StarSystem{}, fmt.Errorf("remove star image: %w", err)
		}
		linked, err := s.links.Get(ctx, creator, starID)
		if err != nil {
			return domain.StarSystem{}, fmt.Errorf("unlink star image: %w", err)
		}
		unlink = slices.Contains(linked, removed)
	} else if index != 0 {
		return domain.StarSystem{}, domain.ErrMediaNotFound
	}
	if unlink {
		if err := s.links.Delete(ctx, creator, starID); err != nil {
			return domain.StarSystem{}, fmt.Errorf("unlink star image: %w", err)
		}
	}

	fresh := s.loadStar(ctx, creator, base, nil)
	return s.update(ctx, creator, starID, func(star *domain.StarSystem) {
		star.Image = fresh.Image
		star.Images = fresh.Images
	})
}

// SetVideo records a manifested video in the creator's view.
func (s *Sanctuary) SetVideo(ctx context.Context, creator, starID, url string) (domain.StarSystem, error) {
	return s.update(ctx, creator, starID, func(star *domain.StarSystem) {
		star.Video = url
	})
}

// Forget drops the creator's view; the next read reloads from storage.
func (s *Sanctuary) Forget(creator string) {
	s.mu.Lock()
	delete(s.views, creator)
	s.mu.Unlock()
}

func (s *Sanctuary) update(ctx context.Context, creator, starID string, mutate func(*domain.StarSystem)) (domain.StarSystem, error) {
	loaded := s.view(ctx, creator)

	s.mu.Lock()
	defer s.mu.Unlock()

	view, ok := s.views[creator]
	if !ok {
		view = loaded
	}
	for i := range view {
		if view[i].ID == starID {
			next := slices.Clone(view)
			next[i] = view[i].Clone()
			mutate(&next[i])
			s.views[creator] = next
			return next[i].Clone(), nil
		}
	}
	return domain.StarSystem{}, domain.ErrStarNotFound
}

func (s *Sanctuary) view(ctx context.Context, creator string) []domain.StarSystem {
	s.mu.Lock()
	view, ok := s.views[creator]
	s.mu.Unlock()
	if ok {
		return view
	}

	loaded := s.load(ctx, creator)

	s.mu.Lock()
	defer s.mu.Unlock()
	if view, ok := s.views[creator]; ok {
		return view
	}
	s.views[creator] = loaded
	return loaded
}

// load merges stored media into a fresh catalog. Storage failures are
// logged and leave the catalog defaults in place.
func (s *Sanctuary) load(ctx context.Context, creator string) []domain.StarSystem {
	links, err := s.links.All(ctx, creator)
	if err != nil {
		slog.Warn("load linked images", "creator", creator, "error", err)
		links = nil
	}

	stars := Catalog()
	for i := range stars {
		stars[i] = s.loadStar(ctx, creator, stars[i], links)
	}
	return stars
}

func (s *Sanctuary) loadStar(ctx context.Context, creator string, star domain.StarSystem, links map[string]string) domain.StarSystem {
	if s.images != nil {
		urls, err := s.images.Get(ctx, creator, star.ID)
		if err != nil {
			slog.Warn("load cloud images", "creator", creator, "star", star.ID, "error", err)
		} else if len(urls) > 0 {
			star.Images = urls
			star.Image = urls[0]
		}
	}

	if links == nil {
		if urls, err := s.links.Get(ctx, creator, star.ID); err != nil {
			slog.Warn("load linked image", "creator", creator, "star", star.ID, "error", err)
		} else if len(urls) > 0 {
			star.Image = urls[0]
		}
	} else if url := links[star.ID]; url != "" {
		star.Image = url
	}

	urls, err := s.videos.Get(ctx, creator, star.ID)
	if err != nil {
		slog.Warn("load stored video", "creator", creator, "star", star.ID, "error", err)
	} else if len(urls) > 0 {
		star.Video = urls[0]
	}
	return star
}
