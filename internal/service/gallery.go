package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/set-night/cosmiccreator/internal/config"
	"github.com/set-night/cosmiccreator/internal/domain"
	"github.com/set-night/cosmiccreator/internal/storage"
	"golang.org/x/sync/errgroup"
)

// GalleryCache holds the last gallery for a fixed time.
type GalleryCache struct {
	mu       sync.RWMutex
	gallery  *domain.Gallery
	cachedAt time.Time
	ttl      time.Duration
}

func NewGalleryCache(ttl time.Duration) *GalleryCache {
	return &GalleryCache{ttl: ttl}
}

func (c *GalleryCache) Get() *domain.Gallery {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.gallery == nil || time.Since(c.cachedAt) > c.ttl {
		return nil
	}
	return c.gallery
}

func (c *GalleryCache) Set(gallery *domain.Gallery) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gallery = gallery
	c.cachedAt = time.Now()
}

// GalleryService lists the most recent media of every creator.
type GalleryService struct {
	images storage.Bucket
	videos storage.Bucket
	cache  *GalleryCache
	now    func() time.Time
}

func NewGalleryService(images, videos storage.Bucket, cache *GalleryCache) *GalleryService {
	return &GalleryService{images: images, videos: videos, cache: cache, now: time.Now}
}

type galleryWalk struct {
	bucket  storage.Bucket
	kind    domain.MediaType
	perStar int
	limit   int
	match   func(string) bool
}

// Load returns the newest images and videos across all creators. Both
// buckets are read concurrently.
func (s *GalleryService) Load(ctx context.Context) (*domain.Gallery, error) {
	if s.cache != nil {
		if cached := s.cache.Get(); cached != nil {
			return cached, nil
		}
	}

	gallery := &domain.Gallery{Images: []domain.GalleryItem{}, Videos: []domain.GalleryItem{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		items, err := s.walk(gctx, galleryWalk{
			bucket:  s.images,
			kind:    domain.MediaTypeImage,
			perStar: config.GalleryImagesPerStar,
			limit:   config.GalleryImageLimit,
			match:   storage.IsImageName,
		})
		gallery.Images = items
		return err
	})
	g.Go(func() error {
		items, err := s.walk(gctx, galleryWalk{
			bucket:  s.videos,
			kind:    domain.MediaTypeVideo,
			perStar: config.GalleryVideosPerStar,
			limit:   config.GalleryVideoLimit,
			match:   storage.IsVideoName,
		})
		gallery.Videos = items
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(gallery)
	}
	return gallery, nil
}

// walk visits {user}/{star}/ folders of one bucket. Only an access denial
// at the root is an error; everything else degrades to fewer items.
func (s *GalleryService) walk(ctx context.Context, w galleryWalk) ([]domain.GalleryItem, error) {
	items := []domain.GalleryItem{}

	users, err := w.bucket.List(ctx, "", config.GalleryUserFolders, false)
	if err != nil {
		if storage.IsAccessDenied(err) {
			return nil, fmt.Errorf("list %s bucket: %w", w.kind, domain.ErrStorageAccessDenied)
		}
		slog.Warn("list gallery bucket", "kind", w.kind, "error", err)
		return items, nil
	}

	for _, user := range users {
		if !isGalleryFolder(user.Name) {
			continue
		}
		stars, err := w.bucket.List(ctx, user.Name, config.GalleryStarFolders, false)
		if err != nil {
			slog.Debug("list gallery user folder", "kind", w.kind, "user", user.Name, "error", err)
			continue
		}
		for _, star := range stars {
			if !isGalleryFolder(star.Name) {
				continue
			}
			folder := storage.FolderPath(user.Name, star.Name)
			files, err := w.bucket.List(ctx, folder, w.perStar, true)
			if err != nil {
				slog.Debug("list gallery star folder", "kind", w.kind, "folder", folder, "error", err)
				continue
			}
			for _, f := range files {
				if f.Name == "" || strings.HasSuffix(f.Name, "/") || !w.match(f.Name) {
					continue
				}
				url := w.bucket.PublicURL(folder + f.Name)
				if url == "" {
					continue
				}
				createdAt := s.itemTime(f)
				items = append(items, domain.GalleryItem{
					URL:       url,
					Type:      w.kind,
					UserID:    user.Name,
					StarID:    star.Name,
					CreatedAt: &createdAt,
				})
			}
		}
	}

	slices.SortStableFunc(items, func(a, b domain.GalleryItem) int {
		return cmp.Compare(b.CreatedAt.UnixMilli(), a.CreatedAt.UnixMilli())
	})
	if len(items) > w.limit {
		items = items[:w.limit]
	}
	return items, nil
}

func (s *GalleryService) itemTime(f storage.ObjectInfo) time.Time {
	switch {
	case !f.CreatedAt.IsZero():
		return f.CreatedAt
	case !f.UpdatedAt.IsZero():
		return f.UpdatedAt
	default:
		return s.now()
	}
}

func isGalleryFolder(name string) bool {
	return name != "" && !strings.Contains(name, ".")
}
