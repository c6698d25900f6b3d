package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/set-night/cosmiccreator/internal/config"
	"github.com/set-night/cosmiccreator/internal/domain"
)

// CloudStore keeps every saved asset as its own object, so media for one
// star accumulates newest first.
type CloudStore struct {
	bucket Bucket
	now    func() time.Time
}

func NewCloudStore(bucket Bucket) *CloudStore {
	return &CloudStore{bucket: bucket, now: time.Now}
}

func (s *CloudStore) Save(ctx context.Context, user, starID string, m domain.Media) (string, error) {
	if len(m.Data) == 0 {
		return "", domain.ErrInvalidMedia
	}
	key := ObjectKey(user, starID, s.now(), Extension(m.MIMEType))
	contentType := m.MIMEType
	if contentType == "" {
		contentType = defaultImageMIME
	}
	if err := s.bucket.Upload(ctx, key, m.Data, contentType); err != nil {
		return "", fmt.Errorf("save media: %w", err)
	}
	url := s.bucket.PublicURL(key)
	if url == "" {
		return "", fmt.Errorf("save media: no public URL for %s", key)
	}
	return url, nil
}

func (s *CloudStore) Get(ctx context.Context, user, starID string) ([]string, error) {
	keys, err := s.keys(ctx, user, starID)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		if url := s.bucket.PublicURL(key); url != "" {
			urls = append(urls, url)
		}
	}
	return urls, nil
}

func (s *CloudStore) Delete(ctx context.Context, user, starID string) error {
	keys, err := s.keys(ctx, user, starID)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.bucket.Remove(ctx, keys); err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	return nil
}

// DeleteAt removes the index-th object in Get order and returns its URL.
func (s *CloudStore) DeleteAt(ctx context.Context, user, starID string, index int) (string, error) {
	keys, err := s.keys(ctx, user, starID)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(keys) {
		return "", domain.ErrMediaNotFound
	}
	if err := s.bucket.Remove(ctx, []string{keys[index]}); err != nil {
		return "", fmt.Errorf("delete media: %w", err)
	}
	return s.bucket.PublicURL(keys[index]), nil
}

func (s *CloudStore) keys(ctx context.Context, user, starID string) ([]string, error) {
	folder := FolderPath(user, starID)
	objects, err := s.bucket.List(ctx, folder, config.CloudStarFolderLimit, true)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	keys := make([]string, 0, len(objects))
	for _, o := range objects {
		if o.IsFolder || o.Name == "" || strings.HasSuffix(o.Name, "/") {
			continue
		}
		keys = append(keys, folder+o.Name)
	}
	return keys, nil
}
