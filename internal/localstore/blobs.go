package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/set-night/cosmiccreator/internal/domain"
)

// BlobStore keeps one video per (user, star). Saving again overwrites.
type BlobStore struct {
	db *sql.DB
}

const videoRoute = "/api/media/videos/"

// VideoPath is where the service serves the creator's stored video. The
// version changes on every save so clients never reuse a cached older video.
func VideoPath(starID string, version int64) string {
	return videoRoute + starID + "?v=" + strconv.FormatInt(version, 10)
}

// IsVideoPath reports whether url points at a stored video of the star.
func IsVideoPath(url, starID string) bool {
	return strings.HasPrefix(url, videoRoute+starID+"?v=")
}

func (b *BlobStore) Save(ctx context.Context, user, starID string, m domain.Media) (string, error) {
	if len(m.Data) == 0 {
		return "", domain.ErrInvalidMedia
	}
	mimeType := m.MIMEType
	if mimeType == "" {
		mimeType = "video/mp4"
	}
	// updated_at doubles as the URL version and must grow on every save.
	var version int64
	if err := b.db.QueryRowContext(ctx, `
		INSERT INTO video_blobs (user_id, star_id, mime_type, data, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, star_id) DO UPDATE SET
			mime_type = excluded.mime_type, data = excluded.data,
			updated_at = MAX(excluded.updated_at, video_blobs.updated_at + 1)
		RETURNING updated_at
	`, user, starID, mimeType, m.Data, time.Now().UnixMilli()).Scan(&version); err != nil {
		return "", fmt.Errorf("store video blob: %w", err)
	}
	return VideoPath(starID, version), nil
}

func (b *BlobStore) Get(ctx context.Context, user, starID string) ([]string, error) {
	var version int64
	err := b.db.QueryRowContext(ctx,
		`SELECT updated_at FROM video_blobs WHERE user_id = ? AND star_id = ?`, user, starID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup video blob: %w", err)
	}
	return []string{VideoPath(starID, version)}, nil
}

// Open returns the stored bytes.
func (b *BlobStore) Open(ctx context.Context, user, starID string) (domain.Media, error) {
	var m domain.Media
	err := b.db.QueryRowContext(ctx,
		`SELECT mime_type, data FROM video_blobs WHERE user_id = ? AND star_id = ?`, user, starID,
	).Scan(&m.MIMEType, &m.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Media{}, domain.ErrMediaNotFound
	}
	if err != nil {
		return domain.Media{}, fmt.Errorf("read video blob: %w", err)
	}
	return m, nil
}

func (b *BlobStore) Delete(ctx context.Context, user, starID string) error {
	if _, err := b.db.ExecContext(ctx,
		`DELETE FROM video_blobs WHERE user_id = ? AND star_id = ?`, user, starID); err != nil {
		return fmt.Errorf("delete video blob: %w", err)
	}
	return nil
}
