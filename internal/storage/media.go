// Package storage holds the media persistence contract shared by every
// adapter, the object key convention and the cloud object store adapter.
package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/cosmiccreator/internal/domain"
)

// MediaStore persists generated media keyed by (user, starID). Get returns
// URLs in display order; the first one is the primary.
type MediaStore interface {
	Save(ctx context.Context, user, starID string, m domain.Media) (string, error)
	Get(ctx context.Context, user, starID string) ([]string, error)
	Delete(ctx context.Context, user, starID string) error
}

const defaultImageMIME = "image/jpeg"

var mimeToExt = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"image/webp":      "webp",
	"image/gif":       "gif",
	"video/mp4":       "mp4",
	"video/webm":      "webm",
	"video/quicktime": "mov",
}

var (
	imageNameRe = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|webp|gif)$`)
	videoNameRe = regexp.MustCompile(`(?i)\.(mp4|webm|mov)$`)
)

// Extension maps a MIME type to a file extension. Unknown video types fall
// back to mp4, everything else to jpg.
func Extension(mimeType string) string {
	if ext, ok := mimeToExt[strings.ToLower(mimeType)]; ok {
		return ext
	}
	if strings.HasPrefix(mimeType, "video/") {
		return "mp4"
	}
	return "jpg"
}

// IsImageName reports whether an object name carries an image extension.
func IsImageName(name string) bool { return imageNameRe.MatchString(name) }

// IsVideoName reports whether an object name carries a video extension.
func IsVideoName(name string) bool { return videoNameRe.MatchString(name) }

// FolderPath is the prefix under which all media of one star lives.
func FolderPath(user, starID string) string {
	return user + "/" + starID + "/"
}

// ObjectKey builds {user}/{starID}/{unix-millis}-{rand}.{ext}.
func ObjectKey(user, starID string, now time.Time, ext string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
	return fmt.Sprintf("%s%d-%s.%s", FolderPath(user, starID), now.UnixMilli(), suffix, ext)
}

// DecodeDataURL parses "data:<mime>;base64,<payload>". A missing MIME type
// defaults to image/jpeg.
func DecodeDataURL(s string) (domain.Media, error) {
	if !strings.HasPrefix(s, "data:") {
		return domain.Media{}, fmt.Errorf("%w: not a data URL", domain.ErrInvalidMedia)
	}
	header, payload, ok := strings.Cut(s[len("data:"):], ",")
	if !ok {
		return domain.Media{}, fmt.Errorf("%w: missing payload", domain.ErrInvalidMedia)
	}
	mimeType, params, _ := strings.Cut(header, ";")
	if !strings.Contains(params, "base64") {
		return domain.Media{}, fmt.Errorf("%w: only base64 data URLs are supported", domain.ErrInvalidMedia)
	}
	if mimeType == "" {
		mimeType = defaultImageMIME
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return domain.Media{}, fmt.Errorf("%w: decode payload: %v", domain.ErrInvalidMedia, err)
	}
	if len(data) == 0 {
		return domain.Media{}, fmt.Errorf("%w: empty payload", domain.ErrInvalidMedia)
	}
	return domain.Media{Data: data, MIMEType: mimeType}, nil
}

// EncodeDataURL is the inverse of DecodeDataURL.
func EncodeDataURL(m domain.Media) string {
	mimeType := m.MIMEType
	if mimeType == "" {
		mimeType = defaultImageMIME
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(m.Data)
}
