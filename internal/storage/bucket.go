package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	storage_go "github.com/supabase-community/storage-go"
)

// ObjectInfo is one entry of a bucket listing. Folders have no ID.
type ObjectInfo struct {
	Name      string
	IsFolder  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Bucket is the subset of an object store the adapters need.
type Bucket interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	List(ctx context.Context, prefix string, limit int, newestFirst bool) ([]ObjectInfo, error)
	PublicURL(path string) string
	Remove(ctx context.Context, paths []string) error
}

// SupabaseBucket talks to one Supabase Storage bucket.
type SupabaseBucket struct {
	client *storage_go.Client
	name   string
}

func NewSupabaseBucket(endpoint, serviceKey, bucket string) *SupabaseBucket {
	client := storage_go.NewClient(endpoint, serviceKey, map[string]string{"apikey": serviceKey})
	return &SupabaseBucket{client: client, name: bucket}
}

func (b *SupabaseBucket) Name() string { return b.name }

func (b *SupabaseBucket) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	upsert := false
	_, err := b.client.UploadFile(b.name, path, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", b.name, path, err)
	}
	return nil
}

func (b *SupabaseBucket) List(ctx context.Context, prefix string, limit int, newestFirst bool) ([]ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := storage_go.FileSearchOptions{Limit: limit, Offset: 0}
	if newestFirst {
		opts.SortByOptions = storage_go.SortBy{Column: "created_at", Order: "desc"}
	}
	files, err := b.client.ListFiles(b.name, prefix, opts)
	if err != nil {
		return nil, fmt.Errorf("list %s/%s: %w", b.name, prefix, err)
	}

	out := make([]ObjectInfo, 0, len(files))
	for _, f := range files {
		out = append(out, ObjectInfo{
			Name:      f.Name,
			IsFolder:  f.Id == "" || strings.HasSuffix(f.Name, "/"),
			CreatedAt: parseStorageTime(f.CreatedAt),
			UpdatedAt: parseStorageTime(f.UpdatedAt),
		})
	}
	return out, nil
}

func (b *SupabaseBucket) PublicURL(path string) string {
	return b.client.GetPublicUrl(b.name, path).SignedURL
}

func (b *SupabaseBucket) Remove(ctx context.Context, paths []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := b.client.RemoveFile(b.name, paths); err != nil {
		return fmt.Errorf("remove from %s: %w", b.name, err)
	}
	return nil
}

func parseStorageTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// IsAccessDenied recognizes the object store rejecting a request because of
// bucket policies.
func IsAccessDenied(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "row-level security") ||
		strings.Contains(msg, "permission") ||
		strings.Contains(msg, "policy") ||
		strings.Contains(msg, "403")
}
