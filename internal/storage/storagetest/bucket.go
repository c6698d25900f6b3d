// Package storagetest provides an in-memory storage.Bucket for tests.
package storagetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/set-night/cosmiccreator/internal/storage"
)

type object struct {
	data        []byte
	contentType string
	createdAt   time.Time
}

// MemoryBucket mimics a Supabase bucket: listings return the immediate
// children of a prefix, folders first-class and without IDs.
type MemoryBucket struct {
	mu      sync.Mutex
	name    string
	objects map[string]object
	clock   time.Time

	// ListErrors makes List fail for the given prefix (without trailing slash).
	ListErrors map[string]error
	// UploadError makes every Upload fail.
	UploadError error
}

func NewMemoryBucket(name string) *MemoryBucket {
	return &MemoryBucket{
		name:       name,
		objects:    make(map[string]object),
		clock:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		ListErrors: make(map[string]error),
	}
}

func (b *MemoryBucket) Upload(_ context.Context, path string, data []byte, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.UploadError != nil {
		return b.UploadError
	}
	b.clock = b.clock.Add(time.Second)
	b.objects[path] = object{data: append([]byte(nil), data...), contentType: contentType, createdAt: b.clock}
	return nil
}

// Put stores an object with an explicit creation time.
func (b *MemoryBucket) Put(path string, data []byte, createdAt time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[path] = object{data: data, createdAt: createdAt}
}

func (b *MemoryBucket) List(_ context.Context, prefix string, limit int, newestFirst bool) ([]storage.ObjectInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	prefix = strings.Trim(prefix, "/")
	if err := b.ListErrors[prefix]; err != nil {
		return nil, err
	}
	lookup := prefix
	if lookup != "" {
		lookup += "/"
	}

	folders := make(map[string]bool)
	var files []storage.ObjectInfo
	for path, obj := range b.objects {
		if !strings.HasPrefix(path, lookup) {
			continue
		}
		rest := path[len(lookup):]
		if name, _, nested := strings.Cut(rest, "/"); nested {
			folders[name] = true
			continue
		}
		files = append(files, storage.ObjectInfo{Name: rest, CreatedAt: obj.createdAt, UpdatedAt: obj.createdAt})
	}

	sort.Slice(files, func(i, j int) bool {
		if newestFirst {
			return files[i].CreatedAt.After(files[j].CreatedAt)
		}
		return files[i].Name < files[j].Name
	})

	out := make([]storage.ObjectInfo, 0, len(folders)+len(files))
	names := make([]string, 0, len(folders))
	for name := range folders {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, storage.ObjectInfo{Name: name, IsFolder: true})
	}
	out = append(out, files...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (b *MemoryBucket) PublicURL(path string) string {
	return "https://storage.test/" + b.name + "/" + path
}

func (b *MemoryBucket) Remove(_ context.Context, paths []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range paths {
		delete(b.objects, p)
	}
	return nil
}

// Object returns stored bytes by public URL.
func (b *MemoryBucket) Object(url string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := b.objects[strings.TrimPrefix(url, "https://storage.test/"+b.name+"/")]
	return obj.data, ok
}

func (b *MemoryBucket) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}
