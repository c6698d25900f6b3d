package localstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/set-night/cosmiccreator/internal/domain"
	"github.com/set-night/cosmiccreator/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ storage.MediaStore = (*LinkMap)(nil)
	_ storage.MediaStore = (*BlobStore)(nil)
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStorageKey(t *testing.T) {
	assert.Equal(t, "cosmic-creator-images-nova", StorageKey("nova"))
}

func TestLinkMapSaveThenGet(t *testing.T) {
	ctx := context.Background()
	links := openTestStore(t).Links()

	m := domain.Media{Data: []byte("linked vision"), MIMEType: "image/jpeg"}
	url, err := links.Save(ctx, "nova", "sirius", m)
	require.NoError(t, err)

	urls, err := links.Get(ctx, "nova", "sirius")
	require.NoError(t, err)
	require.Equal(t, []string{url}, urls)

	decoded, err := storage.DecodeDataURL(urls[0])
	require.NoError(t, err)
	assert.Equal(t, m, decoded)
}

func TestLinkMapOverwritesAndDeletes(t *testing.T) {
	ctx := context.Background()
	links := openTestStore(t).Links()

	require.NoError(t, links.SaveURL(ctx, "nova", "lyra", "https://a"))
	require.NoError(t, links.SaveURL(ctx, "nova", "lyra", "https://b"))
	require.NoError(t, links.SaveURL(ctx, "nova", "orion", "https://c"))

	all, err := links.All(ctx, "nova")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"lyra": "https://b", "orion": "https://c"}, all)

	require.NoError(t, links.Delete(ctx, "nova", "lyra"))
	urls, err := links.Get(ctx, "nova", "lyra")
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestLinkMapIsolatesUsers(t *testing.T) {
	ctx := context.Background()
	links := openTestStore(t).Links()

	require.NoError(t, links.SaveURL(ctx, "nova", "polaris", "https://nova"))
	require.NoError(t, links.SaveURL(ctx, "vega", "polaris", "https://vega"))

	nova, err := links.Get(ctx, "nova", "polaris")
	require.NoError(t, err)
	vega, err := links.Get(ctx, "vega", "polaris")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://nova"}, nova)
	assert.Equal(t, []string{"https://vega"}, vega)

	empty, err := links.All(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBlobStoreSaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	blobs := openTestStore(t).Blobs()

	first, err := blobs.Save(ctx, "nova", "arcturus", domain.Media{Data: []byte("v1"), MIMEType: "video/mp4"})
	require.NoError(t, err)
	assert.True(t, IsVideoPath(first, "arcturus"), first)

	url, err := blobs.Save(ctx, "nova", "arcturus", domain.Media{Data: []byte("v2"), MIMEType: "video/webm"})
	require.NoError(t, err)
	assert.True(t, IsVideoPath(url, "arcturus"), url)
	assert.NotEqual(t, first, url, "a new save must change the video URL")

	urls, err := blobs.Get(ctx, "nova", "arcturus")
	require.NoError(t, err)
	assert.Equal(t, []string{url}, urls)

	m, err := blobs.Open(ctx, "nova", "arcturus")
	require.NoError(t, err)
	assert.Equal(t, domain.Media{Data: []byte("v2"), MIMEType: "video/webm"}, m)

	_, err = blobs.Open(ctx, "vega", "arcturus")
	assert.ErrorIs(t, err, domain.ErrMediaNotFound)

	require.NoError(t, blobs.Delete(ctx, "nova", "arcturus"))
	urls, err = blobs.Get(ctx, "nova", "arcturus")
	require.NoError(t, err)
	assert.Empty(t, urls)
}

func TestBlobStoreRejectsEmpty(t *testing.T) {
	_, err := openTestStore(t).Blobs().Save(context.Background(), "nova", "orion", domain.Media{})
	assert.ErrorIs(t, err, domain.ErrInvalidMedia)
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.sqlite")
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Links().SaveURL(context.Background(), "nova", "lyra", "https://x"))
	assert.FileExists(t, path)
}
