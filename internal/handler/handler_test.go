package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/set-night/cosmiccreator/internal/config"
	"github.com/set-night/cosmiccreator/internal/domain"
	"github.com/set-night/cosmiccreator/internal/localstore"
	"github.com/set-night/cosmiccreator/internal/middleware"
	"github.com/set-night/cosmiccreator/internal/service"
	"github.com/set-night/cosmiccreator/internal/storage"
	"github.com/set-night/cosmiccreator/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

type creatorRepo struct {
	mu       sync.Mutex
	creators map[string]*domain.Creator
}

func (r *creatorRepo) GetCreatorByUsername(_ context.Context, username string) (*domain.Creator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.creators[username]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (r *creatorRepo) CreateCreator(_ context.Context, username string) (*domain.Creator, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.creators[username]; ok {
		cp := *c
		return &cp, false, nil
	}
	c := &domain.Creator{ID: int64(len(r.creators) + 1), Username: username, CreatedAt: time.Now(), LastSeenAt: time.Now()}
	r.creators[username] = c
	cp := *c
	return &cp, true, nil
}

func (r *creatorRepo) TouchCreator(context.Context, int64) error { return nil }

func (r *creatorRepo) SetCreatorStripeCustomer(context.Context, int64, string) error { return nil }

type fakeGemini struct {
	mu       sync.Mutex
	image    domain.Media
	imageErr error
	text     string
	textErr  error
}

func (f *fakeGemini) set(fn func(*fakeGemini)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeGemini) textReply() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text, f.textErr
}

func (f *fakeGemini) imageReply() (domain.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.image, f.imageErr
}

func (f *fakeGemini) GenerateText(context.Context, string, string) (string, error) {
	return f.textReply()
}

func (f *fakeGemini) DescribeImage(context.Context, string, domain.Media, string) (string, error) {
	return f.textReply()
}

func (f *fakeGemini) GenerateImage(context.Context, string, string) (domain.Media, error) {
	return f.imageReply()
}

func (f *fakeGemini) EditImage(context.Context, domain.Media, string) (domain.Media, error) {
	return f.imageReply()
}

func (f *fakeGemini) StartVideo(context.Context, domain.Media, string, string) (*domain.VideoOperation, error) {
	return &domain.VideoOperation{Name: "operations/veo-1"}, nil
}

func (f *fakeGemini) PollVideo(_ context.Context, name string) (*domain.VideoOperation, error) {
	return &domain.VideoOperation{Name: name}, nil
}

func (f *fakeGemini) FetchVideo(context.Context, string) (domain.Media, error) {
	return domain.Media{Data: []byte("mp4"), MIMEType: "video/mp4"}, nil
}

type rateCounter struct{}

func (rateCounter) CheckAndIncrementRateLimit(context.Context, int64) (int32, error) { return 1, nil }

type fixture struct {
	server  *httptest.Server
	gemini  *fakeGemini
	store   *localstore.Store
	gallery *storagetest.MemoryBucket
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := localstore.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	gemini := &fakeGemini{
		image: domain.Media{Data: pngBytes, MIMEType: "image/png"},
		text:  "The stars hum back.",
	}
	creators := service.NewCreatorService(&creatorRepo{creators: map[string]*domain.Creator{}}, nil)
	sanctuary := service.NewSanctuary(store.Links(), store.Blobs(), nil)
	animator := service.NewAnimator(gemini, store.Blobs(), nil, sanctuary, nil)
	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = animator.Shutdown(shutdownCtx)
	})

	images := storagetest.NewMemoryBucket("images")
	videos := storagetest.NewMemoryBucket("videos")

	h := New(Deps{
		Cfg:         &config.Config{RateLimitPerMinute: 10, AllowedOrigins: []string{"*"}},
		Creators:    creators,
		Sanctuary:   sanctuary,
		Chambers:    service.NewChambers(gemini),
		Animator:    animator,
		Oracle:      service.NewOracle(gemini),
		Gallery:     service.NewGalleryService(images, videos, service.NewGalleryCache(0)),
		Blobs:       store.Blobs(),
		RateCounter: rateCounter{},
	})

	server := httptest.NewServer(h.Routes())
	t.Cleanup(server.Close)
	return &fixture{server: server, gemini: gemini, store: store, gallery: images}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

type call struct {
	method string
	path   string
	body   any
	cookie *http.Cookie
}

func (f *fixture) do(t *testing.T, c call) (*http.Response, envelope) {
	t.Helper()
	var body bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(c.body))
	}
	req, err := http.NewRequest(c.method, f.server.URL+c.path, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	return f.send(t, req)
}

func (f *fixture) send(t *testing.T, req *http.Request) (*http.Response, envelope) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp, env
}

// login enters the sanctuary and returns the session cookie.
func (f *fixture) login(t *testing.T, name string) *http.Cookie {
	t.Helper()
	resp, _ := f.do(t, call{method: http.MethodPost, path: "/api/session", body: map[string]string{"username": name, "password": "ignored"}})
	require.Contains(t, []int{http.StatusOK, http.StatusCreated}, resp.StatusCode)
	for _, c := range resp.Cookies() {
		if c.Name == config.SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func dataURL(m domain.Media) string { return storage.EncodeDataURL(m) }

func TestSession(t *testing.T) {
	f := newFixture(t)

	resp, env := f.do(t, call{method: http.MethodPost, path: "/api/session", body: map[string]string{"username": "  nova  "}})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "nova", decodeData[domain.Creator](t, env).Username)

	resp, _ = f.do(t, call{method: http.MethodPost, path: "/api/session", body: map[string]string{"username": "nova"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env = f.do(t, call{method: http.MethodPost, path: "/api/session", body: map[string]string{"username": "   "}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)

	cookie := f.login(t, "nova")
	resp, env = f.do(t, call{method: http.MethodGet, path: "/api/session", cookie: cookie})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nova", decodeData[domain.Creator](t, env).Username)

	resp, _ = f.do(t, call{method: http.MethodGet, path: "/api/session"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = f.do(t, call{method: http.MethodDelete, path: "/api/session", cookie: cookie})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestMalformedBody(t *testing.T) {
	f := newFixture(t)
	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/api/session", strings.NewReader("{not json"))
	require.NoError(t, err)
	resp, env := f.send(t, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "BAD_REQUEST", env.Error.Code)
}

func TestStars(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "nova")

	resp, env := f.do(t, call{method: http.MethodGet, path: "/api/stars", cookie: cookie})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeData[[]domain.StarSystem](t, env), 7)

	resp, env = f.do(t, call{method: http.MethodGet, path: "/api/stars/lyra", cookie: cookie})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "lyra", decodeData[domain.StarSystem](t, env).ID)

	resp, _ = f.do(t, call{method: http.MethodGet, path: "/api/stars/vega", cookie: cookie})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, env = f.do(t, call{method: http.MethodGet, path: "/api/stars/orion/prompts", cookie: cookie})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	prompts := decodeData[starPrompts](t, env)
	assert.Contains(t, prompts.Vision, "A vision of a being from the star system")
	assert.Contains(t, prompts.Animation, "comes to life")

	resp, _ = f.do(t, call{method: http.MethodGet, path: "/api/stars"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLinkAndRemoveImage(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "nova")
	image := domain.Media{Data: pngBytes, MIMEType: "image/png"}

	resp, env := f.do(t, call{method: http.MethodPost, path: "/api/stars/sirius/image", cookie: cookie,
		body: map[string]string{"image": dataURL(image)}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, dataURL(image), decodeData[domain.StarSystem](t, env).Image)

	resp, env = f.do(t, call{method: http.MethodGet, path: "/api/stars/sirius/media", cookie: cookie})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{dataURL(image)}, decodeData[starMedia](t, env).Images)

	resp, _ = f.do(t, call{method: http.MethodDelete, path: "/api/stars/sirius/media/3", cookie: cookie})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, call{method: http.MethodDelete, path: "/api/stars/sirius/media/x", cookie: cookie})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, env = f.do(t, call{method: http.MethodDelete, path: "/api/stars/sirius/media/0", cookie: cookie})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEqual(t, dataURL(image), decodeData[domain.StarSystem](t, env).Image)

	resp, _ = f.do(t, call{method: http.MethodPost, path: "/api/stars/sirius/image", cookie: cookie,
		body: map[string]string{"image": "data:video/mp4;base64,AAAA"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServeStarVideo(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "nova")

	resp, _ := f.do(t, call{method: http.MethodGet, path: "/api/media/videos/lyra", cookie: cookie})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	url, err := f.store.Blobs().Save(context.Background(), "nova", "lyra", domain.Media{Data: []byte("0123456789"), MIMEType: "video/mp4"})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, f.server.URL+url, nil)
	require.NoError(t, err)
	req.AddCookie(cookie)
	req.Header.Set("Range", "bytes=2-5")
	resp, _ = f.send(t, req)
	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, "video/mp4", resp.Header.Get("Content-Type"))
}

func TestForge(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "nova")

	tests := []struct {
		name     string
		body     map[string]string
		imageErr error
		empty    bool
		status   int
		code     string
	}{
		{name: "success", body: map[string]string{"prompt": "a nebula", "aspectRatio": "16:9"}, status: http.StatusOK},
		{name: "empty prompt", body: map[string]string{"prompt": " "}, status: http.StatusBadRequest, code: "BAD_REQUEST"},
		{name: "bad aspect", body: map[string]string{"prompt": "a nebula", "aspectRatio": "2:1"}, status: http.StatusBadRequest, code: "BAD_REQUEST"},
		{name: "empty nebula", body: map[string]string{"prompt": "a nebula"}, empty: true, status: http.StatusBadGateway, code: "UPSTREAM_ERROR"},
		{name: "vendor failure", body: map[string]string{"prompt": "a nebula"}, imageErr: errors.New("quota"), status: http.StatusBadGateway, code: "UPSTREAM_ERROR"},
		{name: "invalid key", body: map[string]string{"prompt": "a nebula"}, imageErr: domain.ErrInvalidAPIKey, status: http.StatusBadGateway, code: "INVALID_API_KEY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.gemini.set(func(g *fakeGemini) {
				g.imageErr = tt.imageErr
				g.image = domain.Media{Data: pngBytes, MIMEType: "image/png"}
				if tt.empty {
					g.image = domain.Media{}
				}
			})

			resp, env := f.do(t, call{method: http.MethodPost, path: "/api/chambers/forge", cookie: cookie, body: tt.body})
			assert.Equal(t, tt.status, resp.StatusCode)
			result := decodeData[service.ChamberResult](t, env)
			if tt.code == "" {
				assert.Equal(t, domain.ChamberSuccess, result.Status)
				assert.True(t, strings.HasPrefix(result.Image, "data:image/png;base64,"))
				return
			}
			assert.Equal(t, domain.ChamberError, result.Status)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestWeaveMultipart(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "nova")

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("prompt", "add a second moon"))
	part, err := form.CreateFormFile("image", "moon.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req, err := http.NewRequest(http.MethodPost, f.server.URL+"/api/chambers/weaver", &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.AddCookie(cookie)

	resp, env := f.send(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.ChamberSuccess, decodeData[service.ChamberResult](t, env).Status)

	resp, env = f.do(t, call{method: http.MethodPost, path: "/api/chambers/weaver", cookie: cookie, body: map[string]string{"prompt": "x"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, domain.ChamberError, decodeData[service.ChamberResult](t, env).Status)
}

func TestAnimatorJobs(t *testing.T) {
	f := newFixture(t)
	nova := f.login(t, "nova")
	comet := f.login(t, "comet")
	image := dataURL(domain.Media{Data: pngBytes, MIMEType: "image/png"})

	resp, env := f.do(t, call{method: http.MethodPost, path: "/api/chambers/animator", cookie: nova,
		body: map[string]string{"image": image, "prompt": "drift", "aspectRatio": "9:16"}})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	job := decodeData[domain.VideoJob](t, env)
	assert.Equal(t, "9:16", job.AspectRatio)
	assert.Equal(t, domain.JobStatusGenerating, job.Status)

	resp, _ = f.do(t, call{method: http.MethodGet, path: "/api/chambers/animator/jobs/" + job.ID, cookie: nova})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.do(t, call{method: http.MethodGet, path: "/api/chambers/animator/jobs/" + job.ID, cookie: comet})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, call{method: http.MethodGet, path: "/api/chambers/animator/jobs/" + job.ID + "/video", cookie: nova})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, env = f.do(t, call{method: http.MethodDelete, path: "/api/chambers/animator/jobs/" + job.ID, cookie: nova})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.JobStatusCanceled, decodeData[domain.VideoJob](t, env).Status)

	resp, _ = f.do(t, call{method: http.MethodPost, path: "/api/chambers/animator", cookie: nova,
		body: map[string]string{"prompt": "drift"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = f.do(t, call{method: http.MethodPost, path: "/api/chambers/animator", cookie: nova,
		body: map[string]string{"image": image, "prompt": "drift", "aspectRatio": "1:1"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOracle(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "nova")

	resp, env := f.do(t, call{method: http.MethodGet, path: "/api/oracle/reflect", cookie: cookie})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeData[reflectResponse](t, env).Messages)

	resp, env = f.do(t, call{method: http.MethodPost, path: "/api/oracle/reflect", cookie: cookie, body: map[string]string{"prompt": "who am I?"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	msgs := decodeData[reflectResponse](t, env).Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, "The stars hum back.", msgs[1].Text)

	resp, env = f.do(t, call{method: http.MethodGet, path: "/api/oracle/reflect", cookie: cookie})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decodeData[reflectResponse](t, env).Messages, 2)

	resp, env = f.do(t, call{method: http.MethodPost, path: "/api/oracle/ask", cookie: cookie, body: map[string]any{"question": "why?", "detailed": true}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "The stars hum back.", decodeData[oracleAnswer](t, env).Text)

	resp, _ = f.do(t, call{method: http.MethodPost, path: "/api/oracle/transmission", cookie: cookie,
		body: map[string]string{"image": "data:application/pdf;base64,AAAA"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	f.gemini.set(func(g *fakeGemini) { g.textErr = errors.New("static") })
	resp, env = f.do(t, call{method: http.MethodPost, path: "/api/oracle/transmission", cookie: cookie,
		body: map[string]string{"image": dataURL(domain.Media{Data: pngBytes, MIMEType: "image/png"})}})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, env.Error.Message, "veil of static")
}

func TestGallery(t *testing.T) {
	f := newFixture(t)
	f.gallery.Put("nova/lyra/1700000000000-abc.png", pngBytes, time.Now())

	resp, env := f.do(t, call{method: http.MethodGet, path: "/api/gallery"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	gallery := decodeData[domain.Gallery](t, env)
	require.Len(t, gallery.Images, 1)
	assert.Equal(t, "lyra", gallery.Images[0].StarID)
	assert.Empty(t, gallery.Videos)
}

func TestDisabledIntegrations(t *testing.T) {
	h := New(Deps{
		Cfg:       &config.Config{},
		Creators:  service.NewCreatorService(&creatorRepo{creators: map[string]*domain.Creator{}}, nil),
		Sanctuary: service.NewSanctuary(nil, nil, nil),
		Oracle:    service.NewOracle(&fakeGemini{}),
	})
	server := httptest.NewServer(h.Routes())
	defer server.Close()
	f := &fixture{server: server}

	resp, env := f.do(t, call{method: http.MethodGet, path: "/api/gallery"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "SERVICE_UNAVAILABLE", env.Error.Code)

	resp, _ = f.do(t, call{method: http.MethodPost, path: "/api/checkout", body: map[string]string{"username": "nova", "origin": "https://cosmic.test"}})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, _ = f.do(t, call{method: http.MethodGet, path: "/api/checkout/status?session_id=cs_1"})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, env = f.do(t, call{method: http.MethodGet, path: "/api/health"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	health := decodeData[healthStatus](t, env)
	assert.False(t, health.Cloud)
	assert.False(t, health.Payments)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthDatabaseDown(t *testing.T) {
	h := New(Deps{Cfg: &config.Config{}, Creators: service.NewCreatorService(&creatorRepo{}, nil), DB: failingPinger{}})
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLogoutForgetsTranscript(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "nova")

	f.do(t, call{method: http.MethodPost, path: "/api/oracle/reflect", cookie: cookie, body: map[string]string{"prompt": "hello"}})
	f.do(t, call{method: http.MethodDelete, path: "/api/session", cookie: cookie})

	cookie = f.login(t, "nova")
	_, env := f.do(t, call{method: http.MethodGet, path: "/api/oracle/reflect", cookie: cookie})
	assert.Empty(t, decodeData[reflectResponse](t, env).Messages)
}

func TestSessionCookieRoundTrip(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "star seed ✦")
	assert.Equal(t, middleware.SessionCookie("star seed ✦").Value, cookie.Value)

	resp, env := f.do(t, call{method: http.MethodGet, path: "/api/session", cookie: cookie})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "star seed ✦", decodeData[domain.Creator](t, env).Username)
}
