package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/set-night/cosmiccreator/internal/config"
	"github.com/set-night/cosmiccreator/internal/domain"
	"github.com/set-night/cosmiccreator/internal/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(mark("m1"), mark("m2"), mark("m3"))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"m1", "m2", "m3", "handler"}, order)
}

func TestRecover(t *testing.T) {
	h := Recover()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("supernova")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
}

func TestLoggingKeepsStatus(t *testing.T) {
	h := Logging()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		origin      string
		wantOrigin  string
		wantCredits bool
	}{
		{name: "wildcard", allowed: []string{"*"}, origin: "https://a.test", wantOrigin: "*"},
		{name: "empty list", allowed: nil, origin: "https://a.test", wantOrigin: "*"},
		{name: "listed", allowed: []string{"https://a.test"}, origin: "https://a.test", wantOrigin: "https://a.test", wantCredits: true},
		{name: "not listed", allowed: []string{"https://a.test"}, origin: "https://b.test", wantOrigin: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			CORS(tt.allowed)(okHandler).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCredits, rec.Header().Get("Access-Control-Allow-Credentials") == "true")
		})
	}

	rec := httptest.NewRecorder()
	CORS(nil)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/stars", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

type fakeFinder map[string]*domain.Creator

func (f fakeFinder) GetByUsername(_ context.Context, name string) (*domain.Creator, error) {
	if name == "broken" {
		return nil, errors.New("db down")
	}
	c, ok := f[name]
	if !ok {
		return nil, domain.ErrCreatorNotFound
	}
	return c, nil
}

func TestCreatorLoader(t *testing.T) {
	finder := fakeFinder{
		"nova":        {ID: 7, Username: "nova"},
		"star seed ✦": {ID: 8, Username: "star seed ✦"},
	}

	var seen *domain.Creator
	h := CreatorLoader(finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCreator(r.Context())
	}))

	tests := []struct {
		name   string
		cookie string
		want   *domain.Creator
	}{
		{name: "known", cookie: "nova", want: finder["nova"]},
		{name: "escaped name", cookie: "star seed ✦", want: finder["star seed ✦"]},
		{name: "unknown", cookie: "ghost"},
		{name: "store failure", cookie: "broken"},
		{name: "no cookie"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(SessionCookie(tt.cookie))
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			assert.Equal(t, tt.want, seen)
		})
	}
}

func TestSessionCookies(t *testing.T) {
	set := SessionCookie("nova")
	assert.Equal(t, config.SessionCookie, set.Name)
	assert.True(t, set.HttpOnly)
	assert.Positive(t, set.MaxAge)

	clear := ClearSessionCookie()
	assert.Equal(t, config.SessionCookie, clear.Name)
	assert.Negative(t, clear.MaxAge)
}

func TestRequireCreator(t *testing.T) {
	rec := httptest.NewRecorder()
	RequireCreator(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithCreator(req.Context(), &domain.Creator{ID: 1, Username: "nova"}))
	rec = httptest.NewRecorder()
	RequireCreator(okHandler).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

type fakeCounter struct {
	counts map[int64]int32
	err    error
}

func (c *fakeCounter) CheckAndIncrementRateLimit(_ context.Context, id int64) (int32, error) {
	if c.err != nil {
		return 0, c.err
	}
	c.counts[id]++
	return c.counts[id], nil
}

func TestRateLimit(t *testing.T) {
	counter := &fakeCounter{counts: map[int64]int32{}}
	h := RateLimit(counter, 2)(okHandler)

	do := func(c *domain.Creator) int {
		req := httptest.NewRequest(http.MethodPost, "/api/chambers/forge", nil)
		if c != nil {
			req = req.WithContext(WithCreator(req.Context(), c))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	nova := &domain.Creator{ID: 1, Username: "nova"}
	assert.Equal(t, http.StatusOK, do(nova))
	assert.Equal(t, http.StatusOK, do(nova))
	assert.Equal(t, http.StatusTooManyRequests, do(nova))
	assert.Equal(t, http.StatusOK, do(&domain.Creator{ID: 2, Username: "comet"}))
	assert.Equal(t, http.StatusOK, do(nil))

	counter.err = errors.New("db down")
	assert.Equal(t, http.StatusOK, do(nova))
}
