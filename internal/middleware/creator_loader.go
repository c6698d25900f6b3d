package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/set-night/cosmiccreator/internal/config"
	"github.com/set-night/cosmiccreator/internal/domain"
	"github.com/set-night/cosmiccreator/internal/response"
)

type ctxKey string

const CreatorKey ctxKey = "creator"

// CreatorFinder is implemented by service.CreatorService.
type CreatorFinder interface {
	GetByUsername(ctx context.Context, name string) (*domain.Creator, error)
}

// GetCreator extracts the logged in creator from context.
func GetCreator(ctx context.Context) *domain.Creator {
	c, ok := ctx.Value(CreatorKey).(*domain.Creator)
	if !ok {
		return nil
	}
	return c
}

// WithCreator stores the creator in ctx.
func WithCreator(ctx context.Context, c *domain.Creator) context.Context {
	return context.WithValue(ctx, CreatorKey, c)
}

// CreatorLoader returns middleware that resolves the session cookie to a
// creator. Requests without a valid session pass through anonymously.
func CreatorLoader(creators CreatorFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name := sessionName(r)
			if name == "" {
				next.ServeHTTP(w, r)
				return
			}

			creator, err := creators.GetByUsername(r.Context(), name)
			if err != nil {
				if !errors.Is(err, domain.ErrCreatorNotFound) {
					slog.Error("load creator", "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCreator(r.Context(), creator)))
		})
	}
}

// SessionCookie names the creator of the session. Names are escaped so any
// creator name survives cookie sanitizing.
func SessionCookie(username string) *http.Cookie {
	return &http.Cookie{
		Name:     config.SessionCookie,
		Value:    url.QueryEscape(username),
		Path:     "/",
		MaxAge:   int(config.SessionLifetime.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearSessionCookie ends the session.
func ClearSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     config.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func sessionName(r *http.Request) string {
	cookie, err := r.Cookie(config.SessionCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}
	name, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return ""
	}
	return name
}

// RequireCreator rejects requests without a logged in creator.
func RequireCreator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetCreator(r.Context()) == nil {
			response.Unauthorized(w, "Please enter the sanctuary first.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
