package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/set-night/cosmiccreator/internal/response"
)

// RateCounter is implemented by repository.Queries.
type RateCounter interface {
	CheckAndIncrementRateLimit(ctx context.Context, creatorID int64) (int32, error)
}

// RateLimit returns middleware that enforces a per-creator, per-minute
// limit. Anonymous requests and counter failures pass through.
func RateLimit(counter RateCounter, limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creator := GetCreator(r.Context())
			if creator == nil || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			count, err := counter.CheckAndIncrementRateLimit(r.Context(), creator.ID)
			if err != nil {
				slog.Error("rate limit check failed", "error", err, "creator", creator.Username)
				next.ServeHTTP(w, r)
				return
			}

			if int(count) > limit {
				slog.Debug("rate limited", "creator", creator.Username, "count", count, "limit", limit)
				response.RateLimited(w, "The cosmos needs a moment. Please wait before creating again.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
