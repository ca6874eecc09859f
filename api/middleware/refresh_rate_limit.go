package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/httprate"

	"github.com/angelmondragon/footfall-dashboard/api/responses"
	pkgerrors "github.com/angelmondragon/footfall-dashboard/pkg/errors"
	"github.com/angelmondragon/footfall-dashboard/pkg/logger"
)

// RefreshRateLimit caps requests that fan out to the aggregation API, keyed by session and
// falling back to the client IP. A non-positive limit disables it.
func RefreshRateLimit(limit int, window time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if limit <= 0 || window <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(refreshLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			err := pkgerrors.New(pkgerrors.CodeRateLimit, "too many refreshes").
				WithDetails(map[string]any{"window_seconds": int(window.Seconds())})
			responses.WriteError(r.Context(), logg, w, err)
		}),
	)
}

func refreshLimitKey(r *http.Request) (string, error) {
	if id := strings.TrimSpace(SessionIDFromContext(r.Context())); id != "" {
		return "session:" + id, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
