package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"cookbook/internal/auth"
	applog "cookbook/internal/log"
	"cookbook/internal/store"
)

// HeaderRequestID carries the id assigned to every request.
const HeaderRequestID = "X-Request-ID"

var (
	stores   *store.Stores
	database *gorm.DB
)

// Configure installs the shared dependencies used by the HTTP handlers.
func Configure(s *store.Stores, db *gorm.DB) {
	stores = s
	database = db
}

// RequireToken resolves the request token into the caller's user context
// before handing the request on. Requests without a valid token get 401.
func RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utx, err := auth.FromToken(auth.TokenFromRequest(r))
		if err != nil {
			applog.Debug(r.Context(), "rejecting request without valid token", "path", r.URL.Path, "error", err)
			writeJSONError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), utx)))
	})
}

// RequestID assigns each request a uuid, echoes it in the response header and
// attaches it to the request context for logging. A well-formed incoming id
// is kept.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)

		ctx := applog.WithRequestID(r.Context(), id)
		applog.Debug(ctx, "request received", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func currentUser(r *http.Request) (auth.UserCtx, bool) {
	return auth.FromContext(r.Context())
}
