package auth

import (
	"log/slog"
	"net/http"
	"strings"
)

const (
	actorIDHeader    = "X-Actor-ID"
	departmentHeader = "X-Actor-Department"
)

// Middleware extracts the acting user's identity from request headers and
// injects an ActorContext into the request context.
//
// Requests without identity headers proceed without an actor context;
// handlers mutating workflow state must check for it (RequireActor) while
// read-only endpoints can serve anonymous requests.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID := strings.TrimSpace(r.Header.Get(actorIDHeader))
			department := strings.TrimSpace(r.Header.Get(departmentHeader))

			if actorID == "" {
				slog.Debug("no actor identity on request", "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			ac := &ActorContext{ActorID: actorID, Department: department}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), ac)))
		})
	}
}

// RequireActor returns the request's ActorContext, writing a 401 response
// and returning nil when the request carries no identity.
func RequireActor(w http.ResponseWriter, r *http.Request) *ActorContext {
	ac := FromContext(r.Context())
	if ac == nil {
		http.Error(w, "actor identity required", http.StatusUnauthorized)
		return nil
	}
	return ac
}
