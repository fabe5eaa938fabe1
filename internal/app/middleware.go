package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type ctxKey string

const ctxKeyClient ctxKey = "client"

// ClientCookie names the cookie carrying the pour client id.
const ClientCookie = "tb_client"

func (a *App) middlewareClientID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(ClientCookie); err == nil {
			if u, err := uuid.Parse(c.Value); err == nil {
				id = u.String()
			}
		}
		if id == "" {
			id = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     ClientCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int((365 * 24 * time.Hour).Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := context.WithValue(r.Context(), ctxKeyClient, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *App) middlewareNoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// middlewareLimitWrites refuses non-GET requests beyond the configured rate.
func (a *App) middlewareLimitWrites(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.limiter != nil && r.Method != http.MethodGet && r.Method != http.MethodHead && !a.limiter.Allow() {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Too many writes"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientID returns the id set by the client middleware, or "".
func ClientID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKeyClient).(string)
	return id
}

// Exported wrappers so router wiring can live outside the app package (no handlers import cycle).
func (a *App) MiddlewareClientID(next http.Handler) http.Handler { return a.middlewareClientID(next) }

func (a *App) MiddlewareNoCache(next http.Handler) http.Handler { return a.middlewareNoCache(next) }

func (a *App) MiddlewareLimitWrites(next http.Handler) http.Handler {
	return a.middlewareLimitWrites(next)
}
