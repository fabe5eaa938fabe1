package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"tapboard/internal/app"
	"tapboard/internal/inventory"
)

// maxBody bounds JSON request bodies.
const maxBody = 1 << 20

type Server struct {
	App *app.App
}

// Routes mounts the JSON API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.Health)

	r.Route("/api", func(api chi.Router) {
		api.Use(s.App.MiddlewareNoCache)

		api.Get("/state", s.StateGet)
		api.With(s.App.MiddlewareLimitWrites).Put("/state", s.StatePut)
		api.Get("/state/revisions", s.StateRevisionsGet)
		api.Get("/state/revisions/{rev}", s.StateRevisionGet)

		api.Get("/color", s.ColorGet)

		api.Route("/admin", func(ad chi.Router) {
			ad.Use(s.App.MiddlewareLimitWrites)

			ad.Post("/taps", s.TapCreatePost)
			ad.Put("/taps/{tap}", s.TapUpdatePut)
			ad.Delete("/taps/{tap}", s.TapDelete)

			ad.Post("/types", s.TypeCreatePost)
			ad.Put("/types/{index}", s.TypeUpdatePut)
			ad.Delete("/types/{index}", s.TypeDelete)

			ad.Post("/glasses", s.GlassCreatePost)
			ad.Put("/glasses/{index}", s.GlassUpdatePut)
			ad.Delete("/glasses/{index}", s.GlassDelete)
		})

		api.Route("/pour", func(pr chi.Router) {
			pr.Use(s.App.MiddlewareClientID)

			pr.Get("/", s.PourGet)
			pr.Get("/events", s.PourEventsGet)
			pr.Post("/glass", s.PourGlassPost)
			pr.Post("/select", s.PourSelectPost)
			pr.Post("/drag/begin", s.PourDragBeginPost)
			pr.Post("/drag/update", s.PourDragUpdatePost)
			pr.Post("/drag/end", s.PourDragEndPost)
			pr.Post("/cancel", s.PourCancelPost)
			pr.Post("/commit", s.PourCommitPost)
			pr.Post("/undo", s.PourUndoPost)
			pr.Post("/refresh", s.PourRefreshPost)
		})
	})
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	if err := s.App.Ping(r.Context()); err != nil {
		http.Error(w, "store not ok", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

/* ---- helpers ---- */

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeInventoryError maps inventory sentinels onto status codes.
func (s *Server) writeInventoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, inventory.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, inventory.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.App.Logger().Error("inventory write failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to save state")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON: "+err.Error())
		return false
	}
	return true
}

func parseIndexParam(r *http.Request, key string) (int, bool) {
	v := strings.TrimSpace(chi.URLParam(r, key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil && n >= 0
}
