package handlers

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"tapboard/internal/color"
	"tapboard/internal/inventory"
)

type tapResponse struct {
	Tap   int              `json:"tap"`
	State *inventory.State `json:"state"`
}

func (s *Server) mutate(ctx context.Context, w http.ResponseWriter, code int, fn func(*inventory.State) error) {
	st, err := s.App.Inventory().Mutate(ctx, fn)
	if err != nil {
		s.writeInventoryError(w, err)
		return
	}
	writeJSON(w, code, st)
}

/* ---------------- Taps ---------------- */

// TapCreatePost puts a beverage on the first empty tap, or tap 1 when every
// tap is taken.
func (s *Server) TapCreatePost(w http.ResponseWriter, r *http.Request) {
	var b inventory.Beverage
	if !decodeJSON(w, r, &b) {
		return
	}
	var tap int
	st, err := s.App.Inventory().Mutate(r.Context(), func(st *inventory.State) error {
		tap = st.AddBeverage(b)
		return nil
	})
	if err != nil {
		s.writeInventoryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tapResponse{Tap: tap, State: st})
}

func (s *Server) TapUpdatePut(w http.ResponseWriter, r *http.Request) {
	tap, ok := parseTap(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad tap")
		return
	}
	var b inventory.Beverage
	if !decodeJSON(w, r, &b) {
		return
	}
	s.mutate(r.Context(), w, http.StatusOK, func(st *inventory.State) error {
		return st.SetBeverage(tap, b)
	})
}

func (s *Server) TapDelete(w http.ResponseWriter, r *http.Request) {
	tap, ok := parseTap(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "bad tap")
		return
	}
	s.mutate(r.Context(), w, http.StatusOK, func(st *inventory.State) error {
		return st.ClearTap(tap)
	})
}

/* ---------------- Types ---------------- */

type nameInput struct {
	Name string `json:"name"`
}

func (s *Server) TypeCreatePost(w http.ResponseWriter, r *http.Request) {
	var in nameInput
	if !decodeJSON(w, r, &in) {
		return
	}
	s.mutate(r.Context(), w, http.StatusCreated, func(st *inventory.State) error {
		return st.AddType(in.Name)
	})
}

func (s *Server) TypeUpdatePut(w http.ResponseWriter, r *http.Request) {
	i, ok := parseIndexParam(r, "index")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad index")
		return
	}
	var in nameInput
	if !decodeJSON(w, r, &in) {
		return
	}
	s.mutate(r.Context(), w, http.StatusOK, func(st *inventory.State) error {
		return st.UpdateType(i, in.Name)
	})
}

func (s *Server) TypeDelete(w http.ResponseWriter, r *http.Request) {
	i, ok := parseIndexParam(r, "index")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad index")
		return
	}
	s.mutate(r.Context(), w, http.StatusOK, func(st *inventory.State) error {
		return st.DeleteType(i)
	})
}

/* ---------------- Glasses ---------------- */

func (s *Server) GlassCreatePost(w http.ResponseWriter, r *http.Request) {
	var g inventory.Glass
	if !decodeJSON(w, r, &g) {
		return
	}
	s.mutate(r.Context(), w, http.StatusCreated, func(st *inventory.State) error {
		return st.AddGlass(g)
	})
}

func (s *Server) GlassUpdatePut(w http.ResponseWriter, r *http.Request) {
	i, ok := parseIndexParam(r, "index")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad index")
		return
	}
	var g inventory.Glass
	if !decodeJSON(w, r, &g) {
		return
	}
	s.mutate(r.Context(), w, http.StatusOK, func(st *inventory.State) error {
		return st.UpdateGlass(i, g)
	})
}

func (s *Server) GlassDelete(w http.ResponseWriter, r *http.Request) {
	i, ok := parseIndexParam(r, "index")
	if !ok {
		writeError(w, http.StatusBadRequest, "bad index")
		return
	}
	s.mutate(r.Context(), w, http.StatusOK, func(st *inventory.State) error {
		return st.DeleteGlass(i)
	})
}

/* ---------------- Color ---------------- */

func (s *Server) ColorGet(w http.ResponseWriter, r *http.Request) {
	ebc, err := strconv.ParseFloat(r.URL.Query().Get("ebc"), 64)
	if err != nil || math.IsNaN(ebc) || math.IsInf(ebc, 0) {
		writeError(w, http.StatusBadRequest, "ebc must be a number")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ebc": ebc, "color": color.FromEBC(ebc)})
}

// parseTap accepts "2" or "line2".
func parseTap(r *http.Request) (int, bool) {
	v := strings.TrimSpace(chi.URLParam(r, "tap"))
	if n, ok := inventory.TapNumber(v); ok {
		return n, true
	}
	n, err := strconv.Atoi(v)
	return n, err == nil && n > 0
}
