package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"tapboard/internal/inventory"
)

func (s *Server) StateGet(w http.ResponseWriter, r *http.Request) {
	st, err := s.App.Inventory().Get(r.Context())
	if errors.Is(err, inventory.ErrNoDocument) {
		writeError(w, http.StatusNotFound, "No state stored")
		return
	}
	if err != nil {
		s.App.Logger().Error("read state failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to read state")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// StatePut replaces the whole document. Last write wins.
func (s *Server) StatePut(w http.ResponseWriter, r *http.Request) {
	var st inventory.State
	if !decodeJSON(w, r, &st) {
		return
	}
	if err := s.App.Inventory().Put(r.Context(), &st); err != nil {
		s.writeInventoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) StateRevisionsGet(w http.ResponseWriter, r *http.Request) {
	h := s.App.History()
	if h == nil {
		writeError(w, http.StatusNotFound, "History needs the sqlite store")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	revs, err := h.Revisions(r.Context(), limit)
	if err != nil {
		s.App.Logger().Error("list revisions failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to read history")
		return
	}
	writeJSON(w, http.StatusOK, revs)
}

func (s *Server) StateRevisionGet(w http.ResponseWriter, r *http.Request) {
	h := s.App.History()
	if h == nil {
		writeError(w, http.StatusNotFound, "History needs the sqlite store")
		return
	}
	rev, ok := parseIndexParam(r, "rev")
	if !ok || rev == 0 {
		writeError(w, http.StatusBadRequest, "bad revision")
		return
	}
	st, err := h.Revision(r.Context(), int64(rev))
	if errors.Is(err, inventory.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		s.App.Logger().Error("read revision failed", "rev", rev, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to read history")
		return
	}
	writeJSON(w, http.StatusOK, st)
}
