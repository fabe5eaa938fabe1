package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"tapboard/internal/app"
	"tapboard/internal/pour"
)

// writeTimeout bounds commit, undo and refresh. The client going away does
// not cancel a write already issued.
const writeTimeout = 10 * time.Second

type pourError struct {
	Error string    `json:"error"`
	View  pour.View `json:"view"`
}

type pointerInput struct {
	Offset float64 `json:"offset"`
	Height float64 `json:"height"`
}

func (s *Server) engine(r *http.Request) *pour.Engine {
	return s.App.Pours().Engine(r.Context(), app.ClientID(r))
}

func writeView(w http.ResponseWriter, e *pour.Engine) {
	writeJSON(w, http.StatusOK, e.Snapshot())
}

// writePourResult reports err with the view the engine settled on.
func writePourResult(w http.ResponseWriter, e *pour.Engine, err error) {
	if err == nil {
		writeView(w, e)
		return
	}
	code := http.StatusBadGateway
	var fe *pour.FetchError
	switch {
	case errors.Is(err, pour.ErrTapVacant):
		code = http.StatusConflict
	case errors.As(err, &fe):
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, pourError{Error: err.Error(), View: e.Snapshot()})
}

func detached(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), writeTimeout)
}

func (s *Server) PourGet(w http.ResponseWriter, r *http.Request) {
	writeView(w, s.engine(r))
}

func (s *Server) PourGlassPost(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Index int `json:"index"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	e := s.engine(r)
	e.SelectGlass(in.Index)
	writeView(w, e)
}

func (s *Server) PourSelectPost(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Tap int `json:"tap"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}
	e := s.engine(r)
	e.SelectBeverage(in.Tap)
	writeView(w, e)
}

func (s *Server) PourDragBeginPost(w http.ResponseWriter, r *http.Request) {
	var in pointerInput
	if !decodeJSON(w, r, &in) {
		return
	}
	e := s.engine(r)
	e.BeginDrag(in.Offset, in.Height)
	writeView(w, e)
}

func (s *Server) PourDragUpdatePost(w http.ResponseWriter, r *http.Request) {
	var in pointerInput
	if !decodeJSON(w, r, &in) {
		return
	}
	e := s.engine(r)
	e.UpdateDrag(in.Offset, in.Height)
	writeView(w, e)
}

func (s *Server) PourDragEndPost(w http.ResponseWriter, r *http.Request) {
	e := s.engine(r)
	e.EndDrag()
	writeView(w, e)
}

func (s *Server) PourCancelPost(w http.ResponseWriter, r *http.Request) {
	e := s.engine(r)
	e.Cancel()
	writeView(w, e)
}

// PourCommitPost pours the current session without waiting for the timer.
func (s *Server) PourCommitPost(w http.ResponseWriter, r *http.Request) {
	e := s.engine(r)
	ctx, cancel := detached(r)
	defer cancel()
	writePourResult(w, e, e.Commit(ctx))
}

func (s *Server) PourUndoPost(w http.ResponseWriter, r *http.Request) {
	e := s.engine(r)
	ctx, cancel := detached(r)
	defer cancel()
	writePourResult(w, e, e.Undo(ctx))
}

func (s *Server) PourRefreshPost(w http.ResponseWriter, r *http.Request) {
	e := s.engine(r)
	ctx, cancel := detached(r)
	defer cancel()
	writePourResult(w, e, e.Refresh(ctx))
}
