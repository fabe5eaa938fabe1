package pour

import "tapboard/internal/inventory"

type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// View is everything a presentation layer needs to draw one client.
type View struct {
	Status        Status            `json:"status"`
	Error         string            `json:"error,omitempty"`
	Taps          []TapView         `json:"taps"`
	Types         []string          `json:"types"`
	Glasses       []inventory.Glass `json:"glasses"`
	SelectedGlass int               `json:"selectedGlass"`
	Session       *SessionView      `json:"session,omitempty"`
	Undo          *UndoRecord       `json:"undo,omitempty"`
}

type TapView struct {
	Tap      int                 `json:"tap"`
	Beverage *inventory.Beverage `json:"beverage"`
	// Shadowed is set while RemainingLiters shows an uncommitted local value.
	Shadowed bool `json:"shadowed,omitempty"`
}

type SessionView struct {
	Tap              int             `json:"tap"`
	Glass            inventory.Glass `json:"glass"`
	Phase            Phase           `json:"phase"`
	Fraction         float64         `json:"fraction"`
	RemainingAtStart float64         `json:"remainingAtStart"`
	Poured           float64         `json:"poured"`
	PendingCommit    bool            `json:"pendingCommit"`
}

// Remaining returns the remaining liters shown for tap, shadow included.
func (v View) Remaining(tap int) (float64, bool) {
	for _, t := range v.Taps {
		if t.Tap == tap && t.Beverage != nil {
			return t.Beverage.RemainingLiters, true
		}
	}
	return 0, false
}

// Phase returns the session phase, Idle when there is no session.
func (v View) Phase() Phase {
	if v.Session == nil {
		return Idle
	}
	return v.Session.Phase
}
