package pour

import (
	"fmt"
	"math"

	"tapboard/internal/inventory"
)

// Phase is the state of a pour session.
type Phase int

const (
	Idle Phase = iota
	Selected
	Dragging
	Settling
	// Committing: the quiescence timer fired (or the pour was forced) and
	// the write is in flight. Pointer input is ignored.
	Committing
)

var phaseNames = [...]string{"idle", "selected", "dragging", "settling", "committing"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(b []byte) error {
	for i, n := range phaseNames {
		if n == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// Session is one in-progress pour. The glass is copied at selection time and
// does not change for the life of the session.
type Session struct {
	id               uint64
	Tap              int
	Glass            inventory.Glass
	Fraction         float64
	RemainingAtStart float64
	Phase            Phase

	timer Timer
	arm   uint64 // bumped every time the timer is armed
}

// Poured is the volume the current fill level represents.
func (s *Session) Poured() float64 {
	return s.Fraction * s.Glass.Volume
}

// Remaining is the tap's remaining volume if the pour were committed now.
func (s *Session) Remaining() float64 {
	return math.Max(0, s.RemainingAtStart-s.Poured())
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
