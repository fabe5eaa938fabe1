package inventory

import (
	"fmt"
	"strings"

	"tapboard/internal/color"
)

// Normalize trims text fields and derives the display color from EBC when
// none was given.
func (b *Beverage) Normalize() {
	b.Name = strings.TrimSpace(b.Name)
	b.Type = strings.TrimSpace(b.Type)
	b.Description = strings.TrimSpace(b.Description)
	b.Color = strings.TrimSpace(b.Color)
	if b.Color == "" {
		b.Color = color.FromEBC(b.EBC)
	}
}

/* ---------------- Taps ---------------- */

// AddBeverage puts b on the first empty tap, or tap 1 when all are taken.
// Taps 1..DefaultTaps always exist; a missing key counts as empty.
func (s *State) AddBeverage(b Beverage) int {
	last := DefaultTaps
	if taps := s.Taps(); len(taps) > 0 && taps[len(taps)-1] > last {
		last = taps[len(taps)-1]
	}
	tap := 1
	for n := 1; n <= last; n++ {
		if s.Beverage(n) == nil {
			tap = n
			break
		}
	}
	_ = s.SetBeverage(tap, b)
	return tap
}

func (s *State) SetBeverage(tap int, b Beverage) error {
	if tap <= 0 {
		return fmt.Errorf("%w: tap %d", ErrNotFound, tap)
	}
	b.Normalize()
	if s.OnTap == nil {
		s.OnTap = map[string]*Beverage{}
	}
	s.OnTap[TapKey(tap)] = &b
	return nil
}

// ClearTap empties a tap slot but keeps the slot itself.
func (s *State) ClearTap(tap int) error {
	key := TapKey(tap)
	if _, ok := s.OnTap[key]; !ok {
		return fmt.Errorf("%w: tap %d", ErrNotFound, tap)
	}
	s.OnTap[key] = nil
	return nil
}

/* ---------------- Types ---------------- */

func (s *State) AddType(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: type name is required", ErrInvalid)
	}
	s.Types = append(s.Types, name)
	return nil
}

func (s *State) UpdateType(i int, name string) error {
	if i < 0 || i >= len(s.Types) {
		return fmt.Errorf("%w: type %d", ErrNotFound, i)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: type name is required", ErrInvalid)
	}
	s.Types[i] = name
	return nil
}

func (s *State) DeleteType(i int) error {
	if i < 0 || i >= len(s.Types) {
		return fmt.Errorf("%w: type %d", ErrNotFound, i)
	}
	s.Types = append(s.Types[:i:i], s.Types[i+1:]...)
	return nil
}

/* ---------------- Glasses ---------------- */

func (s *State) AddGlass(g Glass) error {
	g.Name = strings.TrimSpace(g.Name)
	if err := g.Validate(); err != nil {
		return err
	}
	s.GlassTypes = append(s.GlassTypes, g)
	return nil
}

func (s *State) UpdateGlass(i int, g Glass) error {
	if i < 0 || i >= len(s.GlassTypes) {
		return fmt.Errorf("%w: glass %d", ErrNotFound, i)
	}
	g.Name = strings.TrimSpace(g.Name)
	if err := g.Validate(); err != nil {
		return err
	}
	s.GlassTypes[i] = g
	return nil
}

func (s *State) DeleteGlass(i int) error {
	if i < 0 || i >= len(s.GlassTypes) {
		return fmt.Errorf("%w: glass %d", ErrNotFound, i)
	}
	s.GlassTypes = append(s.GlassTypes[:i:i], s.GlassTypes[i+1:]...)
	return nil
}
