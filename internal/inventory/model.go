// Package inventory holds the tap board document: beverages on tap,
// beverage categories and glass definitions. The document is always read
// and written as a whole.
package inventory

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

const tapPrefix = "line"

// volumeTolerance absorbs float noise from client-side arithmetic.
const volumeTolerance = 1e-9

type Beverage struct {
	Name            string  `json:"name" yaml:"name"`
	Type            string  `json:"type" yaml:"type"`
	ABV             float64 `json:"abv" yaml:"abv"`
	IBU             int     `json:"ibu" yaml:"ibu"`
	EBC             float64 `json:"ebc" yaml:"ebc"`
	Color           string  `json:"color" yaml:"color"`
	Description     string  `json:"description" yaml:"description"`
	Liters          float64 `json:"liters" yaml:"liters"`
	RemainingLiters float64 `json:"remainingLiters" yaml:"remainingLiters"`
}

type Glass struct {
	Name   string  `json:"name" yaml:"name"`
	Volume float64 `json:"volume" yaml:"volume"`
}

// State is the full inventory document. A nil OnTap entry is an empty tap.
type State struct {
	OnTap      map[string]*Beverage `json:"onTap" yaml:"onTap"`
	Types      []string             `json:"types" yaml:"types"`
	GlassTypes []Glass              `json:"glassTypes" yaml:"glassTypes"`
}

// TapKey returns the document key for tap number n.
func TapKey(n int) string { return tapPrefix + strconv.Itoa(n) }

// TapNumber parses a document key such as "line2".
func TapNumber(key string) (int, bool) {
	if !strings.HasPrefix(key, tapPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(key, tapPrefix))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func (b *Beverage) Clone() *Beverage {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}

// Clone returns a deep copy so callers can mutate it freely.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	out := &State{
		OnTap:      make(map[string]*Beverage, len(s.OnTap)),
		Types:      append([]string(nil), s.Types...),
		GlassTypes: append([]Glass(nil), s.GlassTypes...),
	}
	for k, b := range s.OnTap {
		out.OnTap[k] = b.Clone()
	}
	return out
}

// Taps returns tap numbers present in the document (empty slots included),
// in ascending order.
func (s *State) Taps() []int {
	var out []int
	for k := range s.OnTap {
		if n, ok := TapNumber(k); ok {
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}

// Beverage returns the beverage on tap n, or nil for an empty or unknown tap.
func (s *State) Beverage(n int) *Beverage {
	if s == nil || s.OnTap == nil {
		return nil
	}
	return s.OnTap[TapKey(n)]
}

// Glass returns glass definition i.
func (s *State) Glass(i int) (Glass, bool) {
	if s == nil || i < 0 || i >= len(s.GlassTypes) {
		return Glass{}, false
	}
	return s.GlassTypes[i], true
}

// Validate checks the invariants every stored document must hold.
func (s *State) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: missing document", ErrInvalid)
	}
	for k, b := range s.OnTap {
		if _, ok := TapNumber(k); !ok {
			return fmt.Errorf("%w: bad tap key %q", ErrInvalid, k)
		}
		if b == nil {
			continue
		}
		if err := b.Validate(); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
	}
	for i, g := range s.GlassTypes {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("glassTypes[%d]: %w", i, err)
		}
	}
	return nil
}

func (b *Beverage) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("%w: beverage name is required", ErrInvalid)
	}
	if !finite(b.Liters) || b.Liters < 0 {
		return fmt.Errorf("%w: liters must be >= 0", ErrInvalid)
	}
	if !finite(b.RemainingLiters) || b.RemainingLiters < 0 {
		return fmt.Errorf("%w: remainingLiters must be >= 0", ErrInvalid)
	}
	if b.Liters > 0 && b.RemainingLiters > b.Liters+volumeTolerance {
		return fmt.Errorf("%w: remainingLiters %.3f exceeds liters %.3f", ErrInvalid, b.RemainingLiters, b.Liters)
	}
	return nil
}

func (g Glass) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return fmt.Errorf("%w: glass name is required", ErrInvalid)
	}
	if !finite(g.Volume) || g.Volume <= 0 {
		return fmt.Errorf("%w: glass volume must be > 0", ErrInvalid)
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
