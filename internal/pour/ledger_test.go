package pour

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedger(t *testing.T) {
	var l Ledger
	_, ok := l.Peek()
	assert.False(t, ok)

	l.Set(UndoRecord{Tap: 1, Previous: 5, Poured: 0.2})
	l.Set(UndoRecord{Tap: 2, Previous: 9, Poured: 0.5})
	rec, ok := l.Peek()
	assert.True(t, ok)
	assert.Equal(t, UndoRecord{Tap: 2, Previous: 9, Poured: 0.5}, rec)

	l.Clear()
	_, ok = l.Peek()
	assert.False(t, ok)
}

func TestPhaseText(t *testing.T) {
	for p := Idle; p <= Committing; p++ {
		b, err := p.MarshalText()
		assert.NoError(t, err)
		var back Phase
		assert.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, p, back)
	}
	var p Phase
	assert.Error(t, p.UnmarshalText([]byte("pouring")))
	assert.Equal(t, "phase(9)", Phase(9).String())
}
