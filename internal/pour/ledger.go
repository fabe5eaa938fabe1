package pour

// UndoRecord is what it takes to reverse the last committed pour.
type UndoRecord struct {
	Tap      int     `json:"tap"`
	Previous float64 `json:"previous"` // remaining liters before the pour
	Poured   float64 `json:"poured"`
}

// Ledger holds at most one UndoRecord. It is not safe for concurrent use;
// the Engine guards it with its own mutex.
type Ledger struct {
	rec *UndoRecord
}

// Set overwrites whatever was recorded before.
func (l *Ledger) Set(r UndoRecord) { l.rec = &r }

func (l *Ledger) Clear() { l.rec = nil }

func (l *Ledger) Peek() (UndoRecord, bool) {
	if l.rec == nil {
		return UndoRecord{}, false
	}
	return *l.rec, true
}
