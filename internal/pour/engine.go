// Package pour simulates pouring from a tap into a virtual glass.
//
// An Engine belongs to exactly one client. It keeps the last-known inventory
// document in memory, tracks the client's pour session, and shadows the
// remaining volume of the tap being poured so the client sees the level drop
// while dragging. After the pointer is released and nothing happens for the
// quiescence period, the pour is committed by writing the whole document
// back to the store. A failed write is not retried: the engine drops all
// optimistic state and refetches, and the pour is lost.
//
// Writes (commit, undo, refresh) are serialized per engine. Pointer input
// never waits for a write.
package pour

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"tapboard/internal/inventory"
)

const (
	DefaultQuiescence   = 2 * time.Second
	DefaultWriteTimeout = 10 * time.Second
)

type Engine struct {
	store        inventory.Store
	sched        Scheduler
	log          *slog.Logger
	tracer       trace.Tracer
	metrics      engineMetrics
	quiescence   time.Duration
	writeTimeout time.Duration
	observers    []func(View)

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	status  Status
	lastErr error
	doc     *inventory.State
	shadow  map[int]float64 // tap -> locally shown remaining liters
	glass   int             // selected glass index, -1 for none
	session *Session
	ledger  Ledger
	nextID  uint64

	writeMu sync.Mutex
}

type Option func(*Engine)

func WithScheduler(s Scheduler) Option { return func(e *Engine) { e.sched = s } }

func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.log = l } }

func WithQuiescence(d time.Duration) Option { return func(e *Engine) { e.quiescence = d } }

// WithWriteTimeout bounds timer-driven commits and resyncs.
func WithWriteTimeout(d time.Duration) Option { return func(e *Engine) { e.writeTimeout = d } }

// WithObserver registers fn to receive a View after every change. fn runs
// without engine locks held and may call back into the engine.
func WithObserver(fn func(View)) Option {
	return func(e *Engine) { e.observers = append(e.observers, fn) }
}

func New(store inventory.Store, opts ...Option) *Engine {
	e := &Engine{
		store:        store,
		sched:        SystemScheduler(),
		quiescence:   DefaultQuiescence,
		writeTimeout: DefaultWriteTimeout,
		tracer:       otel.Tracer("tapboard/pour"),
		metrics:      newEngineMetrics(),
		status:       StatusLoading,
		shadow:       map[int]float64{},
		glass:        -1,
	}
	for _, o := range opts {
		o(e)
	}
	if e.log == nil {
		e.log = slog.Default()
	}
	if e.quiescence <= 0 {
		e.quiescence = DefaultQuiescence
	}
	if e.writeTimeout <= 0 {
		e.writeTimeout = DefaultWriteTimeout
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	return e
}

// Mount performs the first fetch and selects the first glass.
func (e *Engine) Mount(ctx context.Context) error {
	defer e.notify()
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if err := e.resync(ctx); err != nil {
		return err
	}
	e.mu.Lock()
	if e.glass < 0 && len(e.doc.GlassTypes) > 0 {
		e.glass = 0
	}
	e.mu.Unlock()
	return nil
}

// Refresh discards local optimistic state and refetches the document.
func (e *Engine) Refresh(ctx context.Context) error {
	defer e.notify()
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return e.resync(ctx)
}

// Close stops the pending timer. Writes already issued are left to finish.
func (e *Engine) Close() {
	e.mu.Lock()
	if s := e.session; s != nil {
		s.stopTimer()
	}
	e.mu.Unlock()
	e.cancel()
}

/* ---------------- Session input ---------------- */

// SelectGlass picks the glass for sessions started from now on.
func (e *Engine) SelectGlass(i int) {
	defer e.notify()
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.doc.Glass(i); ok {
		e.glass = i
	}
}

// SelectBeverage starts a new session on tap, discarding any uncommitted
// one. Without a selected glass, or for an empty tap, it does nothing.
func (e *Engine) SelectBeverage(tap int) {
	defer e.notify()
	e.mu.Lock()
	defer e.mu.Unlock()

	g, ok := e.doc.Glass(e.glass)
	if !ok {
		return
	}
	b := e.doc.Beverage(tap)
	if b == nil {
		return
	}
	e.discardSession()
	e.nextID++
	e.session = &Session{
		id:               e.nextID,
		Tap:              tap,
		Glass:            g,
		RemainingAtStart: b.RemainingLiters,
		Phase:            Selected,
	}
}

// BeginDrag engages the pointer. A pending commit is called off.
func (e *Engine) BeginDrag(offset, height float64) {
	defer e.notify()
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil || s.Phase == Committing {
		return
	}
	s.stopTimer()
	s.Phase = Dragging
	e.setFraction(s, Fraction(offset, height))
}

func (e *Engine) UpdateDrag(offset, height float64) {
	defer e.notify()
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil || s.Phase != Dragging {
		return
	}
	e.setFraction(s, Fraction(offset, height))
}

// EndDrag releases the pointer. A non-empty glass starts the quiescence timer.
func (e *Engine) EndDrag() {
	defer e.notify()
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil || s.Phase != Dragging {
		return
	}
	if s.Fraction <= 0 {
		s.Phase = Selected
		return
	}
	s.Phase = Settling
	s.arm++
	id, arm := s.id, s.arm
	s.timer = e.sched.AfterFunc(e.quiescence, func() { e.fire(id, arm) })
}

// Cancel drops the session without touching the store.
func (e *Engine) Cancel() {
	e.mu.Lock()
	if e.session == nil {
		e.mu.Unlock()
		return
	}
	e.discardSession()
	e.mu.Unlock()
	e.notify()
}

func (e *Engine) setFraction(s *Session, f float64) {
	s.Fraction = f
	e.shadow[s.Tap] = s.Remaining()
}

// discardSession forgets the active session and its shadow. A session whose
// write is in flight keeps its shadow; the write settles it.
func (e *Engine) discardSession() {
	s := e.session
	if s == nil {
		return
	}
	s.stopTimer()
	if s.Phase != Committing {
		delete(e.shadow, s.Tap)
	}
	e.session = nil
}

func (e *Engine) release(s *Session) {
	if e.session == s {
		s.stopTimer()
		e.session = nil
	}
}

/* ---------------- Commit / undo ---------------- */

type pending struct {
	tap   int
	start float64
	delta float64
}

func (e *Engine) fire(id, arm uint64) {
	e.mu.Lock()
	s := e.session
	if s == nil || s.id != id || s.arm != arm || s.Phase != Settling || s.Fraction <= 0 {
		e.mu.Unlock()
		return
	}
	s.timer = nil
	s.Phase = Committing
	p := pending{tap: s.Tap, start: s.RemainingAtStart, delta: s.Poured()}
	e.mu.Unlock()
	e.notify()

	ctx, cancel := context.WithTimeout(e.ctx, e.writeTimeout)
	defer cancel()
	if err := e.commit(ctx, s, p); err != nil {
		e.log.Debug("auto pour failed", "tap", p.tap, "err", err)
	}
}

// Commit pours the current session immediately instead of waiting for the
// quiescence timer. It does nothing while dragging or with an empty glass.
func (e *Engine) Commit(ctx context.Context) error {
	e.mu.Lock()
	s := e.session
	if s == nil || s.Fraction <= 0 || (s.Phase != Selected && s.Phase != Settling) {
		e.mu.Unlock()
		return nil
	}
	s.stopTimer()
	s.Phase = Committing
	p := pending{tap: s.Tap, start: s.RemainingAtStart, delta: s.Poured()}
	e.mu.Unlock()
	e.notify()

	return e.commit(ctx, s, p)
}

func (e *Engine) commit(ctx context.Context, s *Session, p pending) error {
	ctx, span := e.tracer.Start(ctx, "pour.commit", trace.WithAttributes(
		attribute.Int("tap", p.tap),
		attribute.Float64("remaining.start", p.start),
		attribute.Float64("poured", p.delta),
	))
	defer span.End()

	defer e.notify()
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	e.mu.Lock()
	next := e.doc.Clone()
	b := next.Beverage(p.tap)
	if b == nil {
		e.release(s)
		delete(e.shadow, p.tap)
		e.mu.Unlock()
		return &CommitError{Op: "commit", Tap: p.tap, Err: ErrTapVacant}
	}
	b.RemainingLiters = math.Max(0, p.start-p.delta)
	e.mu.Unlock()

	if err := e.store.Put(ctx, next); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		e.log.Warn("pour rejected, resyncing", "tap", p.tap, "poured", p.delta, "err", err)
		e.metrics.failed(ctx, "commit")

		e.mu.Lock()
		e.release(s)
		e.mu.Unlock()
		e.resyncAfterFailure()
		return &CommitError{Op: "commit", Tap: p.tap, Err: err}
	}

	e.mu.Lock()
	e.doc = next
	if cur := e.session; cur == nil || cur == s || cur.Tap != p.tap {
		delete(e.shadow, p.tap)
	}
	e.ledger.Set(UndoRecord{Tap: p.tap, Previous: p.start, Poured: p.delta})
	e.release(s)
	e.mu.Unlock()

	span.SetAttributes(attribute.Float64("remaining.end", b.RemainingLiters))
	e.metrics.committed(ctx, p.tap, p.delta)
	e.log.Info("poured", "tap", p.tap, "liters", p.delta, "remaining", b.RemainingLiters)
	return nil
}

// Undo reverses the last committed pour. With nothing to undo it does
// nothing. The restored volume never exceeds the tap's capacity.
func (e *Engine) Undo(ctx context.Context) error {
	defer e.notify()
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	e.mu.Lock()
	rec, ok := e.ledger.Peek()
	if !ok {
		e.mu.Unlock()
		return nil
	}
	next := e.doc.Clone()
	b := next.Beverage(rec.Tap)
	if b == nil {
		e.mu.Unlock()
		return ErrTapVacant
	}
	restored := rec.Previous
	// Liters 0 is an unrecorded keg size, not a zero capacity.
	if b.Liters > 0 {
		restored = math.Min(restored, b.Liters)
	}
	b.RemainingLiters = restored
	e.mu.Unlock()

	ctx, span := e.tracer.Start(ctx, "pour.undo", trace.WithAttributes(
		attribute.Int("tap", rec.Tap),
		attribute.Float64("restored", restored),
	))
	defer span.End()

	if err := e.store.Put(ctx, next); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		e.log.Warn("undo rejected, resyncing", "tap", rec.Tap, "err", err)
		e.metrics.failed(ctx, "undo")
		e.resyncAfterFailure()
		return &CommitError{Op: "undo", Tap: rec.Tap, Err: err}
	}

	e.mu.Lock()
	e.doc = next
	e.ledger.Clear()
	if cur := e.session; cur == nil || cur.Tap != rec.Tap {
		delete(e.shadow, rec.Tap)
	}
	e.mu.Unlock()

	e.metrics.undos.Add(ctx, 1, metric.WithAttributes(attribute.Int("tap", rec.Tap)))
	e.log.Info("pour undone", "tap", rec.Tap, "remaining", restored)
	return nil
}

// resyncAfterFailure refetches with a fresh context; the one that carried the
// failed write may already be done.
func (e *Engine) resyncAfterFailure() {
	ctx, cancel := context.WithTimeout(e.ctx, e.writeTimeout)
	defer cancel()
	if err := e.resync(ctx); err != nil {
		e.log.Error("resync failed", "err", err)
	}
}

// resync replaces the in-memory document with a fresh read. Every shadow is
// dropped, even when the read fails. Callers hold writeMu.
func (e *Engine) resync(ctx context.Context) error {
	ctx, span := e.tracer.Start(ctx, "pour.resync")
	defer span.End()

	st, err := e.store.Get(ctx)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.shadow = map[int]float64{}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		e.status = StatusError
		e.lastErr = err
		return &FetchError{Err: err}
	}
	e.doc = st
	e.status = StatusReady
	e.lastErr = nil

	if _, ok := st.Glass(e.glass); !ok {
		e.glass = -1
		if len(st.GlassTypes) > 0 {
			e.glass = 0
		}
	}
	if s := e.session; s != nil && st.Beverage(s.Tap) == nil {
		e.release(s)
	}
	return nil
}

/* ---------------- Observation ---------------- */

// Snapshot returns the current view.
func (e *Engine) Snapshot() View {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := View{Status: e.status, SelectedGlass: e.glass}
	if e.lastErr != nil {
		v.Error = e.lastErr.Error()
	}
	if e.doc != nil {
		v.Types = append([]string(nil), e.doc.Types...)
		v.Glasses = append([]inventory.Glass(nil), e.doc.GlassTypes...)
		for _, n := range e.doc.Taps() {
			tv := TapView{Tap: n, Beverage: e.doc.Beverage(n).Clone()}
			if r, ok := e.shadow[n]; ok && tv.Beverage != nil {
				tv.Beverage.RemainingLiters = r
				tv.Shadowed = true
			}
			v.Taps = append(v.Taps, tv)
		}
	}
	if s := e.session; s != nil {
		v.Session = &SessionView{
			Tap:              s.Tap,
			Glass:            s.Glass,
			Phase:            s.Phase,
			Fraction:         s.Fraction,
			RemainingAtStart: s.RemainingAtStart,
			Poured:           s.Poured(),
			PendingCommit:    s.timer != nil,
		}
	}
	if rec, ok := e.ledger.Peek(); ok {
		v.Undo = &rec
	}
	return v
}

func (e *Engine) notify() {
	if len(e.observers) == 0 {
		return
	}
	v := e.Snapshot()
	for _, fn := range e.observers {
		fn(v)
	}
}
