package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tapboard/internal/pour"
)

// Registry owns one pour engine per client id. Engines are created and
// mounted on first use and closed after sitting idle for the TTL.
type Registry struct {
	newEngine func(clientID string) *pour.Engine
	ttl       time.Duration
	log       *slog.Logger
	now       func() time.Time

	mu      sync.Mutex
	clients map[string]*client
}

type client struct {
	engine   *pour.Engine
	lastSeen time.Time
	mounted  chan struct{} // closed once the first Mount returns
}

func NewRegistry(newEngine func(string) *pour.Engine, ttl time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		newEngine: newEngine,
		ttl:       ttl,
		log:       logger,
		now:       time.Now,
		clients:   map[string]*client{},
	}
}

// Engine returns the client's engine, creating it if needed. The first
// caller mounts it; concurrent callers for the same client wait for that
// mount to finish. A mount failure is logged and leaves the engine in its
// error status; it is still returned.
func (r *Registry) Engine(ctx context.Context, clientID string) *pour.Engine {
	r.mu.Lock()
	c, ok := r.clients[clientID]
	if ok {
		c.lastSeen = r.now()
		r.mu.Unlock()
		select {
		case <-c.mounted:
		case <-ctx.Done():
		}
		return c.engine
	}
	c = &client{engine: r.newEngine(clientID), lastSeen: r.now(), mounted: make(chan struct{})}
	r.clients[clientID] = c
	r.mu.Unlock()

	defer close(c.mounted)
	if err := c.engine.Mount(ctx); err != nil {
		r.log.Warn("pour engine mount failed", "client", clientID, "err", err)
	} else {
		r.log.Debug("pour engine mounted", "client", clientID)
	}
	return c.engine
}

// Touch marks the client as active without creating an engine.
func (r *Registry) Touch(clientID string) {
	r.mu.Lock()
	if c, ok := r.clients[clientID]; ok {
		c.lastSeen = r.now()
	}
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Sweep closes engines idle for longer than the TTL and returns how many
// were evicted.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var idle []*pour.Engine
	for id, c := range r.clients {
		if c.lastSeen.Before(cutoff) {
			idle = append(idle, c.engine)
			delete(r.clients, id)
		}
	}
	r.mu.Unlock()

	for _, e := range idle {
		e.Close()
	}
	if len(idle) > 0 {
		r.log.Info("evicted idle pour clients", "count", len(idle))
	}
	return len(idle)
}

// Run sweeps periodically until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	every := r.ttl / 2
	if every < time.Second {
		every = time.Second
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep()
		}
	}
}

func (r *Registry) Close() {
	r.mu.Lock()
	clients := r.clients
	r.clients = map[string]*client{}
	r.mu.Unlock()

	for _, c := range clients {
		c.engine.Close()
	}
}
