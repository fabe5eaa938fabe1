package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tapboard/internal/db"
	"tapboard/internal/inventory"
	"tapboard/internal/inventory/filestore"
	"tapboard/internal/inventory/httpstore"
	"tapboard/internal/pour"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
	StoreMemory = "memory"
	StoreHTTP   = "http"
)

type Config struct {
	Addr string

	DataDir   string
	Store     string
	DBPath    string
	StateFile string
	RemoteURL string // upstream tap board when Store is "http"
	StaticDir string
	Revisions int    // sqlite history kept; 0 keeps everything

	Quiescence time.Duration
	ClientTTL  time.Duration
	WriteRate  float64 // PUT /api/state and admin writes per second; 0 disables
	WriteBurst int

	OTLPEndpoint string

	// Seed is written when the store holds no document. nil means the
	// built-in default inventory.
	Seed *inventory.State
}

type App struct {
	cfg     Config
	log     *slog.Logger
	db      *db.Store
	docs    *db.DocumentStore
	inv     *inventory.Service
	sseHub  *SSEHub
	pours   *Registry
	limiter *rate.Limiter
}

func New(ctx context.Context, cfg Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	if cfg.Addr == "" {
		cfg.Addr = ":3001"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	if cfg.Store == "" {
		cfg.Store = StoreSQLite
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(cfg.DataDir, "tapboard.db")
	}
	if cfg.StateFile == "" {
		cfg.StateFile = filepath.Join(cfg.DataDir, "state.json")
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = "dist"
	}
	if cfg.Quiescence <= 0 {
		cfg.Quiescence = pour.DefaultQuiescence
	}
	if cfg.ClientTTL <= 0 {
		cfg.ClientTTL = 30 * time.Minute
	}
	if cfg.WriteBurst <= 0 {
		cfg.WriteBurst = 10
	}

	a := &App{
		cfg:    cfg,
		log:    logger,
		sseHub: NewSSEHub(logger),
	}

	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	a.inv = inventory.NewService(store, logger)
	a.inv.Watch(a.broadcastInventory)

	if cfg.Store != StoreHTTP {
		seeded, err := a.inv.Seed(ctx, cfg.Seed)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
		if !seeded {
			a.log.Debug("inventory already present")
		}
	}

	if cfg.WriteRate > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(cfg.WriteRate), cfg.WriteBurst)
	}

	a.pours = NewRegistry(a.newEngine, cfg.ClientTTL, logger)
	return a, nil
}

func (a *App) openStore() (inventory.Store, error) {
	switch strings.ToLower(a.cfg.Store) {
	case StoreSQLite:
		if err := os.MkdirAll(filepath.Dir(a.cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir data dir: %w", err)
		}
		s, err := db.Open(a.cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		a.db = s
		a.docs = db.NewDocumentStore(s, a.cfg.Revisions)
		return a.docs, nil
	case StoreFile:
		return filestore.New(a.cfg.StateFile), nil
	case StoreMemory:
		return inventory.NewMemoryStore(nil), nil
	case StoreHTTP:
		if a.cfg.RemoteURL == "" {
			return nil, errors.New("store http needs a remote url")
		}
		return httpstore.New(a.cfg.RemoteURL), nil
	}
	return nil, fmt.Errorf("unknown store %q", a.cfg.Store)
}

func (a *App) newEngine(clientID string) *pour.Engine {
	return pour.New(a.inv,
		pour.WithLogger(a.log.With("client", clientID)),
		pour.WithQuiescence(a.cfg.Quiescence),
		pour.WithObserver(func(v pour.View) {
			a.sseHub.BroadcastClient(clientID, SSEEvent{Type: "pour", Data: v})
		}),
	)
}

func (a *App) broadcastInventory(st *inventory.State) {
	a.sseHub.BroadcastInventory(SSEEvent{Type: "inventory", Data: st})
}

// Ping checks the backing store.
func (a *App) Ping(ctx context.Context) error {
	if a.db != nil {
		return a.db.Ping(ctx)
	}
	_, err := a.inv.Get(ctx)
	return err
}

// Run blocks running background work until ctx is done.
func (a *App) Run(ctx context.Context) {
	a.pours.Run(ctx)
}

func (a *App) Close() error {
	if a == nil {
		return nil
	}
	if a.pours != nil {
		a.pours.Close()
	}
	a.sseHub.Close()
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *App) Inventory() *inventory.Service { return a.inv }
func (a *App) Pours() *Registry              { return a.pours }
func (a *App) SSE() *SSEHub                  { return a.sseHub }
func (a *App) Config() Config                { return a.cfg }
func (a *App) Logger() *slog.Logger          { return a.log }

// History returns the sqlite revision store, or nil for other backends.
func (a *App) History() *db.DocumentStore { return a.docs }
