package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"tapboard/internal/app"
	"tapboard/internal/handlers"
	"tapboard/internal/telemetry"
)

type ServeOptions struct {
	*RootOptions
	Addr      string
	Store     string
	DataDir   string
	StaticDir string
	RemoteURL string
}

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tap board HTTP server",
		Long: `Run the tap board HTTP server.

Configuration comes from the environment (ADDR, STORE, DATA_DIR, DB_PATH,
STATE_FILE, STATIC_DIR, QUIESCENCE, CLIENT_TTL, WRITE_RATE, REVISIONS,
OTEL_EXPORTER_OTLP_ENDPOINT), then --config, then flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.Config)
			if err != nil {
				return WrapExitError(ExitCommandError, "config", err)
			}
			applyServeFlags(cmd, opts, &cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, opts.logger())
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address")
	cmd.Flags().StringVar(&opts.Store, "store", "", "document store: sqlite|file|memory|http")
	cmd.Flags().StringVar(&opts.DataDir, "data-dir", "", "directory for the database or state file")
	cmd.Flags().StringVar(&opts.StaticDir, "static", "", "built front-end directory")
	cmd.Flags().StringVar(&opts.RemoteURL, "remote", "", "upstream tap board for --store http")

	return cmd
}

func applyServeFlags(cmd *cobra.Command, opts *ServeOptions, cfg *app.Config) {
	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.Addr = opts.Addr
	}
	if f.Changed("store") {
		cfg.Store = opts.Store
	}
	if f.Changed("data-dir") {
		cfg.DataDir = opts.DataDir
	}
	if f.Changed("static") {
		cfg.StaticDir = opts.StaticDir
	}
	if f.Changed("remote") {
		cfg.RemoteURL = opts.RemoteURL
	}
}

func serve(ctx context.Context, cfg app.Config, logger *slog.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, "tapboard", cfg.OTLPEndpoint)
	if err != nil {
		return WrapExitError(ExitCommandError, "telemetry", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "app init failed", err)
	}
	defer a.Close()

	go a.Run(ctx)

	cfg = a.Config()
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      newRouter(a),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // SSE streams stay open
		IdleTimeout:  90 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "store", cfg.Store, "static", cfg.StaticDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			logger.Error("server error", "err", err)
			return WrapExitError(ExitFailure, "server error", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(sctx)
	logger.Info("shutdown complete")
	return nil
}

func newRouter(a *app.App) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	h := &handlers.Server{App: a}
	r.Group(func(api chi.Router) {
		// No timeout on the event stream.
		api.Use(func(next http.Handler) http.Handler {
			timeout := chimw.Timeout(60 * time.Second)(next)
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if strings.HasSuffix(r.URL.Path, "/events") {
					next.ServeHTTP(w, r)
					return
				}
				timeout.ServeHTTP(w, r)
			})
		})
		h.Routes(api)
	})

	fileServer(r, "/assets", http.Dir(a.Config().StaticDir+"/assets"))
	r.NotFound(handlers.SPA(a.Config().StaticDir))
	return r
}

func fileServer(r chi.Router, path string, root http.FileSystem) {
	if strings.ContainsAny(path, "{}*") {
		panic("fileServer does not permit URL params")
	}
	fs := http.StripPrefix(path, http.FileServer(root))
	if path != "/" && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	r.Get(path+"/*", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		fs.ServeHTTP(w, r)
	})
}
