package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/greencred/greencred/internal/api"
	"github.com/greencred/greencred/internal/app/auth"
	"github.com/greencred/greencred/internal/app/ledger"
	"github.com/greencred/greencred/internal/app/verifier"
	"github.com/greencred/greencred/internal/domain"
	"github.com/greencred/greencred/internal/infra/catalog"
	"github.com/greencred/greencred/internal/infra/observability"
	"github.com/greencred/greencred/internal/infra/sqlite"
)

// ─── Daemon ─────────────────────────────────────────────────────────────────
//
// Startup order:
//  1. catalog (built-in or [catalog].path)
//  2. journal, when enabled
//  3. verifier scheduler
//  4. ledger, seeded, with journal + metrics + live feed attached
//  5. HTTP API

// Daemon is one running greencred service.
type Daemon struct {
	cfg      Config
	logger   *slog.Logger
	catalog  *catalog.Catalog
	journal  *sqlite.DB
	verifier *verifier.Scheduler
	ledger   *ledger.Ledger
	hub      *api.EventHub
	server   *api.Server
	tracing  *observability.Provider
}

// New wires every component from cfg. Nothing is started.
func New(ctx context.Context, cfg Config, version string, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Daemon{cfg: cfg, logger: logger}

	tp, err := observability.NewProvider(ctx, cfg.TracingConfig(version))
	if err != nil {
		return nil, err
	}
	d.tracing = tp

	if cfg.Catalog.Path != "" {
		d.catalog, err = catalog.Load(cfg.Catalog.Path)
		if err != nil {
			d.Close()
			return nil, err
		}
	} else {
		d.catalog = catalog.Default()
	}

	opts := []ledger.Option{ledger.WithLogger(logger)}

	if cfg.Journal.Enabled {
		path := cfg.Journal.Path
		if path == "" {
			path = sqlite.MemoryPath
		}
		d.journal, err = sqlite.Open(path)
		if err != nil {
			d.Close()
			return nil, err
		}
		opts = append(opts, ledger.WithJournal(d.journal))
		logger.Info("journal open", "path", path, "run_id", d.journal.RunID())
	}

	vcfg, err := cfg.VerifierConfig()
	if err != nil {
		d.Close()
		return nil, err
	}
	d.verifier = verifier.NewScheduler(vcfg, nil, logger)
	opts = append(opts, ledger.WithScheduler(d.verifier))

	recorder := observability.NewRecorder()
	d.verifier.SetObserver(recorder)
	opts = append(opts, ledger.WithSink(recorder))

	d.hub = api.NewEventHub()
	opts = append(opts, ledger.WithSink(d.hub))

	opts = append(opts, ledger.WithSeed(seedFor(cfg.Ledger, time.Now())))

	d.ledger = ledger.New(d.catalog, opts...)
	d.verifier.Bind(d.ledger)
	recorder.SeedPending(d.ledger.PendingCount())
	observability.TokenBalance.Set(float64(d.ledger.Balance()))

	d.server = api.NewServer(d.ledger, d.catalog, auth.NewGate())
	d.server.SetLogger(logger)
	d.server.SetHub(d.hub)
	d.server.SetRecorder(recorder)
	d.server.SetVerifier(d.verifier)
	d.server.SetTimeout(cfg.RequestTimeout())
	if cfg.Ledger.WeeklyGoal > 0 {
		d.server.SetWeeklyGoal(cfg.Ledger.WeeklyGoal)
	}
	if cfg.API.MaxUploadMB > 0 {
		d.server.SetMaxUpload(int64(cfg.API.MaxUploadMB) << 20)
	}
	if cfg.Telemetry.Metrics {
		d.server.EnableMetrics()
	}
	return d, nil
}

func seedFor(c LedgerConfig, now time.Time) domain.Seed {
	if strings.EqualFold(c.Seed, "empty") {
		return domain.Seed{OpeningBalance: c.OpeningBalance}
	}
	return ledger.DemoSeed(now)
}

// Ledger returns the wired ledger.
func (d *Daemon) Ledger() *ledger.Ledger { return d.ledger }

// Catalog returns the loaded catalog.
func (d *Daemon) Catalog() *catalog.Catalog { return d.catalog }

// Verifier returns the review scheduler.
func (d *Daemon) Verifier() *verifier.Scheduler { return d.verifier }

// Journal returns the event journal, or nil when disabled.
func (d *Daemon) Journal() *sqlite.DB { return d.journal }

// Handler returns the HTTP handler, wrapped in server spans when tracing is on.
func (d *Daemon) Handler() http.Handler {
	h := d.server.Handler()
	if d.tracing != nil && d.tracing.Enabled() {
		h = otelhttp.NewHandler(h, "greencred.api")
	}
	return h
}

// Serve runs the verifier and the API on ln until ctx is cancelled, then
// shuts the server down gracefully.
func (d *Daemon) Serve(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	verifierDone := make(chan error, 1)
	go func() { verifierDone <- d.verifier.Run(ctx) }()

	// Request contexts derive from ctx so live feeds end on shutdown.
	srv := &http.Server{
		Handler:           d.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		d.logger.Info("api listening", "addr", ln.Addr().String())
		serveErr <- srv.Serve(ln)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			runErr = fmt.Errorf("api server: %w", err)
		}
	case err := <-verifierDone:
		runErr = fmt.Errorf("verifier: %w", err)
		verifierDone <- nil
	}
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("api shutdown", "error", err)
	}
	<-verifierDone
	return runErr
}

// ListenAndServe binds [api] host:port and calls Serve.
func (d *Daemon) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", d.cfg.API.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", d.cfg.API.Addr(), err)
	}
	return d.Serve(ctx, ln)
}

// Close flushes traces and closes the journal.
func (d *Daemon) Close() error {
	var errs []error
	if d.tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, d.tracing.Shutdown(ctx))
		cancel()
	}
	if d.journal != nil {
		errs = append(errs, d.journal.Close())
	}
	return errors.Join(errs...)
}
