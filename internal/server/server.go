// Package server orchestrates all components: NATS client, DB, bridge registry, dispatcher, HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/script-bridge/internal/config"
	"github.com/morezero/script-bridge/internal/demo"
	"github.com/morezero/script-bridge/pkg/bridge"
	"github.com/morezero/script-bridge/pkg/commsutil"
	"github.com/morezero/script-bridge/pkg/db"
	"github.com/morezero/script-bridge/pkg/dispatcher"
	"github.com/morezero/script-bridge/pkg/events"
	"github.com/morezero/script-bridge/pkg/manifest"
)

const logPrefix = "server:server"

// Server is the script-bridge host orchestrator.
type Server struct {
	cfg        *config.Config
	manifest   *manifest.Manifest
	nc         *comms.Conn
	pool       *pgxpool.Pool
	store      *db.DropStore
	reg        *bridge.Registry
	disp       *dispatcher.Dispatcher
	activity   *demo.ActivityLog
	subs       []*comms.Subscription
	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

// SetupLogging installs the default slog text handler at cfg's level.
func SetupLogging(cfg *config.Config) {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
}

// Run starts the server, blocks until shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	SetupLogging(cfg)

	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("%s - Starting script-bridge host", logPrefix))

	s, err := Start(context.Background(), cfg)
	if err != nil {
		return err
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HealthCheckTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// Start brings every component up and returns once the host is serving.
// The HTTP listener is skipped when neither HTTPAddr nor HTTPPort is set.
func Start(ctx context.Context, cfg *config.Config) (*Server, error) {
	s := &Server{cfg: cfg}
	s.ctx, s.cancel = context.WithCancel(ctx)

	if err := s.start(); err != nil {
		_ = s.Shutdown(context.Background())
		return nil, err
	}

	slog.Info(fmt.Sprintf("%s - Script-bridge host is ready", logPrefix))
	return s, nil
}

func (s *Server) start() error {
	cfg := s.cfg

	// Step 1: Load manifest
	m, err := manifest.LoadManifest(cfg.ManifestFile)
	if err != nil {
		return fmt.Errorf("%s - failed to load manifest: %w", logPrefix, err)
	}
	s.manifest = m
	slog.Info(fmt.Sprintf("%s - Manifest %s@%s protocol %s", logPrefix, m.Name, m.Version, m.Protocol))

	// Step 2: Connect to NATS
	nc, err := commsutil.ConnectWithOptions(cfg.COMMSURL, cfg.COMMSName, commsutil.ConnectOptions{})
	if err != nil {
		return fmt.Errorf("%s - failed to connect to NATS: %w", logPrefix, err)
	}
	s.nc = nc

	// Step 3: Connect to database when drops are persisted
	if cfg.PersistDrops() {
		if err := s.openDatabase(); err != nil {
			return err
		}
	}

	// Step 4: Create registry with its event sinks
	publisher := events.NewMultiPublisher(
		events.NewCommsPublisher(nc, &events.CommsPublisherOpts{
			DropSubject:          cfg.DropSubject,
			ArgumentErrorSubject: cfg.ArgumentErrorSubject,
		}),
		s.storePublisher(),
	)
	regConfig := bridge.DefaultConfig()
	regConfig.Stub = m.StubOptions()
	s.reg = bridge.NewRegistry(bridge.NewRegistryParams{
		Publisher: publisher,
		Config:    regConfig,
	})

	// Step 5: Register sample bridges
	s.activity = demo.NewActivityLog(0)
	names, err := demo.Register(s.reg, m, s.activity)
	if err != nil {
		return fmt.Errorf("%s - failed to register bridges: %w", logPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Registered bridges: %v", logPrefix, names))

	// Step 6: Create dispatcher and subscribe
	s.disp = dispatcher.NewDispatcher(s.reg, m)
	if err := s.subscribe(); err != nil {
		return err
	}

	// Step 7: Start HTTP server
	if cfg.HTTPAddr != "" || cfg.HTTPPort != 0 {
		s.startHTTP()
	}
	return nil
}

func (s *Server) openDatabase() error {
	pool, err := db.NewPool(s.ctx, s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
	}
	s.pool = pool

	if s.cfg.RunMigrations {
		migrations, err := db.LoadMigrationFiles(s.cfg.MigrationPath)
		if err != nil {
			return fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
		}
		if err := db.RunMigrations(s.ctx, pool, migrations); err != nil {
			return fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
		}
	}

	s.store = db.NewDropStore(pool)
	return nil
}

// storePublisher returns the drop store as a publisher, or nil without one.
func (s *Server) storePublisher() events.EventPublisher {
	if s.store == nil {
		return nil
	}
	return s.store
}

func (s *Server) startHTTP() {
	addr := s.cfg.ListenAddr()
	s.httpServer = &http.Server{Addr: addr, Handler: s.routes()}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s", logPrefix, addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()
}

// Registry returns the host's bridge registry.
func (s *Server) Registry() *bridge.Registry { return s.reg }

// Activity returns the sample bridges' call log.
func (s *Server) Activity() *demo.ActivityLog { return s.activity }

// Shutdown stops subscriptions and the HTTP listener, closes the registry and
// drains the NATS connection. It is safe on a partially started Server.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, comms.ErrConnectionClosed) {
			errs = append(errs, err)
		}
	}
	s.subs = nil

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.reg != nil {
		s.reg.Close()
	}
	if s.nc != nil {
		if err := s.nc.Drain(); err != nil && !errors.Is(err, comms.ErrConnectionClosed) {
			errs = append(errs, err)
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.cancel != nil {
		s.cancel()
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s - shutdown: %w", logPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}
