// Package main is the entrypoint for the script-bridge host (binary name "bridgehost").
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/morezero/script-bridge/internal/config"
	"github.com/morezero/script-bridge/internal/demo"
	"github.com/morezero/script-bridge/internal/server"
	"github.com/morezero/script-bridge/pkg/bridge"
	"github.com/morezero/script-bridge/pkg/db"
	"github.com/morezero/script-bridge/pkg/events"
	"github.com/morezero/script-bridge/pkg/manifest"
	"github.com/morezero/script-bridge/pkg/page"
)

const usage = `Usage: bridgehost [command]
       bridgehost serve              Start the bridge host (NATS, HTTP, bridges).
       bridgehost stubs [json]       Print the user script, or the bridge descriptions as JSON.
       bridgehost run <script.js>    Run a page script against the sample bridges in an embedded runtime.
       bridgehost migrate up         Run database migrations.
       bridgehost migrate status     Show migration status.
       bridgehost ensure-db [name]   Create database if missing (default name: bridge_test). Uses DATABASE_URL host/user.
       bridgehost drops [bridge]     List recorded drops, newest first.
       bridgehost prune <age>        Delete drops older than age (e.g. 72h).

Commands:
  serve           (default) Start the bridge host.
  stubs           Print stubs for the bridges the manifest enables.
  run             Evaluate stubs, then the script; calls go to the sample bridges.
  migrate up      Run database migrations only.
  migrate status  Show current migration status.
  ensure-db       Create database (e.g. bridge_test) on same host as DATABASE_URL.
  drops           List dropped messages from DATABASE_URL.
  prune           Remove old dropped messages.

Environment: COMMS_URL, BRIDGE_SUBJECT_PREFIX, BRIDGE_MANIFEST_FILE, DATABASE_URL (migrate, drops, prune), MIGRATION_PATH, HTTP_PORT.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "stubs":
		format := "js"
		if len(args) > 1 {
			format = args[1]
		}
		if err := runStubs(os.Stdout, format); err != nil {
			log.Fatalf("bridgehost stubs: %v", err)
		}
		return
	case "run":
		if len(args) < 2 {
			log.Fatalf("bridgehost run: require a script path")
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		if err := runScript(ctx, os.Stdout, args[1]); err != nil {
			log.Fatalf("bridgehost run: %v", err)
		}
		return
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("bridgehost migrate: require subcommand (up, status)")
		}
		sub := args[1]
		switch sub {
		case "up":
			if err := runMigrateUp(); err != nil {
				log.Fatalf("bridgehost migrate up: %v", err)
			}
		case "status":
			if err := runMigrateStatus(); err != nil {
				log.Fatalf("bridgehost migrate status: %v", err)
			}
		default:
			log.Fatalf("bridgehost migrate: unknown subcommand %q (use up, status)", sub)
		}
		return
	case "ensure-db":
		dbName := "bridge_test"
		if len(args) > 1 && args[1] != "" {
			dbName = args[1]
		}
		if err := runEnsureDB(dbName); err != nil {
			log.Fatalf("bridgehost ensure-db: %v", err)
		}
		return
	case "drops":
		bridgeName := ""
		if len(args) > 1 {
			bridgeName = args[1]
		}
		if err := runDrops(os.Stdout, bridgeName); err != nil {
			log.Fatalf("bridgehost drops: %v", err)
		}
		return
	case "prune":
		if len(args) < 2 {
			log.Fatalf("bridgehost prune: require an age such as 72h")
		}
		if err := runPrune(args[1]); err != nil {
			log.Fatalf("bridgehost prune: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		// serve (explicit or default)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("bridgehost: %v", err)
	}
}

// buildRegistry loads the manifest and registers the sample bridges it enables.
func buildRegistry(cfg *config.Config, pub events.EventPublisher) (*bridge.Registry, *demo.ActivityLog, error) {
	m, err := manifest.LoadManifest(cfg.ManifestFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load manifest: %w", err)
	}
	regConfig := bridge.DefaultConfig()
	regConfig.Stub = m.StubOptions()
	reg := bridge.NewRegistry(bridge.NewRegistryParams{Publisher: pub, Config: regConfig})

	activity := demo.NewActivityLog(0)
	if _, err := demo.Register(reg, m, activity); err != nil {
		return nil, nil, err
	}
	return reg, activity, nil
}

func runStubs(w io.Writer, format string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	reg, _, err := buildRegistry(cfg, nil)
	if err != nil {
		return err
	}

	switch format {
	case "js":
		_, err = io.WriteString(w, reg.UserScript())
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(reg.Describe())
	default:
		return fmt.Errorf("unknown format %q (use js, json)", format)
	}
}

// scriptReport is what run prints once the script finishes.
type scriptReport struct {
	Calls          []demo.Activity              `json:"calls"`
	Drops          []*events.DropEvent          `json:"drops,omitempty"`
	ArgumentErrors []*events.ArgumentErrorEvent `json:"argumentErrors,omitempty"`
}

func runScript(ctx context.Context, w io.Writer, path string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	server.SetupLogging(cfg)

	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}

	var report scriptReport
	pub := &events.CallbackPublisher{
		OnDropped: func(_ context.Context, ev *events.DropEvent) error {
			report.Drops = append(report.Drops, ev)
			return nil
		},
		OnArgumentError: func(_ context.Context, ev *events.ArgumentErrorEvent) error {
			report.ArgumentErrors = append(report.ArgumentErrors, ev)
			return nil
		},
	}
	reg, activity, err := buildRegistry(cfg, pub)
	if err != nil {
		return err
	}
	defer reg.Close()

	p := page.New(reg, page.Options{Console: true})
	if err := p.InstallStubs(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
	defer cancel()
	if err := p.Load(ctx, path, string(src)); err != nil {
		return err
	}

	report.Calls = activity.Recent()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func runMigrateUp() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	migrations, err := db.LoadMigrationFiles(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := db.RunMigrations(ctx, pool, migrations); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func runMigrateStatus() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return db.MigrationStatus(ctx, pool, cfg.MigrationPath)
}

func runEnsureDB(dbName string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	targetURL, err := withDatabase(cfg.DatabaseURL, dbName)
	if err != nil {
		return err
	}
	created, err := db.EnsureDatabase(context.Background(), targetURL)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Database %q created.\n", dbName)
	} else {
		fmt.Printf("Database %q already exists.\n", dbName)
	}
	return nil
}

// withDatabase replaces the database name in a Postgres URL; the query (e.g.
// sslmode) is kept.
func withDatabase(databaseURL, dbName string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	u.Path = "/" + dbName
	return u.String(), nil
}

func runDrops(w io.Writer, bridgeName string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	drops, err := db.NewDropStore(pool).ListDrops(ctx, db.ListDropsParams{Bridge: bridgeName})
	if err != nil {
		return err
	}
	for _, d := range drops {
		fmt.Fprintf(w, "%s  %-12s %-16s %s  %s\n", d.Created.Format(time.RFC3339), d.Bridge, d.Kind, d.Error, d.Payload)
	}
	return nil
}

func runPrune(age string) error {
	d, err := time.ParseDuration(age)
	if err != nil || d <= 0 {
		return fmt.Errorf("invalid age %q", age)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	n, err := db.NewDropStore(pool).PruneDrops(ctx, time.Now().Add(-d))
	if err != nil {
		return err
	}
	fmt.Printf("Pruned %d drops.\n", n)
	return nil
}
