package db

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
)

const ensureLogPrefix = "db:ensure"

// maintenanceDB is the database EnsureDatabase connects to while creating the target.
const maintenanceDB = "postgres"

var safeDBName = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// EnsureDatabase creates the drop-record database named in databaseURL when it
// is missing. It reports whether the database was created.
func EnsureDatabase(ctx context.Context, databaseURL string) (bool, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return false, fmt.Errorf("%s - invalid database URL: %w", ensureLogPrefix, err)
	}
	dbname, err := databaseName(u)
	if err != nil {
		return false, err
	}

	cfg, err := pgx.ParseConfig(buildPostgresURL(u))
	if err != nil {
		return false, fmt.Errorf("%s - failed to parse maintenance URL: %w", ensureLogPrefix, err)
	}
	cfg.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return false, fmt.Errorf("%s - failed to connect to %s: %w", ensureLogPrefix, maintenanceDB, err)
	}
	defer conn.Close(ctx)

	var exists bool
	if err := conn.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, dbname).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s - failed to check database %q: %w", ensureLogPrefix, dbname, err)
	}
	if exists {
		slog.Debug(fmt.Sprintf("%s - Database %q already exists", ensureLogPrefix, dbname))
		return false, nil
	}

	slog.Info(fmt.Sprintf("%s - Creating database %q", ensureLogPrefix, dbname))
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+quoteIdent(dbname)); err != nil {
		return false, fmt.Errorf("%s - CREATE DATABASE %q: %w", ensureLogPrefix, dbname, err)
	}
	return true, nil
}

// databaseName returns the checked database name from a URL path.
func databaseName(u *url.URL) (string, error) {
	dbname := strings.TrimSpace(strings.TrimPrefix(u.Path, "/"))
	if dbname == "" {
		return "", fmt.Errorf("%s - database name empty in URL", ensureLogPrefix)
	}
	if !safeDBName.MatchString(dbname) {
		return "", fmt.Errorf("%s - database name %q contains invalid characters", ensureLogPrefix, dbname)
	}
	return dbname, nil
}

// buildPostgresURL points u at the maintenance database, keeping host,
// credentials and query.
func buildPostgresURL(u *url.URL) string {
	m := *u
	m.Path = "/" + maintenanceDB
	return m.String()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
