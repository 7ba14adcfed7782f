package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/script-bridge/pkg/events"
)

const dropsLogPrefix = "db:drops"

// DefaultListLimit caps list queries when no limit is given.
const DefaultListLimit = 50

// DropStore persists bridge delivery events. It implements
// events.EventPublisher, so it can sit beside the COMMS publisher.
type DropStore struct {
	pool *pgxpool.Pool
}

// NewDropStore creates a new DropStore with the given connection pool.
func NewDropStore(pool *pgxpool.Pool) *DropStore {
	return &DropStore{pool: pool}
}

var _ events.EventPublisher = (*DropStore)(nil)

// PublishDropped inserts a drop record.
func (s *DropStore) PublishDropped(ctx context.Context, event *events.DropEvent) error {
	payload, err := event.Payload.MarshalJSON()
	if err != nil {
		return fmt.Errorf("%s - encode payload: %w", dropsLogPrefix, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO bridge_drops (id, bridge, payload, kind, path, error, created)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.Bridge, payload, event.Kind, event.Path, event.Error, parseTimestamp(event.Timestamp))
	if err != nil {
		return fmt.Errorf("%s - insert drop %s: %w", dropsLogPrefix, event.ID, err)
	}

	slog.Debug(fmt.Sprintf("%s - Recorded drop %s for %s", dropsLogPrefix, event.ID, event.Bridge))
	return nil
}

// PublishArgumentError inserts an argument error record.
func (s *DropStore) PublishArgumentError(ctx context.Context, event *events.ArgumentErrorEvent) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO bridge_argument_errors (id, bridge, message, created)
		 VALUES ($1, $2, $3, $4)`,
		event.ID, event.Bridge, event.Message, parseTimestamp(event.Timestamp))
	if err != nil {
		return fmt.Errorf("%s - insert argument error %s: %w", dropsLogPrefix, event.ID, err)
	}
	return nil
}

// ListDropsParams holds parameters for ListDrops.
type ListDropsParams struct {
	// Bridge filters by bridge name; empty lists every bridge.
	Bridge string
	// Since filters out older records; zero means no bound.
	Since time.Time
	Limit int
}

// ListDrops returns drop records, newest first.
func (s *DropStore) ListDrops(ctx context.Context, params ListDropsParams) ([]DropRecord, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, bridge, payload, kind, path, error, created
		 FROM bridge_drops
		 WHERE ($1 = '' OR bridge = $1)
		   AND ($2::timestamptz IS NULL OR created >= $2)
		 ORDER BY created DESC
		 LIMIT $3`,
		params.Bridge, nullableTime(params.Since), limit)
	if err != nil {
		return nil, fmt.Errorf("%s - list drops: %w", dropsLogPrefix, err)
	}
	defer rows.Close()

	var out []DropRecord
	for rows.Next() {
		rec, err := scanDrop(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

// GetDrop finds a drop record by ID. Returns nil when absent.
func (s *DropStore) GetDrop(ctx context.Context, id string) (*DropRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, bridge, payload, kind, path, error, created
		 FROM bridge_drops
		 WHERE id = $1`, id)

	rec, err := scanDrop(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return rec, err
}

// CountDropsByBridge returns drop counts per bridge, highest first.
func (s *DropStore) CountDropsByBridge(ctx context.Context) ([]BridgeDropCount, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT bridge, count(*) FROM bridge_drops GROUP BY bridge ORDER BY count(*) DESC, bridge`)
	if err != nil {
		return nil, fmt.Errorf("%s - count drops: %w", dropsLogPrefix, err)
	}
	defer rows.Close()

	var out []BridgeDropCount
	for rows.Next() {
		var c BridgeDropCount
		if err := rows.Scan(&c.Bridge, &c.Count); err != nil {
			return nil, fmt.Errorf("%s - scan drop count: %w", dropsLogPrefix, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListArgumentErrors returns argument error records, newest first.
func (s *DropStore) ListArgumentErrors(ctx context.Context, limit int) ([]ArgumentErrorRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, bridge, message, created
		 FROM bridge_argument_errors
		 ORDER BY created DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%s - list argument errors: %w", dropsLogPrefix, err)
	}
	defer rows.Close()

	var out []ArgumentErrorRecord
	for rows.Next() {
		var r ArgumentErrorRecord
		if err := rows.Scan(&r.ID, &r.Bridge, &r.Message, &r.Created); err != nil {
			return nil, fmt.Errorf("%s - scan argument error: %w", dropsLogPrefix, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneDrops deletes drop records older than before and returns how many
// were removed.
func (s *DropStore) PruneDrops(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM bridge_drops WHERE created < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("%s - prune drops: %w", dropsLogPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Pruned %d drops older than %s", dropsLogPrefix, tag.RowsAffected(), before.Format(time.RFC3339)))
	return tag.RowsAffected(), nil
}

func scanDrop(row pgx.Row) (*DropRecord, error) {
	var r DropRecord
	var payload []byte
	err := row.Scan(&r.ID, &r.Bridge, &payload, &r.Kind, &r.Path, &r.Error, &r.Created)
	if err == pgx.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%s - scan drop failed: %w", dropsLogPrefix, err)
	}
	r.Payload = payload
	return &r, nil
}

// parseTimestamp reads an event timestamp, falling back to now.
func parseTimestamp(ts string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Now().UTC()
	}
	return t
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
