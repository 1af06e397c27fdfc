package segcache

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/forPelevin/cuesync/internal/ports"
)

//go:embed schema.sql
var schemaSQL string

const (
	kindView   = "view"
	kindLegacy = "legacy"
)

// segKind keys a segment set by its count so that a longer duration
// estimate does not reuse a shorter set.
func segKind(count int) string { return "seg:" + strconv.Itoa(count) }

// Store persists payloads in a sqlite file and serves them while younger
// than the TTL. A zero TTL never expires.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func OpenStore(path string, ttl time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return &Store{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Wrap returns a fetcher that reads through the store.
func (s *Store) Wrap(next ports.SegmentFetcher) ports.SegmentFetcher {
	return &storeFetcher{s: s, next: next}
}

func (s *Store) load(ctx context.Context, id, kind string) ([][]byte, error) {
	q := `SELECT data FROM payloads WHERE content_id = ? AND kind = ?`
	args := []any{id, kind}
	if s.ttl > 0 {
		q += ` AND fetched_at >= ?`
		args = append(args, s.now().Add(-s.ttl).UnixMilli())
	}
	q += ` ORDER BY idx`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out [][]byte
	for rows.Next() {
		var b []byte
		if err := rows.Scan(&b); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) save(ctx context.Context, id, kind string, parts [][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM payloads WHERE content_id = ? AND kind = ?`, id, kind); err != nil {
		return err
	}
	at := s.now().UnixMilli()
	for i, b := range parts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO payloads (content_id, kind, idx, data, fetched_at) VALUES (?, ?, ?, ?, ?)`,
			id, kind, i, b, at); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Prune drops payloads older than the TTL.
func (s *Store) Prune(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM payloads WHERE fetched_at < ?`, s.now().Add(-s.ttl).UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// storeFetcher never fails a fetch on a store error.
type storeFetcher struct {
	s    *Store
	next ports.SegmentFetcher
}

func (f *storeFetcher) FetchSegments(ctx context.Context, id string, count int) ([][]byte, error) {
	kind := segKind(count)
	if segs, err := f.s.load(ctx, id, kind); err == nil && len(segs) > 0 {
		return segs, nil
	}
	segs, err := f.next.FetchSegments(ctx, id, count)
	if err != nil || len(segs) == 0 {
		return segs, err
	}
	_ = f.s.save(ctx, id, kind, segs)
	return segs, nil
}

func (f *storeFetcher) FetchView(ctx context.Context, id string) ([]byte, error) {
	return f.single(ctx, id, kindView, f.next.FetchView)
}

func (f *storeFetcher) FetchLegacy(ctx context.Context, id string) ([]byte, error) {
	return f.single(ctx, id, kindLegacy, f.next.FetchLegacy)
}

func (f *storeFetcher) single(ctx context.Context, id, kind string, fetch func(context.Context, string) ([]byte, error)) ([]byte, error) {
	if parts, err := f.s.load(ctx, id, kind); err == nil && len(parts) == 1 {
		return parts[0], nil
	}
	b, err := fetch(ctx, id)
	if err != nil || len(b) == 0 {
		return b, err
	}
	_ = f.s.save(ctx, id, kind, [][]byte{b})
	return b, nil
}
