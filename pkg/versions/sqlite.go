package versions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	_ "modernc.org/sqlite"
)

const optionsSchema = `
CREATE TABLE IF NOT EXISTS options (
	name  TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// versionRecord is one entry of the per-instance versions list record.
type versionRecord struct {
	Timestamp int64  `json:"timestamp"`
	CreatedAt int64  `json:"created_at"`
	Author    string `json:"author"`
}

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithSQLiteClock overrides the wall clock used for snapshot timestamps.
func WithSQLiteClock(now func() time.Time) SQLiteOption {
	return func(s *SQLiteStore) { s.now = now }
}

// SQLiteStore persists snapshots in an options table using three record
// shapes per instance: one "{instance}_{timestamp}" blob per snapshot, a
// "{instance}_versions" list record, and a "{instance}_active" pointer
// record.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (creating if needed) the options database at path.
func NewSQLiteStore(path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("versions: open %s: %w", path, err)
	}
	if _, err := db.Exec(optionsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("versions: create options table: %w", err)
	}
	s := &SQLiteStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func snapshotKey(instance string, timestamp int64) string {
	return fmt.Sprintf("%s_%d", instance, timestamp)
}

func listKey(instance string) string   { return instance + "_versions" }
func activeKey(instance string) string { return instance + "_active" }

func (s *SQLiteStore) Save(ctx context.Context, instance string, values map[string]any, author string) (Snapshot, error) {
	now := s.now()
	ts := now.Unix()

	blob, err := json.Marshal(values)
	if err != nil {
		return Snapshot{}, fmt.Errorf("versions: encode snapshot: %w", err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		records, err := readList(ctx, tx, instance)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if rec.Timestamp == ts {
				return fmt.Errorf("%w: timestamp %d already used for %q", ErrInvalidOperation, ts, instance)
			}
		}

		if err := putRecord(ctx, tx, snapshotKey(instance, ts), string(blob)); err != nil {
			return err
		}
		records = append(records, versionRecord{Timestamp: ts, CreatedAt: now.Unix(), Author: author})
		if err := writeList(ctx, tx, instance, records); err != nil {
			return err
		}
		return putRecord(ctx, tx, activeKey(instance), strconv.FormatInt(ts, 10))
	})
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Timestamp: ts,
		Values:    cloneValues(values),
		CreatedAt: now,
		Author:    author,
	}, nil
}

func (s *SQLiteStore) Restore(ctx context.Context, instance string, timestamp int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		records, err := readList(ctx, tx, instance)
		if err != nil {
			return err
		}
		if !hasTimestamp(records, timestamp) {
			return fmt.Errorf("%w: %q@%d", ErrNotFound, instance, timestamp)
		}
		return putRecord(ctx, tx, activeKey(instance), strconv.FormatInt(timestamp, 10))
	})
}

func (s *SQLiteStore) Delete(ctx context.Context, instance string, timestamp int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		records, err := readList(ctx, tx, instance)
		if err != nil {
			return err
		}
		if !hasTimestamp(records, timestamp) {
			return fmt.Errorf("%w: %q@%d", ErrNotFound, instance, timestamp)
		}
		if active, ok := effectiveActiveRecords(ctx, tx, instance, records); ok && active == timestamp {
			return fmt.Errorf("%w: cannot delete active snapshot %d", ErrInvalidOperation, timestamp)
		}
		if len(records) == 1 {
			return fmt.Errorf("%w: cannot delete the only snapshot", ErrInvalidOperation)
		}

		kept := records[:0]
		for _, rec := range records {
			if rec.Timestamp != timestamp {
				kept = append(kept, rec)
			}
		}
		if err := writeList(ctx, tx, instance, kept); err != nil {
			return err
		}
		return deleteRecord(ctx, tx, snapshotKey(instance, timestamp))
	})
}

func (s *SQLiteStore) PruneAllButActive(ctx context.Context, instance string) (int, error) {
	removed := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		records, err := readList(ctx, tx, instance)
		if err != nil {
			return err
		}
		active, ok := effectiveActiveRecords(ctx, tx, instance, records)
		if !ok {
			return nil
		}

		kept := make([]versionRecord, 0, 1)
		for _, rec := range records {
			if rec.Timestamp == active {
				kept = append(kept, rec)
				continue
			}
			if err := deleteRecord(ctx, tx, snapshotKey(instance, rec.Timestamp)); err != nil {
				return err
			}
			removed++
		}
		if err := writeList(ctx, tx, instance, kept); err != nil {
			return err
		}
		return putRecord(ctx, tx, activeKey(instance), strconv.FormatInt(active, 10))
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func (s *SQLiteStore) ActiveValues(ctx context.Context, instance string) (map[string]any, error) {
	var values map[string]any
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		records, err := readList(ctx, tx, instance)
		if err != nil {
			return err
		}
		active, ok := effectiveActiveRecords(ctx, tx, instance, records)
		if !ok {
			values = map[string]any{}
			return nil
		}
		values, err = readSnapshotValues(ctx, tx, instance, active)
		return err
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}

func (s *SQLiteStore) List(ctx context.Context, instance string) ([]Snapshot, error) {
	var out []Snapshot
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		records, err := readList(ctx, tx, instance)
		if err != nil {
			return err
		}
		sort.Slice(records, func(i, j int) bool { return records[i].Timestamp < records[j].Timestamp })
		for _, rec := range records {
			values, err := readSnapshotValues(ctx, tx, instance, rec.Timestamp)
			if err != nil {
				return err
			}
			out = append(out, Snapshot{
				Timestamp: rec.Timestamp,
				Values:    values,
				CreatedAt: time.Unix(rec.CreatedAt, 0).UTC(),
				Author:    rec.Author,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) Active(ctx context.Context, instance string) (int64, bool, error) {
	var (
		active int64
		ok     bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		records, err := readList(ctx, tx, instance)
		if err != nil {
			return err
		}
		active, ok = effectiveActiveRecords(ctx, tx, instance, records)
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return active, ok, nil
}

func (s *SQLiteStore) GetOption(ctx context.Context, instance, key string, version int64, fallback any) (any, error) {
	result := fallback
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		records, err := readList(ctx, tx, instance)
		if err != nil {
			return err
		}
		ts := version
		if ts == 0 {
			active, ok := effectiveActiveRecords(ctx, tx, instance, records)
			if !ok {
				return nil
			}
			ts = active
		} else if !hasTimestamp(records, ts) {
			return nil
		}
		values, err := readSnapshotValues(ctx, tx, instance, ts)
		if err != nil {
			return err
		}
		if value, ok := values[key]; ok {
			result = value
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("versions: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("versions: commit: %w", err)
	}
	return nil
}

func getRecord(ctx context.Context, tx *sql.Tx, name string) (string, bool, error) {
	var value string
	err := tx.QueryRowContext(ctx, `SELECT value FROM options WHERE name = ?`, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("versions: read record %q: %w", name, err)
	}
	return value, true, nil
}

func putRecord(ctx context.Context, tx *sql.Tx, name, value string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO options (name, value) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`, name, value)
	if err != nil {
		return fmt.Errorf("versions: write record %q: %w", name, err)
	}
	return nil
}

func deleteRecord(ctx context.Context, tx *sql.Tx, name string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM options WHERE name = ?`, name); err != nil {
		return fmt.Errorf("versions: delete record %q: %w", name, err)
	}
	return nil
}

func readList(ctx context.Context, tx *sql.Tx, instance string) ([]versionRecord, error) {
	raw, ok, err := getRecord(ctx, tx, listKey(instance))
	if err != nil || !ok {
		return nil, err
	}
	var records []versionRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("versions: decode versions list for %q: %w", instance, err)
	}
	return records, nil
}

func writeList(ctx context.Context, tx *sql.Tx, instance string, records []versionRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("versions: encode versions list for %q: %w", instance, err)
	}
	return putRecord(ctx, tx, listKey(instance), string(data))
}

func readSnapshotValues(ctx context.Context, tx *sql.Tx, instance string, timestamp int64) (map[string]any, error) {
	raw, ok, err := getRecord(ctx, tx, snapshotKey(instance, timestamp))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q@%d", ErrNotFound, instance, timestamp)
	}
	var values map[string]any
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("versions: decode snapshot %q@%d: %w", instance, timestamp, err)
	}
	return values, nil
}

func hasTimestamp(records []versionRecord, timestamp int64) bool {
	for _, rec := range records {
		if rec.Timestamp == timestamp {
			return true
		}
	}
	return false
}

// effectiveActiveRecords resolves the pointer record against the versions
// list, falling back to the greatest listed timestamp when the pointer is
// missing or stale.
func effectiveActiveRecords(ctx context.Context, tx *sql.Tx, instance string, records []versionRecord) (int64, bool) {
	if raw, ok, err := getRecord(ctx, tx, activeKey(instance)); err == nil && ok {
		if ts, err := strconv.ParseInt(raw, 10, 64); err == nil && hasTimestamp(records, ts) {
			return ts, true
		}
	}
	var greatest int64
	found := false
	for _, rec := range records {
		if !found || rec.Timestamp > greatest {
			greatest = rec.Timestamp
			found = true
		}
	}
	return greatest, found
}
