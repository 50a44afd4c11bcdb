// Package store persists conversation memory snapshots in SQLite so a
// session can be exported, listed and restored across process restarts.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/memclaw/internal/memory"
)

// SnapshotStore persists memory.Snapshot values keyed by conversation
// name. Writes replace the whole snapshot atomically.
type SnapshotStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// SnapshotInfo describes one stored snapshot without loading its turns.
type SnapshotInfo struct {
	Name      string
	Turns     int
	UpdatedAt time.Time
}

// NewSnapshotStore opens (or creates) a SQLite database at the given
// path and initializes the schema.
func NewSnapshotStore(dbPath string) (*SnapshotStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &SnapshotStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("snapshot store opened", "path", dbPath)
	return s, nil
}

func (s *SnapshotStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			name TEXT PRIMARY KEY,
			current_turn INTEGER NOT NULL,
			evicted INTEGER NOT NULL,
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
		)`,
		`CREATE TABLE IF NOT EXISTS snapshot_turns (
			name TEXT NOT NULL,
			position INTEGER NOT NULL,
			turn_id INTEGER NOT NULL,
			role TEXT NOT NULL,
			tier TEXT NOT NULL,
			level INTEGER NOT NULL,
			text TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			entities TEXT NOT NULL DEFAULT '[]',
			raw_tokens INTEGER NOT NULL DEFAULT 0,
			compressed_tokens INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (name, position)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshot_turns_name ON snapshot_turns(name)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema: %w", err)
		}
	}
	return nil
}

// Save stores the snapshot under name, replacing any previous snapshot
// with the same name.
func (s *SnapshotStore) Save(name string, snap *memory.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM snapshot_turns WHERE name = ?`, name); err != nil {
		return fmt.Errorf("clear turns: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO snapshots (name, current_turn, evicted, updated_at)
		 VALUES (?, ?, ?, strftime('%s','now'))
		 ON CONFLICT(name) DO UPDATE SET
		   current_turn = excluded.current_turn,
		   evicted = excluded.evicted,
		   updated_at = excluded.updated_at`,
		name, snap.CurrentTurn, snap.Evicted,
	); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO snapshot_turns
		 (name, position, turn_id, role, tier, level, text, timestamp, entities, raw_tokens, compressed_tokens)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for pos, rec := range snap.Turns {
		entities, err := json.Marshal(rec.Entities)
		if err != nil {
			return fmt.Errorf("marshal entities: %w", err)
		}
		if _, err := stmt.Exec(
			name, pos, rec.ID, string(rec.Role), string(rec.Tier), int(rec.Level),
			rec.Text, rec.Timestamp, string(entities), rec.RawTokens, rec.CompressedTokens,
		); err != nil {
			return fmt.Errorf("insert turn %d: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.Info("snapshot saved", "name", name, "turns", len(snap.Turns))
	return nil
}

// Load returns the snapshot stored under name, or sql.ErrNoRows wrapped
// if none exists.
func (s *SnapshotStore) Load(name string) (*memory.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &memory.Snapshot{}
	err := s.db.QueryRow(
		`SELECT current_turn, evicted FROM snapshots WHERE name = ?`, name,
	).Scan(&snap.CurrentTurn, &snap.Evicted)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %q: %w", name, err)
	}

	rows, err := s.db.Query(
		`SELECT turn_id, role, tier, level, text, timestamp, entities, raw_tokens, compressed_tokens
		 FROM snapshot_turns WHERE name = ? ORDER BY position`, name)
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec memory.TurnRecord
		var role, tier, entities string
		var level int
		if err := rows.Scan(&rec.ID, &role, &tier, &level, &rec.Text,
			&rec.Timestamp, &entities, &rec.RawTokens, &rec.CompressedTokens); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		rec.Role = memory.Role(role)
		rec.Tier = memory.TierName(tier)
		rec.Level = memory.Level(level)
		if err := json.Unmarshal([]byte(entities), &rec.Entities); err != nil {
			return nil, fmt.Errorf("unmarshal entities: %w", err)
		}
		snap.Turns = append(snap.Turns, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return snap, nil
}

// List returns summary info for all stored snapshots, newest first.
func (s *SnapshotStore) List() ([]SnapshotInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT s.name, s.updated_at, COUNT(t.name)
		 FROM snapshots s
		 LEFT JOIN snapshot_turns t ON t.name = s.name
		 GROUP BY s.name
		 ORDER BY s.updated_at DESC, s.name`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var updated int64
		if err := rows.Scan(&info.Name, &updated, &info.Turns); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		info.UpdatedAt = time.Unix(updated, 0)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// Delete removes the named snapshot. Deleting a missing snapshot is a
// no-op.
func (s *SnapshotStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM snapshot_turns WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete turns: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM snapshots WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return tx.Commit()
}

// Close closes the underlying database.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}
