// Package audit keeps an optional SQLite record of facilitator
// intervention attempts so admins can review cost and failures after the
// fact. Rooms themselves are never persisted.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/louisbranch/bridge-ai/internal/platform/id"
	"github.com/louisbranch/bridge-ai/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/bridge-ai/internal/services/bridge/audit/migrations"
	"github.com/louisbranch/bridge-ai/internal/services/bridge/intervention"
)

// DefaultListLimit caps ListByRoom when no limit is given.
const DefaultListLimit = 100

// Record is one stored intervention attempt.
type Record struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"roomId"`
	Trigger   string    `json:"trigger"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	LatencyMS int64     `json:"latencyMs"`
	CreatedAt time.Time `json:"createdAt"`
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Store provides SQLite-backed persistence for intervention attempts.
type Store struct {
	sqlDB *sql.DB
	newID func() (string, error)
}

// Open opens (creating if needed) the audit database at path and applies
// migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, newID: id.NewID}, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordAttempt stores one intervention attempt.
func (s *Store) RecordAttempt(ctx context.Context, attempt intervention.Attempt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(attempt.RoomID) == "" {
		return fmt.Errorf("room id is required")
	}
	if attempt.Trigger == "" {
		return fmt.Errorf("trigger is required")
	}
	if attempt.Outcome == "" {
		return fmt.Errorf("outcome is required")
	}
	if attempt.At.IsZero() {
		return fmt.Errorf("attempt time is required")
	}

	recordID, err := s.newID()
	if err != nil {
		return fmt.Errorf("generate record id: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO interventions (
	id, room_id, trigger_kind, outcome, detail, latency_ms, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		recordID,
		strings.TrimSpace(attempt.RoomID),
		string(attempt.Trigger),
		string(attempt.Outcome),
		attempt.Detail,
		attempt.Latency.Milliseconds(),
		toMillis(attempt.At),
	)
	if err != nil {
		return fmt.Errorf("put intervention: %w", err)
	}
	return nil
}

// ListByRoom returns the latest limit attempts for roomID in chronological
// order.
func (s *Store) ListByRoom(ctx context.Context, roomID string, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil, fmt.Errorf("room id is required")
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, room_id, trigger_kind, outcome, detail, latency_ms, created_at
FROM interventions
WHERE room_id = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("list interventions: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var (
			rec       Record
			createdAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.RoomID, &rec.Trigger, &rec.Outcome, &rec.Detail, &rec.LatencyMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan intervention: %w", err)
		}
		rec.CreatedAt = fromMillis(createdAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interventions: %w", err)
	}
	slices.Reverse(records)
	return records, nil
}
