// Package storage keeps the audit journal of ledger events in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"financas/internal/amqp"
	"financas/internal/log"

	_ "modernc.org/sqlite"
)

// JournalEntry is one stored event.
type JournalEntry struct {
	Seq           int64
	EventID       string
	Type          amqp.EventType
	TransactionID int64
	PeerID        string
	Payload       []byte
	OccurredAt    time.Time
	RecordedAt    time.Time
}

// ListFilter narrows List. Zero values match everything.
type ListFilter struct {
	Type          amqp.EventType
	TransactionID int64
	Limit         int
}

const defaultListLimit = 100

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// a single writer keeps sqlite from returning SQLITE_BUSY under load
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := MigrateJournal(dbPath)
	if err != nil {
		db.Close()
		return nil, err
	}

	repo := &SQLiteRepository{
		db:     db,
		logger: log.OrNop(logger).WithComponent(log.ComponentStorage),
	}
	repo.logger.Debug("Journal schema ready", "version", version)
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Append stores ev. Redelivered events (same id) are ignored; the returned
// bool reports whether a row was written.
func (r *SQLiteRepository) Append(ctx context.Context, ev *amqp.LedgerEvent) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO ledger_events
			(event_id, event_type, transaction_id, peer_id, payload, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID,
		string(ev.Type),
		nullInt(ev.TransactionID),
		nullString(ev.PeerID),
		nullString(string(ev.Payload)),
		ev.Timestamp.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert ledger event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		r.logger.DebugContext(ctx, "Ledger event already journaled", "event_id", ev.ID)
		return false, nil
	}

	r.logger.InfoContext(ctx, "Ledger event journaled",
		log.FieldEvent, ev.Type,
		"event_id", ev.ID)
	return true, nil
}

// List returns the newest entries first.
func (r *SQLiteRepository) List(ctx context.Context, f ListFilter) ([]JournalEntry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT seq, event_id, event_type, transaction_id, peer_id, payload, occurred_at, recorded_at
		FROM ledger_events
		WHERE (? = '' OR event_type = ?)
		  AND (? = 0 OR transaction_id = ?)
		ORDER BY seq DESC
		LIMIT ?`,
		string(f.Type), string(f.Type),
		f.TransactionID, f.TransactionID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list ledger events: %w", err)
	}
	defer rows.Close()

	var entries []JournalEntry
	for rows.Next() {
		var (
			e       JournalEntry
			typ     string
			txID    sql.NullInt64
			peerID  sql.NullString
			payload sql.NullString
		)
		if err := rows.Scan(&e.Seq, &e.EventID, &typ, &txID, &peerID, &payload, &e.OccurredAt, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan ledger event: %w", err)
		}
		e.Type = amqp.EventType(typ)
		e.TransactionID = txID.Int64
		e.PeerID = peerID.String
		if payload.Valid {
			e.Payload = []byte(payload.String)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_events`).Scan(&n)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("count ledger events: %w", err)
	}
	return n, nil
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
