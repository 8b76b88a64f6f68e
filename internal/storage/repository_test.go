package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"financas/internal/amqp"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "journal.db"), nil)
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func event(id string, typ amqp.EventType, txID int64) *amqp.LedgerEvent {
	return &amqp.LedgerEvent{
		ID:            id,
		Type:          typ,
		TransactionID: txID,
		Payload:       []byte(`{"id":1}`),
		Timestamp:     time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestAppendIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	written, err := repo.Append(ctx, event("ev-1", amqp.TransactionAdded, 42))
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if !written {
		t.Error("first Append should write a row")
	}

	written, err = repo.Append(ctx, event("ev-1", amqp.TransactionAdded, 42))
	if err != nil {
		t.Fatalf("Append() redelivery error = %v", err)
	}
	if written {
		t.Error("redelivered event should not be written twice")
	}

	n, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestListFiltersAndOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	events := []*amqp.LedgerEvent{
		event("a", amqp.TransactionAdded, 1),
		event("b", amqp.TransactionUpdated, 1),
		event("c", amqp.TransactionAdded, 2),
		{ID: "d", Type: amqp.PeerAdded, PeerID: "3", Timestamp: time.Now()},
	}
	for _, ev := range events {
		if _, err := repo.Append(ctx, ev); err != nil {
			t.Fatalf("Append(%s) error = %v", ev.ID, err)
		}
	}

	tests := []struct {
		name   string
		filter ListFilter
		want   []string
	}{
		{"all newest first", ListFilter{}, []string{"d", "c", "b", "a"}},
		{"by type", ListFilter{Type: amqp.TransactionAdded}, []string{"c", "a"}},
		{"by transaction", ListFilter{TransactionID: 1}, []string{"b", "a"}},
		{"limited", ListFilter{Limit: 2}, []string{"d", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(entries) != len(tt.want) {
				t.Fatalf("List() returned %d entries, want %d", len(entries), len(tt.want))
			}
			for i, id := range tt.want {
				if entries[i].EventID != id {
					t.Errorf("entries[%d] = %s, want %s", i, entries[i].EventID, id)
				}
			}
		})
	}
}

func TestListRoundTripsFields(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	peerEvent := &amqp.LedgerEvent{ID: "p", Type: amqp.PeerDeleted, PeerID: "7", Timestamp: time.Now()}
	if _, err := repo.Append(ctx, peerEvent); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	entries, err := repo.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("List() returned %d entries, want 1", len(entries))
	}
	got := entries[0]
	if got.PeerID != "7" || got.TransactionID != 0 || got.Payload != nil {
		t.Errorf("entry = %+v", got)
	}
	if got.Type != amqp.PeerDeleted {
		t.Errorf("Type = %s, want %s", got.Type, amqp.PeerDeleted)
	}
}

func TestMigrateJournalIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	for i := 0; i < 2; i++ {
		version, err := MigrateJournal(path)
		if err != nil {
			t.Fatalf("MigrateJournal() run %d error = %v", i+1, err)
		}
		if version != 1 {
			t.Errorf("MigrateJournal() run %d version = %d, want 1", i+1, version)
		}
	}
}
