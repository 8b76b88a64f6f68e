// Package ledger owns the session's transactions, peers and user profile.
//
// Every insert runs through installment expansion and duplicate suppression;
// updates and deletes touch exactly one row and never cascade to the other
// rows of an installment group.
package ledger

import (
	"errors"
	"sync"
	"time"

	"financas/internal/core"
	"financas/internal/ids"
	"financas/internal/log"
)

var (
	ErrPeerNotFound = errors.New("peer not found")
)

// SizeObserver is notified after a mutation changed the number of transactions.
type SizeObserver func(prev, next int)

// AddOutcome reports which expanded rows were stored and which were dropped
// as duplicates.
type AddOutcome struct {
	Added      []core.Transaction `json:"added"`
	Suppressed []core.Transaction `json:"suppressed"`
}

// Ledger is the single in-memory owner of transactions, peers and profile.
// All methods are safe for concurrent use; writers are serialized.
type Ledger struct {
	mu        sync.RWMutex
	txs       []core.Transaction
	peers     []core.Peer
	profile   *core.UserProfile
	observers []SizeObserver

	ids    core.IDSource
	groups core.GroupIDSource
	now    func() time.Time
	logger *log.Logger
}

// Option configures a Ledger
type Option func(*Ledger)

// WithIDs sets the transaction id source
func WithIDs(src core.IDSource) Option {
	return func(l *Ledger) { l.ids = src }
}

// WithGroups sets the installment group id source
func WithGroups(src core.GroupIDSource) Option {
	return func(l *Ledger) { l.groups = src }
}

// WithPeers seeds the peer collection
func WithPeers(peers ...core.Peer) Option {
	return func(l *Ledger) { l.peers = append(l.peers, peers...) }
}

// WithClock overrides the clock used for "today"
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger sets the ledger logger
func WithLogger(logger *log.Logger) Option {
	return func(l *Ledger) { l.logger = log.OrNop(logger).WithComponent(log.ComponentLedger) }
}

// DefaultPeers are the counterparties available from the first run.
func DefaultPeers() []core.Peer {
	return []core.Peer{
		{ID: "1", Name: "Ana Souza", Avatar: "https://i.pravatar.cc/150?u=ana", Email: "ana.s@email.com"},
		{ID: "2", Name: "Alex Pereira", Avatar: "https://i.pravatar.cc/150?u=alex", Email: "alex.p@email.com"},
	}
}

// New creates an empty ledger
func New(opts ...Option) *Ledger {
	l := &Ledger{
		ids:    ids.NewSessionCounter(),
		groups: ids.UUIDGroups{},
		now:    time.Now,
		logger: log.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Today returns the ledger clock's calendar date.
func (l *Ledger) Today() string {
	return core.Today(l.now)
}

// OnSizeChange registers an observer. Observers run outside the ledger lock,
// in registration order.
func (l *Ledger) OnSizeChange(fn SizeObserver) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, fn)
}

func (l *Ledger) notify(prev, next int) {
	if prev == next {
		return
	}
	l.mu.RLock()
	observers := append([]SizeObserver(nil), l.observers...)
	l.mu.RUnlock()
	for _, fn := range observers {
		fn(prev, next)
	}
}

// Add inserts tx, expanding installments and dropping duplicates silently.
func (l *Ledger) Add(tx core.Transaction) {
	l.AddWithReport(tx)
}

// AddWithReport is Add returning the per-row outcome.
func (l *Ledger) AddWithReport(tx core.Transaction) AddOutcome {
	l.mu.Lock()
	prev := len(l.txs)

	var out AddOutcome
	for _, row := range core.Expand(tx, l.ids, l.groups) {
		if core.IsDuplicate(row, l.txs) || core.IsDuplicate(row, out.Added) {
			out.Suppressed = append(out.Suppressed, row)
			continue
		}
		out.Added = append(out.Added, row)
	}

	if len(out.Added) > 0 {
		rows := make([]core.Transaction, 0, len(out.Added)+len(l.txs))
		for _, row := range out.Added {
			rows = append(rows, row.Clone())
		}
		l.txs = append(rows, l.txs...)
	}
	next := len(l.txs)
	l.mu.Unlock()

	if len(out.Suppressed) > 0 {
		l.logger.Debug("Duplicate rows suppressed",
			log.FieldDescription, tx.Description,
			log.FieldAdded, len(out.Added),
			log.FieldSuppressed, len(out.Suppressed))
	}
	l.notify(prev, next)
	return out
}

// Update merge-patches the transaction with the given id. It reports whether
// the id was found; a missing id is a no-op.
func (l *Ledger) Update(id int64, patch Patch) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.txs {
		if l.txs[i].ID == id {
			l.txs[i] = patch.Apply(l.txs[i])
			return true
		}
	}
	return false
}

// Delete removes the transaction with the given id. Siblings sharing its
// group id are left untouched.
func (l *Ledger) Delete(id int64) bool {
	l.mu.Lock()
	prev := len(l.txs)
	found := false
	for i := range l.txs {
		if l.txs[i].ID == id {
			l.txs = append(l.txs[:i:i], l.txs[i+1:]...)
			found = true
			break
		}
	}
	next := len(l.txs)
	l.mu.Unlock()

	l.notify(prev, next)
	return found
}

// Transactions returns a copy of the ledger in insertion order, newest first.
func (l *Ledger) Transactions() []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneAll(l.txs)
}

// Transaction looks up one row by id.
func (l *Ledger) Transaction(id int64) (core.Transaction, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, tx := range l.txs {
		if tx.ID == id {
			return tx.Clone(), true
		}
	}
	return core.Transaction{}, false
}

// Len returns the number of stored transactions.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.txs)
}

// ComputeStats folds the whole ledger; it is never cached.
func (l *Ledger) ComputeStats() core.Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return ViewTotals(l.txs)
}

func cloneAll(txs []core.Transaction) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		out[i] = tx.Clone()
	}
	return out
}
