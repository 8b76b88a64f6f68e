package importer

import (
	"context"
	"errors"
	"strings"
	"sync"

	"financas/internal/ai"
	"financas/internal/core"
	"financas/internal/ledger"
	"financas/internal/log"
)

var ErrStagedItemNotFound = errors.New("staged item not found")

// Batch is the staged content awaiting review.
type Batch struct {
	BankName string             `json:"bankName,omitempty"`
	Source   string             `json:"source"` // default origin for Commit
	Items    []core.Transaction `json:"items"`
}

// Staging holds one extracted batch for review before it reaches the ledger.
// Staged rows carry local ids that are not ledger ids.
type Staging struct {
	extractor ai.Extractor
	ledger    Ledger
	logger    *log.Logger

	mu     sync.Mutex
	batch  Batch
	nextID int64
}

func NewStaging(extractor ai.Extractor, l Ledger, logger *log.Logger) *Staging {
	return &Staging{
		extractor: extractor,
		ledger:    l,
		logger:    log.OrNop(logger).WithComponent(log.ComponentImporter),
		batch:     Batch{Source: core.DefaultSource, Items: []core.Transaction{}},
	}
}

// Stage extracts doc and replaces the staged batch with its rows.
func (s *Staging) Stage(ctx context.Context, doc ai.Document) (Batch, error) {
	ex, err := s.extractor.ExtractTransactions(ctx, doc)
	if err != nil {
		return Batch{}, err
	}

	txs, skipped := MapItems(ex.Items, DefaultSource, s.ledger.Today())

	s.mu.Lock()
	for i := range txs {
		s.nextID++
		txs[i].ID = s.nextID
	}
	s.batch = Batch{BankName: ex.BankName, Source: ReviewSource(ex.BankName), Items: txs}
	out := s.snapshot()
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Document staged for review",
		"items", len(txs),
		"skipped", skipped,
		"bank", ex.BankName)
	return out, nil
}

// Batch returns a copy of the staged batch.
func (s *Staging) Batch() Batch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Staging) snapshot() Batch {
	b := s.batch
	b.Items = make([]core.Transaction, len(s.batch.Items))
	for i, tx := range s.batch.Items {
		b.Items[i] = tx.Clone()
	}
	return b
}

// UpdateItem edits one staged row.
func (s *Staging) UpdateItem(id int64, patch ledger.Patch) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.batch.Items {
		if s.batch.Items[i].ID == id {
			s.batch.Items[i] = patch.Apply(s.batch.Items[i])
			return s.batch.Items[i].Clone(), nil
		}
	}
	return core.Transaction{}, ErrStagedItemNotFound
}

// Remove drops one staged row.
func (s *Staging) Remove(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.batch.Items {
		if s.batch.Items[i].ID == id {
			s.batch.Items = append(s.batch.Items[:i:i], s.batch.Items[i+1:]...)
			return true
		}
	}
	return false
}

// Commit tags every staged row with one origin and adds them through the
// ledger. A blank sourceOverride uses the batch default. The staging area
// is emptied afterwards.
func (s *Staging) Commit(ctx context.Context, sourceOverride string) Result {
	s.mu.Lock()
	batch := s.batch
	s.batch = Batch{Source: core.DefaultSource, Items: []core.Transaction{}}
	s.mu.Unlock()

	source := strings.TrimSpace(sourceOverride)
	if source == "" {
		source = batch.Source
	}

	res := Result{
		BankName:   batch.BankName,
		Source:     source,
		Added:      []core.Transaction{},
		Suppressed: []core.Transaction{},
	}
	for _, tx := range batch.Items {
		tx.ID = 0
		tx.Source = source
		out := s.ledger.AddWithReport(tx)
		res.Added = append(res.Added, out.Added...)
		res.Suppressed = append(res.Suppressed, out.Suppressed...)
	}

	s.logger.InfoContext(ctx, "Staged batch committed",
		log.FieldOperation, log.OpImport,
		log.FieldSource, source,
		log.FieldAdded, len(res.Added),
		log.FieldSuppressed, len(res.Suppressed))
	return res
}

// Discard empties the staging area.
func (s *Staging) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batch = Batch{Source: core.DefaultSource, Items: []core.Transaction{}}
}
