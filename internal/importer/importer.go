// Package importer turns AI document extractions into ledger transactions,
// either directly or through a reviewable staging area.
package importer

import (
	"context"
	"strings"
	"time"

	"financas/internal/ai"
	"financas/internal/core"
	"financas/internal/ledger"
	"financas/internal/log"
)

const (
	DefaultCategory    = "Geral"
	DefaultDescription = "Transação Importada"
	DefaultSource      = "Importado"
)

// KnownSources are the account labels a detected bank name is snapped to.
var KnownSources = []string{"Nubank", "Itaú", "Bradesco", "Inter", "Santander", "Caixa", "BB", "Carteira", "Ticket", "Outro"}

// Ledger is the part of the ledger an import writes to.
type Ledger interface {
	AddWithReport(tx core.Transaction) ledger.AddOutcome
	Today() string
}

// Result summarizes one import.
type Result struct {
	BankName   string             `json:"bankName,omitempty"`
	Source     string             `json:"source"`
	Added      []core.Transaction `json:"added"`
	Suppressed []core.Transaction `json:"suppressed"`
	Skipped    int                `json:"skipped"`
}

// MapItems applies the import defaults to raw extracted items. Items without
// a usable amount, or whose current installment is past the total, are
// dropped. Every row gets source.
func MapItems(items []ai.ExtractedItem, source, today string) ([]core.Transaction, int) {
	out := make([]core.Transaction, 0, len(items))
	skipped := 0
	for _, it := range items {
		amount := it.Amount.Abs().Round(2)
		if !amount.IsPositive() || pastLastInstallment(it.Installments) {
			skipped++
			continue
		}

		tx := core.Transaction{
			Description: strings.TrimSpace(it.Description),
			Category:    strings.TrimSpace(it.Category),
			Amount:      amount,
			Date:        it.Date,
			Type:        core.Expense,
			Source:      source,
		}
		if tx.Description == "" {
			tx.Description = DefaultDescription
		}
		if tx.Category == "" {
			tx.Category = DefaultCategory
		}
		if !core.IsISODate(tx.Date) {
			tx.Date = today
		}
		if core.TransactionType(it.Type) == core.Income {
			tx.Type = core.Income
		}
		if it.Installments != nil && it.Installments.Total > 1 {
			inst := *it.Installments
			tx.Installments = &inst
		}
		out = append(out, tx)
	}
	return out, skipped
}

func pastLastInstallment(in *core.Installments) bool {
	return in != nil && in.Total > 1 && in.Current > in.Total
}

// SourceFor returns the label direct imports are tagged with.
func SourceFor(bankName string) string {
	if b := strings.TrimSpace(bankName); b != "" {
		return b
	}
	return DefaultSource
}

// ReviewSource is the default origin offered when committing a staged batch:
// the known source contained in the detected bank name, the bank name itself,
// or the wallet.
func ReviewSource(bankName string) string {
	b := strings.TrimSpace(bankName)
	if b == "" {
		return core.DefaultSource
	}
	lower := strings.ToLower(b)
	for _, s := range KnownSources {
		if strings.Contains(lower, strings.ToLower(s)) {
			return s
		}
	}
	return b
}

// Importer extracts documents and feeds the rows to the ledger.
type Importer struct {
	extractor ai.Extractor
	ledger    Ledger
	logger    *log.Logger
}

func New(extractor ai.Extractor, l Ledger, logger *log.Logger) *Importer {
	return &Importer{
		extractor: extractor,
		ledger:    l,
		logger:    log.OrNop(logger).WithComponent(log.ComponentImporter),
	}
}

// Import extracts doc and adds every item through the ledger one at a time,
// so re-importing the same statement adds nothing.
func (im *Importer) Import(ctx context.Context, doc ai.Document) (Result, error) {
	start := time.Now()
	ex, err := im.extractor.ExtractTransactions(ctx, doc)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		BankName:   ex.BankName,
		Source:     SourceFor(ex.BankName),
		Added:      []core.Transaction{},
		Suppressed: []core.Transaction{},
	}
	txs, skipped := MapItems(ex.Items, res.Source, im.ledger.Today())
	res.Skipped = skipped
	for _, tx := range txs {
		out := im.ledger.AddWithReport(tx)
		res.Added = append(res.Added, out.Added...)
		res.Suppressed = append(res.Suppressed, out.Suppressed...)
	}

	im.logger.InfoContext(ctx, "Document imported",
		log.FieldOperation, log.OpImport,
		log.FieldSource, res.Source,
		log.FieldAdded, len(res.Added),
		log.FieldSuppressed, len(res.Suppressed),
		"skipped", res.Skipped,
		log.FieldDuration, time.Since(start).Milliseconds())
	return res, nil
}
