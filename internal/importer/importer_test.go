package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"financas/internal/ai"
	"financas/internal/core"
	"financas/internal/ids"
	"financas/internal/ledger"
)

type fakeExtractor struct {
	out ai.Extraction
	err error
}

func (f fakeExtractor) ExtractTransactions(context.Context, ai.Document) (ai.Extraction, error) {
	return f.out, f.err
}

func newTestLedger() *ledger.Ledger {
	return ledger.New(
		ledger.WithIDs(ids.NewCounter(0)),
		ledger.WithGroups(&ids.SequenceGroups{}),
		ledger.WithClock(func() time.Time { return time.Date(2024, 6, 20, 10, 0, 0, 0, time.UTC) }),
	)
}

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var statement = ai.Extraction{
	BankName: "Nubank S.A.",
	Items: []ai.ExtractedItem{
		{Description: "Padaria", Amount: amt("12.50"), Date: "2024-06-01", Category: "Alimentação", Type: "expense"},
		{Description: "", Amount: amt("-40"), Date: "", Category: "", Type: ""},
		{Description: "Salário", Amount: amt("5000"), Date: "2024-06-05", Type: "income"},
		{Description: "Geladeira", Amount: amt("300"), Date: "2024-06-10", Category: "Casa", Type: "expense",
			Installments: &core.Installments{Current: 2, Total: 4}},
		{Description: "Brinde", Amount: decimal.Zero, Date: "2024-06-11"},
		{Description: "Parcela única", Amount: amt("99"), Date: "2024-06-12", Installments: &core.Installments{Current: 1, Total: 1}},
	},
}

func TestMapItemsDefaults(t *testing.T) {
	txs, skipped := MapItems(statement.Items, "Nubank", "2024-06-20")
	require.Len(t, txs, 5)
	assert.Equal(t, 1, skipped)

	blank := txs[1]
	assert.Equal(t, DefaultDescription, blank.Description)
	assert.Equal(t, DefaultCategory, blank.Category)
	assert.Equal(t, "2024-06-20", blank.Date)
	assert.Equal(t, core.Expense, blank.Type)
	assert.True(t, amt("40").Equal(blank.Amount))

	assert.Equal(t, core.Income, txs[2].Type)
	assert.Equal(t, &core.Installments{Current: 2, Total: 4}, txs[3].Installments)
	assert.Nil(t, txs[4].Installments)
	for _, tx := range txs {
		assert.Equal(t, "Nubank", tx.Source)
		assert.NoError(t, tx.Validate())
	}
}

func TestMapItemsDropsItemsPastLastInstallment(t *testing.T) {
	items := []ai.ExtractedItem{
		{Description: "Sofá", Amount: amt("250"), Date: "2024-06-10", Installments: &core.Installments{Current: 7, Total: 6}},
		{Description: "Mesa", Amount: amt("100"), Date: "2024-06-10", Installments: &core.Installments{Current: 6, Total: 6}},
	}

	txs, skipped := MapItems(items, "Inter", "2024-06-20")
	require.Len(t, txs, 1)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, "Mesa", txs[0].Description)
	assert.Equal(t, &core.Installments{Current: 6, Total: 6}, txs[0].Installments)
}

func TestSourceDefaults(t *testing.T) {
	assert.Equal(t, "Importado", SourceFor("  "))
	assert.Equal(t, "Inter", SourceFor("Inter"))

	assert.Equal(t, "Carteira", ReviewSource(""))
	assert.Equal(t, "Nubank", ReviewSource("Nubank S.A."))
	assert.Equal(t, "Itaú", ReviewSource("Banco Itaú Unibanco"))
	assert.Equal(t, "XP Investimentos", ReviewSource("XP Investimentos"))
}

func TestImportIsIdempotent(t *testing.T) {
	l := newTestLedger()
	im := New(fakeExtractor{out: statement}, l, nil)

	first, err := im.Import(context.Background(), ai.Document{Data: []byte("x"), MimeType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, "Nubank S.A.", first.Source)
	assert.Len(t, first.Added, 7) // 4 single rows + installments 2..4
	assert.Empty(t, first.Suppressed)
	assert.Equal(t, 1, first.Skipped)

	second, err := im.Import(context.Background(), ai.Document{Data: []byte("x"), MimeType: "image/png"})
	require.NoError(t, err)
	assert.Empty(t, second.Added)
	assert.Len(t, second.Suppressed, 7)
	assert.Equal(t, 7, l.Len())
}

func TestImportWithoutBankUsesImportado(t *testing.T) {
	l := newTestLedger()
	im := New(fakeExtractor{out: ai.Extraction{Items: statement.Items[:1]}}, l, nil)

	res, err := im.Import(context.Background(), ai.Document{Data: []byte("x")})
	require.NoError(t, err)
	require.Len(t, res.Added, 1)
	assert.Equal(t, "Importado", res.Added[0].Source)
}

func TestImportPropagatesExtractorError(t *testing.T) {
	im := New(fakeExtractor{err: ai.ErrEmptyDocument}, newTestLedger(), nil)
	_, err := im.Import(context.Background(), ai.Document{})
	assert.True(t, errors.Is(err, ai.ErrEmptyDocument))
}

func TestStagingReviewAndCommit(t *testing.T) {
	l := newTestLedger()
	st := NewStaging(fakeExtractor{out: statement}, l, nil)

	batch, err := st.Stage(context.Background(), ai.Document{Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "Nubank", batch.Source)
	require.Len(t, batch.Items, 5)
	for _, tx := range batch.Items {
		assert.Equal(t, DefaultSource, tx.Source)
	}
	assert.Zero(t, l.Len(), "staging must not touch the ledger")

	desc := "Pão de queijo"
	updated, err := st.UpdateItem(batch.Items[0].ID, ledger.Patch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, desc, updated.Description)

	_, err = st.UpdateItem(999, ledger.Patch{Description: &desc})
	assert.ErrorIs(t, err, ErrStagedItemNotFound)

	assert.True(t, st.Remove(batch.Items[1].ID))
	assert.False(t, st.Remove(batch.Items[1].ID))
	assert.Len(t, st.Batch().Items, 4)

	res := st.Commit(context.Background(), "")
	assert.Equal(t, "Nubank", res.Source)
	assert.Len(t, res.Added, 6)
	for _, tx := range l.Transactions() {
		assert.Equal(t, "Nubank", tx.Source)
	}
	_, found := lookup(l, desc)
	assert.True(t, found)

	assert.Empty(t, st.Batch().Items, "commit empties the staging area")
}

func TestStagingCommitOverrideAndDedup(t *testing.T) {
	l := newTestLedger()
	st := NewStaging(fakeExtractor{out: ai.Extraction{Items: statement.Items[:1]}}, l, nil)

	_, err := st.Stage(context.Background(), ai.Document{Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, core.DefaultSource, st.Batch().Source)
	res := st.Commit(context.Background(), "Inter")
	require.Len(t, res.Added, 1)
	assert.Equal(t, "Inter", res.Added[0].Source)

	// same row under the same origin is a duplicate
	_, _ = st.Stage(context.Background(), ai.Document{Data: []byte("x")})
	res = st.Commit(context.Background(), "Inter")
	assert.Empty(t, res.Added)
	assert.Len(t, res.Suppressed, 1)

	// a different origin bypasses duplicate detection
	_, _ = st.Stage(context.Background(), ai.Document{Data: []byte("x")})
	res = st.Commit(context.Background(), "Carteira")
	assert.Len(t, res.Added, 1)
	assert.Equal(t, 2, l.Len())
}

func TestStagingDiscard(t *testing.T) {
	st := NewStaging(fakeExtractor{out: statement}, newTestLedger(), nil)
	_, err := st.Stage(context.Background(), ai.Document{Data: []byte("x")})
	require.NoError(t, err)
	st.Discard()
	b := st.Batch()
	assert.Empty(t, b.Items)
	assert.Equal(t, core.DefaultSource, b.Source)
}

func lookup(l *ledger.Ledger, desc string) (core.Transaction, bool) {
	for _, tx := range l.Transactions() {
		if tx.Description == desc {
			return tx, true
		}
	}
	return core.Transaction{}, false
}
