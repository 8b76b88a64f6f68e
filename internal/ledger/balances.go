package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// PeerBalances computes, for every known peer, the delegated expenses
// against the incomes received from them.
func (l *Ledger) PeerBalances() []core.PeerBalance {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return peerBalances(l.peers, l.txs)
}

func peerBalances(peers []core.Peer, txs []core.Transaction) []core.PeerBalance {
	out := make([]core.PeerBalance, 0, len(peers))
	for _, peer := range peers {
		expected, paid := decimal.Zero, decimal.Zero
		for _, tx := range txs {
			if tx.PeerID != peer.ID {
				continue
			}
			switch tx.Type {
			case core.Expense:
				expected = expected.Add(tx.Amount)
			case core.Income:
				paid = paid.Add(tx.Amount)
			}
		}
		outstanding := expected.Sub(paid)
		if outstanding.IsNegative() {
			outstanding = decimal.Zero
		}
		out = append(out, core.PeerBalance{Peer: peer, Expected: expected, Paid: paid, Outstanding: outstanding})
	}
	return out
}

// TotalReceivable sums the outstanding amount of every balance.
func TotalReceivable(balances []core.PeerBalance) decimal.Decimal {
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b.Outstanding)
	}
	return total
}

// SettlePeer records a payment received from a peer as an income delegated
// to them. It goes through Add, so an identical settlement on the same day
// is suppressed as a duplicate.
func (l *Ledger) SettlePeer(peerID string, amount decimal.Decimal) (AddOutcome, error) {
	peer, ok := l.Peer(peerID)
	if !ok {
		return AddOutcome{}, fmt.Errorf("%w: %s", ErrPeerNotFound, peerID)
	}
	if !amount.IsPositive() {
		return AddOutcome{}, core.ErrInvalidAmount
	}

	return l.AddWithReport(core.Transaction{
		Description: "Pagamento de " + peer.Name,
		Category:    "Reembolso",
		Amount:      amount,
		Date:        l.Today(),
		Type:        core.Income,
		Source:      core.DefaultSource,
		PeerID:      peer.ID,
	}), nil
}
