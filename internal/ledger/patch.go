package ledger

import (
	"github.com/shopspring/decimal"

	"financas/internal/core"
)

// Patch is a field-by-field update; nil fields are retained.
// A non-nil PeerID pointing at "" removes the peer delegation.
type Patch struct {
	Description  *string               `json:"description,omitempty"`
	Category     *string               `json:"category,omitempty"`
	Amount       *decimal.Decimal      `json:"amount,omitempty"`
	Date         *string               `json:"date,omitempty"`
	Type         *core.TransactionType `json:"type,omitempty"`
	Source       *string               `json:"source,omitempty"`
	PeerID       *string               `json:"peerId,omitempty"`
	GroupID      *string               `json:"groupId,omitempty"`
	FinalDate    *string               `json:"finalDate,omitempty"`
	Installments *core.Installments    `json:"installments,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

// Apply returns tx with the patch applied.
func (p Patch) Apply(tx core.Transaction) core.Transaction {
	if p.Description != nil {
		tx.Description = *p.Description
	}
	if p.Category != nil {
		tx.Category = *p.Category
	}
	if p.Amount != nil {
		tx.Amount = *p.Amount
	}
	if p.Date != nil {
		tx.Date = *p.Date
	}
	if p.Type != nil {
		tx.Type = *p.Type
	}
	if p.Source != nil {
		tx.Source = *p.Source
	}
	if p.PeerID != nil {
		tx.PeerID = *p.PeerID
	}
	if p.GroupID != nil {
		tx.GroupID = *p.GroupID
	}
	if p.FinalDate != nil {
		tx.FinalDate = *p.FinalDate
	}
	if p.Installments != nil {
		inst := *p.Installments
		tx.Installments = &inst
	}
	return tx
}

// PeerPatch updates a peer; nil fields are retained.
type PeerPatch struct {
	Name   *string `json:"name,omitempty"`
	Avatar *string `json:"avatar,omitempty"`
	Email  *string `json:"email,omitempty"`
}

func (p PeerPatch) apply(peer core.Peer) core.Peer {
	if p.Name != nil {
		peer.Name = *p.Name
	}
	if p.Avatar != nil {
		peer.Avatar = *p.Avatar
	}
	if p.Email != nil {
		peer.Email = *p.Email
	}
	return peer
}

// ProfilePatch updates the user profile. A nil Goals slice is retained; an
// empty non-nil slice clears the goals.
type ProfilePatch struct {
	MonthlyIncome       *decimal.Decimal  `json:"monthlyIncome,omitempty"`
	Goals               []string          `json:"goals,omitempty"`
	RiskProfile         *core.RiskProfile `json:"riskProfile,omitempty"`
	OnboardingCompleted *bool             `json:"onboardingCompleted,omitempty"`
}

func (p ProfilePatch) apply(profile core.UserProfile) core.UserProfile {
	if p.MonthlyIncome != nil {
		profile.MonthlyIncome = *p.MonthlyIncome
	}
	if p.Goals != nil {
		profile.Goals = append([]string{}, p.Goals...)
	}
	if p.RiskProfile != nil {
		profile.RiskProfile = *p.RiskProfile
	}
	if p.OnboardingCompleted != nil {
		profile.OnboardingCompleted = *p.OnboardingCompleted
	}
	return profile
}
