package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	Conservative RiskProfile = "conservative"
	Moderate     RiskProfile = "moderate"
	Aggressive   RiskProfile = "aggressive"
)

const (
	InsightWarning InsightType = "warning"
	InsightInfo    InsightType = "info"
	InsightSuccess InsightType = "success"
)

// DefaultSource is applied to transactions that arrive without an origin label.
const DefaultSource = "Carteira"

type (
	TransactionType string
	RiskProfile     string
	InsightType     string

	// Installments is 1-indexed. Expanded rows have Current <= Total.
	Installments struct {
		Current int `json:"current"`
		Total   int `json:"total"`
	}

	Transaction struct {
		ID           int64           `json:"id"`
		Description  string          `json:"description"`
		Category     string          `json:"category"`
		Amount       decimal.Decimal `json:"amount"`
		Date         string          `json:"date"` // YYYY-MM-DD
		Type         TransactionType `json:"type"`
		Source       string          `json:"source"`
		PeerID       string          `json:"peerId,omitempty"`
		GroupID      string          `json:"groupId,omitempty"`
		FinalDate    string          `json:"finalDate,omitempty"`
		Installments *Installments   `json:"installments,omitempty"`
	}

	Peer struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
		Email  string `json:"email"`
	}

	UserProfile struct {
		MonthlyIncome       decimal.Decimal `json:"monthlyIncome"`
		Goals               []string        `json:"goals"`
		RiskProfile         RiskProfile     `json:"riskProfile"`
		OnboardingCompleted bool            `json:"onboardingCompleted"`
	}

	Stats struct {
		TotalIncome  decimal.Decimal `json:"totalIncome"`
		TotalExpense decimal.Decimal `json:"totalExpense"`
		Balance      decimal.Decimal `json:"balance"`
	}

	Insight struct {
		Type    InsightType `json:"type"`
		Title   string      `json:"title"`
		Message string      `json:"message"`
		Icon    string      `json:"icon"`
	}
)

var (
	ErrEmptyDescription    = errors.New("empty description")
	ErrDescriptionTooLong  = errors.New("description too long (max 200 characters)")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrInvalidInstallments = errors.New("invalid installments")
	ErrInvalidInsight      = errors.New("invalid insight")
)

func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

func (r RiskProfile) IsValid() bool {
	switch r {
	case Conservative, Moderate, Aggressive:
		return true
	default:
		return false
	}
}

func (t InsightType) IsValid() bool {
	switch t {
	case InsightWarning, InsightInfo, InsightSuccess:
		return true
	default:
		return false
	}
}

// NormalizeSource returns DefaultSource when s is blank and s unchanged
// otherwise.
func NormalizeSource(s string) string {
	if strings.TrimSpace(s) == "" {
		return DefaultSource
	}
	return s
}

func (i Installments) Validate() error {
	if i.Total <= 1 || i.Current < 1 || i.Current > i.Total {
		return ErrInvalidInstallments
	}
	return nil
}

// Validate checks a transaction before it is handed to the ledger.
// The ledger itself stores whatever it receives.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !IsISODate(t.Date) {
		return ErrInvalidDate
	}
	if !t.Type.IsValid() {
		return ErrInvalidType
	}
	if t.Installments != nil {
		// current may be left at 0 and defaults to 1 on expansion
		inst := *t.Installments
		if inst.Current == 0 {
			inst.Current = 1
		}
		if err := inst.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (i Insight) Validate() error {
	if !i.Type.IsValid() || strings.TrimSpace(i.Title) == "" {
		return ErrInvalidInsight
	}
	return nil
}

// DefaultProfile is the baseline a profile is seeded with on its first update.
func DefaultProfile() UserProfile {
	return UserProfile{
		MonthlyIncome:       decimal.Zero,
		Goals:               []string{},
		RiskProfile:         Moderate,
		OnboardingCompleted: false,
	}
}

// Clone returns a copy that shares no mutable state with t.
func (t Transaction) Clone() Transaction {
	if t.Installments != nil {
		inst := *t.Installments
		t.Installments = &inst
	}
	return t
}
