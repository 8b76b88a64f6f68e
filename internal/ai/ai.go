// Package ai defines the generative-AI collaborators consumed by the ledger
// side of the application: document extraction, insight generation and the
// financial chat advisor.
package ai

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"financas/internal/core"
)

var (
	ErrEmptyDocument       = errors.New("empty document")
	ErrUnsupportedDocument = errors.New("unsupported document type")
	ErrEmptyReply          = errors.New("empty model reply")
)

// Document is an uploaded statement, receipt or invoice.
type Document struct {
	Data     []byte
	MimeType string
}

// ExtractedItem is one line item as returned by the model, before defaults
// are applied.
type ExtractedItem struct {
	Description  string             `json:"description"`
	Amount       decimal.Decimal    `json:"amount"`
	Date         string             `json:"date"`
	Category     string             `json:"category"`
	Type         string             `json:"type"`
	Installments *core.Installments `json:"installments,omitempty"`
}

// Extraction is the structured result of reading a document.
type Extraction struct {
	BankName string          `json:"bankName,omitempty"`
	Items    []ExtractedItem `json:"items"`
}

// ChatRole is "user" or "model".
type ChatRole string

const (
	RoleUser  ChatRole = "user"
	RoleModel ChatRole = "model"
)

type ChatMessage struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}

// ChatRequest carries the conversation plus the ledger context the advisor
// grounds its answer on. A nil Profile means the user has not onboarded.
type ChatRequest struct {
	History      []ChatMessage
	Message      string
	Transactions []core.Transaction
	Profile      *core.UserProfile
}

type Extractor interface {
	ExtractTransactions(ctx context.Context, doc Document) (Extraction, error)
}

type InsightGenerator interface {
	GenerateInsights(ctx context.Context, txs []core.Transaction) ([]core.Insight, error)
}

type Advisor interface {
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

// Backend is a complete AI provider.
type Backend interface {
	Name() string
	Extractor
	InsightGenerator
	Advisor
}
