// Package services orchestrates the ledger, the insight controller, the
// document importer and event publishing behind one API for the transports.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"financas/internal/ai"
	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/ids"
	"financas/internal/importer"
	"financas/internal/insights"
	"financas/internal/ledger"
	"financas/internal/log"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrPeerNotFound        = ledger.ErrPeerNotFound
	ErrEmptyPeerName       = errors.New("peer name is required")
	ErrInvalidProfile      = errors.New("invalid profile")
	ErrEmptyMessage        = errors.New("message is required")
)

// Publisher sends ledger events to the bus.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// Entry is a manually typed transaction. Installments is the total number of
// parcels; values <= 1 mean a single purchase.
type Entry struct {
	Description        string               `json:"description"`
	Category           string               `json:"category"`
	Amount             decimal.Decimal      `json:"amount"`
	Date               string               `json:"date"`
	Type               core.TransactionType `json:"type"`
	Source             string               `json:"source"`
	PeerID             string               `json:"peerId"`
	Installments       int                  `json:"installments"`
	CurrentInstallment int                  `json:"currentInstallment"`
}

// NewPeer is the input of AddPeer.
type NewPeer struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

// FinanceService orchestrates ledger operations across insights, imports
// and AMQP
type FinanceService struct {
	ledger    *ledger.Ledger
	insights  *insights.Controller
	advisor   ai.Advisor
	importer  *importer.Importer
	staging   *importer.Staging
	publisher Publisher
	peerIDs   core.IDSource
	logger    *log.Logger
}

type Option func(*FinanceService)

// WithPublisher enables event publishing. A nil publisher disables it.
func WithPublisher(p Publisher) Option {
	return func(s *FinanceService) {
		s.publisher = p
	}
}

func WithPeerIDs(src core.IDSource) Option {
	return func(s *FinanceService) {
		s.peerIDs = src
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(s *FinanceService) {
		s.logger = log.OrNop(logger).WithComponent(log.ComponentApp)
	}
}

func NewFinanceService(
	l *ledger.Ledger,
	controller *insights.Controller,
	advisor ai.Advisor,
	im *importer.Importer,
	staging *importer.Staging,
	opts ...Option,
) *FinanceService {
	s := &FinanceService{
		ledger:   l,
		insights: controller,
		advisor:  advisor,
		importer: im,
		staging:  staging,
		peerIDs:  ids.NewSessionCounter(),
		logger:   log.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateTransaction validates a manual entry and adds it to the ledger.
// A blank date means today.
func (s *FinanceService) CreateTransaction(ctx context.Context, e Entry) (ledger.AddOutcome, error) {
	tx := core.Transaction{
		Description: strings.TrimSpace(e.Description),
		Category:    strings.TrimSpace(e.Category),
		Amount:      e.Amount.Round(2),
		Date:        e.Date,
		Type:        e.Type,
		Source:      e.Source,
		PeerID:      e.PeerID,
	}
	if tx.Date == "" {
		tx.Date = s.ledger.Today()
	}
	if e.Installments > 1 {
		tx.Installments = &core.Installments{Current: e.CurrentInstallment, Total: e.Installments}
	}
	if err := tx.Validate(); err != nil {
		return ledger.AddOutcome{}, err
	}

	outcome := s.ledger.AddWithReport(tx)
	for _, row := range outcome.Added {
		s.publish(ctx, amqp.TransactionAdded, row.ID, row.PeerID, row)
	}

	s.logger.InfoContext(ctx, "Transaction created",
		log.FieldDescription, tx.Description,
		log.FieldAdded, len(outcome.Added),
		log.FieldSuppressed, len(outcome.Suppressed))
	return outcome, nil
}

func (s *FinanceService) Transactions(f ledger.Filter) []core.Transaction {
	return s.ledger.View(f)
}

// UpdateTransaction patches one row. The patched row must still be valid.
func (s *FinanceService) UpdateTransaction(ctx context.Context, id int64, patch ledger.Patch) (core.Transaction, error) {
	current, ok := s.ledger.Transaction(id)
	if !ok {
		return core.Transaction{}, fmt.Errorf("%w: %d", ErrTransactionNotFound, id)
	}
	if err := patch.Apply(current).Validate(); err != nil {
		return core.Transaction{}, err
	}
	if !s.ledger.Update(id, patch) {
		return core.Transaction{}, fmt.Errorf("%w: %d", ErrTransactionNotFound, id)
	}

	updated, _ := s.ledger.Transaction(id)
	s.publish(ctx, amqp.TransactionUpdated, updated.ID, updated.PeerID, updated)
	return updated, nil
}

func (s *FinanceService) DeleteTransaction(ctx context.Context, id int64) error {
	current, ok := s.ledger.Transaction(id)
	if !ok || !s.ledger.Delete(id) {
		return fmt.Errorf("%w: %d", ErrTransactionNotFound, id)
	}
	s.publish(ctx, amqp.TransactionDeleted, current.ID, current.PeerID, current)
	return nil
}

// Stats totals the rows matching f; a zero filter covers the whole ledger.
func (s *FinanceService) Stats(f ledger.Filter) core.Stats {
	if f == (ledger.Filter{}) {
		return s.ledger.ComputeStats()
	}
	return ledger.ViewTotals(s.ledger.View(f))
}

func (s *FinanceService) CategoryBreakdown(f ledger.Filter) []core.CategoryAmount {
	return ledger.ExpensesByCategory(s.ledger.View(f))
}

func (s *FinanceService) Budget(f ledger.Filter) core.BudgetSplit {
	return ledger.Split(s.ledger.View(f))
}

func (s *FinanceService) Daily(year int, month time.Month) []core.DailyTotal {
	return ledger.DailyTotals(s.ledger.Transactions(), year, month)
}

func (s *FinanceService) Peers() []core.Peer {
	return s.ledger.Peers()
}

func (s *FinanceService) AddPeer(ctx context.Context, in NewPeer) (core.Peer, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return core.Peer{}, ErrEmptyPeerName
	}
	peer := core.Peer{
		ID:     strconv.FormatInt(s.peerIDs.NextID(), 10),
		Name:   name,
		Email:  strings.TrimSpace(in.Email),
		Avatar: in.Avatar,
	}
	if peer.Avatar == "" {
		peer.Avatar = defaultAvatar(peer)
	}
	s.ledger.AddPeer(peer)
	s.publish(ctx, amqp.PeerAdded, 0, peer.ID, peer)
	return peer, nil
}

func (s *FinanceService) UpdatePeer(ctx context.Context, id string, patch ledger.PeerPatch) (core.Peer, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return core.Peer{}, ErrEmptyPeerName
	}
	peer, ok := s.ledger.UpdatePeer(id, patch)
	if !ok {
		return core.Peer{}, fmt.Errorf("%w: %s", ErrPeerNotFound, id)
	}
	s.publish(ctx, amqp.PeerUpdated, 0, peer.ID, peer)
	return peer, nil
}

// DeletePeer removes the peer. Transactions delegated to it keep the id.
func (s *FinanceService) DeletePeer(ctx context.Context, id string) error {
	if !s.ledger.DeletePeer(id) {
		return fmt.Errorf("%w: %s", ErrPeerNotFound, id)
	}
	s.publish(ctx, amqp.PeerDeleted, 0, id, nil)
	return nil
}

func (s *FinanceService) PeerBalances() []core.PeerBalance {
	return s.ledger.PeerBalances()
}

func (s *FinanceService) SettlePeer(ctx context.Context, id string, amount decimal.Decimal) (ledger.AddOutcome, error) {
	outcome, err := s.ledger.SettlePeer(id, amount.Round(2))
	if err != nil {
		return ledger.AddOutcome{}, err
	}
	for _, row := range outcome.Added {
		s.publish(ctx, amqp.TransactionAdded, row.ID, row.PeerID, row)
	}
	return outcome, nil
}

func (s *FinanceService) Profile() (core.UserProfile, bool) {
	return s.ledger.Profile()
}

func (s *FinanceService) UpdateProfile(ctx context.Context, patch ledger.ProfilePatch) (core.UserProfile, error) {
	if patch.RiskProfile != nil && !patch.RiskProfile.IsValid() {
		return core.UserProfile{}, fmt.Errorf("%w: unknown risk profile %q", ErrInvalidProfile, *patch.RiskProfile)
	}
	if patch.MonthlyIncome != nil && patch.MonthlyIncome.IsNegative() {
		return core.UserProfile{}, fmt.Errorf("%w: negative monthly income", ErrInvalidProfile)
	}
	profile := s.ledger.UpdateUserProfile(patch)
	s.publish(ctx, amqp.ProfileUpdated, 0, "", profile)
	return profile, nil
}

func (s *FinanceService) Insights() []core.Insight { return s.insights.Insights() }

func (s *FinanceService) IsRefreshingInsights() bool { return s.insights.IsRefreshing() }

// RefreshInsights starts a background refresh; false means it was ignored.
func (s *FinanceService) RefreshInsights() bool { return s.insights.Refresh() }

func (s *FinanceService) ClearInsights() { s.insights.Clear() }

// Chat asks the advisor with the current ledger and profile as context.
func (s *FinanceService) Chat(ctx context.Context, history []ai.ChatMessage, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	req := ai.ChatRequest{
		History:      history,
		Message:      message,
		Transactions: s.ledger.Transactions(),
	}
	if profile, ok := s.ledger.Profile(); ok {
		req.Profile = &profile
	}
	return s.advisor.Chat(ctx, req)
}

// Import extracts doc and adds every row straight to the ledger.
func (s *FinanceService) Import(ctx context.Context, doc ai.Document) (importer.Result, error) {
	res, err := s.importer.Import(ctx, doc)
	if err != nil {
		return res, err
	}
	for _, row := range res.Added {
		s.publish(ctx, amqp.TransactionAdded, row.ID, row.PeerID, row)
	}
	return res, nil
}

func (s *FinanceService) Stage(ctx context.Context, doc ai.Document) (importer.Batch, error) {
	return s.staging.Stage(ctx, doc)
}

func (s *FinanceService) StagedBatch() importer.Batch { return s.staging.Batch() }

func (s *FinanceService) UpdateStaged(id int64, patch ledger.Patch) (core.Transaction, error) {
	return s.staging.UpdateItem(id, patch)
}

func (s *FinanceService) RemoveStaged(id int64) error {
	if !s.staging.Remove(id) {
		return fmt.Errorf("%w: %d", importer.ErrStagedItemNotFound, id)
	}
	return nil
}

// CommitStaged moves the staged rows into the ledger. A blank override keeps
// the batch source.
func (s *FinanceService) CommitStaged(ctx context.Context, sourceOverride string) importer.Result {
	res := s.staging.Commit(ctx, sourceOverride)
	for _, row := range res.Added {
		s.publish(ctx, amqp.TransactionAdded, row.ID, row.PeerID, row)
	}
	return res
}

func (s *FinanceService) DiscardStaged() { s.staging.Discard() }

func (s *FinanceService) publish(ctx context.Context, typ amqp.EventType, txID int64, peerID string, payload any) {
	if s.publisher == nil {
		return
	}
	ev, err := amqp.NewLedgerEvent(typ, payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to build ledger event", log.FieldEvent, typ, log.FieldError, err)
		return
	}
	ev.TransactionID = txID
	ev.PeerID = peerID

	// the ledger already holds the change; a lost event only costs a journal row
	if err := s.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldEvent, typ,
			log.FieldTransactionID, txID,
			log.FieldError, err)
	}
}

// Close stops background refreshes and closes the publisher.
func (s *FinanceService) Close() error {
	var errs []error

	if s.insights != nil {
		s.insights.Stop()
	}

	if closer, ok := s.publisher.(io.Closer); ok && closer != nil {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close finance service: %w", errors.Join(errs...))
	}
	return nil
}

func defaultAvatar(p core.Peer) string {
	seed := p.Email
	if seed == "" {
		seed = p.Name
	}
	return "https://i.pravatar.cc/150?u=" + url.QueryEscape(seed)
}
