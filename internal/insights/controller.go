// Package insights keeps the AI generated insight list in step with the ledger.
package insights

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"financas/internal/core"
	"financas/internal/log"
)

// DefaultTimeout bounds one call to the insight generator.
const DefaultTimeout = 60 * time.Second

// ErrMalformedReply is reported when the generator answered without a usable alert list.
var ErrMalformedReply = errors.New("malformed insight reply")

// Source is the part of the ledger the controller reads.
type Source interface {
	Len() int
	Transactions() []core.Transaction
}

// Generator produces insights from the full transaction list.
type Generator interface {
	GenerateInsights(ctx context.Context, txs []core.Transaction) ([]core.Insight, error)
}

// Notifier is told about every successfully stored insight list.
type Notifier interface {
	NotifyInsights(ctx context.Context, insights []core.Insight) error
}

// Option configures a Controller
type Option func(*Controller)

func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifiers = append(c.notifiers, n)
		}
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(c *Controller) { c.logger = log.OrNop(logger).WithComponent(log.ComponentInsights) }
}

// Controller runs at most one refresh at a time. A refresh never blocks the
// caller and only ever replaces the insight list.
type Controller struct {
	source    Source
	generator Generator
	notifiers []Notifier
	timeout   time.Duration
	logger    *log.Logger

	mu       sync.RWMutex
	insights []core.Insight

	refreshing atomic.Bool
	inflight   sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewController(source Source, generator Generator, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		source:    source,
		generator: generator,
		timeout:   DefaultTimeout,
		logger:    log.Nop(),
		insights:  []core.Insight{},
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh starts a refresh in the background. It returns false without doing
// anything when the ledger is empty or a refresh is already in flight.
func (c *Controller) Refresh() bool {
	if c.source.Len() == 0 {
		return false
	}
	if !c.refreshing.CompareAndSwap(false, true) {
		c.logger.Debug("Refresh already in progress, request ignored")
		return false
	}

	txs := c.source.Transactions()
	c.inflight.Add(1)
	go c.run(txs)
	return true
}

func (c *Controller) run(txs []core.Transaction) {
	defer c.inflight.Done()
	defer c.refreshing.Store(false)

	ctx, cancel := context.WithTimeout(c.ctx, c.timeout)
	defer cancel()

	start := time.Now()
	insights, err := c.generate(ctx, txs)
	if err != nil {
		c.logger.WarnContext(ctx, "Insight refresh failed, keeping previous insights",
			log.FieldError, err,
			log.FieldDuration, time.Since(start).Milliseconds())
		return
	}

	c.mu.Lock()
	c.insights = insights
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "Insights refreshed",
		"count", len(insights),
		log.FieldDuration, time.Since(start).Milliseconds())

	for _, n := range c.notifiers {
		if err := n.NotifyInsights(ctx, cloneInsights(insights)); err != nil {
			c.logger.WarnContext(ctx, "Insight notification failed", log.FieldError, err)
		}
	}
}

func (c *Controller) generate(ctx context.Context, txs []core.Transaction) ([]core.Insight, error) {
	insights, err := c.generator.GenerateInsights(ctx, txs)
	if err != nil {
		return nil, err
	}
	if insights == nil {
		return nil, ErrMalformedReply
	}
	for i, in := range insights {
		if err := in.Validate(); err != nil {
			return nil, fmt.Errorf("%w: alert %d: %v", ErrMalformedReply, i, err)
		}
	}
	return cloneInsights(insights), nil
}

// Observe is a ledger size observer. Any size change on a non-empty ledger
// starts a refresh while no insights are held.
func (c *Controller) Observe(_, next int) {
	if next == 0 {
		return
	}
	c.mu.RLock()
	held := len(c.insights)
	c.mu.RUnlock()
	if held == 0 {
		c.Refresh()
	}
}

// IsRefreshing reports whether a refresh is in flight.
func (c *Controller) IsRefreshing() bool {
	return c.refreshing.Load()
}

// Insights returns a copy of the current insight list.
func (c *Controller) Insights() []core.Insight {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneInsights(c.insights)
}

// Clear empties the insight list.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insights = []core.Insight{}
}

// Wait blocks until the in-flight refresh, if any, has completed.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// Stop cancels an in-flight refresh and waits for it to return.
func (c *Controller) Stop() {
	c.cancel()
	c.inflight.Wait()
}

func cloneInsights(in []core.Insight) []core.Insight {
	return append([]core.Insight{}, in...)
}
