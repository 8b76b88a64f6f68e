package services

import (
	"context"

	"financas/internal/amqp"
	"financas/internal/core"
	"financas/internal/log"
)

// EventNotifier publishes an insights.refreshed event for every stored
// insight list. It plugs into insights.WithNotifier.
type EventNotifier struct {
	publisher Publisher
	logger    *log.Logger
}

func NewEventNotifier(p Publisher, logger *log.Logger) *EventNotifier {
	return &EventNotifier{
		publisher: p,
		logger:    log.OrNop(logger).WithComponent(log.ComponentInsights),
	}
}

func (n *EventNotifier) NotifyInsights(ctx context.Context, list []core.Insight) error {
	ev, err := amqp.NewLedgerEvent(amqp.InsightsRefreshed, list)
	if err != nil {
		return err
	}
	if err := n.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		return err
	}
	n.logger.DebugContext(ctx, "Insight refresh published", "count", len(list))
	return nil
}
