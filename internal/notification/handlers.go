package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/loan-servicing/internal/core/events"
)

type Subscriber interface {
	Subscribe(eventType string, handler events.Handler)
}

type EventHandler struct {
	queue  Queue
	logger *slog.Logger
}

func NewEventHandler(queue Queue, logger *slog.Logger) *EventHandler {
	return &EventHandler{queue: queue, logger: logger}
}

// Register wires the borrower emails to the events that trigger them.
func (h *EventHandler) Register(bus Subscriber) {
	bus.Subscribe(events.EventTypeLoanApproved, h.HandleLoanApproved)
	bus.Subscribe(events.EventTypeLoanRejected, h.HandleLoanRejected)
	bus.Subscribe(events.EventTypeRepaymentCaptured, h.HandleRepaymentCaptured)
}

func (h *EventHandler) HandleLoanApproved(ctx context.Context, event events.Event) error {
	ev, ok := event.(*events.LoanApprovedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", event, event.EventType())
	}
	msg, err := LoanApproved(ev)
	if err != nil {
		return err
	}
	return h.enqueue(ctx, msg, "application_id", ev.ApplicationID)
}

func (h *EventHandler) HandleLoanRejected(ctx context.Context, event events.Event) error {
	ev, ok := event.(*events.LoanRejectedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", event, event.EventType())
	}
	msg, err := LoanRejected(ev)
	if err != nil {
		return err
	}
	return h.enqueue(ctx, msg, "application_id", ev.ApplicationID)
}

func (h *EventHandler) HandleRepaymentCaptured(ctx context.Context, event events.Event) error {
	ev, ok := event.(*events.RepaymentCapturedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T for %s", event, event.EventType())
	}
	msg, err := RepaymentReceipt(ev)
	if err != nil {
		return err
	}
	return h.enqueue(ctx, msg, "payment_id", ev.PaymentID)
}

func (h *EventHandler) enqueue(ctx context.Context, msg Message, idKey string, id int64) error {
	if msg.To == "" {
		h.logger.Warn("email skipped, no recipient", "subject", msg.Subject, idKey, id)
		return nil
	}
	if err := h.queue.Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("enqueue %q: %w", msg.Subject, err)
	}
	h.logger.Info("email queued", "subject", msg.Subject, idKey, id)
	return nil
}
