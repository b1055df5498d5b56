package events_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/loan-servicing/internal/core/events"
)

var _ = Describe("EventBus", func() {
	var bus *events.EventBus

	BeforeEach(func() {
		bus = events.NewEventBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	It("runs async handlers with a context that outlives the request", func() {
		var (
			mu      sync.Mutex
			ctxErrs []error
		)
		bus.Subscribe(events.EventTypeLoanRejected, func(ctx context.Context, _ events.Event) error {
			mu.Lock()
			defer mu.Unlock()
			ctxErrs = append(ctxErrs, ctx.Err())
			return nil
		})

		reqCtx, cancel := context.WithCancel(context.Background())
		Expect(bus.Publish(reqCtx, events.NewLoanRejectedEvent(1, "a@example.com", "x"))).To(Succeed())
		cancel()

		Eventually(func() int {
			mu.Lock()
			defer mu.Unlock()
			return len(ctxErrs)
		}).Should(Equal(1))
		mu.Lock()
		defer mu.Unlock()
		Expect(ctxErrs[0]).To(BeNil())
	})

	It("only calls handlers of the published type", func() {
		calls := 0
		bus.Subscribe(events.EventTypeLoanApproved, func(context.Context, events.Event) error {
			calls++
			return nil
		})

		Expect(bus.PublishSync(context.Background(), events.NewLoanRejectedEvent(1, "a@example.com", ""))).To(Succeed())

		Expect(calls).To(BeZero())
	})

	It("returns the first handler error when publishing synchronously", func() {
		bus.Subscribe(events.EventTypeRepaymentCaptured, func(context.Context, events.Event) error {
			return errors.New("boom")
		})

		err := bus.PublishSync(context.Background(), events.NewRepaymentCapturedEvent(events.RepaymentCaptured{PaymentID: 1}))

		Expect(err).To(MatchError(ContainSubstring("boom")))
	})

	It("stamps every event with an id and type", func() {
		ev := events.NewLoanApprovedEvent(1, 2, "a@example.com", 100, 3, 0.8, "Low")

		Expect(ev.EventID()).NotTo(BeEmpty())
		Expect(ev.EventType()).To(Equal(events.EventTypeLoanApproved))
		Expect(ev.LoanID).To(Equal(int64(2)))
		Expect(ev.OccurredAt()).NotTo(BeZero())
	})

	It("drains handlers that are still running", func() {
		release := make(chan struct{})
		var finished sync.WaitGroup
		finished.Add(1)
		bus.Subscribe(events.EventTypeLoanApproved, func(context.Context, events.Event) error {
			defer finished.Done()
			<-release
			return nil
		})
		Expect(bus.Publish(context.Background(), events.NewLoanApprovedEvent(1, 2, "a@example.com", 100, 3, 0.8, "Low"))).To(Succeed())

		short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		Expect(bus.Drain(short)).To(MatchError(context.DeadlineExceeded))

		close(release)
		Expect(bus.Drain(context.Background())).To(Succeed())
		finished.Wait()
	})

	It("turns a handler panic into an error", func() {
		bus.Subscribe(events.EventTypeLoanRejected, func(context.Context, events.Event) error {
			panic("template exploded")
		})

		err := bus.PublishSync(context.Background(), events.NewLoanRejectedEvent(1, "a@example.com", ""))

		Expect(err).To(MatchError(ContainSubstring("template exploded")))
	})
})
