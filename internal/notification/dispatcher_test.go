package notification_test

import (
	"context"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/loan-servicing/internal/notification"
)

var _ = Describe("Dispatcher", func() {
	var (
		ctx    context.Context
		logger *slog.Logger
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	})

	It("delivers queued messages in the background", func() {
		sender := &recordingSender{}
		d := notification.NewDispatcher(sender, notification.DispatcherConfig{Workers: 2, QueueSize: 10}, logger)
		DeferCleanup(d.Shutdown)

		for _, to := range []string{"a@example.com", "b@example.com", "c@example.com"} {
			Expect(d.Enqueue(ctx, notification.Message{To: to, Subject: "hi"})).To(Succeed())
		}

		Eventually(func() int { return len(sender.messages()) }).Should(Equal(3))
	})

	It("drops messages when the queue is full instead of blocking", func() {
		sender := &recordingSender{block: make(chan struct{})}
		d := notification.NewDispatcher(sender, notification.DispatcherConfig{Workers: 1, QueueSize: 1}, logger)
		DeferCleanup(d.Shutdown)
		DeferCleanup(func() { close(sender.block) })

		var full error
		for i := 0; i < 10 && full == nil; i++ {
			full = d.Enqueue(ctx, notification.Message{To: "x@example.com"})
		}

		Expect(full).To(MatchError(notification.ErrQueueFull))
	})

	It("refuses work after shutdown", func() {
		d := notification.NewDispatcher(&recordingSender{}, notification.DispatcherConfig{}, logger)
		d.Shutdown()

		Expect(d.Enqueue(ctx, notification.Message{To: "x@example.com"})).NotTo(Succeed())
	})
})
