package notification_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"github.com/frahmantamala/loan-servicing/internal/notification"
)

var _ = Describe("Redis queue", func() {
	const key = "notifications:email"

	var (
		ctx      context.Context
		mr       *miniredis.Miniredis
		rdb      *redis.Client
		sender   *recordingSender
		queue    *notification.RedisQueue
		consumer *notification.Consumer
	)

	BeforeEach(func() {
		ctx = context.Background()
		mr = miniredis.RunT(GinkgoT())
		rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		DeferCleanup(rdb.Close)

		sender = &recordingSender{}
		queue = notification.NewRedisQueue(rdb, key)
		consumer = notification.NewConsumer(rdb, key, sender, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	It("stores messages as JSON on the list", func() {
		Expect(queue.Enqueue(ctx, notification.Message{To: "a@example.com", Subject: "Loan Approved", HTML: "<p>x</p>"})).To(Succeed())

		items, err := mr.List(key)
		Expect(err).NotTo(HaveOccurred())
		Expect(items).To(HaveLen(1))

		var msg notification.Message
		Expect(json.Unmarshal([]byte(items[0]), &msg)).To(Succeed())
		Expect(msg.Subject).To(Equal("Loan Approved"))
	})

	It("delivers messages in the order they were queued", func() {
		Expect(queue.Enqueue(ctx, notification.Message{To: "first@example.com"})).To(Succeed())
		Expect(queue.Enqueue(ctx, notification.Message{To: "second@example.com"})).To(Succeed())

		for i := 0; i < 2; i++ {
			got, err := consumer.ProcessOne(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeTrue())
		}

		msgs := sender.messages()
		Expect(msgs).To(HaveLen(2))
		Expect(msgs[0].To).To(Equal("first@example.com"))
		Expect(msgs[1].To).To(Equal("second@example.com"))
	})

	It("requeues a failed delivery and succeeds on retry", func() {
		sender.fails = 1
		Expect(queue.Enqueue(ctx, notification.Message{To: "a@example.com"})).To(Succeed())

		_, err := consumer.ProcessOne(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(sender.messages()).To(BeEmpty())

		items, _ := mr.List(key)
		Expect(items).To(HaveLen(1))
		Expect(items[0]).To(ContainSubstring(`"attempts":1`))

		_, err = consumer.ProcessOne(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(sender.messages()).To(HaveLen(1))
	})

	It("drops a message after the last attempt", func() {
		sender.fails = notification.MaxAttempts
		Expect(queue.Enqueue(ctx, notification.Message{To: "a@example.com"})).To(Succeed())

		for i := 0; i < notification.MaxAttempts; i++ {
			_, err := consumer.ProcessOne(ctx)
			Expect(err).NotTo(HaveOccurred())
		}

		Expect(mr.Exists(key)).To(BeFalse())
		Expect(sender.messages()).To(BeEmpty())
	})

	It("stops when its context is canceled", func() {
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- consumer.Run(runCtx) }()

		Expect(queue.Enqueue(ctx, notification.Message{To: "a@example.com"})).To(Succeed())
		Eventually(func() int { return len(sender.messages()) }).Should(Equal(1))

		cancel()
		Eventually(done, "10s").Should(Receive(BeNil()))
	})
})
