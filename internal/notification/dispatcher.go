package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SendTimeout bounds a single delivery attempt.
const SendTimeout = 30 * time.Second

type Worker struct {
	ID         int
	WorkerPool chan chan Message
	JobChannel chan Message
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Message, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Message),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, process func(Message)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				return
			}

			select {
			case msg := <-w.JobChannel:
				w.Logger.Debug("worker sending email", "worker_id", w.ID, "subject", msg.Subject)
				process(msg)
			case <-ctx.Done():
				w.Logger.Debug("worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type DispatcherConfig struct {
	Workers   int
	QueueSize int
}

// Dispatcher is the in-process Queue. Messages still buffered at Shutdown are dropped.
type Dispatcher struct {
	sender Sender
	logger *slog.Logger

	jobQueue   chan Message
	workerPool chan chan Message
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

func NewDispatcher(sender Sender, config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := config.Workers
	if maxWorkers <= 0 {
		maxWorkers = 2
	}
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}

	d := &Dispatcher{
		sender:     sender,
		logger:     logger,
		jobQueue:   make(chan Message, queueSize),
		workerPool: make(chan chan Message, maxWorkers),
		maxWorkers: maxWorkers,
		ctx:        ctx,
		cancel:     cancel,
	}
	d.start()
	return d
}

func (d *Dispatcher) start() {
	d.once.Do(func() {
		for i := 0; i < d.maxWorkers; i++ {
			NewWorker(i, d.workerPool, d.logger).Start(d.ctx, &d.wg, d.process)
		}

		d.wg.Add(1)
		go d.dispatch()

		d.logger.Info("notification worker pool started",
			"max_workers", d.maxWorkers,
			"queue_size", cap(d.jobQueue))
	})
}

func (d *Dispatcher) dispatch() {
	defer d.wg.Done()

	for {
		select {
		case msg := <-d.jobQueue:
			select {
			case jobChannel := <-d.workerPool:
				select {
				case jobChannel <- msg:
				case <-d.ctx.Done():
					return
				}
			case <-d.ctx.Done():
				return
			}
		case <-d.ctx.Done():
			d.logger.Info("notification dispatcher shutting down")
			return
		}
	}
}

func (d *Dispatcher) process(msg Message) {
	ctx, cancel := context.WithTimeout(d.ctx, SendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		d.logger.Error("email delivery failed", "to", msg.To, "subject", msg.Subject, "error", err)
		return
	}
	d.logger.Info("email sent", "to", msg.To, "subject", msg.Subject)
}

// Enqueue never blocks; a full queue drops the message with ErrQueueFull.
func (d *Dispatcher) Enqueue(_ context.Context, msg Message) error {
	if d.ctx.Err() != nil {
		return context.Canceled
	}
	select {
	case d.jobQueue <- msg:
		return nil
	default:
		d.logger.Warn("notification queue full, message dropped", "to", msg.To, "subject", msg.Subject)
		return ErrQueueFull
	}
}

func (d *Dispatcher) Shutdown() {
	d.logger.Info("shutting down notification dispatcher")
	d.cancel()
	d.wg.Wait()
	d.logger.Info("notification dispatcher shutdown complete")
}
