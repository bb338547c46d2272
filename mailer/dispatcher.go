package mailer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Pool defaults
const (
	DefaultWorkers     = 5
	DefaultMaxWorkers  = 10
	DefaultQueueSize   = 25
	DefaultIdleTimeout = 60 * time.Second
	DefaultSendTimeout = 30 * time.Second
)

// Dispatch outcomes reported to the OnResult hook
const (
	OutcomeSent     = "sent"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// ErrClosed is returned by Enqueue after Close
var ErrClosed = errors.New("mailer: dispatcher closed")

// ErrQueueFull is returned by Enqueue when no worker or queue slot is free
var ErrQueueFull = errors.New("mailer: queue full")

// Message is a single outgoing mail
type Message struct {
	To       string
	Subject  string
	HTMLBody string
}

// Sender delivers one message synchronously
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SenderFunc adapts a function to Sender
type SenderFunc func(ctx context.Context, msg Message) error

func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// Logger is the subset of the auth logger the dispatcher writes to
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Options configures a Dispatcher
type Options struct {
	// Workers are started up front and live until Close
	Workers int
	// MaxWorkers bounds core plus overflow workers
	MaxWorkers int
	// QueueSize is the number of messages waiting for a worker
	QueueSize int
	// IdleTimeout retires an overflow worker that found no work
	IdleTimeout time.Duration
	// SendTimeout bounds a single delivery
	SendTimeout time.Duration
	// OnResult observes every outcome
	OnResult func(outcome string)
	Logger   Logger
}

// Dispatcher is a bounded worker pool. Core workers drain the queue; when the
// queue is full an overflow worker takes the message directly, up to
// MaxWorkers in total. Beyond that messages are rejected. Failed deliveries
// are logged and dropped.
type Dispatcher struct {
	sender   Sender
	opts     Options
	queue    chan Message
	overflow *semaphore.Weighted

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher starts the core workers
func NewDispatcher(sender Sender, opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MaxWorkers < opts.Workers {
		opts.MaxWorkers = opts.Workers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	if opts.OnResult == nil {
		opts.OnResult = func(string) {}
	}

	d := &Dispatcher{
		sender:   sender,
		opts:     opts,
		queue:    make(chan Message, opts.QueueSize),
		overflow: semaphore.NewWeighted(int64(opts.MaxWorkers - opts.Workers)),
	}

	d.wg.Add(opts.Workers)
	for range opts.Workers {
		go d.coreWorker()
	}
	return d
}

// SendAsync queues a message and returns immediately. Rejections are logged.
func (d *Dispatcher) SendAsync(to, subject, htmlBody string) {
	if err := d.Enqueue(Message{To: to, Subject: subject, HTMLBody: htmlBody}); err != nil {
		d.opts.Logger.Warn("mail rejected", "to", to, "subject", subject, "error", err)
	}
}

// Enqueue queues msg without blocking
func (d *Dispatcher) Enqueue(msg Message) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.opts.OnResult(OutcomeRejected)
		return ErrClosed
	}

	select {
	case d.queue <- msg:
		return nil
	default:
	}

	if d.overflow.TryAcquire(1) {
		d.wg.Add(1)
		go d.overflowWorker(msg)
		return nil
	}

	d.opts.OnResult(OutcomeRejected)
	return ErrQueueFull
}

// Close stops accepting messages and waits for queued ones to be delivered
// or for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mailer: close: %w", ctx.Err())
	}
}

func (d *Dispatcher) coreWorker() {
	defer d.wg.Done()
	for msg := range d.queue {
		d.deliver(msg)
	}
}

func (d *Dispatcher) overflowWorker(first Message) {
	defer d.wg.Done()
	defer d.overflow.Release(1)

	d.deliver(first)

	idle := time.NewTimer(d.opts.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case msg, ok := <-d.queue:
			if !ok {
				return
			}
			d.deliver(msg)
			idle.Reset(d.opts.IdleTimeout)
		case <-idle.C:
			return
		}
	}
}

func (d *Dispatcher) deliver(msg Message) {
	defer func() {
		if r := recover(); r != nil {
			d.opts.Logger.Error("mail sender panicked", "to", msg.To, "panic", r)
			d.opts.OnResult(OutcomeFailed)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.opts.SendTimeout)
	defer cancel()

	if err := d.sender.Send(ctx, msg); err != nil {
		d.opts.Logger.Error("mail delivery failed", "to", msg.To, "subject", msg.Subject, "error", err)
		d.opts.OnResult(OutcomeFailed)
		return
	}
	d.opts.Logger.Debug("mail delivered", "to", msg.To, "subject", msg.Subject)
	d.opts.OnResult(OutcomeSent)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
