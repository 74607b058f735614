package mailer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeFailed  Outcome = "failed"
	OutcomeDropped Outcome = "dropped"
)

// Observer is told about every message the dispatcher accepts or refuses.
type Observer interface {
	Observe(msg Message, outcome Outcome, err error)
}

type ObserverFunc func(msg Message, outcome Outcome, err error)

func (f ObserverFunc) Observe(msg Message, outcome Outcome, err error) { f(msg, outcome, err) }

type DispatcherOptions struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
}

// Dispatcher hands messages to a Sender on background workers. Delivery is
// at most once: a message is attempted a single time and then forgotten.
type Dispatcher struct {
	sender   Sender
	observer Observer
	logger   zerolog.Logger
	opts     DispatcherOptions

	queue chan Message
	wg    sync.WaitGroup

	mu      sync.RWMutex
	closed  bool
	started bool
}

func NewDispatcher(sender Sender, opts DispatcherOptions, logger zerolog.Logger, observer Observer) *Dispatcher {
	if sender == nil {
		panic("mailer: sender cannot be nil")
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	if observer == nil {
		observer = ObserverFunc(func(Message, Outcome, error) {})
	}
	return &Dispatcher{
		sender:   sender,
		observer: observer,
		logger:   logger.With().Str("component", "mailer.dispatcher").Logger(),
		opts:     opts,
		queue:    make(chan Message, opts.QueueSize),
	}
}

// Enqueue never blocks. It reports false when the message was dropped because
// the queue is full or the dispatcher is closed.
func (d *Dispatcher) Enqueue(msg Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(msg, "dispatcher closed")
		return false
	}
	select {
	case d.queue <- msg:
		return true
	default:
		d.drop(msg, "queue full")
		return false
	}
}

func (d *Dispatcher) drop(msg Message, why string) {
	d.logger.Warn().Str("to", msg.To).Str("subject", msg.Subject).Str("reason", why).Msg("email dropped")
	d.observer.Observe(msg, OutcomeDropped, nil)
}

// Start launches the workers. ctx only contributes values to each send; its
// cancellation does not stop the workers. They exit once Close has drained the
// queue, so messages enqueued during shutdown are still attempted.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	base := context.WithoutCancel(ctx)
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.run(base, i+1)
	}
}

func (d *Dispatcher) run(ctx context.Context, workerID int) {
	defer d.wg.Done()
	d.logger.Debug().Int("worker_id", workerID).Msg("mail worker started")

	for msg := range d.queue {
		d.deliver(ctx, msg)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, msg Message) {
	sendCtx, cancel := context.WithTimeout(ctx, d.opts.SendTimeout)
	defer cancel()

	if err := d.sender.Send(sendCtx, msg); err != nil {
		d.logger.Warn().Err(err).Str("to", msg.To).Str("subject", msg.Subject).Msg("email delivery failed")
		d.observer.Observe(msg, OutcomeFailed, err)
		return
	}
	d.observer.Observe(msg, OutcomeSent, nil)
}

// Close stops accepting messages and waits for queued ones to be attempted.
// Each attempt is bounded by SendTimeout.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		for msg := range d.queue {
			d.drop(msg, "dispatcher never started")
		}
		return
	}
	d.wg.Wait()
}

// Queue is the capability state machines use to hand off email.
type Queue interface {
	Enqueue(msg Message) bool
}

var _ Queue = (*Dispatcher)(nil)
