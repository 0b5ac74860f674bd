package notifications

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"skillswap/internal/middleware"
	"skillswap/internal/observability"
)

const (
	// DefaultQueueSize bounds the number of undelivered events.
	DefaultQueueSize = 1024
	// Per-sink delivery deadline.
	defaultSinkTimeout = 5 * time.Second
)

type delivery struct {
	userID uint
	event  Event
}

// Dispatcher is a Publisher that hands events to a background consumer which
// fans them out to every sink. A full queue drops the event.
type Dispatcher struct {
	queue       chan delivery
	sinks       []Sink
	sinkTimeout time.Duration

	startOnce sync.Once
	done      chan struct{}

	// stopMu orders Publish against the final drain.
	stopMu  sync.RWMutex
	stopped bool
}

// NewDispatcher creates a dispatcher with the given queue capacity.
func NewDispatcher(queueSize int, sinks ...Sink) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		queue:       make(chan delivery, queueSize),
		sinks:       sinks,
		sinkTimeout: defaultSinkTimeout,
		done:        make(chan struct{}),
	}
}

// Publish implements Publisher. Events published after the consumer has
// stopped are dropped and counted.
func (d *Dispatcher) Publish(userID uint, ev Event) {
	d.stopMu.RLock()
	defer d.stopMu.RUnlock()
	if d.stopped {
		observability.NotificationsDropped.WithLabelValues("stopped").Inc()
		middleware.Logger.Warn("Notification dispatcher stopped, dropping event",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("type", ev.Type()),
		)
		return
	}
	select {
	case d.queue <- delivery{userID: userID, event: ev}:
		observability.NotificationQueueDepth.Set(float64(len(d.queue)))
	default:
		observability.NotificationsDropped.WithLabelValues("queue_full").Inc()
		middleware.Logger.Warn("Notification queue full, dropping event",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("type", ev.Type()),
		)
	}
}

// Start runs the consumer until ctx is cancelled. Events still queued at
// that point are delivered before Done is closed.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		go d.run(ctx)
	})
}

// Done is closed once the consumer has exited.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			d.stopMu.Lock()
			d.stopped = true
			d.stopMu.Unlock()
			d.drain()
			return
		case item := <-d.queue:
			d.deliver(item)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case item := <-d.queue:
			d.deliver(item)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(item delivery) {
	observability.NotificationQueueDepth.Set(float64(len(d.queue)))
	for _, sink := range d.sinks {
		d.deliverTo(sink, item)
	}
}

func (d *Dispatcher) deliverTo(sink Sink, item delivery) {
	defer func() {
		if r := recover(); r != nil {
			observability.NotificationsDispatched.WithLabelValues(sink.Name(), "panic").Inc()
			middleware.Logger.Error("Notification sink panicked",
				slog.String("sink", sink.Name()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), d.sinkTimeout)
	defer cancel()

	if err := sink.Deliver(ctx, item.userID, item.event); err != nil {
		observability.NotificationsDispatched.WithLabelValues(sink.Name(), "error").Inc()
		middleware.Logger.Warn("Notification delivery failed",
			slog.String("sink", sink.Name()),
			slog.Uint64("user_id", uint64(item.userID)),
			slog.String("error", err.Error()),
		)
		return
	}
	observability.NotificationsDispatched.WithLabelValues(sink.Name(), "ok").Inc()
}
