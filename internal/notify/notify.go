// Package notify delivers out-of-band notifications (email) off the chat path.
package notify

import (
	"context"
	"sync"
	"time"

	"camerashop/backend/internal/logging"
	"camerashop/backend/internal/metrics"
)

// Notification tells an offline user that an admin replied in their room.
type Notification struct {
	To      string
	Name    string
	Preview string
	RoomKey string
}

// Sender delivers one notification. Implementations may block.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Dispatcher hands notifications to a fixed pool of workers. Sends are
// attempted once; failures are logged and counted, never returned.
type Dispatcher struct {
	sender  Sender
	queue   chan Notification
	workers int
	timeout time.Duration
}

func NewDispatcher(sender Sender, workers, queueSize int, timeout time.Duration) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Dispatcher{
		sender:  sender,
		queue:   make(chan Notification, queueSize),
		workers: workers,
		timeout: timeout,
	}
}

// Enqueue never blocks. It returns false when the queue is full and the
// notification was dropped.
func (d *Dispatcher) Enqueue(n Notification) bool {
	select {
	case d.queue <- n:
		return true
	default:
		metrics.RecordNotification(metrics.NotificationDropped)
		logging.Warn().Str("room", n.RoomKey).Msg("notification queue full, dropping")
		return false
	}
}

// Serve runs the workers until ctx is cancelled.
func (d *Dispatcher) Serve(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.work(ctx)
		}()
	}
	wg.Wait()

	if n := len(d.queue); n > 0 {
		logging.Warn().Int("pending", n).Msg("notification dispatcher stopped with pending notifications")
	}
	return ctx.Err()
}

func (d *Dispatcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-d.queue:
			d.deliver(ctx, n)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n Notification) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	if err := d.sender.Send(ctx, n); err != nil {
		metrics.RecordNotification(metrics.NotificationFailed)
		logging.Warn().Err(err).Str("room", n.RoomKey).Msg("notification delivery failed")
		return
	}
	metrics.RecordNotification(metrics.NotificationSent)
	logging.Info().Str("room", n.RoomKey).Msg("notification sent")
}

func (d *Dispatcher) String() string { return "notify-dispatcher" }

// LogSender only logs notifications. Used when no SMTP host is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, n Notification) error {
	logging.Ctx(ctx).Info().
		Str("room", n.RoomKey).
		Int("preview_len", len(n.Preview)).
		Msg("mail transport not configured, notification logged only")
	return nil
}
