// Package notify delivers alerts and action results over email and Slack,
// queued and retried asynchronously so a flaky SMTP server or webhook never
// blocks the monitor loop — the same shape as the teacher's Notifier.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Notification is a single message destined for every enabled channel.
type Notification struct {
	Type     string // "alert", "action_result", "recovery", "circuit_break"
	Subject  string
	Body     string
	Severity string
	Data     map[string]any
}

// Channel is a notification delivery backend.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// Notifier fans a bounded queue of notifications out to every configured
// channel, retrying each delivery independently.
type Notifier struct {
	channels []Channel
	queue    chan Notification
	wg       sync.WaitGroup
	stopOnce sync.Once
	stopCh   chan struct{}
}

const queueSize = 64

// New builds a Notifier from the given channels and starts its delivery
// goroutine if at least one channel is configured.
func New(channels ...Channel) *Notifier {
	n := &Notifier{
		channels: channels,
		queue:    make(chan Notification, queueSize),
		stopCh:   make(chan struct{}),
	}
	if len(channels) > 0 {
		n.wg.Add(1)
		go n.run()
	}
	return n
}

// Send enqueues a notification for async delivery, dropping it (with a
// warning log) if the queue is full rather than blocking the caller.
func (n *Notifier) Send(notification Notification) {
	if len(n.channels) == 0 {
		return
	}
	select {
	case n.queue <- notification:
	default:
		log.Warn().Str("type", notification.Type).Msg("notification queue full, dropping message")
	}
}

func (n *Notifier) run() {
	defer n.wg.Done()
	for {
		select {
		case <-n.stopCh:
			n.drain()
			return
		case msg := <-n.queue:
			n.deliver(msg)
		}
	}
}

func (n *Notifier) drain() {
	for {
		select {
		case msg := <-n.queue:
			n.deliver(msg)
		default:
			return
		}
	}
}

func (n *Notifier) deliver(msg Notification) {
	for _, ch := range n.channels {
		if err := n.sendWithRetry(ch, msg); err != nil {
			log.Error().Err(err).Str("channel", ch.Name()).Str("type", msg.Type).Msg("notification delivery failed")
		}
	}
}

var retryBackoffs = []time.Duration{1 * time.Second, 3 * time.Second}

// sendWithRetry attempts delivery up to len(retryBackoffs)+1 times,
// matching the teacher's 3-attempt/{1s,3s} backoff shape.
func (n *Notifier) sendWithRetry(ch Channel, msg Notification) error {
	var lastErr error
	for attempt := 0; attempt <= len(retryBackoffs); attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		err := ch.Send(ctx, msg)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < len(retryBackoffs) {
			select {
			case <-time.After(retryBackoffs[attempt]):
			case <-n.stopCh:
				return lastErr
			}
		}
	}
	return lastErr
}

// Stop drains any queued notifications and stops the delivery goroutine.
func (n *Notifier) Stop() {
	n.stopOnce.Do(func() {
		close(n.stopCh)
	})
	n.wg.Wait()
}
