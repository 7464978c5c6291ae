// Package notify e-mails selected activity entries to configured recipients.
package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"slices"
	"sync"
	"time"

	"smart-locker-control/internal/activity"
	"smart-locker-control/internal/email"
	"smart-locker-control/internal/storage"
)

const (
	queueSize   = 64
	sendTimeout = 30 * time.Second
)

type Sender interface {
	Send(ctx context.Context, msg *email.Message) error
}

// Notifier queues matching entries and sends them from a single worker.
// Entries are dropped when the queue is full.
type Notifier struct {
	sender     Sender
	recipients []string
	types      []string
	lockerID   string
	logger     *slog.Logger

	mu     sync.RWMutex // guards closed and sends on queue
	closed bool
	queue  chan *email.Message
	wg     sync.WaitGroup
}

func New(sender Sender, lockerID string, recipients, types []string) *Notifier {
	n := &Notifier{
		sender:     sender,
		recipients: recipients,
		types:      types,
		lockerID:   lockerID,
		logger:     slog.With("component", "notify"),
		queue:      make(chan *email.Message, queueSize),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

// Listen matches activity.Listener.
func (n *Notifier) Listen(log storage.LogName, e activity.Entry) {
	if len(n.recipients) == 0 || !slices.Contains(n.types, e.Type) {
		return
	}
	msg := n.message(log, e)

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		n.logger.Debug("Notifier closed, dropping", "action", e.Action, "type", e.Type)
		return
	}
	select {
	case n.queue <- msg:
	default:
		n.logger.Warn("Notification queue full, dropping", "action", e.Action, "type", e.Type)
	}
}

// Close stops accepting notifications and waits for queued ones to be sent.
func (n *Notifier) Close() {
	n.mu.Lock()
	if !n.closed {
		n.closed = true
		close(n.queue)
	}
	n.mu.Unlock()
	n.wg.Wait()
}

func (n *Notifier) run() {
	defer n.wg.Done()
	for msg := range n.queue {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		if err := n.sender.Send(ctx, msg); err != nil {
			n.logger.Error("Failed to send notification", "subject", msg.Subject, "error", err)
		}
		cancel()
	}
}

func (n *Notifier) message(log storage.LogName, e activity.Entry) *email.Message {
	body := fmt.Sprintf(`<h2>%s</h2>
<table>
<tr><th>Locker</th><td>%s</td></tr>
<tr><th>Log</th><td>%s</td></tr>
<tr><th>Type</th><td>%s</td></tr>
<tr><th>User</th><td>%s</td></tr>
<tr><th>Time</th><td>%s</td></tr>
</table>`,
		html.EscapeString(e.Action),
		html.EscapeString(n.lockerID),
		html.EscapeString(string(log)),
		html.EscapeString(e.Type),
		html.EscapeString(e.User),
		e.Timestamp.Format(time.RFC1123),
	)
	if e.Data != "" {
		body += fmt.Sprintf("\n<p>Data: <code>%s</code></p>", html.EscapeString(e.Data))
	}

	return &email.Message{
		To:      n.recipients,
		Subject: fmt.Sprintf("[%s] %s: %s", n.lockerID, e.Type, e.Action),
		HTML:    body,
	}
}
