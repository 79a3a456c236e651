package notify

import (
	"context"
	"sync"

	"github.com/go-authgate/qrgate/internal/core"

	"go.uber.org/zap"
)

// Compile-time interface check.
var _ core.Notifier = (*LogSender)(nil)

// LogSender writes messages to the log instead of sending them.
// It keeps every message so development setups and tests can inspect them.
type LogSender struct {
	log *zap.Logger

	mu   sync.Mutex
	sent []core.Message
}

// NewLogSender creates a log-only sender.
func NewLogSender(log *zap.Logger) *LogSender {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSender{log: log}
}

// Send records msg and logs it at info level.
func (l *LogSender) Send(ctx context.Context, msg core.Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	l.mu.Lock()
	l.sent = append(l.sent, msg)
	l.mu.Unlock()

	l.log.Info("email (log driver)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.HTMLBody),
	)
	return nil
}

// Sent returns a copy of all recorded messages in send order.
func (l *LogSender) Sent() []core.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]core.Message, len(l.sent))
	copy(out, l.sent)
	return out
}

// Reset forgets recorded messages.
func (l *LogSender) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = nil
}
