package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/renterra-solution/tenancy-lifecycle-service/internal/monitoring"
)

// Notification is one best-effort outbound message.
type Notification struct {
	AccountID uuid.UUID
	Kind      string
	Params    map[string]string
}

// Notifier delivers notifications. Errors are logged and swallowed; delivery
// never blocks or unwinds a committed workflow.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier is the default transport: it only logs. Real transports plug in
// at engine construction.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) error {
	log.Info().
		Str("account_id", n.AccountID.String()).
		Str("kind", n.Kind).
		Fields(map[string]interface{}{"params": n.Params}).
		Msg("notification dispatched")
	return nil
}

// enqueue hands a notification to the worker without ever blocking the
// workflow; a full queue or an engine already closing drops the message,
// which best-effort permits.
func (e *Engine) enqueue(n Notification) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		monitoring.Notifications.WithLabelValues("dropped").Inc()
		log.Warn().Str("kind", n.Kind).Msg("engine closing, notification dropped")
		return
	}
	select {
	case e.notify <- n:
	default:
		monitoring.Notifications.WithLabelValues("dropped").Inc()
		log.Warn().Str("kind", n.Kind).Msg("notification queue full, dropped")
	}
}

func (e *Engine) notifyWorker() {
	defer close(e.done)
	for n := range e.notify {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := e.notifier.Notify(ctx, n)
		cancel()
		if err != nil {
			monitoring.Notifications.WithLabelValues("failed").Inc()
			log.Error().Err(err).
				Str("account_id", n.AccountID.String()).
				Str("kind", n.Kind).
				Msg("notification delivery failed")
			continue
		}
		monitoring.Notifications.WithLabelValues("sent").Inc()
	}
}
