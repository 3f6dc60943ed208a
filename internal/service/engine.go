package service

import (
	"context"
	"sync"

	"github.com/renterra-solution/tenancy-lifecycle-service/internal/store"
)

// Storage is what the engine needs from the store: transaction runners that
// hand the workflow an open TxOps. The concrete implementation is
// *store.Store; tests substitute an in-memory one.
type Storage interface {
	InTx(ctx context.Context, fn func(store.TxOps) error) error
	InLockedTx(ctx context.Context, key string, fn func(store.TxOps) error) error
}

var _ Storage = (*store.Store)(nil)

// Engine implements the tenancy lifecycle workflows: Attach, Renew,
// Reconcile and CheckConsistency. Every workflow entry point runs inside
// exactly one database transaction; notification side effects run after
// commit and can never influence the outcome.
type Engine struct {
	store    Storage
	notifier Notifier
	notify   chan Notification
	done     chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewEngine creates the engine and starts the notification worker. Pass a nil
// notifier to dispatch through the logging default.
func NewEngine(st Storage, n Notifier) *Engine {
	if n == nil {
		n = LogNotifier{}
	}
	e := &Engine{
		store:    st,
		notifier: n,
		notify:   make(chan Notification, 64),
		done:     make(chan struct{}),
	}
	go e.notifyWorker()
	return e
}

// Close stops the notification worker after draining queued notifications.
// A workflow racing shutdown drops its notification instead of sending on the
// closed channel. Safe to call more than once.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.notify)
	e.mu.Unlock()
	<-e.done
}
