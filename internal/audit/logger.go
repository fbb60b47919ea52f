// Package audit records gate access attempts.  Recording never blocks the
// gate: attempts are queued and persisted by a background worker, and every
// failure along the way is reported on a diagnostics channel instead of to
// the caller.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/iliyamo/casefiles/internal/model"
	"github.com/iliyamo/casefiles/internal/queue"
)

// ErrQueueFull is reported when an attempt is dropped because the worker
// is behind.
var ErrQueueFull = errors.New("audit queue full")

// ErrClosed is reported for attempts recorded after Close.
var ErrClosed = errors.New("audit logger closed")

// Store persists attempts.  *repository.AttemptRepo satisfies it.
type Store interface {
	Insert(ctx context.Context, a *model.AccessAttempt) error
}

// Publisher forwards persisted attempts to downstream consumers.
type Publisher interface {
	PublishAccessAttempt(ctx context.Context, ev queue.AccessAttemptEvent) error
}

// PublisherFunc adapts a plain function to Publisher.
type PublisherFunc func(ctx context.Context, ev queue.AccessAttemptEvent) error

func (f PublisherFunc) PublishAccessAttempt(ctx context.Context, ev queue.AccessAttemptEvent) error {
	return f(ctx, ev)
}

// Options tunes a Logger.
type Options struct {
	// StoreRaw keeps the attempted secret verbatim.  When false the value
	// is replaced by its SHA-256 digest.
	StoreRaw bool
	// Buffer is the queue depth; attempts beyond it are dropped.
	Buffer int
	// WriteTimeout bounds each insert and publish.
	WriteTimeout time.Duration
}

// Logger is the fire-and-forget attempt recorder.
type Logger struct {
	store Store
	pub   Publisher
	opts  Options

	mu     sync.RWMutex
	closed bool
	queue  chan model.AccessAttempt
	diag   chan error
	done   chan struct{}
}

// NewLogger builds a Logger.  pub may be nil.
func NewLogger(store Store, pub Publisher, opts Options) *Logger {
	if opts.Buffer <= 0 {
		opts.Buffer = 256
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	return &Logger{
		store: store,
		pub:   pub,
		opts:  opts,
		queue: make(chan model.AccessAttempt, opts.Buffer),
		diag:  make(chan error, 64),
		done:  make(chan struct{}),
	}
}

// Record queues one attempt.  It returns immediately whatever happens.
func (l *Logger) Record(secret string, success bool, info model.DeviceInfo) {
	a := model.AccessAttempt{
		PasswordTried: l.redact(secret),
		Success:       success,
		UserAgent:     info.UserAgent,
		DeviceInfo:    info,
		CreatedAt:     time.Now().UTC(),
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.report(ErrClosed)
		return
	}
	select {
	case l.queue <- a:
	default:
		l.report(ErrQueueFull)
	}
}

// Diagnostics exposes background failures.  Reports are dropped when
// nobody drains the channel.
func (l *Logger) Diagnostics() <-chan error { return l.diag }

// Run persists queued attempts until Close is called and the queue has
// drained.  Cancelling ctx does not stop it: attempts recorded while the
// server shuts down are still written.  ctx only supplies request-scoped
// values to the store and publisher.
func (l *Logger) Run(ctx context.Context) {
	defer close(l.done)
	for a := range l.queue {
		l.persist(ctx, a)
	}
}

// Close stops accepting attempts and waits for Run to drain the queue.
// Run must have been started.
func (l *Logger) Close() {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()
	<-l.done
}

func (l *Logger) persist(ctx context.Context, a model.AccessAttempt) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.opts.WriteTimeout)
	defer cancel()

	if err := l.store.Insert(wctx, &a); err != nil {
		l.report(fmt.Errorf("persist attempt: %w", err))
		return
	}
	if l.pub == nil {
		return
	}
	if err := l.pub.PublishAccessAttempt(wctx, queue.NewAccessAttemptEvent(a)); err != nil {
		l.report(fmt.Errorf("publish attempt %s: %w", a.ID, err))
	}
}

func (l *Logger) report(err error) {
	select {
	case l.diag <- err:
	default:
	}
}

func (l *Logger) redact(secret string) string {
	if l.opts.StoreRaw {
		return secret
	}
	return Redact(secret)
}

// Redact replaces a secret with "sha256:<hex>" so equal attempts remain
// recognisable in the log without the value itself being stored.
func Redact(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// LogDiagnostics drains the diagnostics channel into the process log until
// ctx is cancelled or the logger has been closed.  Reports raised while
// Close drained the queue are logged before it returns.
func LogDiagnostics(ctx context.Context, l *Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-l.diag:
			log.Printf("audit: %v", err)
		case <-l.done:
			for {
				select {
				case err := <-l.diag:
					log.Printf("audit: %v", err)
				default:
					return
				}
			}
		}
	}
}
