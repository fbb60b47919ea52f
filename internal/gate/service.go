package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/casefiles/internal/model"
)

var (
	// ErrWrongSecret is a genuine mismatch; the attempt was logged.
	ErrWrongSecret = errors.New("wrong secret")
	// ErrSystem means the stored secret could not be read; nothing was logged.
	ErrSystem = errors.New("gate system error")
	// ErrBusy is returned for a submit while a verification is in flight
	// or after the gate has already accepted.
	ErrBusy = errors.New("verification in progress")
	// ErrEmptyInput is returned when the trimmed input is empty.
	ErrEmptyInput = errors.New("empty input")
)

// ConfigReader reads the singleton site config.
type ConfigReader interface {
	Get(ctx context.Context) (model.SiteConfig, error)
}

// Recorder receives one call per real comparison.
type Recorder interface {
	Record(secret string, success bool, info model.DeviceInfo)
}

// Service verifies submissions against the stored site password.
type Service struct {
	cfg     ConfigReader
	rec     Recorder
	delay   time.Duration
	timeout time.Duration
	now     func() time.Time

	inflight sync.Map // visitor key -> struct{}
}

// NewService builds a gate service.  delay is the pause between an accepted
// secret and the unlock signal; timeout bounds the config read.
func NewService(cfg ConfigReader, rec Recorder, delay, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Service{cfg: cfg, rec: rec, delay: delay, timeout: timeout, now: time.Now}
}

// Submit runs one verification for the visitor identified by key.  It
// returns the new state together with an error describing why the gate did
// not move towards Unlocked.  Only one verification per key runs at a time.
func (s *Service) Submit(ctx context.Context, key string, st State, input string, info model.DeviceInfo) (State, error) {
	st = Reduce(st, Typed{Value: input})
	if st.Phase == Verifying || st.Phase == Unlocking || st.Phase == Unlocked {
		return st, ErrBusy
	}
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return st, ErrEmptyInput
	}
	if _, loaded := s.inflight.LoadOrStore(key, struct{}{}); loaded {
		return st, ErrBusy
	}
	defer s.inflight.Delete(key)

	st = Reduce(st, Submitted{})

	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	cfg, err := s.cfg.Get(cctx)
	if err != nil {
		return Reduce(st, Failed{}), fmt.Errorf("%w: %v", ErrSystem, err)
	}

	ok := trimmed == cfg.SitePassword
	s.rec.Record(trimmed, ok, info)

	st = Reduce(st, Verified{OK: ok, At: s.now().Add(s.delay)})
	if !ok {
		return st, ErrWrongSecret
	}
	return st, nil
}

// Advance applies the passage of time to st.
func (s *Service) Advance(st State) State {
	return Reduce(st, Tick{Now: s.now()})
}
