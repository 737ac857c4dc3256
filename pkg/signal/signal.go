// Package signal provides typed in-process publish/subscribe channels.
//
// A Signal carries values of a single payload type from publishers to an
// ordered registry of subscribers. Subscribers are invoked in registration
// order, failures are isolated per subscriber, and owner-bound subscribers
// are dropped automatically once their owner is garbage collected.
package signal

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/ezpubsub/ezpubsub/pkg/logger"
)

// Callback is a synchronous subscriber.
type Callback[T any] func(T) error

// AsyncCallback is a subscriber that may block or suspend; PublishAsync
// passes its context through, Publish invokes it with context.Background().
type AsyncCallback[T any] func(context.Context, T) error

// Dispatch modes reported to metrics.
const (
	modeSync  = "sync"
	modeAsync = "async"
)

// Signal is a typed broadcast channel. Create instances with New; the zero
// value is not usable.
//
// All registry mutation happens under a per-instance mutex. Dispatch takes a
// snapshot of the registry under the mutex and invokes subscribers with the
// mutex released, so callbacks may subscribe, unsubscribe, or publish on the
// same Signal without deadlocking. Registry changes made during a dispatch
// take effect from the next publish onward.
type Signal[T any] struct {
	name     string
	observer Observer[T]
	logging  atomic.Bool

	requireFreeze bool
	errLogLimit   *rate.Limiter

	mu     sync.Mutex
	subs   []*subscription[T]
	index  map[subKey]*subscription[T]
	frozen bool
	seq    uint64
}

// Option configures a Signal at construction time.
type Option[T any] func(*Signal[T])

// WithName sets the display name used in diagnostics. The default is derived
// from the payload type.
func WithName[T any](name string) Option[T] {
	return func(s *Signal[T]) {
		s.name = name
	}
}

// WithLogging sets the initial diagnostic-logging flag.
func WithLogging[T any](enabled bool) Option[T] {
	return func(s *Signal[T]) {
		s.logging.Store(enabled)
	}
}

// WithObserver replaces the default log/error hooks.
func WithObserver[T any](o Observer[T]) Option[T] {
	return func(s *Signal[T]) {
		s.observer = o
	}
}

// WithRequireFreeze makes publishing fail with ErrNotFrozen until Freeze has
// been called, forcing the registry to be complete before the first publish.
func WithRequireFreeze[T any]() Option[T] {
	return func(s *Signal[T]) {
		s.requireFreeze = true
	}
}

// WithErrorLogLimit throttles the default observer's error log lines. It has
// no effect when WithObserver is also given.
func WithErrorLogLimit[T any](limit rate.Limit, burst int) Option[T] {
	return func(s *Signal[T]) {
		s.errLogLimit = rate.NewLimiter(limit, burst)
	}
}

// New creates a Signal for payload type T.
func New[T any](opts ...Option[T]) *Signal[T] {
	s := &Signal[T]{
		index: make(map[subKey]*subscription[T]),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.name == "" {
		s.name = fmt.Sprintf("signal[%s]", reflect.TypeFor[T]().String())
	}
	if s.observer == nil {
		s.observer = &logObserver[T]{
			signal:  s.name,
			log:     logger.Global(),
			limiter: s.errLogLimit,
		}
	}
	return s
}

// Name returns the display name used in diagnostics.
func (s *Signal[T]) Name() string {
	return s.name
}

// SetLogging flips the diagnostic-logging flag at runtime.
func (s *Signal[T]) SetLogging(enabled bool) {
	s.logging.Store(enabled)
}

// LoggingEnabled reports whether diagnostic lines are emitted.
func (s *Signal[T]) LoggingEnabled() bool {
	return s.logging.Load()
}

// Subscribe registers a synchronous callback. Registering the same func
// value twice is a no-op and keeps its original position; distinct closures
// built from the same literal are distinct subscribers. Subscribe fails with
// ErrFrozen once the Signal is frozen.
func (s *Signal[T]) Subscribe(cb Callback[T]) (*Subscription, error) {
	if cb == nil {
		return nil, fmt.Errorf("signal %s: callback cannot be nil", s.name)
	}
	invoke := func(_ context.Context, v T) (bool, error) {
		return true, cb(v)
	}
	return s.add(callbackKey(cb), KindPlain, invoke, nil)
}

// SubscribeAsync registers a suspend-capable callback. It participates in
// both Publish and PublishAsync; only the latter propagates a caller
// context.
func (s *Signal[T]) SubscribeAsync(cb AsyncCallback[T]) (*Subscription, error) {
	if cb == nil {
		return nil, fmt.Errorf("signal %s: callback cannot be nil", s.name)
	}
	invoke := func(ctx context.Context, v T) (bool, error) {
		return true, cb(ctx, v)
	}
	return s.add(callbackKey(cb), KindAsync, invoke, nil)
}

// Unsubscribe removes a previously registered callback. The argument must be
// the same func value that was subscribed; a freshly built closure or method
// value never matches — close the Subscription handle instead. Removing a
// callback that is not registered is a no-op.
func (s *Signal[T]) Unsubscribe(cb Callback[T]) {
	if cb == nil {
		return
	}
	s.removeKey(callbackKey(cb))
}

// UnsubscribeAsync removes a previously registered async callback.
func (s *Signal[T]) UnsubscribeAsync(cb AsyncCallback[T]) {
	if cb == nil {
		return
	}
	s.removeKey(callbackKey(cb))
}

// Len returns the number of live subscribers. Records whose owner has been
// collected are pruned before counting.
func (s *Signal[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	return len(s.subs)
}

// IsEmpty reports whether the Signal has no live subscribers.
func (s *Signal[T]) IsEmpty() bool {
	return s.Len() == 0
}

// Freeze marks the registry immutable to new subscriptions. Unsubscribing
// remains allowed.
func (s *Signal[T]) Freeze() {
	s.mu.Lock()
	s.frozen = true
	s.mu.Unlock()
	s.logf("frozen with %d subscribers", s.Len())
}

// Frozen reports whether Freeze has been called.
func (s *Signal[T]) Frozen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frozen
}

// Publish broadcasts v to all live subscribers in registration order.
//
// A failing subscriber does not abort delivery to the rest: the error is
// routed to the observer's OnError hook and dispatch continues. The one
// exception is an OnError override that returns a non-nil error, which
// Publish returns immediately, skipping the remaining subscribers.
func (s *Signal[T]) Publish(v T) error {
	return s.dispatch(context.Background(), v, modeSync)
}

// PublishAsync behaves like Publish but flows ctx into async subscribers.
// Subscribers run sequentially in registration order, each completing before
// the next starts. ctx is checked between subscribers and its error returned
// once set; an in-flight subscriber is never forcibly stopped.
func (s *Signal[T]) PublishAsync(ctx context.Context, v T) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.dispatch(ctx, v, modeAsync)
}

func (s *Signal[T]) dispatch(ctx context.Context, v T, mode string) error {
	snapshot, err := s.snapshot()
	if err != nil {
		metricsRecorder().RecordError(s.name, "not_frozen")
		return err
	}

	start := time.Now()
	defer func() {
		metricsRecorder().ObservePublishDuration(s.name, mode, time.Since(start))
	}()
	metricsRecorder().RecordPublish(s.name, mode)
	s.logf("publishing to %d subscribers", len(snapshot))

	for _, sub := range snapshot {
		if mode == modeAsync {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		delivered, cbErr := invokeOne(ctx, sub, v)
		if !delivered {
			// Owner died between snapshot and invocation.
			s.removeKey(sub.key)
			continue
		}
		if cbErr != nil {
			metricsRecorder().RecordError(s.name, errorReason(cbErr))
			if hookErr := s.observer.OnError(ctx, sub.info, v, cbErr); hookErr != nil {
				return hookErr
			}
			continue
		}
		metricsRecorder().RecordDelivery(s.name, mode)
	}
	return nil
}

// snapshot returns the live subscriber list as of now. Later registry
// mutations do not affect a dispatch already iterating its snapshot.
func (s *Signal[T]) snapshot() ([]*subscription[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.requireFreeze && !s.frozen {
		return nil, fmt.Errorf("signal %s: %w", s.name, ErrNotFrozen)
	}
	s.pruneLocked()
	out := make([]*subscription[T], len(s.subs))
	copy(out, s.subs)
	return out, nil
}

// invokeOne calls a single subscriber, converting panics into *PanicError so
// that one misbehaving subscriber cannot take down the dispatch loop.
func invokeOne[T any](ctx context.Context, sub *subscription[T], v T) (delivered bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			delivered = true
			err = newPanicError(r)
		}
	}()
	return sub.invoke(ctx, v)
}

func (s *Signal[T]) add(key subKey, kind Kind, invoke invokeFunc[T], alive func() bool) (*Subscription, error) {
	s.mu.Lock()
	if s.frozen {
		s.mu.Unlock()
		return nil, fmt.Errorf("signal %s: %w", s.name, ErrFrozen)
	}
	if existing, ok := s.index[key]; ok {
		// Idempotent in place: no duplicate, no reorder.
		s.mu.Unlock()
		return existing.handle, nil
	}

	s.seq++
	sub := &subscription[T]{
		info: SubscriberInfo{
			ID:   newSubscriberID(),
			Kind: kind,
			Seq:  s.seq,
		},
		key:    key,
		invoke: invoke,
		alive:  alive,
	}
	sub.handle = &Subscription{
		id:     sub.info.ID,
		remove: func() { s.removeKey(key) },
	}
	s.subs = append(s.subs, sub)
	s.index[key] = sub
	count := len(s.subs)
	s.mu.Unlock()

	// Hooks run unlocked; an observer may call back into the Signal.
	metricsRecorder().ObserveSubscribers(s.name, count)
	s.logf("subscribed %s subscriber %s", kind, sub.info.ID)
	return sub.handle, nil
}

func (s *Signal[T]) removeKey(key subKey) {
	s.mu.Lock()
	sub, ok := s.index[key]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.index, key)
	filtered := s.subs[:0]
	for _, existing := range s.subs {
		if existing == sub {
			continue
		}
		filtered = append(filtered, existing)
	}
	s.subs = filtered
	count := len(s.subs)
	s.mu.Unlock()

	metricsRecorder().ObserveSubscribers(s.name, count)
	s.logf("unsubscribed %s subscriber %s", sub.info.Kind, sub.info.ID)
}

// pruneLocked drops records whose owner has been collected. Callers must
// hold s.mu.
func (s *Signal[T]) pruneLocked() {
	filtered := s.subs[:0]
	pruned := 0
	for _, sub := range s.subs {
		if sub.alive != nil && !sub.alive() {
			delete(s.index, sub.key)
			pruned++
			continue
		}
		filtered = append(filtered, sub)
	}
	s.subs = filtered
	if pruned > 0 {
		metricsRecorder().ObserveSubscribers(s.name, len(s.subs))
	}
}

func (s *Signal[T]) logf(format string, args ...any) {
	if !s.logging.Load() {
		return
	}
	s.observer.Log(fmt.Sprintf(format, args...))
}
