package signal

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"unsafe"
	"weak"

	"github.com/google/uuid"
)

// Kind classifies a subscriber record.
type Kind string

const (
	// KindPlain is a free function or closure held by strong reference.
	KindPlain Kind = "plain"
	// KindAsync is a suspend-capable callback held by strong reference.
	KindAsync Kind = "async"
	// KindBound is a method bound to an owner held by weak reference.
	KindBound Kind = "bound"
	// KindBoundAsync is a suspend-capable owner-bound method.
	KindBoundAsync Kind = "bound_async"
)

// SubscriberInfo identifies a subscriber record in diagnostics and in the
// observer's OnError hook.
type SubscriberInfo struct {
	// ID is a unique identifier assigned at registration.
	ID string
	// Kind is the record classification.
	Kind Kind
	// Seq is the registration sequence number within the Signal.
	Seq uint64
}

func (i SubscriberInfo) String() string {
	return fmt.Sprintf("%s/%s#%d", i.Kind, i.ID, i.Seq)
}

func newSubscriberID() string {
	return uuid.NewString()
}

// subKey is the registry identity of a record: the owner's address (zero for
// plain callbacks) plus the callback's closure pointer. Re-subscribing the
// same func value therefore maps to the same key and is a no-op.
type subKey struct {
	owner uintptr
	fn    uintptr
}

// funcID returns the identity of a func value: the address of its underlying
// closure object. Copies of one func value share it; each evaluation of a
// capturing literal or method value allocates a fresh closure, so distinct
// closures built from the same literal register as distinct subscribers.
// Named functions, method expressions, and non-capturing literals reference
// one static closure and keep their stable identity.
func funcID[F any](fn F) uintptr {
	return *(*uintptr)(unsafe.Pointer(&fn))
}

func callbackKey[F any](fn F) subKey {
	return subKey{fn: funcID(fn)}
}

func boundKey[O any, F any](owner *O, method F) subKey {
	return subKey{
		owner: uintptr(unsafe.Pointer(owner)),
		fn:    funcID(method),
	}
}

type invokeFunc[T any] func(ctx context.Context, v T) (delivered bool, err error)

// subscription is one registry record. For owner-bound records, alive
// reports owner liveness and invoke resolves the weak owner reference per
// delivery, reporting delivered=false once the owner is gone.
type subscription[T any] struct {
	info   SubscriberInfo
	key    subKey
	invoke invokeFunc[T]
	alive  func() bool
	handle *Subscription
}

// Subscription is a handle to a registered subscriber. Close removes the
// record; closing twice or after the callback was unsubscribed is a no-op.
type Subscription struct {
	id     string
	once   sync.Once
	remove func()
}

// ID returns the subscriber's unique identifier.
func (u *Subscription) ID() string {
	return u.id
}

// Close unregisters the subscriber.
func (u *Subscription) Close() {
	u.once.Do(u.remove)
}

// Bind registers an owner-bound method. The record does not keep owner
// alive: only a weak reference is stored, and once owner is garbage
// collected the record is removed without ever being invoked again. Use
// Bind instead of Subscribe(owner.Method) when the callback's lifetime
// should follow the owner's; a bound method value passed to Subscribe would
// pin the owner for as long as the subscription exists.
//
// Removal happens eagerly through a GC cleanup and lazily at every
// publish/Len, whichever runs first.
func Bind[O any, T any](s *Signal[T], owner *O, method func(*O, T) error) (*Subscription, error) {
	if owner == nil || method == nil {
		return nil, fmt.Errorf("signal %s: owner and method cannot be nil", s.name)
	}
	key := boundKey(owner, method)
	ref := weak.Make(owner)
	invoke := func(_ context.Context, v T) (bool, error) {
		o := ref.Value()
		if o == nil {
			return false, nil
		}
		return true, method(o, v)
	}
	sub, err := s.add(key, KindBound, invoke, func() bool { return ref.Value() != nil })
	if err != nil {
		return nil, err
	}
	runtime.AddCleanup(owner, func(remove func()) { remove() }, func() { s.removeKey(key) })
	return sub, nil
}

// BindAsync registers a suspend-capable owner-bound method. It has Bind's
// lifetime semantics and SubscribeAsync's dispatch semantics.
func BindAsync[O any, T any](s *Signal[T], owner *O, method func(*O, context.Context, T) error) (*Subscription, error) {
	if owner == nil || method == nil {
		return nil, fmt.Errorf("signal %s: owner and method cannot be nil", s.name)
	}
	key := boundKey(owner, method)
	ref := weak.Make(owner)
	invoke := func(ctx context.Context, v T) (bool, error) {
		o := ref.Value()
		if o == nil {
			return false, nil
		}
		return true, method(o, ctx, v)
	}
	sub, err := s.add(key, KindBoundAsync, invoke, func() bool { return ref.Value() != nil })
	if err != nil {
		return nil, err
	}
	runtime.AddCleanup(owner, func(remove func()) { remove() }, func() { s.removeKey(key) })
	return sub, nil
}

// Unbind removes an owner-bound method registered with Bind. Like
// Unsubscribe it is a no-op when the record is absent.
func Unbind[O any, T any](s *Signal[T], owner *O, method func(*O, T) error) {
	if owner == nil || method == nil {
		return
	}
	s.removeKey(boundKey(owner, method))
}

// UnbindAsync removes an owner-bound method registered with BindAsync.
func UnbindAsync[O any, T any](s *Signal[T], owner *O, method func(*O, context.Context, T) error) {
	if owner == nil || method == nil {
		return
	}
	s.removeKey(boundKey(owner, method))
}
