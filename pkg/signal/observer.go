package signal

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/ezpubsub/ezpubsub/pkg/logger"
)

// Observer receives a Signal's diagnostics and error-policy decisions. It is
// the only externally pluggable behavior of a Signal.
//
// Log is called with human-readable diagnostic lines while the Signal's
// logging flag is enabled. OnError is called once per failed subscriber
// invocation with the dispatch context, the subscriber's identity, the
// published value, and the error. Returning nil swallows the failure and
// dispatch continues; returning a non-nil error aborts the remaining
// dispatch and surfaces the error from Publish/PublishAsync.
type Observer[T any] interface {
	Log(msg string)
	OnError(ctx context.Context, sub SubscriberInfo, value T, err error) error
}

// logObserver is the default Observer: diagnostics and subscriber failures
// go to the structured logger, tagged with the signal name.
type logObserver[T any] struct {
	signal  string
	log     logger.Logger
	limiter *rate.Limiter
}

func (o *logObserver[T]) Log(msg string) {
	o.log.Debug(msg, "signal", o.signal)
}

// OnError logs the failure with trace correlation from the dispatch context
// and lets delivery continue.
func (o *logObserver[T]) OnError(ctx context.Context, sub SubscriberInfo, _ T, err error) error {
	if o.limiter == nil || o.limiter.Allow() {
		o.log.ErrorContext(ctx, "subscriber failed",
			"signal", o.signal,
			"subscriber", sub.String(),
			"error", err,
		)
	}
	return nil
}
