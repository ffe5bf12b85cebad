package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// HandleFunc processes one fetched message.
type HandleFunc func(ctx context.Context, km kafka.Message) error

// Middleware wraps message handling, e.g. to enrich the context or to
// short-circuit a message. It runs once per delivery attempt.
type Middleware func(next HandleFunc) HandleFunc

func chain(h HandleFunc, mws []Middleware) HandleFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

type ctxKey int

const (
	startTimeKey ctxKey = iota
	traceIDKey
)

// TraceHeader carries the correlation id between services.
const TraceHeader = "trace_id"

// Trace stores the handling start time and the trace header in the context.
func Trace() Middleware {
	return func(next HandleFunc) HandleFunc {
		return func(ctx context.Context, km kafka.Message) error {
			ctx = context.WithValue(ctx, startTimeKey, time.Now())
			if id := headerValue(km, TraceHeader); id != "" {
				ctx = context.WithValue(ctx, traceIDKey, id)
			}
			return next(ctx, km)
		}
	}
}

// TraceIDFrom returns the id stored by Trace, if any.
func TraceIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}

// StartTimeFrom returns when Trace saw the message.
func StartTimeFrom(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(startTimeKey).(time.Time)
	return t, ok
}

func headerValue(km kafka.Message, key string) string {
	for _, h := range km.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
