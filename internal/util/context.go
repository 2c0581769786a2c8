package util

import (
	"context"
	"time"
)

// RequestInfo describes a request while it is being dispatched.
type RequestInfo struct {
	// ID is the X-Request-ID value, generated when the client sent none.
	ID string
	// Route is the matched pattern, empty when nothing matched.
	Route string
	// Generation is the snapshot generation serving the request.
	Generation uint64
	Start      time.Time
}

// Elapsed returns the time since the request started.
func (i RequestInfo) Elapsed() time.Duration {
	if i.Start.IsZero() {
		return 0
	}
	return time.Since(i.Start)
}

type requestInfoKey struct{}

// WithRequestInfo returns a copy of ctx carrying info.
func WithRequestInfo(ctx context.Context, info RequestInfo) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, info)
}

// RequestInfoFromContext returns the info stored by WithRequestInfo.
func RequestInfoFromContext(ctx context.Context) (RequestInfo, bool) {
	info, ok := ctx.Value(requestInfoKey{}).(RequestInfo)
	return info, ok
}

// RequestIDFromContext returns the request ID, or "" outside a dispatch.
func RequestIDFromContext(ctx context.Context) string {
	info, _ := RequestInfoFromContext(ctx)
	return info.ID
}
