package lifecycle

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/wiggly/internal/observability"
	"github.com/vyrodovalexey/wiggly/internal/router"
	"github.com/vyrodovalexey/wiggly/internal/util"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// ServeHTTP dispatches r against the snapshot published when it arrived.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	pub := m.current.Load()
	if pub == nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	snap := pub.snap
	snap.Acquire()
	defer snap.Release()
	m.metrics.IncInFlight()
	defer m.metrics.DecInFlight()

	start := time.Now()

	ctx := observability.ExtractHTTP(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := m.tracer.StartSpan(ctx, "wiggly.dispatch",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("http.request.method", r.Method)),
	)
	defer span.End()

	requestID := r.Header.Get(RequestIDHeader)
	if requestID == "" {
		requestID = uuid.New().String()
	}
	w.Header().Set(RequestIDHeader, requestID)

	info := util.RequestInfo{ID: requestID, Generation: pub.gen, Start: start}

	sw := util.NewStatusCapturingResponseWriter(w)
	route := observability.UnmatchedRoute

	var (
		match router.Match
		found bool
	)
	if path, ok := stripBasePath(m.basePath, r.URL.Path); ok {
		match, found = snap.Lookup(r.Method, path)
	}

	if !found {
		http.NotFound(sw, r)
	} else {
		route = match.Route.Pattern.String()
		info.Route = route
		ctx = util.WithRequestInfo(ctx, info)
		span.SetAttributes(attribute.String("http.route", route))

		c := router.NewContext(sw, r.WithContext(ctx), match)
		if err := match.Route.Serve(c); err != nil {
			m.logger.WithContext(ctx).Error("handler failed",
				observability.String("method", r.Method),
				observability.String("source", match.Route.Source),
				observability.Error(err),
			)
			span.RecordError(err)
			if !sw.HeaderWritten {
				http.Error(sw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}
	}

	span.SetAttributes(attribute.Int("http.response.status_code", sw.StatusCode))
	if sw.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(sw.StatusCode))
	}
	m.metrics.RecordDispatch(r.Method, route, sw.StatusCode, time.Since(start))
}
