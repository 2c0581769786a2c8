// Package observability provides logging, metrics, and tracing
// for the wiggly route server.
//
// # Logging
//
// The Logger interface provides structured logging over zap:
//
//	logger, err := observability.NewLogger(observability.DefaultLogConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Warn("skipping route file",
//	    observability.String("path", "user/[id].yaml"),
//	    observability.String("reason", "no recognized method keys"),
//	)
//
// # Metrics
//
// Prometheus metrics for builds, snapshot swaps, watch events and
// dispatched requests, served from a dedicated registry:
//
//	metrics := observability.NewMetrics("wiggly")
//	http.Handle("/metrics", metrics.Handler())
//
// # Tracing
//
// OpenTelemetry spans around builds and dispatch, exported over OTLP
// gRPC when an endpoint is configured:
//
//	tracer, err := observability.NewTracer(observability.TracerConfig{
//	    ServiceName:  "wiggly",
//	    OTLPEndpoint: "localhost:4317",
//	    SamplingRate: 1.0,
//	    Enabled:      true,
//	})
package observability
