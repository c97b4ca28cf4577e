package analysis

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("weldscan.analysis")

var (
	analyzeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weldscan_analyze_total",
		Help: "Analysis runs by result",
	}, []string{"result"})

	analyzeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "weldscan_analyze_duration_seconds",
		Help:    "Analysis duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	})

	edgesClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weldscan_edges_classified_total",
		Help: "Classified candidate edges by weld type",
	}, []string{"type"})

	edgeDiagnostics = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weldscan_edge_diagnostics_total",
		Help: "Edges excluded from classification by reason",
	}, []string{"reason"})
)

// Run outcomes for analyzeTotal.
const (
	resultOK        = "ok"
	resultInvalid   = "invalid"
	resultCancelled = "cancelled"
)

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
