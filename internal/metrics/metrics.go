package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/oggyb/qmatch/internal/logger"
)

// Metrics groups every collector the service exports.
type Metrics struct {
	Registry *prometheus.Registry

	Answers                 *prometheus.CounterVec
	MatchRequests           *prometheus.CounterVec
	RelationshipTransitions *prometheus.CounterVec
	Connections             *prometheus.CounterVec

	RequestCounter  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		Answers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qmatch_answers_total",
				Help: "Answer clicks by resulting transition",
			},
			[]string{"outcome"},
		),
		MatchRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qmatch_match_requests_total",
				Help: "Match requests by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		RelationshipTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qmatch_relationship_transitions_total",
				Help: "Relationship status writes by target status and result",
			},
			[]string{"to", "result"},
		),
		Connections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "qmatch_connections_total",
				Help: "Connection confirmations by ledger result",
			},
			[]string{"result"},
		),
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grpc_requests_total",
				Help: "Total number of gRPC requests",
			},
			[]string{"method", "code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "grpc_request_duration_seconds",
				Help:    "Duration of gRPC requests",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
			},
			[]string{"method"},
		),
	}

	m.Registry.MustRegister(
		m.Answers, m.MatchRequests, m.RelationshipTransitions, m.Connections,
		m.RequestCounter, m.RequestDuration,
	)
	return m
}

const metadataKeyRequestID = "x-request-id"

// UnaryInterceptor counts and times every call and attaches a request-scoped
// logger carrying the method name and request id.
func (m *Metrics) UnaryInterceptor(base *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		reqLog := base.With("request_id", requestID(ctx), "method", info.FullMethod)
		ctx = logger.IntoContext(ctx, reqLog)

		resp, err := handler(ctx, req)

		code := status.Code(err)
		elapsed := time.Since(start)
		m.RequestCounter.WithLabelValues(info.FullMethod, code.String()).Inc()
		m.RequestDuration.WithLabelValues(info.FullMethod).Observe(elapsed.Seconds())
		reqLog.Debug("unary call completed", "code", code.String(), "latency_ms", elapsed.Milliseconds())
		return resp, err
	}
}

// requestID reuses the caller's x-request-id or mints a new one.
func requestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(metadataKeyRequestID); len(vals) > 0 && vals[0] != "" {
			return vals[0]
		}
	}
	return uuid.NewString()
}
