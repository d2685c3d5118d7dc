package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/feastwise/larder/internal/engine"
)

// meterName identifies this package's instruments on the global meter
// provider. Without an installed SDK the instruments are no-ops.
const meterName = "github.com/feastwise/larder/internal/server"

// metrics bundles the service's OpenTelemetry instruments.
type metrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
	tierSize metric.Int64Histogram
}

func newMetrics() *metrics {
	meter := otel.Meter(meterName)
	m := &metrics{}

	var err error
	if m.requests, err = meter.Int64Counter("larder.http.requests",
		metric.WithDescription("HTTP requests handled"),
		metric.WithUnit("{request}"),
	); err != nil {
		otel.Handle(err)
	}
	if m.duration, err = meter.Float64Histogram("larder.http.request.duration",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
	); err != nil {
		otel.Handle(err)
	}
	if m.tierSize, err = meter.Int64Histogram("larder.rank.tier.size",
		metric.WithDescription("Recipes per tier in ranking responses"),
		metric.WithUnit("{recipe}"),
	); err != nil {
		otel.Handle(err)
	}

	return m
}

// observeTiers records the per-tier result counts of one ranking
// response.
func (m *metrics) observeTiers(ctx context.Context, resp *engine.Response) {
	for tier, list := range resp.Tiers {
		m.tierSize.Record(ctx, int64(len(list)),
			metric.WithAttributes(attribute.String("tier", tier)))
	}
}

// instrument records a request counter and latency histogram per route
// pattern, method, and status.
func (s *Service) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		attrs := metric.WithAttributes(
			attribute.String("route", route),
			attribute.String("method", r.Method),
			attribute.Int("status", status),
		)
		s.metrics.requests.Add(r.Context(), 1, attrs)
		s.metrics.duration.Record(r.Context(), time.Since(start).Seconds(), attrs)
	})
}
