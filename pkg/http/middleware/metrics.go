package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	applogger "FinCast/pkg/logger"
)

type httpMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inFlight prometheus.Gauge
	bytes    *prometheus.HistogramVec
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	f := promauto.With(reg)
	return &httpMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2.5, 8),
		}, []string{"route", "method", "class"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "Requests currently being served.",
		}),
		bytes: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response body size.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 7),
		}, []string{"route", "class"}),
	}
}

// Observe records request metrics under the echo route template and logs
// each request: 5xx at error level, slow ones as warnings, the rest at debug.
// A zero slow threshold disables the warning.
func Observe(reg prometheus.Registerer, l *applogger.Logger, slow time.Duration) echo.MiddlewareFunc {
	m := newHTTPMetrics(reg)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			m.inFlight.Inc()
			defer m.inFlight.Dec()
			start := time.Now()

			if err := next(c); err != nil {
				// render now so the recorded status is final
				c.Error(err)
			}

			elapsed := time.Since(start)
			route, method := routeLabel(c), c.Request().Method
			code := c.Response().Status
			class := fmt.Sprintf("%dxx", code/100)

			m.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
			m.latency.WithLabelValues(route, method, class).Observe(elapsed.Seconds())
			m.bytes.WithLabelValues(route, class).Observe(float64(c.Response().Size))

			log := l.Debug
			msg := "http request"
			switch {
			case code >= 500:
				log, msg = l.Error, "http request failed"
			case slow > 0 && elapsed >= slow:
				log, msg = l.Warn, "http request slow"
			}
			log(msg,
				applogger.String("route", route),
				applogger.String("method", method),
				applogger.Int("status", code),
				applogger.String("remote", c.RealIP()),
				applogger.Duration("duration_ms", elapsed),
			)
			return nil
		}
	}
}

// routeLabel uses the route template so ids in paths don't explode label
// cardinality.
func routeLabel(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return "unmatched"
}
