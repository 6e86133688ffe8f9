package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "apex"

// Metrics holds the service's collectors. A nil *Metrics records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	ComandasClosed       *prometheus.CounterVec
	PaymentsAmount       *prometheus.CounterVec
	DuplicatesRejected   prometheus.Counter
	OrdersCreated        prometheus.Counter
	EventPublishFailures *prometheus.CounterVec
}

// New registers the collectors on a fresh registry that also carries the Go
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg, reg)
}

func NewWithRegistry(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: gatherer,

		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		ComandasClosed: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "comandas_closed_total",
				Help:      "Comanda closure attempts by outcome",
			},
			[]string{"outcome"},
		),
		PaymentsAmount: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "comanda_payments_amount_total",
				Help:      "Sum of recorded payment amounts by method",
			},
			[]string{"method"},
		),
		DuplicatesRejected: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "duplicate_submissions_rejected_total",
				Help:      "Order submissions rejected as duplicates",
			},
		),
		OrdersCreated: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_created_total",
				Help:      "Orders created",
			},
		),
		EventPublishFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "event_publish_failures_total",
				Help:      "Domain events that failed to publish",
			},
			[]string{"type"},
		),
	}
}

func (m *Metrics) ComandaClosed(outcome string) {
	if m == nil {
		return
	}
	m.ComandasClosed.WithLabelValues(outcome).Inc()
}

func (m *Metrics) PaymentRecorded(method string, amount float64) {
	if m == nil {
		return
	}
	m.PaymentsAmount.WithLabelValues(method).Add(amount)
}

func (m *Metrics) DuplicateRejected() {
	if m == nil {
		return
	}
	m.DuplicatesRejected.Inc()
}

func (m *Metrics) OrderCreated() {
	if m == nil {
		return
	}
	m.OrdersCreated.Inc()
}

func (m *Metrics) PublishFailed(eventType string) {
	if m == nil {
		return
	}
	m.EventPublishFailures.WithLabelValues(eventType).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request count and latency labelled by the matched chi
// route pattern, so /orders/{id} is one series rather than one per order.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := []string{r.Method, route, strconv.Itoa(status)}
		m.HTTPRequestsTotal.WithLabelValues(labels...).Inc()
		m.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	})
}
