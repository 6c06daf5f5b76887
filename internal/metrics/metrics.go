// Package metrics содержит prometheus-метрики сервиса.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	orderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fasthost_orders_transitions_total",
			Help: "Order status transitions by target status.",
		},
		[]string{"to"},
	)

	ordersExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fasthost_orders_expired_total",
			Help: "Total number of orders expired by the sweep.",
		},
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fasthost_sweep_duration_seconds",
			Help:    "Duration of the expiry sweep.",
			Buckets: prometheus.DefBuckets,
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fasthost_http_requests_total",
			Help: "HTTP requests by method and status code.",
		},
		[]string{"method", "code"},
	)

	cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fasthost_tariff_cache_requests_total",
			Help: "Tariff cache lookups by result (hit/miss).",
		},
		[]string{"result"},
	)
)

// MustRegister регистрирует коллекторы в реестре по умолчанию (идемпотентно).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			orderTransitions, ordersExpired, sweepDuration,
			httpRequests, cacheRequests,
		)
	})
}

// Handler отдаёт метрики в формате prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncOrderTransition учитывает переход заказа в статус to.
func IncOrderTransition(to string) {
	orderTransitions.WithLabelValues(to).Inc()
}

// AddOrdersExpired прибавляет n к числу заказов, переведённых в EXPIRED.
func AddOrdersExpired(n int) {
	ordersExpired.Add(float64(n))
}

// ObserveSweep записывает длительность прохода по истёкшим заказам.
func ObserveSweep(d time.Duration) {
	sweepDuration.Observe(d.Seconds())
}

// IncHTTPRequest учитывает HTTP-запрос по методу и коду ответа.
func IncHTTPRequest(method string, code int) {
	httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// IncCacheRequest учитывает обращение к кэшу тарифов, result: hit или miss.
func IncCacheRequest(result string) {
	cacheRequests.WithLabelValues(result).Inc()
}
