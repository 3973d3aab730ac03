// Package metrics holds the Prometheus collectors for the marketplace lifecycle.
package metrics

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sudo-init-do/carhub/internal/apperr"
)

var (
	// TransactionsTotal counts transaction state changes by operation and result
	TransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carhub_transactions_total",
		Help: "Transaction operations by operation and result",
	}, []string{"operation", "result"})

	// ListingsTotal counts listing writes by operation and result
	ListingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carhub_listings_total",
		Help: "Listing operations by operation and result",
	}, []string{"operation", "result"})

	// RatingsTotal counts rating upserts and deletions
	RatingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carhub_ratings_total",
		Help: "Rating operations by operation and result",
	}, []string{"operation", "result"})

	// MessagesTotal counts messages sent and threads opened
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carhub_messages_total",
		Help: "Messaging operations by operation and result",
	}, []string{"operation", "result"})

	// AuthTotal counts registrations and login attempts
	AuthTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carhub_auth_total",
		Help: "Registrations and logins by operation and result",
	}, []string{"operation", "result"})

	// NotifyErrors counts post-commit notifications that failed to enqueue
	NotifyErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "carhub_notify_errors_total",
		Help: "Notifications that could not be enqueued, by kind",
	}, []string{"kind"})

	// WSClients tracks open websocket connections
	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "carhub_ws_clients",
		Help: "Open thread websocket connections",
	})
)

// Result maps an operation error to a label value: ok, the failure kind, or
// error for anything unexpected.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	if k := apperr.KindOf(err); k != 0 {
		return k.String()
	}
	return "error"
}

// Handler exposes the default registry for echo.
func Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.Handler())
}
