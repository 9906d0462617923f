// Package metrics exposes the Prometheus collectors used across the bot.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shoplistbot"

var (
	// RemindersRequested counts scheduling decisions by outcome
	// (scheduled, failed, skipped).
	RemindersRequested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reminders_requested_total",
		Help:      "Reminder scheduling decisions by outcome and reason.",
	}, []string{"outcome", "reason"})

	// RemindersDelivered counts reminders handed to the chat transport.
	RemindersDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reminders_delivered_total",
		Help:      "Queued reminders delivered to chats, by result.",
	}, []string{"result"})

	// ItemsSaved counts item writes by operation (add, edit, remove, toggle).
	ItemsSaved = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "items_saved_total",
		Help:      "Shopping list item writes by operation.",
	}, []string{"operation"})

	// CommandsHandled counts bot commands by name and result.
	CommandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_handled_total",
		Help:      "Telegram commands handled, by command and result.",
	}, []string{"command", "result"})
)

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
