package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность запросов к Telegram и к БД",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество запросов к Telegram и к БД",
	}, []string{"component", "operation", "target", "status"})

	IngestionEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestion_events_total",
		Help: "Шаги добавления контента администраторами",
	}, []string{"event", "outcome"})

	ContentWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "content_writes_total",
		Help: "Изменения контента в хранилище",
	}, []string{"entity", "op"})

	GuardRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "guard_rejections_total",
		Help: "Отклонённые проверки доступа",
	}, []string{"guard"})

	BotSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Ошибки отправки сообщений ботом",
	})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		NetworkRequestDuration,
		NetworkRequestTotal,
		IngestionEvents,
		ContentWrites,
		GuardRejections,
		BotSendErrors,
	)
}

// ObserveNetworkRequest записывает длительность и статус запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(time.Since(start).Seconds())
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// IncIngestion считает шаг машины состояний.
func IncIngestion(event, outcome string) {
	IngestionEvents.WithLabelValues(event, outcome).Inc()
}

// IncContentWrite считает изменение контента.
func IncContentWrite(entity, op string) {
	ContentWrites.WithLabelValues(entity, op).Inc()
}

// IncGuardRejection считает отказ проверки доступа.
func IncGuardRejection(guard string) {
	GuardRejections.WithLabelValues(guard).Inc()
}
