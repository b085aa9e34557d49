package kafka

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce sync.Once

	producerMessages *prometheus.CounterVec
	producerBytes    *prometheus.CounterVec
	producerLatency  *prometheus.HistogramVec

	consumerMessages *prometheus.CounterVec
	consumerLatency  *prometheus.HistogramVec
	consumerBacklog  *prometheus.GaugeVec
)

func initMetrics() {
	metricsOnce.Do(func() {
		producerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chartmarks_kafka_producer_messages_total",
			Help: "Messages published to Kafka",
		}, []string{"topic", "result"})
		producerBytes = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chartmarks_kafka_producer_bytes_total",
			Help: "Payload bytes published to Kafka",
		}, []string{"topic"})
		producerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chartmarks_kafka_producer_publish_seconds",
			Help:    "Publish latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"})

		consumerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "chartmarks_kafka_consumer_messages_total",
			Help: "Messages handled by the consumer",
		}, []string{"topic", "result"})
		consumerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chartmarks_kafka_consumer_handle_seconds",
			Help:    "Handling time per message",
			Buckets: prometheus.DefBuckets,
		}, []string{"topic"})
		consumerBacklog = promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "chartmarks_kafka_consumer_backlog",
			Help: "Messages read but not yet handled",
		}, []string{"topic"})
	})
}

func observePublish(topic string, bytes, count int, dur time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	producerMessages.WithLabelValues(topic, result).Add(float64(count))
	producerBytes.WithLabelValues(topic).Add(float64(bytes))
	producerLatency.WithLabelValues(topic).Observe(dur.Seconds())
}

func observeHandle(topic, result string, dur time.Duration) {
	consumerMessages.WithLabelValues(topic, result).Inc()
	consumerLatency.WithLabelValues(topic).Observe(dur.Seconds())
}
