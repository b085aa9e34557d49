package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	StreamClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chartmarks",
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Connected annotation stream clients",
		},
	)

	StreamMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chartmarks",
			Subsystem: "stream",
			Name:      "messages_total",
			Help:      "Annotation updates written to stream clients",
		},
		[]string{"kind"},
	)

	StreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chartmarks",
			Subsystem: "stream",
			Name:      "errors_total",
			Help:      "Stream failures by stage",
		},
		[]string{"stage"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(StreamClients, StreamMessages, StreamErrors)
	})
}
