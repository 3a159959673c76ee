package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	transportLabel = "transport"
	outcomeLabel   = "outcome"

	transportSSE       = "sse"
	transportWebsocket = "websocket"

	outcomeCompleted    = "completed"
	outcomeRejected     = "rejected"
	outcomeFailed       = "failed"
	outcomeDisconnected = "disconnected"
)

var (
	rendersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ocean_web_renders_total",
		Help: "The number of streamed renders by transport and outcome.",
	}, []string{
		transportLabel,
		outcomeLabel,
	})

	inspectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ocean_web_inspections_total",
		Help: "The number of pixel inspections, by whether the ray hit the water.",
	}, []string{
		"hit",
	})
)
