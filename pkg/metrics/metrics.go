package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luna_turns_total",
			Help: "Total number of turns by terminal state.",
		},
		[]string{"state"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "luna_stage_duration_seconds",
			Help:    "Duration of each turn stage by outcome.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"stage", "status"},
	)

	ImagePollAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "luna_image_poll_attempts",
		Help:    "Number of polls an image job needed before it finished.",
		Buckets: prometheus.LinearBuckets(0, 1, 11),
	})

	AnnotationsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luna_annotations_rejected_total",
			Help: "Total number of narration annotations dropped by kind.",
		},
		[]string{"kind"},
	)
)

// ObserveStage records how long a stage took since start.
func ObserveStage(stage string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	StageDuration.WithLabelValues(stage, status).Observe(time.Since(start).Seconds())
}
