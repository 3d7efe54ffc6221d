package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Playback metrics
var (
	playsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omx_looper_plays_total",
			Help: "Total number of items started, by kind",
		},
		[]string{"kind"}, // "image", "video", "loop"
	)

	scheduleDropoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "omx_looper_schedule_dropouts_total",
			Help: "Looping videos stopped because they left their schedule",
		},
	)

	idleTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "omx_looper_idle_total",
			Help: "Times the looper found nothing on schedule",
		},
	)

	feedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omx_looper_feedback_total",
			Help: "Play feedback outcomes",
		},
		[]string{"status"}, // "recorded", "disabled", "error"
	)
)

// Playlist metrics
var (
	playlistItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "omx_looper_playlist_items",
			Help: "Number of items in the loaded playlist",
		},
	)

	playlistIndex = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "omx_looper_playlist_index",
			Help: "Index of the current playlist item, -1 when none",
		},
	)

	playlistIterationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "omx_looper_playlist_iterations_total",
			Help: "Completed passes over the playlist",
		},
	)

	playlistRebuildsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "omx_looper_playlist_rebuilds_total",
			Help: "Playlist rebuilds after content changes",
		},
	)
)

// HTTP metrics
var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omx_looper_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)
