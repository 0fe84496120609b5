// Package metrics holds Prometheus instruments used across the admin
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_submissions_total",
			Help: "Form submissions by entity kind and outcome.",
		}, []string{"entity", "status"})

	UploadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_upload_duration_seconds",
			Help:    "Time spent committing a thumbnail to the media host.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"})

	BackendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_backend_duration_seconds",
			Help:    "Latency of catalog backend calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"})

	FormInstances = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_form_instances",
			Help: "Open form instances held by the in-memory store.",
		})

	FileRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_file_rejections_total",
			Help: "Thumbnail selections refused before upload, by reason.",
		}, []string{"reason"})
)

func init() {
	prometheus.MustRegister(
		SubmissionsTotal,
		UploadDuration,
		BackendDuration,
		FormInstances,
		FileRejectionsTotal,
	)
}
