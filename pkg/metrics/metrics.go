package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	emigReports = "emig_reports"

	// Pipeline metrics
	jobsProcessedTotal    = "jobs_processed_total"
	stageFailuresTotal    = "stage_failures_total"
	cacheEntriesRestored  = "cache_entries_restored_total"
	retentionDeletedTotal = "retention_assessments_deleted_total"
	reportDownloadsTotal  = "report_downloads_total"
	pendingJobsGauge      = "pending_jobs"

	// Labels
	outcomeLabel = "outcome"
	stageLabel   = "stage"
	statusLabel  = "status"
)

var jobsProcessedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: emigReports,
		Name:      jobsProcessedTotal,
		Help:      "number of job processing passes partitioned by outcome",
	},
	[]string{outcomeLabel},
)

var stageFailuresTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: emigReports,
		Name:      stageFailuresTotal,
		Help:      "number of stage failures partitioned by stage",
	},
	[]string{stageLabel},
)

var cacheEntriesRestoredMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: emigReports,
		Name:      cacheEntriesRestored,
		Help:      "number of cache entries rebuilt from the ledger",
	},
)

var retentionDeletedTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: emigReports,
		Name:      retentionDeletedTotal,
		Help:      "number of assessments removed by the retention sweeper",
	},
)

var reportDownloadsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: emigReports,
		Name:      reportDownloadsTotal,
		Help:      "number of report download requests partitioned by status",
	},
	[]string{statusLabel},
)

var pendingJobsGaugeMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: emigReports,
		Name:      pendingJobsGauge,
		Help:      "number of jobs currently waiting to be processed",
	},
)

func IncreaseJobsProcessedMetric(outcome string) {
	jobsProcessedTotalMetric.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
}

func IncreaseStageFailuresMetric(stage string) {
	stageFailuresTotalMetric.With(prometheus.Labels{stageLabel: stage}).Inc()
}

func IncreaseCacheEntriesRestoredMetric(count int) {
	cacheEntriesRestoredMetric.Add(float64(count))
}

func IncreaseRetentionDeletedMetric(count int) {
	retentionDeletedTotalMetric.Add(float64(count))
}

func IncreaseReportDownloadsMetric(status string) {
	reportDownloadsTotalMetric.With(prometheus.Labels{statusLabel: status}).Inc()
}

func UpdatePendingJobsMetric(count int) {
	pendingJobsGaugeMetric.Set(float64(count))
}

type PrometheusMetricsHandler struct{}

func NewPrometheusMetricsHandler() *PrometheusMetricsHandler {
	return &PrometheusMetricsHandler{}
}

func (p *PrometheusMetricsHandler) Handler() http.Handler {
	return promhttp.Handler()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(jobsProcessedTotalMetric)
	prometheus.MustRegister(stageFailuresTotalMetric)
	prometheus.MustRegister(cacheEntriesRestoredMetric)
	prometheus.MustRegister(retentionDeletedTotalMetric)
	prometheus.MustRegister(reportDownloadsTotalMetric)
	prometheus.MustRegister(pendingJobsGaugeMetric)
}
