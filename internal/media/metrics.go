package media

import (
	"errors"

	"github.com/anoixa/photogram/internal/worker"
	"github.com/anoixa/photogram/utils/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	callsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photogram_media_calls_total",
			Help: "Total number of media store calls, partitioned by operation and result.",
		},
		[]string{"backend", "op", "result"},
	)
	callDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photogram_media_call_duration_seconds",
			Help:    "Media store call duration in seconds, retries included.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"backend", "op"},
	)
)

var (
	poolWorkersDesc   = prometheus.NewDesc("photogram_media_pool_workers", "Workers serving media store calls.", nil, nil)
	poolQueueLenDesc  = prometheus.NewDesc("photogram_media_pool_queue_length", "Media store calls waiting for a worker.", nil, nil)
	poolQueueCapDesc  = prometheus.NewDesc("photogram_media_pool_queue_capacity", "Capacity of the media call queue.", nil, nil)
	poolSubmittedDesc = prometheus.NewDesc("photogram_media_pool_submitted_total", "Media store calls handed to the pool.", nil, nil)
	poolExecutedDesc  = prometheus.NewDesc("photogram_media_pool_executed_total", "Media store calls run by the pool.", nil, nil)
	poolPanickedDesc  = prometheus.NewDesc("photogram_media_pool_panicked_total", "Media store calls that panicked.", nil, nil)
)

// poolCollector 采集时读取 worker 池的统计快照
type poolCollector struct {
	pool *worker.Pool
}

func (c poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- poolWorkersDesc
	ch <- poolQueueLenDesc
	ch <- poolQueueCapDesc
	ch <- poolSubmittedDesc
	ch <- poolExecutedDesc
	ch <- poolPanickedDesc
}

func (c poolCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.pool.GetStats()
	ch <- prometheus.MustNewConstMetric(poolWorkersDesc, prometheus.GaugeValue, float64(stats.WorkerCount))
	ch <- prometheus.MustNewConstMetric(poolQueueLenDesc, prometheus.GaugeValue, float64(stats.QueueLen))
	ch <- prometheus.MustNewConstMetric(poolQueueCapDesc, prometheus.GaugeValue, float64(stats.QueueCap))
	ch <- prometheus.MustNewConstMetric(poolSubmittedDesc, prometheus.CounterValue, float64(stats.Submitted))
	ch <- prometheus.MustNewConstMetric(poolExecutedDesc, prometheus.CounterValue, float64(stats.Executed))
	ch <- prometheus.MustNewConstMetric(poolPanickedDesc, prometheus.CounterValue, float64(stats.Panicked))
}

// RegisterPoolMetrics 把 worker 池统计注册到默认 registry，重复注册时保留第一个池
func RegisterPoolMetrics(pool *worker.Pool) {
	registerPoolMetrics(prometheus.DefaultRegisterer, pool)
}

func registerPoolMetrics(reg prometheus.Registerer, pool *worker.Pool) {
	err := reg.Register(poolCollector{pool: pool})
	var already prometheus.AlreadyRegisteredError
	if err != nil && !errors.As(err, &already) {
		logger.Named("media").Warn("Failed to register worker pool metrics", zap.Error(err))
	}
}
