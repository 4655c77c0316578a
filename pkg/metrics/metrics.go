// Package metrics 提供监控指标功能.
// 基于 Prometheus，收集 HTTP 请求指标与画廊领域指标（占位探测、上传、删除、代理）.
//
// Example:
//
//	import "github.com/yeisme/mediavault/pkg/metrics"
//
//	err := metrics.InitMetrics(config.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	metrics.RequestCounter.WithLabelValues("GET", "/api/v1/gallery", "200").Inc()
//	metrics.ObserveProbe("external")
package metrics

import (
	"net/http"
	_ "net/http/pprof" // 自动注册pprof端点
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/mediavault/pkg/configs"
)

const namespace = "mediavault"

// 全局指标变量.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ActiveConnections 活跃连接数.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of active connections",
		},
	)

	// ProbeTotal 占位探测结果：external、stored、error、timeout.
	ProbeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "placeholder_probes_total",
			Help:      "Placeholder probes performed while resolving listings",
		},
		[]string{"result"},
	)

	// ListingDuration 单个分类列表解析耗时.
	ListingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "listing_resolve_seconds",
			Help:      "Time spent resolving a category listing",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"category"},
	)

	// FileOps 上传与删除结果.
	FileOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_operations_total",
			Help:      "Upload and delete operations by outcome",
		},
		[]string{"op", "category", "result"},
	)

	// UploadBytes 成功上传的字节数.
	UploadBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Bytes written by successful uploads",
		},
		[]string{"category"},
	)

	// ProxyTotal 存储代理请求按状态码计数.
	ProxyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_proxy_requests_total",
			Help:      "Storage proxy requests by response status",
		},
		[]string{"status"},
	)

	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()

	registerOnce sync.Once
)

// InitMetrics 初始化Metrics，重复调用只注册一次.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	registerOnce.Do(func() {
		if config.RuntimeMetrics {
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		registry.MustRegister(
			RequestCounter, RequestDuration, ActiveConnections,
			ProbeTotal, ListingDuration, FileOps, UploadBytes, ProxyTotal,
		)
	})

	return nil
}

// StartMetricsServer 在 engine 上挂载 /metrics 与可选的 pprof 端点.
func StartMetricsServer(config configs.MetricsConfig, engine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	path := config.Path
	if path == "" {
		path = "/metrics"
	}

	engine.GET(path, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	if config.Pprof {
		engine.GET("/debug/pprof/*any", gin.WrapH(http.DefaultServeMux))
	}

	return nil
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}

// ObserveProbe 记录一次占位探测.
func ObserveProbe(result string) {
	ProbeTotal.WithLabelValues(result).Inc()
}

// ObserveFileOp 记录一次上传或删除.
func ObserveFileOp(op, category string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}

	FileOps.WithLabelValues(op, category, result).Inc()
}
