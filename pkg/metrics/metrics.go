// Package metrics 提供 Prometheus helper，包含常用 counter/gauge/histogram 模板
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wyfcoding/riskscoring/pkg/logger"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal prometheus.Counter
	// HTTP 请求耗时
	HTTPRequestDuration prometheus.Histogram

	// 数据库查询计数
	DBQueriesTotal prometheus.Counter
	// 数据库查询耗时
	DBQueryDuration prometheus.Histogram

	// 信号评分次数
	SignalScoresTotal prometheus.Counter
	// 公司重算次数
	RecomputesTotal prometheus.Counter
	// 公司重算耗时
	RecomputeDuration prometheus.Histogram
	// 重算失败次数
	RecomputeFailuresTotal prometheus.Counter
	// 级联模拟次数
	SimulationsTotal prometheus.Counter
	// 模拟缓存命中次数
	SimulationCacheHits prometheus.Counter
	// 处于 FAIL 等级的公司数
	CompaniesAtFail prometheus.Gauge
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskscoring",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "riskscoring",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		DBQueriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskscoring",
			Subsystem: serviceName,
			Name:      "db_queries_total",
			Help:      "Total database queries",
		}),
		DBQueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "riskscoring",
			Subsystem: serviceName,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		SignalScoresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskscoring",
			Subsystem: serviceName,
			Name:      "signal_scores_total",
			Help:      "Total signal scoring evaluations",
		}),
		RecomputesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskscoring",
			Subsystem: serviceName,
			Name:      "company_recomputes_total",
			Help:      "Total company score recomputation passes",
		}),
		RecomputeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "riskscoring",
			Subsystem: serviceName,
			Name:      "company_recompute_duration_seconds",
			Help:      "Company recomputation pass duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		RecomputeFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskscoring",
			Subsystem: serviceName,
			Name:      "company_recompute_failures_total",
			Help:      "Total company recomputation passes aborted on accessor errors",
		}),
		SimulationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskscoring",
			Subsystem: serviceName,
			Name:      "simulations_total",
			Help:      "Total cascade simulations executed",
		}),
		SimulationCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskscoring",
			Subsystem: serviceName,
			Name:      "simulation_cache_hits_total",
			Help:      "Total simulation results served from cache",
		}),
		CompaniesAtFail: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "riskscoring",
			Subsystem: serviceName,
			Name:      "companies_at_fail",
			Help:      "Number of companies currently at FAIL risk level",
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.DBQueriesTotal,
		m.DBQueryDuration,
		m.SignalScoresTotal,
		m.RecomputesTotal,
		m.RecomputeDuration,
		m.RecomputeFailuresTotal,
		m.SimulationsTotal,
		m.SimulationCacheHits,
		m.CompaniesAtFail,
	}

	for _, c := range collectors {
		if err := prometheus.DefaultRegisterer.Register(c); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}

	logger.Info(context.Background(), "Metrics registered successfully")
	return nil
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string) error {
	if path == "" {
		path = "/metrics"
	}

	http.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Error(context.Background(), "Failed to start Prometheus HTTP server", "error", err)
		}
	}()

	return nil
}
