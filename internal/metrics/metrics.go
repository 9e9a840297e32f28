// Package metrics 提供Prometheus监控指标
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paiban/planner/pkg/scheduler/planner"
)

// DefaultNamespace 默认指标命名空间
const DefaultNamespace = "planner"

// Collector 求解和HTTP指标
type Collector struct {
	registry *prometheus.Registry

	solveTotal      *prometheus.CounterVec
	solveDuration   *prometheus.HistogramVec
	solutionScore   *prometheus.GaugeVec
	candidatesTotal *prometheus.CounterVec
	conflictsTotal  *prometheus.CounterVec
	fairnessGini    *prometheus.GaugeVec

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New 创建指标收集器，使用独立的注册表
func New(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{
		registry: prometheus.NewRegistry(),
		solveTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solve_total",
			Help:      "排班求解次数",
		}, []string{"engine", "status"}),
		solveDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solve_duration_seconds",
			Help:      "排班求解耗时",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		}, []string{"engine"}),
		solutionScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "solution_score",
			Help:      "最近一次求解的偏好满足度分数",
		}, []string{"engine"}),
		candidatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "搜索过程中发现的改进解数量",
		}, []string{"engine"}),
		conflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solver_conflicts_total",
			Help:      "求解器冲突次数",
		}, []string{"engine"}),
		fairnessGini: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fairness_gini",
			Help:      "最近一次求解的班次数基尼系数",
		}, []string{"engine"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP请求总数",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP请求延迟",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
		}, []string{"method", "path"}),
	}

	c.registry.MustRegister(
		c.solveTotal, c.solveDuration, c.solutionScore, c.candidatesTotal,
		c.conflictsTotal, c.fairnessGini, c.requestsTotal, c.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry 返回注册表
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObservePlan 记录一次求解
func (c *Collector) ObservePlan(plan *planner.Plan) {
	engine := plan.Engine
	c.solveTotal.WithLabelValues(engine, plan.Status.String()).Inc()
	c.solveDuration.WithLabelValues(engine).Observe(plan.Stats.WallTime.Seconds())
	c.candidatesTotal.WithLabelValues(engine).Add(float64(plan.Stats.Candidates))
	c.conflictsTotal.WithLabelValues(engine).Add(float64(plan.Stats.Conflicts))
	if plan.Solved() {
		c.solutionScore.WithLabelValues(engine).Set(float64(plan.Score()))
	}
}

// SetFairnessGini 设置公平性基尼系数
func (c *Collector) SetFairnessGini(engine string, gini float64) {
	c.fairnessGini.WithLabelValues(engine).Set(gini)
}

// RecordRequest 记录请求指标
func (c *Collector) RecordRequest(method, path string, status int, duration time.Duration) {
	c.requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler 返回Prometheus格式的指标HTTP处理器
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
