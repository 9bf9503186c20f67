package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "mercato"

// Metrics 服务内部指标
type Metrics struct {
	filterClauses *prometheus.CounterVec
	transactions  *prometheus.CounterVec
	txDuration    prometheus.Histogram
	compositeRuns *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
	cacheLookups  *prometheus.CounterVec
	tasksEnqueued *prometheus.CounterVec
	rateLimited   *prometheus.CounterVec
}

// New 使用默认注册器创建指标
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer 使用指定注册器创建指标，重复注册时复用已有采集器
func NewWithRegisterer(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &Metrics{
		filterClauses: registerCounterVec(registerer, prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_clauses_total",
			Help:      "Filter clauses compiled, by entity and outcome",
		}, []string{"entity", "result", "reason"}),
		transactions: registerCounterVec(registerer, prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uow_transactions_total",
			Help:      "Unit-of-work transactions, by final result",
		}, []string{"result"}),
		txDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "uow_transaction_duration_seconds",
			Help:      "Time between begin and commit or rollback",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}),
		compositeRuns: registerCounterVec(registerer, prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "composite_operations_total",
			Help:      "Composite transactional operations, by name and result",
		}, []string{"operation", "result"}),
		httpRequests: registerCounterVec(registerer, prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status",
		}, []string{"method", "route", "status"}),
		httpLatency: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		cacheLookups: registerCounterVec(registerer, prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "list_cache_lookups_total",
			Help:      "List cache lookups, by entity and result",
		}, []string{"entity", "result"}),
		tasksEnqueued: registerCounterVec(registerer, prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_enqueued_total",
			Help:      "Background tasks enqueued, by type and result",
		}, []string{"task", "result"}),
		rateLimited: registerCounterVec(registerer, prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_decisions_total",
			Help:      "Rate limiter decisions, by rule and result",
		}, []string{"rule", "result"}),
	}
}

// ObserveClause 记录过滤子句编译结果
func (m *Metrics) ObserveClause(entity string, accepted bool, reason string) {
	if m == nil {
		return
	}
	result := "accepted"
	if !accepted {
		result = "rejected"
	}
	m.filterClauses.WithLabelValues(entity, result, reason).Inc()
}

// ObserveTransaction 记录事务结果（committed/rolled_back/commit_failed/begin_failed）
func (m *Metrics) ObserveTransaction(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(result).Inc()
	if elapsed > 0 {
		m.txDuration.Observe(elapsed.Seconds())
	}
}

// ObserveComposite 记录组合写操作结果
func (m *Metrics) ObserveComposite(operation, result string) {
	if m == nil {
		return
	}
	m.compositeRuns.WithLabelValues(operation, result).Inc()
}

// ObserveHTTP 记录 HTTP 请求
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// ObserveCache 记录列表缓存命中情况（hit/miss/error）
func (m *Metrics) ObserveCache(entity, result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(entity, result).Inc()
}

// ObserveEnqueue 记录异步任务投递结果
func (m *Metrics) ObserveEnqueue(task string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.tasksEnqueued.WithLabelValues(task, result).Inc()
}

// ObserveRateLimit 记录限流判定（allowed/limited/error）
func (m *Metrics) ObserveRateLimit(rule, result string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(rule, result).Inc()
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}
