package main

import (
	"sync"
	"time"

	"github.com/DuHerb/code-squad/envexec"
	"github.com/DuHerb/code-squad/types"
	"github.com/DuHerb/code-squad/worker"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "codesquad"
)

var (
	// 1ms -> 10s
	timeBuckets = []float64{
		0.001, 0.002, 0.005, 0.008, 0.010, 0.025, 0.050, 0.075, 0.1, 0.2,
		0.4, 0.6, 0.8, 1.0, 1.5, 2, 5, 10,
	}

	// 4k (1<<12) -> 4g (1<<32)
	memoryBucket = prometheus.ExponentialBuckets(1<<12, 2, 21)

	metricsSummaryQuantile = map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001}

	submissionCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "submission",
		Help:      "Number of judged submissions by outcome",
	}, []string{"outcome"})

	submissionTimeHist = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "submission_time_seconds",
		Help:      "Histogram for the wall time of a submission",
		Buckets:   timeBuckets,
	})

	caseCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "case",
		Help:      "Number of test cases by error kind",
	}, []string{"kind"})

	caseTimeHist = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "case_time_seconds",
		Help:      "Histogram for the running time of a test case",
		Buckets:   timeBuckets,
	}, []string{"kind"})

	caseTimeSummary = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace:  metricsNamespace,
		Name:       "case_time",
		Help:       "Summary for the running time of a test case",
		Objectives: metricsSummaryQuantile,
	}, []string{"kind"})

	caseMemHist = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "case_memory_bytes",
		Help:      "Histgram for the heap growth of a test case",
		Buckets:   memoryBucket,
	}, []string{"kind"})

	envCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "environment_created",
		Help:      "Total number of environment build by environment builder",
	})

	envInUse = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "environment_in_use",
		Help:      "Total number of environment currently in use",
	})
)

func init() {
	prometheus.MustRegister(submissionCount, submissionTimeHist)
	prometheus.MustRegister(caseCount, caseTimeHist, caseTimeSummary, caseMemHist)
	prometheus.MustRegister(envCreated, envInUse)
}

// outcome labels a worker response
func outcome(res worker.Response) string {
	switch {
	case res.Error != nil:
		return "error"
	case res.Report == nil:
		return "invalid"
	case res.Report.Status != types.ReportCompleted:
		return "compile_failed"
	case res.Report.AllPassed:
		return "passed"
	default:
		return "failed"
	}
}

func execObserve(res worker.Response) {
	submissionCount.WithLabelValues(outcome(res)).Inc()
	submissionTimeHist.Observe(res.Time.Seconds())
	if res.Report == nil {
		return
	}
	for _, r := range res.Report.Results {
		kind := r.ErrorKind.String()
		if kind == "" {
			kind = "None"
		}
		ob := time.Duration(r.Time).Seconds()
		caseCount.WithLabelValues(kind).Inc()
		caseTimeHist.WithLabelValues(kind).Observe(ob)
		caseTimeSummary.WithLabelValues(kind).Observe(ob)
		caseMemHist.WithLabelValues(kind).Observe(float64(r.Memory))
	}
}

var _ envexec.Builder = &metricsEnvBuilder{}

type metricsEnvBuilder struct {
	envexec.Builder
}

func (b *metricsEnvBuilder) Build(limit envexec.Limit) (envexec.Environment, error) {
	e, err := b.Builder.Build(limit)
	if err != nil {
		return nil, err
	}
	envCreated.Inc()
	envInUse.Inc()
	return &metricsEnvironment{Environment: e}, nil
}

type metricsEnvironment struct {
	envexec.Environment
	once sync.Once
}

func (e *metricsEnvironment) Destroy() error {
	e.once.Do(envInUse.Dec)
	return e.Environment.Destroy()
}
