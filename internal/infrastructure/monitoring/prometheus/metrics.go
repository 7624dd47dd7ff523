package prometheus

import (
	"strconv"
	"time"
)

var (
	DefaultHTTPDurationBuckets     = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}
	DefaultLLMDurationBuckets      = []float64{.5, 1, 2, 5, 10, 30, 60, 120}
	DefaultPipelineDurationBuckets = []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800}
)

// LongDocMetrics is the service metric set.  It satisfies llm.Recorder and
// longdoc.PipelineRecorder so both layers report through one registry.
type LongDocMetrics struct {
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec

	LLMRequestsTotal   CounterVec
	LLMRequestDuration HistogramVec
	LLMTokensTotal     CounterVec

	SegmentsTotal    CounterVec
	DegradationTotal CounterVec
	PipelineDuration HistogramVec

	JobsTotal       CounterVec
	JobDuration     HistogramVec
	ComponentHealth GaugeVec
}

// NewLongDocMetrics registers every metric on collector.
func NewLongDocMetrics(collector MetricsCollector) *LongDocMetrics {
	m := &LongDocMetrics{}

	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "HTTP requests", "method", "route", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "route")

	m.LLMRequestsTotal = collector.RegisterCounter("llm_requests_total", "LLM completion requests", "operation", "model", "status")
	m.LLMRequestDuration = collector.RegisterHistogram("llm_request_duration_seconds", "LLM completion latency", DefaultLLMDurationBuckets, "operation", "model")
	m.LLMTokensTotal = collector.RegisterCounter("llm_tokens_total", "LLM tokens consumed", "operation", "direction")

	m.SegmentsTotal = collector.RegisterCounter("longdoc_segments_total", "Segments analysed", "segment_type", "status")
	m.DegradationTotal = collector.RegisterCounter("longdoc_degradations_total", "Pipeline stages that fell back to a degraded result", "stage")
	m.PipelineDuration = collector.RegisterHistogram("longdoc_pipeline_duration_seconds", "End-to-end long document processing time", DefaultPipelineDurationBuckets, "analysis_type")

	m.JobsTotal = collector.RegisterCounter("jobs_total", "Analysis jobs by terminal status", "status")
	m.JobDuration = collector.RegisterHistogram("job_duration_seconds", "Analysis job run time", DefaultPipelineDurationBuckets, "status")
	m.ComponentHealth = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")

	return m
}

// ObserveLLMRequest implements llm.Recorder.
func (m *LongDocMetrics) ObserveLLMRequest(operation, model, status string, d time.Duration) {
	m.LLMRequestsTotal.WithLabelValues(operation, model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(operation, model).Observe(d.Seconds())
}

// AddLLMTokens implements llm.Recorder.
func (m *LongDocMetrics) AddLLMTokens(operation, direction string, n int) {
	if n <= 0 {
		return
	}
	m.LLMTokensTotal.WithLabelValues(operation, direction).Add(float64(n))
}

func (m *LongDocMetrics) ObserveSegment(segmentType, status string) {
	m.SegmentsTotal.WithLabelValues(segmentType, status).Inc()
}

func (m *LongDocMetrics) ObserveDegradation(stage string) {
	m.DegradationTotal.WithLabelValues(stage).Inc()
}

func (m *LongDocMetrics) ObservePipeline(analysisType string, d time.Duration) {
	m.PipelineDuration.WithLabelValues(analysisType).Observe(d.Seconds())
}

// ObserveJob records a job reaching status after running for d.
func (m *LongDocMetrics) ObserveJob(status string, d time.Duration) {
	m.JobsTotal.WithLabelValues(status).Inc()
	m.JobDuration.WithLabelValues(status).Observe(d.Seconds())
}

func (m *LongDocMetrics) ObserveHTTPRequest(method, route string, statusCode int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *LongDocMetrics) SetComponentHealth(component string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.ComponentHealth.WithLabelValues(component).Set(v)
}

//Personal.AI order the ending
