// Phase 11 - File: internal/interfaces/http/handlers/health_handler.go
// 实现健康检查 HTTP Handler。
//
// * 功能定位：Kubernetes liveness / readiness 探针
// * 核心实现：
//   - Liveness 不检查外部依赖，仅确认进程存活
//   - Readiness 并发探测已注册组件（Redis、MinIO 等），任一失败返回 503
//   - 每次探测结果同步写入 longdoc_component_up 指标
// * 依赖关系：
//   - 依赖：pkg/types/common.HealthChecker
//   - 被依赖：internal/interfaces/http/router.go、cmd/worker

package handlers

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/turtacn/KeyIP-LongDoc/pkg/types/common"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"

	defaultProbeTimeout = 5 * time.Second
)

// ComponentGauge receives the outcome of every component probe.
type ComponentGauge interface {
	SetComponentHealth(component string, up bool)
}

type namedChecker struct {
	name    string
	checker common.HealthChecker
}

// HealthHandler handles health check HTTP requests.
type HealthHandler struct {
	checkers []namedChecker
	gauge    ComponentGauge
	version  string
	startAt  time.Time
	timeout  time.Duration
}

// NewHealthHandler creates a new HealthHandler.  gauge may be nil.
func NewHealthHandler(version string, gauge ComponentGauge) *HealthHandler {
	return &HealthHandler{
		gauge:   gauge,
		version: version,
		startAt: time.Now(),
		timeout: defaultProbeTimeout,
	}
}

// AddChecker registers a dependency probed by Readiness.  Nil checkers are
// ignored so optional components can be passed unconditionally.
func (h *HealthHandler) AddChecker(name string, c common.HealthChecker) *HealthHandler {
	if c != nil {
		h.checkers = append(h.checkers, namedChecker{name: name, checker: c})
	}
	return h
}

// Components lists registered component names in order.
func (h *HealthHandler) Components() []string {
	names := make([]string, 0, len(h.checkers))
	for _, c := range h.checkers {
		names = append(names, c.name)
	}
	sort.Strings(names)
	return names
}

// LivenessResponse is the response for liveness probe.
type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

// ReadinessResponse is the response for readiness probe.
type ReadinessResponse struct {
	Status     string                    `json:"status"`
	Components map[string]ComponentCheck `json:"components,omitempty"`
}

// ComponentCheck represents the health status of a single component.
type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Liveness handles GET /healthz.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LivenessResponse{
		Status:  "alive",
		Version: h.version,
		Uptime:  time.Since(h.startAt).Truncate(time.Second).String(),
	})
}

// Readiness handles GET /readyz.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if len(h.checkers) == 0 {
		writeJSON(w, http.StatusOK, ReadinessResponse{Status: "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := ReadinessResponse{Status: "ready", Components: h.checkAll(ctx)}
	code := http.StatusOK
	for _, c := range resp.Components {
		if c.Status != statusHealthy {
			resp.Status = "not_ready"
			code = http.StatusServiceUnavailable
			break
		}
	}
	writeJSON(w, code, resp)
}

// checkAll runs all health checkers concurrently and returns results.
func (h *HealthHandler) checkAll(ctx context.Context) map[string]ComponentCheck {
	results := make(map[string]ComponentCheck, len(h.checkers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, nc := range h.checkers {
		wg.Add(1)
		go func(nc namedChecker) {
			defer wg.Done()

			start := time.Now()
			err := nc.checker.HealthCheck(ctx)
			cc := ComponentCheck{
				Status:  statusHealthy,
				Latency: time.Since(start).Truncate(time.Microsecond).String(),
			}
			if err != nil {
				cc.Status = statusUnhealthy
				cc.Error = err.Error()
			}
			if h.gauge != nil {
				h.gauge.SetComponentHealth(nc.name, err == nil)
			}

			mu.Lock()
			results[nc.name] = cc
			mu.Unlock()
		}(nc)
	}

	wg.Wait()
	return results
}

//Personal.AI order the ending
