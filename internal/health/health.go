// Package health собирает состояние зависимостей для HTTP-проб и grpc health.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Status состояние компонента или сервиса целиком.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// DefaultCheckTimeout ограничивает одну проверку.
const DefaultCheckTimeout = 2 * time.Second

// Check результат одной проверки.
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// Response тело ответа /healthz.
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Checker проверяет одну зависимость.
type Checker interface {
	Check(ctx context.Context) Check
}

type registration struct {
	name     string
	checker  Checker
	optional bool
}

// Handler хранит зарегистрированные проверки и отдаёт их сводку.
type Handler struct {
	mu      sync.RWMutex
	entries []registration

	version string
	started time.Time
	now     func() time.Time
}

// NewHandler создаёт Handler без проверок: такой сервис всегда healthy.
func NewHandler(version string) *Handler {
	return &Handler{version: version, started: time.Now(), now: time.Now}
}

// RegisterChecker добавляет обязательную проверку. Её отказ делает сервис unhealthy.
func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.register(registration{name: name, checker: checker})
}

// RegisterOptional добавляет проверку, отказ которой даёт только degraded.
func (h *Handler) RegisterOptional(name string, checker Checker) {
	h.register(registration{name: name, checker: checker, optional: true})
}

func (h *Handler) register(r registration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = slices.DeleteFunc(h.entries, func(e registration) bool { return e.name == r.name })
	h.entries = append(h.entries, r)
	slices.SortFunc(h.entries, func(a, b registration) int { return strings.Compare(a.name, b.name) })
}

// Evaluate запускает все проверки параллельно и сводит их статусы.
func (h *Handler) Evaluate(ctx context.Context) Response {
	h.mu.RLock()
	entries := slices.Clone(h.entries)
	h.mu.RUnlock()

	results := make([]Check, len(entries))
	var g errgroup.Group
	for i, e := range entries {
		g.Go(func() error {
			check := e.checker.Check(ctx)
			if check.Name == "" {
				check.Name = e.name
			}
			results[i] = check
			return nil
		})
	}
	_ = g.Wait()

	resp := Response{
		Status:        StatusHealthy,
		Timestamp:     h.now().UTC(),
		Checks:        make(map[string]Check, len(entries)),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.started).Seconds()),
	}
	for i, e := range entries {
		check := results[i]
		resp.Checks[e.name] = check
		resp.Status = worse(resp.Status, effective(check.Status, e.optional))
	}
	return resp
}

// effective ослабляет отказ необязательной проверки до degraded.
func effective(s Status, optional bool) Status {
	if optional && s == StatusUnhealthy {
		return StatusDegraded
	}
	return s
}

func worse(a, b Status) Status {
	rank := func(s Status) int {
		switch s {
		case StatusHealthy:
			return 0
		case StatusDegraded:
			return 1
		default:
			return 2
		}
	}
	if rank(b) > rank(a) {
		return b
	}
	return a
}

// ServeHTTP отдаёт Response в JSON, для unhealthy с кодом 503.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h.Evaluate(r.Context())

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus(resp.Status))
	_ = json.NewEncoder(w).Encode(resp)
}

// ReadinessHandler отвечает 503, пока недоступна хотя бы одна обязательная зависимость.
func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	code := httpStatus(h.Evaluate(r.Context()).Status)
	body := "ready"
	if code != http.StatusOK {
		body = "not ready"
	}
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

// LivenessHandler отвечает 200, пока процесс обслуживает HTTP.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func httpStatus(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// SyncGRPC переносит сводный статус в grpc health-сервер раз в interval до отмены ctx.
// Статус выставляется и для service, и для пустого имени сервера.
func (h *Handler) SyncGRPC(ctx context.Context, srv *grpchealth.Server, service string, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		serving := healthpb.HealthCheckResponse_SERVING
		if h.Evaluate(ctx).Status == StatusUnhealthy {
			serving = healthpb.HealthCheckResponse_NOT_SERVING
		}
		srv.SetServingStatus(service, serving)
		srv.SetServingStatus("", serving)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// PingChecker превращает функцию ping в Checker с таймаутом.
type PingChecker struct {
	name    string
	timeout time.Duration
	ping    func(ctx context.Context) error
}

// NewPingChecker создаёт PingChecker. timeout <= 0 заменяется на DefaultCheckTimeout.
func NewPingChecker(name string, timeout time.Duration, ping func(ctx context.Context) error) *PingChecker {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	return &PingChecker{name: name, timeout: timeout, ping: ping}
}

func (c *PingChecker) Check(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := c.ping(ctx)
	check := Check{Name: c.name, Status: StatusHealthy, DurationMs: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status, check.Message = StatusUnhealthy, err.Error()
	}
	return check
}
