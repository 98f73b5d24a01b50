package service

import (
	"context"
	"net/http"
	"sync"

	"search-orchestrator/internal/common/errors"
	"search-orchestrator/internal/orchestrator/client"
)

// Health states reported per backend and overall.
const (
	StatusHealthy     = "healthy"
	StatusUnhealthy   = "unhealthy"
	StatusUnreachable = "unreachable"
)

const healthPath = "/health"

// Probe names a backend checked by Health.
type Probe struct {
	Name   string
	Client client.ServiceClient
}

type HealthReport struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// Healthy reports whether every backend answered 200.
func (r HealthReport) Healthy() bool {
	return r.Status == StatusHealthy
}

// Health probes every backend's /health concurrently.
func (o *Orchestrator) Health(ctx context.Context) HealthReport {
	report := HealthReport{
		Status:   StatusHealthy,
		Services: make(map[string]string, len(o.probes)),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, p := range o.probes {
		wg.Add(1)
		go func(p Probe) {
			defer wg.Done()
			state := probe(ctx, p.Client)

			mu.Lock()
			defer mu.Unlock()
			report.Services[p.Name] = state
			if state != StatusHealthy {
				report.Status = StatusUnhealthy
			}
		}(p)
	}
	wg.Wait()

	return report
}

func probe(ctx context.Context, c client.ServiceClient) string {
	_, err := c.Invoke(ctx, http.MethodGet, healthPath, nil, nil)
	switch {
	case err == nil:
		return StatusHealthy
	case errors.IsTransport(err):
		return StatusUnreachable
	default:
		return StatusUnhealthy
	}
}
