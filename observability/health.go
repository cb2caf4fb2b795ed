package observability

import (
	"context"

	"github.com/kbukum/busdi/di"
	"github.com/kbukum/busdi/errors"
)

// HealthStatus represents the health state of a component or service.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health describes the health of an individual component.
type Health struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// ServiceHealth describes the overall health of a service and its components.
type ServiceHealth struct {
	Service    string       `json:"service"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`
}

// HealthChecker is implemented by components that can report their health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) Health
}

// NewServiceHealth creates a ServiceHealth with status up.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{
		Service: service,
		Status:  HealthStatusUp,
		Version: version,
	}
}

// AddComponent adds a component health result and degrades overall status if needed.
func (sh *ServiceHealth) AddComponent(ch Health) {
	sh.Components = append(sh.Components, ch)

	switch ch.Status {
	case HealthStatusDown:
		sh.Status = HealthStatusDown
	case HealthStatusDegraded:
		if sh.Status != HealthStatusDown {
			sh.Status = HealthStatusDegraded
		}
	}
}

type resolutionCheck struct {
	name     string
	resolver di.Resolver
	keys     []di.ServiceKey
}

// ResolutionCheck returns a checker that resolves each key through r. The
// component is down when r was disposed, degraded when some keys fail and
// up otherwise. Failing keys are listed in the details with their error code.
func ResolutionCheck(name string, r di.Resolver, keys ...di.ServiceKey) HealthChecker {
	return &resolutionCheck{name: name, resolver: r, keys: keys}
}

func (c *resolutionCheck) CheckHealth(ctx context.Context) Health {
	h := Health{Name: c.name, Status: HealthStatusUp}

	for _, key := range c.keys {
		if err := ctx.Err(); err != nil {
			h.Status = HealthStatusDegraded
			h.Message = err.Error()
			return h
		}
		if _, err := c.resolver.Resolve(key); err != nil {
			if errors.IsUseAfterDispose(err) {
				return Health{Name: c.name, Status: HealthStatusDown, Message: err.Error()}
			}
			if h.Details == nil {
				h.Details = make(map[string]string)
			}
			h.Details[key.String()] = string(errors.CodeOf(err))
			h.Status = HealthStatusDegraded
		}
	}
	if h.Status == HealthStatusDegraded {
		h.Message = "some services failed to resolve"
	}
	return h
}
