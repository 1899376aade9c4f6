package orchestrator

import (
	"context"

	"github.com/concierge-labs/concierge/internal/handler"
)

// HandlerHealth is one handler's probe outcome.
type HandlerHealth struct {
	// HandlerID identifies the probed handler.
	HandlerID string `json:"handler_id"`
	// Status classifies the probe response.
	Status handler.Status `json:"status"`
	// Detail carries the failure reason for unhealthy handlers.
	Detail string `json:"detail,omitempty"`
}

// SystemHealth is the aggregate health report.
type SystemHealth struct {
	// Overall is healthy only when every handler is healthy.
	Overall handler.Status `json:"overall"`
	// Handlers lists per-handler outcomes in registration order.
	Handlers []HandlerHealth `json:"handlers"`
}

// CheckHealth probes every registered handler with the synthetic health
// input under the per-handler timeout and classifies non-error responses as
// healthy. Probes run through the same invocation path as real turns, so
// timeouts and panics classify as unhealthy rather than propagating.
func (o *Orchestrator) CheckHealth(ctx context.Context) SystemHealth {
	routing := o.routing.Load()
	report := SystemHealth{Overall: handler.StatusHealthy}
	if routing == nil {
		report.Overall = handler.StatusUnhealthy
		return report
	}

	p := NewPipeline(routing, nil, o.emitter, o.handlerTimeout, o.historyDepth)
	for _, h := range routing.Handlers() {
		req := handler.Request{
			Utterance:   handler.HealthCheckUtterance,
			HealthCheck: true,
		}
		res := p.invoke(ctx, h, req)

		hh := HandlerHealth{HandlerID: h.ID(), Status: handler.StatusHealthy}
		if res.Failed {
			hh.Status = handler.StatusUnhealthy
			hh.Detail = res.Err
			report.Overall = handler.StatusUnhealthy
		}
		report.Handlers = append(report.Handlers, hh)
	}
	return report
}
