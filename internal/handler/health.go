package handler

// HealthCheckUtterance is the synthetic input used to probe handlers.
const HealthCheckUtterance = "__health_check__"

// Status classifies a handler's response to a health probe.
type Status string

const (
	// StatusHealthy means the handler answered the probe without error.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy means the probe failed, timed out, or panicked.
	StatusUnhealthy Status = "unhealthy"
)
