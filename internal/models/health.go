// internal/models/health.go
package models

// Transport error kinds reported by health probes.
const (
	ErrKindConnection = "ConnectionError"
	ErrKindTimeout    = "Timeout"
	ErrKindOther      = "Other"
)

// ServiceError describes a transport-level probe failure.
type ServiceError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ServiceHealth is the probe result for a single upstream service. Exactly one
// of StatusCode/Error is set. Attempted is only populated on verbose checks.
type ServiceHealth struct {
	Service    string                 `json:"service"`
	StatusCode *int                   `json:"status_code,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Error      *ServiceError          `json:"error,omitempty"`
	Optional   bool                   `json:"optional,omitempty"`
	Attempted  []string               `json:"attempted_urls,omitempty"`
}

// Healthy reports whether the probe reached the service and got a non-error
// status back.
func (s ServiceHealth) Healthy() bool {
	return s.Error == nil && s.StatusCode != nil && *s.StatusCode < 400
}

// Overall health states.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusDown     = "down"
)

// HealthSummary tallies required (non-optional) services. Ignored counts the
// optional services reported but excluded from the tally.
type HealthSummary struct {
	Total   int `json:"total"`
	Healthy int `json:"healthy"`
	Errors  int `json:"errors"`
	Ignored int `json:"ignored"`
}

// HealthReport is the aggregated view over all configured upstreams.
type HealthReport struct {
	Status    string                   `json:"status"`
	Services  map[string]ServiceHealth `json:"services"`
	Summary   HealthSummary            `json:"summary"`
	CheckedAt string                   `json:"checked_at"`
}
