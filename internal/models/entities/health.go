package entities

import "time"

// ServiceStatus is one dependency's line in the health check: postgres,
// redis, or the cycle event stream.
type ServiceStatus struct {
	Status  string `json:"status"`
	Details string `json:"details"`
}

// HealthCheckResponse is served by /healthCheck; Status is "down" when any
// dependency failed its ping.
type HealthCheckResponse struct {
	Status   string                   `json:"status"`
	Services map[string]ServiceStatus `json:"services"`
	UpSince  time.Time                `json:"up_since"`
	Uptime   string                   `json:"uptime"`
}
