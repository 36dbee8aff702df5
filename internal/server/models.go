package server

import (
	"flotilla/internal/types"
)

// ErrorResponse is the error body returned by all handlers
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports server liveness
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// ServiceResponse combines a manifest with live status
type ServiceResponse struct {
	ID           string               `json:"id"`
	Version      string               `json:"version"`
	Port         int                  `json:"port,omitempty"`
	Dependencies []string             `json:"dependencies,omitempty"`
	Status       *types.ServiceStatus `json:"status"`
}

// ServiceListResponse wraps a service listing
type ServiceListResponse struct {
	Services []ServiceResponse `json:"services"`
	Total    int               `json:"total"`
}

// DependenciesResponse lists a service's ordered dependency closure
type DependenciesResponse struct {
	ID           string   `json:"id"`
	Dependencies []string `json:"dependencies"`
}

// StartResponse acknowledges a start operation
type StartResponse struct {
	ID      string `json:"id"`
	Started bool   `json:"started"`
}

// StopResponse acknowledges a stop operation
type StopResponse struct {
	ID                string   `json:"id"`
	Stopped           bool     `json:"stopped"`
	DependentsStopped []string `json:"dependents_stopped,omitempty"`
}

// RestartResponse acknowledges a restart operation
type RestartResponse struct {
	ID       string `json:"id"`
	Degraded bool   `json:"degraded"`
}
