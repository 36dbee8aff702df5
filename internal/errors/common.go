package errors

import (
	"fmt"
	"strings"
)

// Configuration errors
func ConfigNotFound(path string) *FlotillaError {
	return NewWithDetails(ErrConfigNotFound, "Configuration file not found", fmt.Sprintf("Path: %s", path))
}

func ConfigParseError(cause error) *FlotillaError {
	return Wrap(ErrConfigParse, "Failed to parse configuration", cause)
}

func ConfigValidationError(field, reason string) *FlotillaError {
	return NewWithDetails(ErrConfigValidation, "Configuration validation failed",
		fmt.Sprintf("Field: %s, Reason: %s", field, reason))
}

func CatalogNotFound(path string) *FlotillaError {
	return NewWithDetails(ErrCatalogNotFound, "Service catalog not found", fmt.Sprintf("Path: %s", path))
}

func CatalogParseError(path string, cause error) *FlotillaError {
	return WrapWithDetails(ErrCatalogParse, "Failed to parse service catalog",
		fmt.Sprintf("Path: %s", path), cause)
}

// Registry errors
func ManifestValidation(reason string) *FlotillaError {
	return NewWithDetails(ErrValidation, "Invalid service manifest", reason)
}

func ServiceNotFound(id string) *FlotillaError {
	return NewWithDetails(ErrServiceNotFound, "Service not found", fmt.Sprintf("Service: %s", id))
}

func CircularDependency(id string, cycle []string) *FlotillaError {
	return NewWithDetails(ErrCircularDependency, "Circular dependency detected",
		fmt.Sprintf("Service: %s, Cycle: %s", id, strings.Join(cycle, " -> ")))
}

// Lifecycle errors
func SupervisorFailure(operation, id string, cause error) *FlotillaError {
	return WrapWithDetails(ErrSupervisor, "Supervisor command failed",
		fmt.Sprintf("Operation: %s, Service: %s", operation, id), cause)
}

func ConvergenceTimeout(id string, attempts int) *FlotillaError {
	return NewWithDetails(ErrConvergenceTimeout, "Service did not reach desired state",
		fmt.Sprintf("Service: %s, Attempts: %d", id, attempts))
}

func StartFailed(id string, cause error) *FlotillaError {
	return WrapWithDetails(ErrStartFailed, "Failed to start service",
		fmt.Sprintf("Service: %s", id), cause)
}

func StopFailed(id string, cause error) *FlotillaError {
	return WrapWithDetails(ErrStopFailed, "Failed to stop service",
		fmt.Sprintf("Service: %s", id), cause)
}

func DependencyFailed(id, dependency string, cause error) *FlotillaError {
	return WrapWithDetails(ErrDependencyFailed, "Failed to start dependency",
		fmt.Sprintf("Service: %s, Dependency: %s", id, dependency), cause)
}

// Database errors
func DatabaseQueryError(operation string, cause error) *FlotillaError {
	return WrapWithDetails(ErrDatabaseQuery, "Database query failed",
		fmt.Sprintf("Operation: %s", operation), cause)
}
