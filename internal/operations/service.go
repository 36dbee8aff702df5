// Package operations provides the shared backend functions the CLI and the
// API server call into. Both surfaces speak to the same manager and registry
// through this layer so behavior cannot drift between them.
package operations

import (
	"context"
	"sort"

	"flotilla/internal/db"
	"flotilla/internal/manager"
	"flotilla/internal/registry"
	"flotilla/internal/types"
)

// ServiceInfo combines a service's manifest with its live status
type ServiceInfo struct {
	Manifest *types.ServiceManifest `json:"manifest"`
	Status   *types.ServiceStatus   `json:"status"`
}

// ServiceOperations provides shared backend functions for service management
type ServiceOperations struct {
	registry *registry.Registry
	manager  *manager.Manager
	events   *db.EventRepository
}

// NewServiceOperations creates a new ServiceOperations instance. The event
// repository may be nil when no journal is configured.
func NewServiceOperations(reg *registry.Registry, mgr *manager.Manager, events *db.EventRepository) *ServiceOperations {
	return &ServiceOperations{
		registry: reg,
		manager:  mgr,
		events:   events,
	}
}

// ListServices returns every registered service with its live status,
// sorted by id
func (so *ServiceOperations) ListServices(ctx context.Context) ([]*ServiceInfo, error) {
	manifests := so.registry.All()
	sort.Slice(manifests, func(i, j int) bool { return manifests[i].ID < manifests[j].ID })

	services := make([]*ServiceInfo, 0, len(manifests))
	for _, manifest := range manifests {
		status, err := so.manager.GetServiceStatus(ctx, manifest.ID)
		if err != nil {
			return nil, err
		}
		services = append(services, &ServiceInfo{Manifest: manifest, Status: status})
	}
	return services, nil
}

// GetService returns one service with its live status
func (so *ServiceOperations) GetService(ctx context.Context, id string) (*ServiceInfo, error) {
	manifest, err := so.registry.Get(id)
	if err != nil {
		return nil, err
	}
	status, err := so.manager.GetServiceStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ServiceInfo{Manifest: manifest, Status: status}, nil
}

// StartService starts one service, optionally with its dependency closure
func (so *ServiceOperations) StartService(ctx context.Context, id string, withDependencies bool) error {
	if withDependencies {
		return so.manager.StartWithDependencies(ctx, id)
	}
	return so.manager.StartService(ctx, id)
}

// StopService stops one service, optionally stopping its dependents first.
// It returns the dependents that were stopped.
func (so *ServiceOperations) StopService(ctx context.Context, id string, withDependents bool, timeoutSeconds int) ([]string, error) {
	var stopped []string
	if withDependents {
		stopped = so.manager.StopDependents(ctx, id)
	}
	if err := so.manager.StopService(ctx, id, timeoutSeconds); err != nil {
		return stopped, err
	}
	return stopped, nil
}

// RestartService restarts one service and reports whether it came back
// degraded
func (so *ServiceOperations) RestartService(ctx context.Context, id string) (*manager.RestartResult, error) {
	return so.manager.RestartService(ctx, id)
}

// ResolveDependencies returns the ordered dependency closure for a service
func (so *ServiceOperations) ResolveDependencies(id string) []string {
	return so.registry.ResolveDependencies(id)
}

// ListEvents returns a page of journaled lifecycle events
func (so *ServiceOperations) ListEvents(ctx context.Context, filter db.EventFilter, options db.PaginationOptions) (*db.PaginatedResponse[db.EventRecord], error) {
	if so.events == nil {
		return db.NewPaginatedResponse[db.EventRecord](nil, options, 0), nil
	}
	return so.events.List(ctx, filter, options)
}
