// Package commands implements the flotilla subcommands
package commands

import (
	"flotilla/internal/config"
	"flotilla/internal/db"
	"flotilla/internal/events"
	"flotilla/internal/manager"
	"flotilla/internal/operations"
	"flotilla/internal/registry"
)

// Deps carries the shared components every command runs against
type Deps struct {
	Config    *config.GlobalConfig
	Registry  *registry.Registry
	Manager   *manager.Manager
	Ops       *operations.ServiceOperations
	Bus       *events.Bus
	EventRepo *db.EventRepository
}
