// Package app wires the flotilla components together and dispatches to the CLI
package app

import (
	"context"
	"fmt"
	"os"

	"flotilla/internal/cli"
	"flotilla/internal/cli/commands"
	"flotilla/internal/config"
	"flotilla/internal/db"
	"flotilla/internal/errors"
	"flotilla/internal/events"
	"flotilla/internal/logger"
	"flotilla/internal/manager"
	"flotilla/internal/operations"
	"flotilla/internal/registry"
	"flotilla/internal/supervisor"
)

// App represents the main application
type App struct {
	Config   *config.GlobalConfig
	Registry *registry.Registry
	Manager  *manager.Manager
	Bus      *events.Bus
	DB       *db.DB
	CLI      *cli.Manager
}

// New creates a new application instance
func New() *App {
	return &App{}
}

// Run starts the application
func (a *App) Run(args []string) error {
	return a.RunWithContext(context.Background(), args)
}

// RunWithContext initializes all components and executes the CLI
func (a *App) RunWithContext(ctx context.Context, args []string) error {
	if level := os.Getenv("FLOTILLA_LOG_LEVEL"); level != "" {
		logger.SetLevel(level)
	}

	globalConfig, err := config.LoadGlobalConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a.Config = globalConfig

	a.Registry = registry.New()
	if err := a.loadCatalog(); err != nil {
		return err
	}

	sup := supervisor.NewDocker(nil)
	a.Manager = manager.New(a.Registry, sup, manager.DefaultOptions())
	a.Bus = events.NewBus()

	// Every lifecycle event lands in the log regardless of other subscribers.
	a.Bus.Subscribe(func(event events.Event) {
		logger.WithFields(logger.Fields{
			"event_type": string(event.Type),
			"service":    event.ServiceID,
			"event_id":   event.ID,
		}).Info("Lifecycle event")
	})

	eventRepo, err := a.openJournal()
	if err != nil {
		return err
	}

	ops := operations.NewServiceOperations(a.Registry, a.Manager, eventRepo)
	a.CLI = cli.New(&commands.Deps{
		Config:    globalConfig,
		Registry:  a.Registry,
		Manager:   a.Manager,
		Ops:       ops,
		Bus:       a.Bus,
		EventRepo: eventRepo,
	})

	defer func() {
		if a.DB != nil {
			a.DB.Close()
		}
	}()

	if len(args) == 0 {
		return a.CLI.ExecuteWithContext(ctx, []string{"--help"})
	}
	return a.CLI.ExecuteWithContext(ctx, args)
}

// loadCatalog registers every catalog manifest. A missing catalog is not
// fatal; the CLI still works for inspection and the catalog can be created
// later.
func (a *App) loadCatalog() error {
	catalog, err := config.LoadCatalog(a.Config.Catalog.Path)
	if err != nil {
		if errors.HasCode(err, errors.ErrCatalogNotFound) {
			logger.WithField("path", a.Config.Catalog.Path).Debugf("No service catalog found")
			return nil
		}
		return err
	}

	warnings, err := catalog.Validate()
	for _, warning := range warnings {
		logger.Warn(warning)
	}
	if err != nil {
		return err
	}

	for _, manifest := range catalog.Manifests() {
		if err := a.Registry.Register(manifest); err != nil {
			return err
		}
	}
	return nil
}

// openJournal opens the event journal database and subscribes it to the bus.
// Journal failures degrade to in-memory operation instead of refusing to run.
func (a *App) openJournal() (*db.EventRepository, error) {
	dbConfig := db.DefaultConfig()
	if a.Config.Storage.DatabasePath != "" {
		dbConfig.DSN = a.Config.Storage.DatabasePath
	}

	database, err := db.New(dbConfig)
	if err != nil {
		logger.WithError(err).Warn("Event journal unavailable, continuing without it")
		return nil, nil
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	a.DB = database

	eventRepo := db.NewEventRepository(database)
	a.Bus.Subscribe(eventRepo.Subscriber())
	return eventRepo, nil
}
