// Package constants defines application-wide constants to avoid magic numbers
package constants

import "time"

// Network constants
const (
	// DefaultServerPort is the default port for the flotilla API server
	DefaultServerPort = 8090
)

// Lifecycle convergence constants
const (
	// DefaultStartPollAttempts bounds the start convergence loop
	DefaultStartPollAttempts = 10

	// DefaultStartPollDelay is the delay between start convergence polls
	DefaultStartPollDelay = 1 * time.Second

	// DefaultRestartSettleDelay is the pause between stop and start on restart
	DefaultRestartSettleDelay = 2 * time.Second

	// DefaultHealthPollAttempts bounds the post-restart health convergence loop
	DefaultHealthPollAttempts = 10

	// DefaultHealthPollDelay is the delay between health convergence polls
	DefaultHealthPollDelay = 1 * time.Second

	// DefaultStopTimeoutSeconds is the graceful stop timeout passed to the supervisor
	DefaultStopTimeoutSeconds = 10
)

// Health monitor constants
const (
	// DefaultCheckInterval is the monitor polling interval
	DefaultCheckInterval = 30 * time.Second

	// DefaultMaxRestartAttempts bounds automatic recovery per incident
	DefaultMaxRestartAttempts = 3

	// DefaultInitialRestartDelay seeds the backoff schedule
	DefaultInitialRestartDelay = 5 * time.Second

	// DefaultBackoffMultiplier grows the delay between restart attempts
	DefaultBackoffMultiplier = 2.0
)

// Database constants
const (
	// DefaultMaxOpenConnections is the default maximum number of database connections
	DefaultMaxOpenConnections = 25

	// DefaultMaxIdleConnections is the default maximum number of idle database connections
	DefaultMaxIdleConnections = 5

	// DefaultConnectionLifetime is the default database connection lifetime
	DefaultConnectionLifetime = 5 * time.Minute

	// DefaultIdleTimeout is the default database idle connection timeout
	DefaultIdleTimeout = 1 * time.Minute
)

// HTTP server constants
const (
	// DefaultServerReadTimeout is the default server read timeout
	DefaultServerReadTimeout = 10 * time.Second

	// DefaultServerWriteTimeout is the default server write timeout
	DefaultServerWriteTimeout = 10 * time.Second

	// DefaultServerShutdownTimeout is the default graceful shutdown timeout
	DefaultServerShutdownTimeout = 30 * time.Second
)

// File system permissions
const (
	// DirPermissions is the standard directory permissions for flotilla directories
	DirPermissions = 0755

	// FilePermissions is the standard file permissions for flotilla config files
	FilePermissions = 0644
)
