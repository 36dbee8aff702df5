package server

import (
	"net/http"
	"strconv"
	"time"

	"flotilla/internal/db"
	"flotilla/internal/errors"
	"flotilla/internal/operations"

	"github.com/labstack/echo/v4"
)

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("/api")

	services := api.Group("/services")
	services.GET("", s.handleListServices)
	services.GET("/:id", s.handleGetService)
	services.GET("/:id/dependencies", s.handleGetDependencies)
	services.POST("/:id/start", s.handleStartService)
	services.POST("/:id/stop", s.handleStopService)
	services.POST("/:id/restart", s.handleRestartService)

	api.GET("/events", s.handleListEvents)

	s.echo.GET("/ws/events", s.handleEventStream)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status: "healthy",
		Uptime: time.Since(s.startTime).Round(time.Second).String(),
	})
}

func serviceResponse(info *operations.ServiceInfo) ServiceResponse {
	return ServiceResponse{
		ID:           info.Manifest.ID,
		Version:      info.Manifest.Version,
		Port:         info.Manifest.Port,
		Dependencies: info.Manifest.Dependencies,
		Status:       info.Status,
	}
}

func (s *Server) handleListServices(c echo.Context) error {
	infos, err := s.ops.ListServices(c.Request().Context())
	if err != nil {
		return errors.ToHTTPError(err)
	}

	response := ServiceListResponse{Services: make([]ServiceResponse, 0, len(infos))}
	for _, info := range infos {
		response.Services = append(response.Services, serviceResponse(info))
	}
	response.Total = len(response.Services)
	return c.JSON(http.StatusOK, response)
}

func (s *Server) handleGetService(c echo.Context) error {
	info, err := s.ops.GetService(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errors.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, serviceResponse(info))
}

func (s *Server) handleGetDependencies(c echo.Context) error {
	id := c.Param("id")
	deps := s.ops.ResolveDependencies(id)
	if deps == nil {
		deps = []string{}
	}
	return c.JSON(http.StatusOK, DependenciesResponse{ID: id, Dependencies: deps})
}

func (s *Server) handleStartService(c echo.Context) error {
	id := c.Param("id")
	withDependencies := c.QueryParam("with_dependencies") == "true"

	if err := s.ops.StartService(c.Request().Context(), id, withDependencies); err != nil {
		return errors.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, StartResponse{ID: id, Started: true})
}

func (s *Server) handleStopService(c echo.Context) error {
	id := c.Param("id")
	withDependents := c.QueryParam("with_dependents") == "true"

	timeoutSeconds := 0
	if raw := c.QueryParam("timeout"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "timeout must be a non-negative integer")
		}
		timeoutSeconds = parsed
	}

	stopped, err := s.ops.StopService(c.Request().Context(), id, withDependents, timeoutSeconds)
	if err != nil {
		return errors.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, StopResponse{ID: id, Stopped: true, DependentsStopped: stopped})
}

func (s *Server) handleRestartService(c echo.Context) error {
	id := c.Param("id")

	result, err := s.ops.RestartService(c.Request().Context(), id)
	if err != nil {
		return errors.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, RestartResponse{ID: id, Degraded: result.Degraded})
}

func (s *Server) handleListEvents(c echo.Context) error {
	filter := db.EventFilter{
		ServiceID: c.QueryParam("service_id"),
		Type:      c.QueryParam("type"),
	}

	options := db.DefaultPaginationOptions()
	if raw := c.QueryParam("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil {
			options.Page = page
		}
	}
	if raw := c.QueryParam("page_size"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil {
			options.PageSize = size
		}
	}

	page, err := s.ops.ListEvents(c.Request().Context(), filter, options)
	if err != nil {
		return errors.ToHTTPError(err)
	}
	return c.JSON(http.StatusOK, page)
}
