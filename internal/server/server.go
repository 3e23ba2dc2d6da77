// Package server exposes notes and action items over a JSON HTTP API.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/at-ishikawa/actionnotes/internal/config"
	"github.com/at-ishikawa/actionnotes/internal/database"
	"github.com/at-ishikawa/actionnotes/internal/metrics"
	"github.com/at-ishikawa/actionnotes/internal/service"
)

// Server provides the HTTP endpoints.
type Server struct {
	echo    *echo.Echo
	service *service.Service
	metrics *metrics.Metrics
	debug   bool
}

// New creates a Server with its middleware and routes registered. m may be nil.
func New(svc *service.Service, m *metrics.Metrics, cfg *config.Config) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validator: validator.New()}

	s := &Server{
		echo:    e,
		service: svc,
		metrics: m,
		debug:   cfg.Debug,
	}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.observe)
	if len(cfg.Server.CORS.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.Server.CORS.AllowedOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders: []string{echo.HeaderContentType},
			MaxAge:       3600,
		}))
	}

	s.registerRoutes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}

	notes := s.echo.Group("/notes")
	notes.POST("", s.handleCreateNote)
	notes.GET("", s.handleListNotes)
	notes.GET("/:id", s.handleGetNote)

	items := s.echo.Group("/action-items")
	items.POST("/extract", s.handleExtract)
	items.POST("/extract-llm", s.handleExtractWithModel)
	items.GET("", s.handleListActionItems)
	items.POST("/:id/done", s.handleMarkDone)
}

// observe logs every request and records its latency.
func (s *Server) observe(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		if err := next(c); err != nil {
			// Let the error handler write the response so the status is known
			c.Error(err)
		}
		duration := time.Since(start)

		req := c.Request()
		status := c.Response().Status
		path := c.Path()
		if path == "" {
			path = "unmatched"
		}
		s.metrics.RecordHTTPRequest(req.Method, path, status, duration)
		slog.Default().InfoContext(req.Context(), "http request",
			"method", req.Method,
			"uri", req.RequestURI,
			"status", status,
			"duration", duration,
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		)
		return nil
	}
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := s.errorResponse(err)
	if status >= http.StatusInternalServerError {
		slog.Default().ErrorContext(c.Request().Context(), "request failed",
			"path", c.Path(),
			"error", err,
		)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, body)
	}
	if writeErr != nil {
		slog.Default().ErrorContext(c.Request().Context(), "failed to write error response", "error", writeErr)
	}
}

func (s *Server) errorResponse(err error) (int, ErrorResponse) {
	var validationErr *service.ValidationError
	var validatorErrs validator.ValidationErrors
	var notFoundErr *service.NotFoundError
	var dbErr *database.Error
	var httpErr *echo.HTTPError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, ErrorResponse{Error: "Validation error", Detail: validationErr.Error()}
	case errors.As(err, &validatorErrs):
		return http.StatusBadRequest, ErrorResponse{Error: "Validation error", Detail: validatorErrs.Error()}
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, ErrorResponse{Error: notFoundErr.Error(), Detail: notFoundErr.Error()}
	case errors.As(err, &dbErr):
		return http.StatusInternalServerError, ErrorResponse{Error: "Database error", Detail: dbErr.Error()}
	case errors.As(err, &httpErr):
		detail := http.StatusText(httpErr.Code)
		if message, ok := httpErr.Message.(string); ok {
			detail = message
		}
		return httpErr.Code, ErrorResponse{Error: http.StatusText(httpErr.Code), Detail: detail}
	default:
		detail := "An unexpected error occurred"
		if s.debug {
			detail = err.Error()
		}
		return http.StatusInternalServerError, ErrorResponse{Error: "Internal server error", Detail: detail}
	}
}

type requestValidator struct {
	validator *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	return v.validator.Struct(i)
}
