package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/gray-logic-access/internal/access"
	"github.com/nerrad567/gray-logic-access/internal/audit"
	"github.com/nerrad567/gray-logic-access/internal/auth"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-access/internal/location"
	"github.com/nerrad567/gray-logic-access/internal/presence"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is implemented by the database, MQTT and InfluxDB clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ConnectionReporter reports broker connectivity for /metrics.
type ConnectionReporter interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config config.APIConfig
	WS     config.WebSocketConfig
	Logger *logging.Logger

	Tokens        *auth.TokenService
	Guard         *auth.Guard
	Authenticator *auth.Authenticator
	Users         auth.UserRepository

	Locations location.Repository
	Roles     access.RoleRepository
	Rules     access.RuleRepository
	Logs      access.LogRepository
	Recorder  *access.Recorder
	Presence  *presence.Engine

	AuditRepo audit.Repository
	Audit     *audit.Writer // optional; nil disables audit recording

	// DB is used for pool statistics in /metrics. Optional.
	DB *sql.DB

	// MQTT is reported in /metrics. Optional.
	MQTT ConnectionReporter

	// Checks are reported by /health. A failing "database" check makes the
	// service unhealthy; any other failure only degrades it.
	Checks map[string]HealthChecker

	// ExternalHub is used instead of a server-owned hub. The caller runs it.
	// This lets the hub be registered as an event sink before the server exists.
	ExternalHub *Hub

	Version string
}

// Server is the HTTP API server for the access-control service.
type Server struct {
	cfg    config.APIConfig
	wsCfg  config.WebSocketConfig
	logger *logging.Logger

	tokens        *auth.TokenService
	guard         *auth.Guard
	authenticator *auth.Authenticator
	users         auth.UserRepository

	locations location.Repository
	roles     access.RoleRepository
	rules     access.RuleRepository
	logs      access.LogRepository
	recorder  *access.Recorder
	presence  *presence.Engine

	auditRepo audit.Repository
	audit     *audit.Writer

	db     *sql.DB
	mqtt   ConnectionReporter
	checks map[string]HealthChecker

	hub         *Hub
	externalHub bool
	tickets     *ticketStore

	version   string
	startTime time.Time
	server    *http.Server
	cancel    context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server is not started until Start is called.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Logger == nil:
		return nil, errors.New("logger is required")
	case deps.Tokens == nil || deps.Guard == nil || deps.Authenticator == nil:
		return nil, errors.New("token service, guard and authenticator are required")
	case deps.Users == nil:
		return nil, errors.New("user repository is required")
	case deps.Locations == nil:
		return nil, errors.New("location repository is required")
	case deps.Roles == nil || deps.Rules == nil || deps.Logs == nil:
		return nil, errors.New("role, rule and log repositories are required")
	case deps.Recorder == nil || deps.Presence == nil:
		return nil, errors.New("access recorder and presence engine are required")
	}

	s := &Server{
		cfg:           deps.Config,
		wsCfg:         deps.WS,
		logger:        deps.Logger.With("component", "api"),
		tokens:        deps.Tokens,
		guard:         deps.Guard,
		authenticator: deps.Authenticator,
		users:         deps.Users,
		locations:     deps.Locations,
		roles:         deps.Roles,
		rules:         deps.Rules,
		logs:          deps.Logs,
		recorder:      deps.Recorder,
		presence:      deps.Presence,
		auditRepo:     deps.AuditRepo,
		audit:         deps.Audit,
		db:            deps.DB,
		mqtt:          deps.MQTT,
		checks:        deps.Checks,
		tickets:       newTicketStore(),
		version:       deps.Version,
		startTime:     time.Now(),
	}

	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	} else {
		s.hub = NewHub(deps.WS, deps.Logger)
	}

	return s, nil
}

// Hub returns the WebSocket hub, which is also an events.Sink.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the fully wired router. Start uses it; tests call it directly.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}
	go s.cleanTicketsLoop(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server, waiting up to 10 seconds for
// in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return errors.New("api server not started")
	}
	return nil
}
