package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each dependency probe in /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Public
	r.Get("/", s.handleHealth)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Post("/auth/token", s.handleLogin)
	r.Post("/auth/refresh", s.handleRefresh)

	// WebSocket (auth via ticket, validated in handler)
	wsPath := s.wsCfg.Path
	if wsPath == "" {
		wsPath = "/ws"
	}
	r.Get(wsPath, s.handleWebSocket)

	// Signup is public; everything else under /users is protected.
	r.Route("/users", func(r chi.Router) {
		r.Post("/", s.handleSignup)
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/", s.handleListUsers)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetUser)
				r.Put("/", s.handleReplaceUser)
				r.Patch("/", s.handlePatchUser)
				r.With(s.adminMiddleware).Delete("/", s.handleDeleteUser)
				r.Put("/password", s.handleChangePassword)
				r.Get("/roles", s.handleListUserRoles)
				r.With(s.adminMiddleware).Put("/roles", s.handleSetUserRoles)
				r.Get("/access_logs", s.handleListUserAccessLogs)
				r.Get("/current_presence", s.handleGetUserPresence)
			})
		})
	})

	// Protected: bearer access token and an active user.
	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		admin := r.With(s.adminMiddleware)

		r.Get("/auth/me", s.handleMe)
		r.Post("/auth/ws-ticket", s.handleWSTicket)

		r.Route("/roles", func(r chi.Router) {
			r.Get("/", s.handleListRoles)
			r.With(s.adminMiddleware).Post("/", s.handleCreateRole)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRole)
				r.With(s.adminMiddleware).Put("/", s.handleReplaceRole)
				r.With(s.adminMiddleware).Patch("/", s.handlePatchRole)
				r.With(s.adminMiddleware).Delete("/", s.handleDeleteRole)
				r.Get("/users", s.handleListRoleUsers)
				r.Get("/access_rules", s.handleListRoleRules)
			})
		})

		r.Route("/buildings", func(r chi.Router) {
			r.Get("/", s.handleListBuildings)
			r.With(s.adminMiddleware).Post("/", s.handleCreateBuilding)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetBuilding)
				r.With(s.adminMiddleware).Put("/", s.handleReplaceBuilding)
				r.With(s.adminMiddleware).Patch("/", s.handlePatchBuilding)
				r.With(s.adminMiddleware).Delete("/", s.handleDeleteBuilding)
				r.Get("/floors", s.handleListBuildingFloors)
			})
		})

		r.Route("/floors", func(r chi.Router) {
			r.Get("/", s.handleListFloors)
			r.With(s.adminMiddleware).Post("/", s.handleCreateFloor)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetFloor)
				r.With(s.adminMiddleware).Put("/", s.handleReplaceFloor)
				r.With(s.adminMiddleware).Patch("/", s.handlePatchFloor)
				r.With(s.adminMiddleware).Delete("/", s.handleDeleteFloor)
				r.Get("/rooms", s.handleListFloorRooms)
			})
		})

		r.Route("/access_log", func(r chi.Router) {
			r.Get("/", s.handleListAccessLogs)
			r.Post("/", s.handleCreateAccessLog)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetAccessLog)
				r.With(s.adminMiddleware).Put("/", s.handleReplaceAccessLog)
				r.With(s.adminMiddleware).Patch("/", s.handlePatchAccessLog)
				r.With(s.adminMiddleware).Delete("/", s.handleDeleteAccessLog)
			})
		})

		r.Route("/current_presence", func(r chi.Router) {
			r.Get("/", s.handleListPresence)
			r.Post("/", s.handleEnter)
			r.Get("/{id}", s.handleGetPresence)
			r.Put("/{id}", s.handleReplacePresence)
			r.Patch("/{id}", s.handlePatchPresence)
			r.Delete("/{id}", s.handleExit)
			r.Delete("/user/{user_id}", s.handleExitUser)
		})

		// Admin-only groups
		admin.Route("/rooms", func(r chi.Router) {
			r.Get("/", s.handleListRooms)
			r.Post("/", s.handleCreateRoom)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRoom)
				r.Put("/", s.handleReplaceRoom)
				r.Patch("/", s.handlePatchRoom)
				r.Delete("/", s.handleDeleteRoom)
				r.Get("/access_rules", s.handleListRoomRules)
				r.Get("/access_logs", s.handleListRoomAccessLogs)
				r.Get("/current_presence", s.handleListRoomPresence)
			})
		})

		admin.Route("/access_rule", func(r chi.Router) {
			r.Get("/", s.handleListRules)
			r.Post("/", s.handleCreateRule)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRule)
				r.Put("/", s.handleReplaceRule)
				r.Patch("/", s.handlePatchRule)
				r.Delete("/", s.handleDeleteRule)
			})
		})

		admin.Get("/audit", s.handleListAuditLogs)
	})

	return r
}

// healthResponse is returned by / and /health.
type healthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// handleHealth reports service health. A failing database makes the service
// unavailable (503); other failing checks mark it degraded.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Version: s.version}
	status := http.StatusOK

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) > 0 {
		resp.Checks = make(map[string]string, len(names))
	}
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.checks[name].HealthCheck(ctx)
		cancel()

		if err == nil {
			resp.Checks[name] = "ok"
			continue
		}
		resp.Checks[name] = err.Error()
		if name == "database" {
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		} else if resp.Status == "ok" {
			resp.Status = "degraded"
		}
	}

	writeJSON(w, status, resp)
}
