// Package http is the JSON API surface. Handlers stay thin: decode, auth
// scope, delegate to the service or repo, encode.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mukkelmaus/Flox/internal/auth"
	"github.com/mukkelmaus/Flox/internal/repo"
	"github.com/mukkelmaus/Flox/internal/service"
	"github.com/mukkelmaus/Flox/internal/ws"
)

type API struct {
	Repo    *repo.Repo
	Service *service.Service
	Auth    *auth.Manager
	Hub     *ws.Hub
	Origins []string
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(loggingMiddleware)
	r.Use(a.corsMiddleware)

	r.Get("/health", a.handleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", a.handleRegister)
		r.Post("/login", a.handleLogin)
	})

	r.Group(func(r chi.Router) {
		r.Use(a.authMiddleware)
		r.Get("/me", a.handleMe)
		r.Get("/workspaces", a.handleListWorkspaces)
		r.Post("/workspaces", a.handleCreateWorkspace)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", a.handleListTasks)
			r.Post("/", a.handleCreateTask)
			r.Get("/prioritized", a.handlePrioritizedTasks)
			r.Get("/{id}", a.handleGetTask)
			r.Put("/{id}", a.handleUpdateTask)
			r.Delete("/{id}", a.handleDeleteTask)
			r.Post("/{id}/complete", a.handleCompleteTask)
			r.Post("/{id}/assess", a.handleAssessTask)
			r.Get("/{id}/subtasks", a.handleListSubTasks)
			r.Post("/{id}/subtasks", a.handleCreateSubTask)
			r.Put("/{id}/subtasks/{subID}", a.handleSetSubTaskCompleted)
		})

		r.Route("/focus", func(r chi.Router) {
			r.Post("/session", a.handleFocusSession)
			r.Post("/time", a.handleRecordFocusTime)
		})

		r.Route("/gamification", func(r chi.Router) {
			r.Get("/stats", a.handleGetStats)
			r.Get("/streak", a.handleGetStreak)
			r.Get("/achievements", a.handleListAchievements)
			r.Get("/leaderboard", a.handleLeaderboard)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", a.handleListNotifications)
			r.Post("/{id}/read", a.handleMarkNotificationRead)
		})

		r.Get("/ws", a.handleWebSocket)
	})

	return r
}
