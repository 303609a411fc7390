package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mukkelmaus/Flox/internal/models"
	"github.com/mukkelmaus/Flox/internal/priority"
)

func (a *API) handleGetStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	stats, err := a.Repo.GetOrCreateStats(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleGetStreak(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	streak, err := a.Repo.GetOrCreateStreak(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, streak)
}

type achievementView struct {
	models.Achievement
	Progress   float64    `json:"progress"`
	Current    int        `json:"current"`
	Target     int        `json:"target"`
	UnlockedAt *time.Time `json:"unlocked_at"`
}

func (a *API) handleListAchievements(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	catalog, records, err := a.Repo.ListUserAchievements(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]achievementView, 0, len(catalog))
	for i, entry := range catalog {
		views = append(views, achievementView{
			Achievement: entry,
			Progress:    records[i].Progress,
			Current:     records[i].Current,
			Target:      records[i].Target,
			UnlockedAt:  records[i].UnlockedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"achievements": views})
}

func (a *API) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid limit")
			return
		}
		limit = parsed
	}
	entries, err := a.Service.Leaderboard(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}

type focusSessionRequest struct {
	Context              *string `json:"context"`
	TimeAvailableMinutes *int    `json:"time_available_minutes"`
	EnergyLevel          *int    `json:"energy_level"`
}

func (a *API) handleFocusSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req focusSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.EnergyLevel != nil && (*req.EnergyLevel < 1 || *req.EnergyLevel > 5) {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "energy_level must be 1-5")
		return
	}
	session, err := a.Service.FocusSession(r.Context(), userID, priority.FocusOptions{
		Context:              req.Context,
		TimeAvailableMinutes: req.TimeAvailableMinutes,
		EnergyLevel:          req.EnergyLevel,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type focusTimeRequest struct {
	Minutes int `json:"minutes"`
}

func (a *API) handleRecordFocusTime(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req focusTimeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Minutes <= 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "minutes must be positive")
		return
	}
	stats, unlocked, err := a.Service.RecordFocusTime(r.Context(), userID, req.Minutes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":                 stats,
		"unlocked_achievements": unlocked,
	})
}

func (a *API) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"
	notifications, err := a.Repo.ListNotifications(r.Context(), userID, unreadOnly, 50)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

func (a *API) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	notificationID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := a.Repo.MarkNotificationRead(r.Context(), userID, notificationID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
