package http

import (
	"net/http"
	"strconv"

	"github.com/mukkelmaus/Flox/internal/models"
	"github.com/mukkelmaus/Flox/internal/priority"
	"github.com/mukkelmaus/Flox/internal/repo"
)

type taskRequest struct {
	WorkspaceID       *int64    `json:"workspace_id"`
	ParentID          *int64    `json:"parent_id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Priority          string    `json:"priority"`
	DueDate           *FlexTime `json:"due_date"`
	StartDate         *FlexTime `json:"start_date"`
	EstimatedMinutes  *int      `json:"estimated_minutes"`
	ContextTags       []string  `json:"context_tags"`
	FocusModeIncluded *bool     `json:"focus_mode_included"`
}

type taskUpdateRequest struct {
	Title             *string   `json:"title"`
	Description       *string   `json:"description"`
	Status            *string   `json:"status"`
	Priority          *string   `json:"priority"`
	DueDate           *FlexTime `json:"due_date"`
	ClearDueDate      bool      `json:"clear_due_date"`
	StartDate         *FlexTime `json:"start_date"`
	EstimatedMinutes  *int      `json:"estimated_minutes"`
	ContextTags       []string  `json:"context_tags"`
	FocusModeIncluded *bool     `json:"focus_mode_included"`
}

func validPriority(p string) bool {
	switch models.TaskPriority(p) {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityUrgent:
		return true
	}
	return false
}

func validStatus(s string) bool {
	switch models.TaskStatus(s) {
	case models.StatusTodo, models.StatusInProgress, models.StatusDone:
		return true
	}
	return false
}

func (a *API) handleListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var filter repo.TaskFilter
	if status := r.URL.Query().Get("status"); status != "" {
		if !validStatus(status) {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid status")
			return
		}
		filter.Status = models.TaskStatus(status)
	}
	if wsParam := r.URL.Query().Get("workspace_id"); wsParam != "" {
		wsID, err := strconv.ParseInt(wsParam, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid workspace_id")
			return
		}
		filter.WorkspaceID = &wsID
	}
	tasks, err := a.Repo.ListTasks(r.Context(), userID, filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (a *API) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req taskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Title required")
		return
	}
	taskPriority := models.PriorityMedium
	if req.Priority != "" {
		if !validPriority(req.Priority) {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid priority")
			return
		}
		taskPriority = models.TaskPriority(req.Priority)
	}
	if req.WorkspaceID != nil {
		allowed, err := a.Repo.UserInWorkspace(r.Context(), userID, *req.WorkspaceID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if !allowed {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Not a workspace member")
			return
		}
	}
	if req.ParentID != nil {
		if _, err := a.Repo.GetTask(r.Context(), userID, *req.ParentID); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	focusIncluded := true
	if req.FocusModeIncluded != nil {
		focusIncluded = *req.FocusModeIncluded
	}
	task, err := a.Repo.CreateTask(r.Context(), models.Task{
		UserID:            userID,
		WorkspaceID:       req.WorkspaceID,
		ParentID:          req.ParentID,
		Title:             req.Title,
		Description:       req.Description,
		Status:            models.StatusTodo,
		Priority:          taskPriority,
		DueDate:           req.DueDate.ToTimePtr(),
		StartDate:         req.StartDate.ToTimePtr(),
		EstimatedMinutes:  req.EstimatedMinutes,
		ContextTags:       req.ContextTags,
		FocusModeIncluded: focusIncluded,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (a *API) handleGetTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	task, err := a.Repo.GetTask(r.Context(), userID, taskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *API) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req taskUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	update := repo.TaskUpdate{
		Title:             req.Title,
		Description:       req.Description,
		DueDate:           req.DueDate.ToTimePtr(),
		ClearDueDate:      req.ClearDueDate,
		StartDate:         req.StartDate.ToTimePtr(),
		EstimatedMinutes:  req.EstimatedMinutes,
		ContextTags:       req.ContextTags,
		FocusModeIncluded: req.FocusModeIncluded,
	}
	if req.Status != nil {
		if !validStatus(*req.Status) {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid status")
			return
		}
		// Completion goes through the dedicated endpoint so the
		// gamification pipeline runs exactly once.
		if models.TaskStatus(*req.Status) == models.StatusDone {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Use /tasks/{id}/complete")
			return
		}
		status := models.TaskStatus(*req.Status)
		update.Status = &status
	}
	if req.Priority != nil {
		if !validPriority(*req.Priority) {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid priority")
			return
		}
		p := models.TaskPriority(*req.Priority)
		update.Priority = &p
	}

	task, err := a.Repo.UpdateTask(r.Context(), userID, taskID, update)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *API) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := a.Repo.DeleteTask(r.Context(), userID, taskID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (a *API) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	result, err := a.Service.CompleteTask(r.Context(), userID, taskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleAssessTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	task, err := a.Service.AssessTask(r.Context(), userID, taskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *API) handlePrioritizedTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	scored, err := a.Service.PrioritizedTasks(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if scored == nil {
		scored = []priority.ScoredTask{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": scored})
}

type subTaskRequest struct {
	Title    string `json:"title"`
	Position int    `json:"position"`
}

type subTaskCompletedRequest struct {
	IsCompleted bool `json:"is_completed"`
}

func (a *API) handleListSubTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := a.Repo.GetTask(r.Context(), userID, taskID); err != nil {
		writeServiceError(w, err)
		return
	}
	subtasks, err := a.Repo.ListSubTasks(r.Context(), taskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if subtasks == nil {
		subtasks = []models.SubTask{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"subtasks": subtasks})
}

func (a *API) handleCreateSubTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req subTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Title required")
		return
	}
	if _, err := a.Repo.GetTask(r.Context(), userID, taskID); err != nil {
		writeServiceError(w, err)
		return
	}
	subtask, err := a.Repo.CreateSubTask(r.Context(), taskID, req.Title, req.Position)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, subtask)
}

func (a *API) handleSetSubTaskCompleted(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	taskID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	subTaskID, ok := pathID(w, r, "subID")
	if !ok {
		return
	}
	var req subTaskCompletedRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := a.Repo.GetTask(r.Context(), userID, taskID); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := a.Repo.SetSubTaskCompleted(r.Context(), taskID, subTaskID, req.IsCompleted); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
