package models

import "time"

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// EnergyLevel is the coarse mental-effort estimate attached to a task by the
// AI assessment step. The zero value means "not assessed".
type EnergyLevel string

const (
	EnergyNone   EnergyLevel = ""
	EnergyLow    EnergyLevel = "low"
	EnergyMedium EnergyLevel = "medium"
	EnergyHigh   EnergyLevel = "high"
)

// RequirementType is the closed set of achievement requirement kinds.
// Unknown values loaded from the catalog evaluate to zero progress.
type RequirementType string

const (
	RequirementTaskCount        RequirementType = "task_count"
	RequirementStreak           RequirementType = "streak"
	RequirementOnTimeCompletion RequirementType = "on_time_completion"
	RequirementFocusTime        RequirementType = "focus_time"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Workspace struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type WorkspaceMember struct {
	WorkspaceID int64     `json:"workspace_id"`
	UserID      int64     `json:"user_id"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

type Task struct {
	ID          int64        `json:"id"`
	UserID      int64        `json:"user_id"`
	WorkspaceID *int64       `json:"workspace_id"`
	ParentID    *int64       `json:"parent_id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`

	DueDate     *time.Time `json:"due_date"`
	StartDate   *time.Time `json:"start_date"`
	CompletedAt *time.Time `json:"completed_at"`

	EstimatedMinutes *int `json:"estimated_minutes"`
	ActualMinutes    *int `json:"actual_minutes"`

	// Filled in by the AI assessment collaborator; the scoring engines treat
	// missing values as zero contribution.
	AIComplexityScore *float64    `json:"ai_complexity_score"`
	AIEnergyLevel     EnergyLevel `json:"ai_energy_level,omitempty"`
	AISuggestions     []byte      `json:"-"`

	ContextTags       []string `json:"context_tags"`
	FocusModeIncluded bool     `json:"focus_mode_included"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// TaskAssessment is the result of the AI assessment collaborator.
type TaskAssessment struct {
	ComplexityScore float64     `json:"complexity_score"`
	EnergyLevel     EnergyLevel `json:"energy_level"`
	SuggestionsJSON []byte      `json:"suggestions,omitempty"`
}

type SubTask struct {
	ID          int64      `json:"id"`
	TaskID      int64      `json:"task_id"`
	Title       string     `json:"title"`
	IsCompleted bool       `json:"is_completed"`
	Position    int        `json:"position"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Achievement is a catalog entry, effectively immutable after creation.
// Workspace-scoped achievements have a non-nil WorkspaceID; system ones apply
// to everyone.
type Achievement struct {
	ID               int64           `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Icon             string          `json:"icon,omitempty"`
	Points           int             `json:"points"`
	RequirementType  RequirementType `json:"requirement_type"`
	RequirementValue int             `json:"requirement_value"`
	Level            int             `json:"level"`
	IsSystem         bool            `json:"is_system"`
	WorkspaceID      *int64          `json:"workspace_id"`
	CreatedAt        time.Time       `json:"created_at"`
}

// UserAchievement tracks one user's progress on one achievement.
// UnlockedAt is set exactly once and never cleared.
type UserAchievement struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	AchievementID int64      `json:"achievement_id"`
	Progress      float64    `json:"progress"`
	UnlockedAt    *time.Time `json:"unlocked_at"`
	Current       int        `json:"current"`
	Target        int        `json:"target"`
}

type UserStats struct {
	UserID               int64      `json:"user_id"`
	Points               int        `json:"points"`
	Level                int        `json:"level"`
	TasksCompleted       int        `json:"tasks_completed"`
	TasksCompletedOnTime int        `json:"tasks_completed_on_time"`
	CurrentStreak        int        `json:"current_streak"`
	LongestStreak        int        `json:"longest_streak"`
	AverageCompletionMin *float64   `json:"average_task_completion_time"`
	FocusTimeMinutes     int        `json:"focus_time_minutes"`
	LastUpdated          *time.Time `json:"last_updated"`
}

type UserStreak struct {
	UserID           int64      `json:"user_id"`
	CurrentStreak    int        `json:"current_streak"`
	LongestStreak    int        `json:"longest_streak"`
	LastActivityDate *time.Time `json:"last_activity_date"`
	StreakStartDate  *time.Time `json:"streak_start_date"`
	UpdatedAt        *time.Time `json:"updated_at"`
}

type Notification struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	Type              string    `json:"type"`
	Title             string    `json:"title"`
	Content           string    `json:"content"`
	RelatedEntityType *string   `json:"related_entity_type"`
	RelatedEntityID   *int64    `json:"related_entity_id"`
	Read              bool      `json:"read"`
	CreatedAt         time.Time `json:"created_at"`
}

type LeaderboardEntry struct {
	UserID         int64  `json:"user_id"`
	Username       string `json:"username"`
	Points         int    `json:"points"`
	Level          int    `json:"level"`
	TasksCompleted int    `json:"tasks_completed"`
	CurrentStreak  int    `json:"current_streak"`
	LongestStreak  int    `json:"longest_streak"`
}
