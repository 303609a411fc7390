package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mukkelmaus/Flox/internal/auth"
	"github.com/mukkelmaus/Flox/internal/cache"
	"github.com/mukkelmaus/Flox/internal/gamification"
	"github.com/mukkelmaus/Flox/internal/models"
	"github.com/mukkelmaus/Flox/internal/priority"
	"github.com/mukkelmaus/Flox/internal/repo"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAIUnavailable      = errors.New("ai assessment not configured")
)

// Notifier pushes real-time events to connected clients. Implementations must
// tolerate users with no open connection.
type Notifier interface {
	Push(userID int64, event string, payload any)
}

// Assessor produces the AI task assessment stored on a task.
type Assessor interface {
	AssessTask(ctx context.Context, title, description string) (models.TaskAssessment, error)
}

type Service struct {
	Repo     *repo.Repo
	Auth     *auth.Manager
	AI       Assessor     // nil disables assessment endpoints
	Notifier Notifier     // nil disables push
	Cache    *cache.Cache // nil-safe
}

func New(repository *repo.Repo, authManager *auth.Manager) *Service {
	return &Service{Repo: repository, Auth: authManager}
}

func (s *Service) Register(ctx context.Context, email, username, password string) (models.User, string, error) {
	hash, err := s.Auth.HashPassword(password)
	if err != nil {
		return models.User{}, "", err
	}
	user, err := s.Repo.CreateUser(ctx, email, username, hash)
	if err != nil {
		return models.User{}, "", err
	}
	if _, err := s.Repo.CreateWorkspace(ctx, "Personal", "personal", user.ID); err != nil {
		return models.User{}, "", err
	}
	token, err := s.Auth.GenerateToken(user.ID)
	if err != nil {
		return models.User{}, "", err
	}
	return user, token, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (models.User, string, error) {
	user, err := s.Repo.GetUserByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return models.User{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return models.User{}, "", err
	}
	if err := s.Auth.ComparePassword(user.PasswordHash, password); err != nil {
		return models.User{}, "", ErrInvalidCredentials
	}
	token, err := s.Auth.GenerateToken(user.ID)
	if err != nil {
		return models.User{}, "", err
	}
	return user, token, nil
}

// CompletionResult is everything a completion changed, for the API response
// and the real-time push.
type CompletionResult struct {
	Task            models.Task                        `json:"task"`
	AlreadyDone     bool                               `json:"already_done"`
	Stats           models.UserStats                   `json:"stats"`
	Streak          models.UserStreak                  `json:"streak"`
	StreakMilestone bool                               `json:"streak_milestone"`
	Unlocked        []gamification.UnlockedAchievement `json:"unlocked_achievements"`
	LeveledUp       bool                               `json:"leveled_up"`
}

// CompleteTask marks the task done and runs the whole gamification pipeline:
// stats bump, streak advance, achievement evaluation, point award, level
// recompute, notifications. Completing an already-done task changes nothing.
func (s *Service) CompleteTask(ctx context.Context, userID, taskID int64) (CompletionResult, error) {
	now := time.Now().UTC()
	task, completedNow, err := s.Repo.CompleteTask(ctx, userID, taskID, now)
	if err != nil {
		return CompletionResult{}, err
	}
	res := CompletionResult{Task: task}
	if !completedNow {
		res.AlreadyDone = true
		stats, err := s.Repo.GetOrCreateStats(ctx, userID)
		if err != nil {
			return CompletionResult{}, err
		}
		res.Stats = stats
		return res, nil
	}

	onTime := task.DueDate != nil && task.CompletedAt != nil && !task.CompletedAt.After(*task.DueDate)

	outcome, err := s.Repo.UpdateGamification(ctx, userID, func(state repo.GamificationState) (repo.GamificationOutcome, error) {
		stats := state.Stats
		stats.TasksCompleted++
		if onTime {
			stats.TasksCompletedOnTime++
		}

		streakRes := gamification.AdvanceStreak(state.Streak, now)
		stats.CurrentStreak = streakRes.Streak.CurrentStreak
		stats.LongestStreak = streakRes.Streak.LongestStreak

		eval := gamification.EvaluateAchievements(stats, state.Catalog, state.Records, now)
		var leveledUp bool
		if eval.PointsAwarded > 0 {
			stats.Points, stats.Level, leveledUp = gamification.AwardPoints(stats.Points, stats.Level, eval.PointsAwarded)
		}

		res.StreakMilestone = streakRes.Milestone
		res.Unlocked = eval.Unlocked
		res.LeveledUp = leveledUp

		out := repo.GamificationOutcome{
			Stats:   stats,
			Streak:  streakRes.Streak,
			Records: eval.Records,
		}
		if streakRes.Continued {
			notifType := "streak_continued"
			if streakRes.Milestone {
				notifType = "streak_milestone"
			}
			out.Notifications = append(out.Notifications, models.Notification{
				UserID: userID,
				Type:   notifType,
				Title:  fmt.Sprintf("%d day streak!", streakRes.Streak.CurrentStreak),
			})
		}
		for _, u := range eval.Unlocked {
			id := u.ID
			entity := "achievement"
			out.Notifications = append(out.Notifications, models.Notification{
				UserID:            userID,
				Type:              "achievement_unlocked",
				Title:             u.Name,
				Content:           u.Description,
				RelatedEntityType: &entity,
				RelatedEntityID:   &id,
			})
		}
		if leveledUp {
			out.Notifications = append(out.Notifications, models.Notification{
				UserID: userID,
				Type:   "level_up",
				Title:  fmt.Sprintf("Level %d reached", stats.Level),
			})
		}
		return out, nil
	})
	if err != nil {
		return CompletionResult{}, err
	}

	res.Stats = outcome.Stats
	res.Streak = outcome.Streak
	s.push(userID, outcome.Notifications)
	return res, nil
}

// RecordFocusTime adds completed focus minutes to the user's stats and
// re-evaluates focus-time achievements.
func (s *Service) RecordFocusTime(ctx context.Context, userID int64, minutes int) (models.UserStats, []gamification.UnlockedAchievement, error) {
	if minutes <= 0 {
		return models.UserStats{}, nil, errors.New("minutes must be positive")
	}
	now := time.Now().UTC()
	var unlocked []gamification.UnlockedAchievement

	outcome, err := s.Repo.UpdateGamification(ctx, userID, func(state repo.GamificationState) (repo.GamificationOutcome, error) {
		stats := state.Stats
		stats.FocusTimeMinutes += minutes

		eval := gamification.EvaluateAchievements(stats, state.Catalog, state.Records, now)
		if eval.PointsAwarded > 0 {
			stats.Points, stats.Level, _ = gamification.AwardPoints(stats.Points, stats.Level, eval.PointsAwarded)
		}
		unlocked = eval.Unlocked

		out := repo.GamificationOutcome{
			Stats:   stats,
			Streak:  state.Streak,
			Records: eval.Records,
		}
		for _, u := range eval.Unlocked {
			id := u.ID
			entity := "achievement"
			out.Notifications = append(out.Notifications, models.Notification{
				UserID:            userID,
				Type:              "achievement_unlocked",
				Title:             u.Name,
				Content:           u.Description,
				RelatedEntityType: &entity,
				RelatedEntityID:   &id,
			})
		}
		return out, nil
	})
	if err != nil {
		return models.UserStats{}, nil, err
	}
	s.push(userID, outcome.Notifications)
	return outcome.Stats, unlocked, nil
}

// PrioritizedTasks scores the user's open top-level tasks.
func (s *Service) PrioritizedTasks(ctx context.Context, userID int64) ([]priority.ScoredTask, error) {
	tasks, err := s.Repo.ListOpenTasks(ctx, userID)
	if err != nil {
		return nil, err
	}
	return priority.Prioritize(topLevel(tasks), time.Now().UTC()), nil
}

// FocusSession builds a focus session from the user's open top-level tasks
// that opted into focus mode.
func (s *Service) FocusSession(ctx context.Context, userID int64, opts priority.FocusOptions) (priority.FocusSession, error) {
	tasks, err := s.Repo.ListOpenTasks(ctx, userID)
	if err != nil {
		return priority.FocusSession{}, err
	}
	var candidates []models.Task
	for _, t := range topLevel(tasks) {
		if !t.FocusModeIncluded {
			continue
		}
		if opts.Context != nil && !hasTag(t.ContextTags, *opts.Context) {
			continue
		}
		candidates = append(candidates, t)
	}
	return priority.SelectFocusSession(candidates, opts, time.Now().UTC()), nil
}

func hasTag(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}

// AssessTask runs the AI assessment for a task and stores the result.
func (s *Service) AssessTask(ctx context.Context, userID, taskID int64) (models.Task, error) {
	if s.AI == nil {
		return models.Task{}, ErrAIUnavailable
	}
	task, err := s.Repo.GetTask(ctx, userID, taskID)
	if err != nil {
		return models.Task{}, err
	}
	assessment, err := s.AI.AssessTask(ctx, task.Title, task.Description)
	if err != nil {
		return models.Task{}, fmt.Errorf("assess task: %w", err)
	}
	if err := s.Repo.UpdateTaskAssessment(ctx, userID, taskID, assessment.ComplexityScore, assessment.EnergyLevel, assessment.SuggestionsJSON); err != nil {
		return models.Task{}, err
	}
	return s.Repo.GetTask(ctx, userID, taskID)
}

const leaderboardTTL = time.Minute

// Leaderboard reads the points ranking through the Redis cache. A cache miss
// or an unconfigured cache falls through to the database.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	key := fmt.Sprintf("leaderboard:%d", limit)
	var entries []models.LeaderboardEntry
	hit, err := s.Cache.Get(ctx, key, &entries)
	if err != nil {
		log.Printf("leaderboard cache get: %v", err)
	} else if hit {
		return entries, nil
	}
	entries, err = s.Repo.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}
	if err := s.Cache.Set(ctx, key, entries, leaderboardTTL); err != nil {
		log.Printf("leaderboard cache set: %v", err)
	}
	return entries, nil
}

func (s *Service) push(userID int64, notifications []models.Notification) {
	if s.Notifier == nil {
		return
	}
	for _, n := range notifications {
		s.Notifier.Push(userID, n.Type, n)
	}
}

func topLevel(tasks []models.Task) []models.Task {
	var out []models.Task
	for _, t := range tasks {
		if t.ParentID == nil {
			out = append(out, t)
		}
	}
	return out
}
