package gamification

import (
	"time"

	"github.com/mukkelmaus/Flox/internal/models"
)

// UnlockedAchievement is the notification payload for a fresh unlock.
type UnlockedAchievement struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	Icon        string `json:"icon,omitempty"`
}

// ProgressUpdate reports strict forward progress on a still-locked
// achievement.
type ProgressUpdate struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Progress float64 `json:"progress"`
	Current  int     `json:"current"`
	Target   int     `json:"target"`
}

// EvalResult carries everything the caller needs to persist and announce:
// the new progress records, the fresh unlocks, the forward-progress updates
// and the points earned by the unlocks.
type EvalResult struct {
	Records       []models.UserAchievement
	Unlocked      []UnlockedAchievement
	Updated       []ProgressUpdate
	PointsAwarded int
}

// EvaluateAchievements recomputes progress for every achievement against the
// user's stats and diffs it with the stored records.
//
// An unlock happens at most once: records that already carry unlocked_at are
// never unlocked or reported again, so re-evaluating with unchanged stats
// yields empty Unlocked and Updated lists. The function is pure; the caller
// persists Records and applies PointsAwarded under its own per-user
// serialization.
func EvaluateAchievements(stats models.UserStats, achievements []models.Achievement, records []models.UserAchievement, now time.Time) EvalResult {
	prior := make(map[int64]models.UserAchievement, len(records))
	for _, r := range records {
		prior[r.AchievementID] = r
	}

	var res EvalResult
	for _, a := range achievements {
		progress, current := achievementProgress(stats, a)

		rec, exists := prior[a.ID]
		previousProgress := 0.0
		previouslyUnlocked := false
		if exists {
			previousProgress = rec.Progress
			previouslyUnlocked = rec.UnlockedAt != nil
		} else {
			rec = models.UserAchievement{
				UserID:        stats.UserID,
				AchievementID: a.ID,
			}
		}

		rec.Progress = progress
		rec.Current = current
		rec.Target = a.RequirementValue

		switch {
		case !previouslyUnlocked && progress >= 1.0:
			unlockedAt := now
			rec.UnlockedAt = &unlockedAt
			res.Unlocked = append(res.Unlocked, UnlockedAchievement{
				ID:          a.ID,
				Name:        a.Name,
				Description: a.Description,
				Points:      a.Points,
				Icon:        a.Icon,
			})
			res.PointsAwarded += a.Points
		case !previouslyUnlocked && progress > previousProgress && progress > 0:
			res.Updated = append(res.Updated, ProgressUpdate{
				ID:       a.ID,
				Name:     a.Name,
				Progress: progress,
				Current:  current,
				Target:   a.RequirementValue,
			})
		}

		res.Records = append(res.Records, rec)
	}
	return res
}

// achievementProgress maps stats onto one achievement's requirement and
// returns the clamped ratio plus the raw counter backing it. A zero
// requirement value can never be satisfied, and an unknown requirement type
// contributes nothing; neither is an error here. Catalog validation happens
// at load time.
func achievementProgress(stats models.UserStats, a models.Achievement) (float64, int) {
	if a.RequirementValue <= 0 {
		return 0, 0
	}

	switch a.RequirementType {
	case models.RequirementTaskCount:
		return clampRatio(float64(stats.TasksCompleted) / float64(a.RequirementValue)), stats.TasksCompleted
	case models.RequirementStreak:
		return clampRatio(float64(stats.LongestStreak) / float64(a.RequirementValue)), stats.LongestStreak
	case models.RequirementOnTimeCompletion:
		if stats.TasksCompleted == 0 {
			return 0, 0
		}
		onTimeRate := float64(stats.TasksCompletedOnTime) / float64(stats.TasksCompleted)
		targetRate := float64(a.RequirementValue) / 100
		return clampRatio(onTimeRate / targetRate), stats.TasksCompletedOnTime
	case models.RequirementFocusTime:
		return clampRatio(float64(stats.FocusTimeMinutes) / float64(a.RequirementValue)), stats.FocusTimeMinutes
	default:
		return 0, 0
	}
}

func clampRatio(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
