package priority

import (
	"math"
	"sort"
	"time"

	"github.com/mukkelmaus/Flox/internal/models"
)

// ScoredTask pairs a task with the score computed for it during one engine
// call. Scores are never stored on the task itself, so two engines with
// different scales cannot leak values into each other.
type ScoredTask struct {
	Task  models.Task `json:"task"`
	Score float64     `json:"score"`
}

// Prioritize scores every task and returns them ordered by descending
// priority score. The caller is expected to pass open, non-deleted, top-level
// tasks for a single user; no filtering happens here. Ties keep input order.
func Prioritize(tasks []models.Task, now time.Time) []ScoredTask {
	scored := make([]ScoredTask, 0, len(tasks))
	for _, t := range tasks {
		scored = append(scored, ScoredTask{Task: t, Score: priorityScore(t, now)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

func priorityScore(t models.Task, now time.Time) float64 {
	return duePoints(t.DueDate, now) +
		priorityPoints(t.Priority) +
		complexityPoints(t.AIComplexityScore) +
		energyPoints(t.AIEnergyLevel)
}

// duePoints implements the urgency tiers: overdue tasks dominate, then the
// contribution decays linearly and reaches zero at 60 days out.
func duePoints(due *time.Time, now time.Time) float64 {
	if due == nil {
		return 0
	}
	days := daysUntil(*due, now)
	switch {
	case days < 0:
		return 100
	case days == 0:
		return 80
	case days <= 2:
		return 60
	case days <= 7:
		return 40
	default:
		return math.Max(0, 30-float64(days)*0.5)
	}
}

func priorityPoints(p models.TaskPriority) float64 {
	switch p {
	case models.PriorityUrgent:
		return 100
	case models.PriorityHigh:
		return 75
	case models.PriorityMedium:
		return 50
	default:
		return 25
	}
}

func complexityPoints(score *float64) float64 {
	if score == nil {
		return 0
	}
	// AI complexity is on a 0-5 scale.
	return *score * 20
}

// energyPoints gives a flat boost to low-effort tasks. This deliberately does
// not match against a requested energy level; only the focus-mode selector
// does real energy matching.
func energyPoints(level models.EnergyLevel) float64 {
	switch level {
	case models.EnergyMedium:
		return 10
	case models.EnergyLow:
		return 5
	default:
		return 0
	}
}

// daysUntil counts whole days from now until t. Floor semantics: anything
// later today is 0 days away, and any due date already behind now is
// negative, i.e. overdue.
func daysUntil(t, now time.Time) int {
	return int(math.Floor(t.Sub(now).Hours() / 24))
}
