package priority

import (
	"sort"
	"time"

	"github.com/mukkelmaus/Flox/internal/models"
)

const maxNextTasks = 4

// FocusOptions describes the session the user is about to start. All fields
// are optional; a nil field simply removes the corresponding score component.
type FocusOptions struct {
	Context              *string
	TimeAvailableMinutes *int
	EnergyLevel          *int // self-reported, 1..5
}

// FocusSession is the selector's answer: one task to do now and up to four
// queued behind it. CurrentTask is nil when no eligible task exists, which is
// a valid state rather than an error.
type FocusSession struct {
	CurrentTask           *ScoredTask  `json:"current_task"`
	NextTasks             []ScoredTask `json:"next_tasks"`
	EstimatedTotalMinutes int          `json:"estimated_total_minutes"`
	Context               *string      `json:"context"`
	EnergyLevel           *int         `json:"energy_level"`
}

// SelectFocusSession ranks tasks by session suitability and picks the
// current task plus the next queue. The caller pre-filters to focus-eligible,
// unfinished tasks matching the requested context; this function only scores
// and selects.
func SelectFocusSession(tasks []models.Task, opts FocusOptions, now time.Time) FocusSession {
	scored := make([]ScoredTask, 0, len(tasks))
	for _, t := range tasks {
		scored = append(scored, ScoredTask{Task: t, Score: suitabilityScore(t, opts, now)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	session := FocusSession{
		NextTasks:   []ScoredTask{},
		Context:     opts.Context,
		EnergyLevel: opts.EnergyLevel,
	}
	if len(scored) == 0 {
		return session
	}

	session.CurrentTask = &scored[0]
	end := len(scored)
	if end > 1+maxNextTasks {
		end = 1 + maxNextTasks
	}
	session.NextTasks = scored[1:end]

	session.EstimatedTotalMinutes = estimateMinutes(session.CurrentTask.Task)
	for _, st := range session.NextTasks {
		session.EstimatedTotalMinutes += estimateMinutes(st.Task)
	}
	return session
}

// suitabilityScore weighs session fit rather than general urgency, so its
// scale differs from priorityScore on purpose.
func suitabilityScore(t models.Task, opts FocusOptions, now time.Time) float64 {
	score := focusDuePoints(t.DueDate, now) + priorityPoints(t.Priority)

	if opts.EnergyLevel != nil && t.AIEnergyLevel != models.EnergyNone {
		score += energyMatchPoints(t.AIEnergyLevel, *opts.EnergyLevel)
	}

	if opts.TimeAvailableMinutes != nil && t.EstimatedMinutes != nil {
		score += timeFitPoints(*t.EstimatedMinutes, *opts.TimeAvailableMinutes)
	}

	return score
}

// focusDuePoints floors overdue at "due within 0 hours": an overdue task gets
// the top tier but no extra urgency beyond it.
func focusDuePoints(due *time.Time, now time.Time) float64 {
	if due == nil {
		return 25
	}
	hours := due.Sub(now).Hours()
	if hours < 0 {
		hours = 0
	}
	switch {
	case hours <= 24:
		return 100
	case hours <= 72:
		return 75
	default:
		return 50
	}
}

func energyMatchPoints(level models.EnergyLevel, requested int) float64 {
	taskEnergy := 3
	switch level {
	case models.EnergyLow:
		taskEnergy = 1
	case models.EnergyMedium:
		taskEnergy = 3
	case models.EnergyHigh:
		taskEnergy = 5
	}
	diff := taskEnergy - requested
	if diff < 0 {
		diff = -diff
	}
	switch diff {
	case 0:
		return 50
	case 1:
		return 25
	default:
		return 10
	}
}

// timeFitPoints rewards tasks that use the available window efficiently and
// penalizes tasks that will not fit at all. The penalty can push the total
// score negative, which just ranks the task last.
func timeFitPoints(estimated, available int) float64 {
	if available <= 0 {
		return -25
	}
	if estimated <= available {
		return 50 * float64(estimated) / float64(available)
	}
	return -25
}

func estimateMinutes(t models.Task) int {
	if t.EstimatedMinutes == nil {
		return 0
	}
	return *t.EstimatedMinutes
}
