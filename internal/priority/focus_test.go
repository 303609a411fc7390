package priority

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mukkelmaus/Flox/internal/models"
)

func TestSelectFocusSessionEmpty(t *testing.T) {
	session := SelectFocusSession(nil, FocusOptions{}, time.Now())
	assert.Nil(t, session.CurrentTask)
	assert.Empty(t, session.NextTasks)
	assert.Equal(t, 0, session.EstimatedTotalMinutes)
}

func TestSelectFocusSessionSingleTask(t *testing.T) {
	task := models.Task{ID: 1, Priority: models.PriorityMedium, EstimatedMinutes: intPtr(30)}
	session := SelectFocusSession([]models.Task{task}, FocusOptions{}, time.Now())

	require.NotNil(t, session.CurrentTask)
	assert.Equal(t, int64(1), session.CurrentTask.Task.ID)
	assert.Empty(t, session.NextTasks)
	assert.Equal(t, 30, session.EstimatedTotalMinutes)
}

func TestSelectFocusSessionCapsNextTasks(t *testing.T) {
	var tasks []models.Task
	for i := 1; i <= 8; i++ {
		tasks = append(tasks, models.Task{ID: int64(i), Priority: models.PriorityMedium})
	}
	session := SelectFocusSession(tasks, FocusOptions{}, time.Now())

	require.NotNil(t, session.CurrentTask)
	assert.Len(t, session.NextTasks, 4)
}

func TestFocusDueDateTiers(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 25.0, focusDuePoints(nil, now))
	// Overdue is floored at "due within 0 hours", not boosted further.
	assert.Equal(t, 100.0, focusDuePoints(timePtr(now.Add(-50*time.Hour)), now))
	assert.Equal(t, 100.0, focusDuePoints(timePtr(now.Add(12*time.Hour)), now))
	assert.Equal(t, 75.0, focusDuePoints(timePtr(now.Add(48*time.Hour)), now))
	assert.Equal(t, 50.0, focusDuePoints(timePtr(now.Add(200*time.Hour)), now))
}

func TestFocusEnergyMatching(t *testing.T) {
	// Exact match.
	assert.Equal(t, 50.0, energyMatchPoints(models.EnergyMedium, 3))
	// Off by one.
	assert.Equal(t, 25.0, energyMatchPoints(models.EnergyMedium, 2))
	assert.Equal(t, 25.0, energyMatchPoints(models.EnergyMedium, 4))
	// Large mismatch.
	assert.Equal(t, 10.0, energyMatchPoints(models.EnergyLow, 5))
	assert.Equal(t, 10.0, energyMatchPoints(models.EnergyHigh, 1))
}

func TestFocusEnergyComponentSkippedWhenMissing(t *testing.T) {
	now := time.Now()
	noLevel := models.Task{Priority: models.PriorityLow}
	withLevel := models.Task{Priority: models.PriorityLow, AIEnergyLevel: models.EnergyHigh}

	energy := 5
	opts := FocusOptions{EnergyLevel: &energy}

	// No task energy level: no due date (25) + low (25).
	assert.Equal(t, 50.0, suitabilityScore(noLevel, opts, now))
	// Exact match adds 50.
	assert.Equal(t, 100.0, suitabilityScore(withLevel, opts, now))
	// No requested level: component skipped even though the task has one.
	assert.Equal(t, 50.0, suitabilityScore(withLevel, FocusOptions{}, now))
}

func TestFocusTimeFit(t *testing.T) {
	// Task does not fit: flat penalty.
	assert.Equal(t, -25.0, timeFitPoints(90, 30))
	// Task fits: reward proportional to how much of the window it uses.
	assert.Equal(t, 25.0, timeFitPoints(15, 30))
	assert.Equal(t, 50.0, timeFitPoints(30, 30))
}

func TestFocusOversizedTaskIsPenalized(t *testing.T) {
	now := time.Now()
	task := models.Task{Priority: models.PriorityLow, EstimatedMinutes: intPtr(240)}
	avail := 20
	// no due (25) + low (25) - 25 penalty = 25.
	score := suitabilityScore(task, FocusOptions{TimeAvailableMinutes: &avail}, now)
	assert.Equal(t, 25.0, score)

	session := SelectFocusSession([]models.Task{task}, FocusOptions{TimeAvailableMinutes: &avail}, now)
	require.NotNil(t, session.CurrentTask)
	assert.Equal(t, 25.0, session.CurrentTask.Score)
}

func TestFocusSessionOrdering(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	avail := 60

	urgent := models.Task{
		ID:               1,
		Priority:         models.PriorityUrgent,
		DueDate:          timePtr(now.Add(3 * time.Hour)),
		EstimatedMinutes: intPtr(60),
	}
	tooBig := models.Task{
		ID:               2,
		Priority:         models.PriorityHigh,
		EstimatedMinutes: intPtr(180),
	}
	quick := models.Task{
		ID:               3,
		Priority:         models.PriorityMedium,
		EstimatedMinutes: intPtr(20),
	}

	session := SelectFocusSession([]models.Task{tooBig, quick, urgent}, FocusOptions{TimeAvailableMinutes: &avail}, now)

	require.NotNil(t, session.CurrentTask)
	assert.Equal(t, int64(1), session.CurrentTask.Task.ID)
	// urgent: due ≤24h (100) + urgent (100) + perfect time fit (50) = 250.
	assert.Equal(t, 250.0, session.CurrentTask.Score)

	require.Len(t, session.NextTasks, 2)
	// quick: 25 + 50 + 50*(20/60) ≈ 91.67 beats tooBig: 25 + 75 - 25 = 75.
	assert.Equal(t, int64(3), session.NextTasks[0].Task.ID)
	assert.Equal(t, int64(2), session.NextTasks[1].Task.ID)

	assert.Equal(t, 260, session.EstimatedTotalMinutes)
}
