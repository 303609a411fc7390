package priority

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mukkelmaus/Flox/internal/models"
)

func timePtr(t time.Time) *time.Time { return &t }
func floatPtr(f float64) *float64    { return &f }
func intPtr(i int) *int              { return &i }

func TestPrioritizeEmptyInput(t *testing.T) {
	got := Prioritize(nil, time.Now())
	assert.Empty(t, got)

	got = Prioritize([]models.Task{}, time.Now())
	assert.Empty(t, got)
}

func TestPrioritizeOverdueUrgentBeatsDistantLow(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	overdue := models.Task{
		ID:       1,
		Priority: models.PriorityUrgent,
		DueDate:  timePtr(now.Add(-48 * time.Hour)),
	}
	distant := models.Task{
		ID:       2,
		Priority: models.PriorityLow,
		DueDate:  timePtr(now.Add(30 * 24 * time.Hour)),
	}

	got := Prioritize([]models.Task{distant, overdue}, now)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].Task.ID)
	assert.Equal(t, int64(2), got[1].Task.ID)

	// overdue(100) + urgent(100); no AI fields.
	assert.Equal(t, 200.0, got[0].Score)
	// 30 days out: 30 - 30*0.5 = 15, plus low priority 25.
	assert.Equal(t, 40.0, got[1].Score)
}

func TestPrioritizeDueDateTiers(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		due  *time.Time
		want float64
	}{
		{"no due date", nil, 0},
		{"overdue", timePtr(now.Add(-time.Hour)), 100},
		{"due later today", timePtr(now.Add(6 * time.Hour)), 80},
		{"due in two days", timePtr(now.Add(2 * 24 * time.Hour)), 60},
		{"due in a week", timePtr(now.Add(7 * 24 * time.Hour)), 40},
		{"due in 20 days", timePtr(now.Add(20 * 24 * time.Hour)), 20},
		{"due in 60+ days", timePtr(now.Add(90 * 24 * time.Hour)), 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, duePoints(tc.due, now))
		})
	}
}

func TestPrioritizePriorityLevels(t *testing.T) {
	assert.Equal(t, 100.0, priorityPoints(models.PriorityUrgent))
	assert.Equal(t, 75.0, priorityPoints(models.PriorityHigh))
	assert.Equal(t, 50.0, priorityPoints(models.PriorityMedium))
	assert.Equal(t, 25.0, priorityPoints(models.PriorityLow))
}

func TestPrioritizeAIComponents(t *testing.T) {
	now := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	task := models.Task{
		Priority:          models.PriorityMedium,
		AIComplexityScore: floatPtr(4.5),
		AIEnergyLevel:     models.EnergyMedium,
	}
	got := Prioritize([]models.Task{task}, now)
	require.Len(t, got, 1)
	// medium(50) + complexity(4.5*20=90) + medium energy(10).
	assert.Equal(t, 150.0, got[0].Score)
}

func TestPrioritizeMissingFieldsDegradeToZero(t *testing.T) {
	now := time.Now()
	task := models.Task{Priority: models.PriorityLow}
	got := Prioritize([]models.Task{task}, now)
	require.Len(t, got, 1)
	assert.Equal(t, 25.0, got[0].Score)
}

func TestPrioritizeStableOrderOnTies(t *testing.T) {
	now := time.Now()
	a := models.Task{ID: 10, Priority: models.PriorityHigh}
	b := models.Task{ID: 20, Priority: models.PriorityHigh}

	got := Prioritize([]models.Task{a, b}, now)
	require.Len(t, got, 2)
	assert.Equal(t, int64(10), got[0].Task.ID)
	assert.Equal(t, int64(20), got[1].Task.ID)
}

func TestPrioritizeDoesNotMutateInput(t *testing.T) {
	now := time.Now()
	tasks := []models.Task{
		{ID: 1, Priority: models.PriorityLow},
		{ID: 2, Priority: models.PriorityUrgent},
	}
	_ = Prioritize(tasks, now)
	assert.Equal(t, int64(1), tasks[0].ID)
	assert.Equal(t, int64(2), tasks[1].ID)
}
