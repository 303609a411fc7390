package gamification

import (
	"time"

	"github.com/mukkelmaus/Flox/internal/models"
)

// milestoneStreaks are the streak lengths worth celebrating.
var milestoneStreaks = map[int]bool{
	3: true, 7: true, 14: true, 30: true, 60: true, 90: true, 180: true, 365: true,
}

// StreakResult is the outcome of one activity event. Continued is true only
// when the current streak grew past its previous value, matching when a
// streak notification is worth sending. Same-day repeats and resets after a
// gap leave it false.
type StreakResult struct {
	Streak    models.UserStreak
	Continued bool
	Milestone bool
}

// AdvanceStreak applies one "activity recorded now" event to a streak.
//
// Day comparison is by calendar date, not elapsed time: activity at 23:59
// followed by 00:01 the next day counts as consecutive days. A gap of two or
// more calendar days resets the current streak; the longest streak is a
// high-water mark and never decreases.
//
// The function is pure. Persisting the result and serializing concurrent
// events for the same user is the caller's job.
func AdvanceStreak(s models.UserStreak, now time.Time) StreakResult {
	res := StreakResult{Streak: s}

	if s.LastActivityDate == nil {
		res.Streak.CurrentStreak = 1
		if res.Streak.LongestStreak < 1 {
			res.Streak.LongestStreak = 1
		}
		res.Streak.LastActivityDate = &now
		res.Streak.StreakStartDate = &now
	} else {
		switch calendarDaysBetween(*s.LastActivityDate, now) {
		case 0:
			// Activity already recorded today; calling again must not
			// double-increment.
		case 1:
			res.Streak.CurrentStreak = s.CurrentStreak + 1
			if res.Streak.CurrentStreak > res.Streak.LongestStreak {
				res.Streak.LongestStreak = res.Streak.CurrentStreak
			}
			res.Streak.LastActivityDate = &now
		default:
			res.Streak.CurrentStreak = 1
			res.Streak.LastActivityDate = &now
			res.Streak.StreakStartDate = &now
		}
	}

	res.Streak.UpdatedAt = &now
	res.Continued = res.Streak.CurrentStreak > s.CurrentStreak
	res.Milestone = res.Continued && milestoneStreaks[res.Streak.CurrentStreak]
	return res
}

// calendarDaysBetween returns the number of calendar dates crossed between a
// and b, compared in b's location.
func calendarDaysBetween(a, b time.Time) int {
	loc := b.Location()
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
