package gamification

// levelThresholds maps cumulative points to levels: reaching thresholds[i]
// puts the user at level i+1.
var levelThresholds = []int{0, 100, 300, 600, 1000, 1500, 2500, 4000, 6000, 10000}

// LevelForPoints returns the level a point total corresponds to. Levels start
// at 1 and only ever go up as points accumulate.
func LevelForPoints(points int) int {
	level := 1
	for i, threshold := range levelThresholds {
		if points >= threshold {
			level = i + 1
		}
	}
	return level
}

// AwardPoints adds points to a running total and reports the resulting level
// and whether the award crossed a level boundary.
func AwardPoints(currentPoints, currentLevel, points int) (newPoints, newLevel int, leveledUp bool) {
	newPoints = currentPoints + points
	newLevel = LevelForPoints(newPoints)
	if newLevel < currentLevel {
		// Levels never go backwards, even if stored points were corrected.
		newLevel = currentLevel
	}
	return newPoints, newLevel, newLevel > currentLevel
}
