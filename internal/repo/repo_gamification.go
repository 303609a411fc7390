package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mukkelmaus/Flox/internal/models"
)

const statsColumns = `user_id, points, level, tasks_completed, tasks_completed_on_time,
	current_streak, longest_streak, average_completion_min, focus_time_minutes, last_updated`

func scanStats(row pgx.Row) (models.UserStats, error) {
	var s models.UserStats
	err := row.Scan(&s.UserID, &s.Points, &s.Level, &s.TasksCompleted, &s.TasksCompletedOnTime,
		&s.CurrentStreak, &s.LongestStreak, &s.AverageCompletionMin, &s.FocusTimeMinutes, &s.LastUpdated)
	return s, err
}

// GamificationState is the per-user snapshot handed to the update callback,
// read under a row lock on user_stats.
type GamificationState struct {
	Stats   models.UserStats
	Streak  models.UserStreak
	Catalog []models.Achievement
	Records []models.UserAchievement
}

// GamificationOutcome is what the callback wants persisted.
type GamificationOutcome struct {
	Stats         models.UserStats
	Streak        models.UserStreak
	Records       []models.UserAchievement
	Notifications []models.Notification
}

// UpdateGamification runs apply against the user's current gamification state
// inside one transaction. The SELECT FOR UPDATE on user_stats serializes
// concurrent completions for the same user, so the callback sees a consistent
// snapshot and lost updates cannot happen.
func (r *Repo) UpdateGamification(ctx context.Context, userID int64, apply func(GamificationState) (GamificationOutcome, error)) (GamificationOutcome, error) {
	var out GamificationOutcome
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return out, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `INSERT INTO user_stats (user_id, level) VALUES ($1, 1) ON CONFLICT DO NOTHING`, userID); err != nil {
		return out, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO user_streaks (user_id) VALUES ($1) ON CONFLICT DO NOTHING`, userID); err != nil {
		return out, err
	}

	var state GamificationState
	state.Stats, err = scanStats(tx.QueryRow(ctx, `SELECT `+statsColumns+` FROM user_stats WHERE user_id=$1 FOR UPDATE`, userID))
	if err != nil {
		return out, err
	}
	err = tx.QueryRow(ctx, `SELECT user_id, current_streak, longest_streak, last_activity_date, streak_start_date, updated_at
		FROM user_streaks WHERE user_id=$1`, userID).Scan(
		&state.Streak.UserID, &state.Streak.CurrentStreak, &state.Streak.LongestStreak,
		&state.Streak.LastActivityDate, &state.Streak.StreakStartDate, &state.Streak.UpdatedAt)
	if err != nil {
		return out, err
	}

	catalogRows, err := tx.Query(ctx, `SELECT id, name, description, icon, points, requirement_type, requirement_value, level, is_system, workspace_id, created_at
		FROM achievements
		WHERE is_system OR workspace_id IN (SELECT workspace_id FROM workspace_members WHERE user_id=$1)
		ORDER BY id`, userID)
	if err != nil {
		return out, err
	}
	for catalogRows.Next() {
		var a models.Achievement
		if err := catalogRows.Scan(&a.ID, &a.Name, &a.Description, &a.Icon, &a.Points, &a.RequirementType,
			&a.RequirementValue, &a.Level, &a.IsSystem, &a.WorkspaceID, &a.CreatedAt); err != nil {
			catalogRows.Close()
			return out, err
		}
		state.Catalog = append(state.Catalog, a)
	}
	catalogRows.Close()
	if err := catalogRows.Err(); err != nil {
		return out, err
	}

	recordRows, err := tx.Query(ctx, `SELECT id, user_id, achievement_id, progress, unlocked_at, current, target
		FROM user_achievements WHERE user_id=$1`, userID)
	if err != nil {
		return out, err
	}
	for recordRows.Next() {
		var ua models.UserAchievement
		if err := recordRows.Scan(&ua.ID, &ua.UserID, &ua.AchievementID, &ua.Progress, &ua.UnlockedAt, &ua.Current, &ua.Target); err != nil {
			recordRows.Close()
			return out, err
		}
		state.Records = append(state.Records, ua)
	}
	recordRows.Close()
	if err := recordRows.Err(); err != nil {
		return out, err
	}

	out, err = apply(state)
	if err != nil {
		return GamificationOutcome{}, err
	}

	_, err = tx.Exec(ctx, `UPDATE user_stats SET points=$2, level=$3, tasks_completed=$4, tasks_completed_on_time=$5,
		current_streak=$6, longest_streak=$7, average_completion_min=$8, focus_time_minutes=$9, last_updated=now()
		WHERE user_id=$1`,
		userID, out.Stats.Points, out.Stats.Level, out.Stats.TasksCompleted, out.Stats.TasksCompletedOnTime,
		out.Stats.CurrentStreak, out.Stats.LongestStreak, out.Stats.AverageCompletionMin, out.Stats.FocusTimeMinutes)
	if err != nil {
		return GamificationOutcome{}, err
	}
	_, err = tx.Exec(ctx, `UPDATE user_streaks SET current_streak=$2, longest_streak=$3, last_activity_date=$4,
		streak_start_date=$5, updated_at=now() WHERE user_id=$1`,
		userID, out.Streak.CurrentStreak, out.Streak.LongestStreak, out.Streak.LastActivityDate, out.Streak.StreakStartDate)
	if err != nil {
		return GamificationOutcome{}, err
	}
	for _, rec := range out.Records {
		_, err = tx.Exec(ctx, `INSERT INTO user_achievements (user_id, achievement_id, progress, unlocked_at, current, target)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (user_id, achievement_id)
			DO UPDATE SET progress=EXCLUDED.progress, unlocked_at=EXCLUDED.unlocked_at, current=EXCLUDED.current, target=EXCLUDED.target`,
			rec.UserID, rec.AchievementID, rec.Progress, rec.UnlockedAt, rec.Current, rec.Target)
		if err != nil {
			return GamificationOutcome{}, err
		}
	}
	for _, n := range out.Notifications {
		_, err = tx.Exec(ctx, `INSERT INTO notifications (user_id, type, title, content, related_entity_type, related_entity_id)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			n.UserID, n.Type, n.Title, n.Content, n.RelatedEntityType, n.RelatedEntityID)
		if err != nil {
			return GamificationOutcome{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return GamificationOutcome{}, err
	}
	return out, nil
}

// GetOrCreateStats reads the user's stats row, creating a zeroed one on first
// access.
func (r *Repo) GetOrCreateStats(ctx context.Context, userID int64) (models.UserStats, error) {
	s, err := scanStats(r.Pool.QueryRow(ctx, `SELECT `+statsColumns+` FROM user_stats WHERE user_id=$1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, err := r.Pool.Exec(ctx, `INSERT INTO user_stats (user_id, level) VALUES ($1, 1) ON CONFLICT DO NOTHING`, userID); err != nil {
			return models.UserStats{}, err
		}
		return scanStats(r.Pool.QueryRow(ctx, `SELECT `+statsColumns+` FROM user_stats WHERE user_id=$1`, userID))
	}
	return s, err
}

func (r *Repo) GetOrCreateStreak(ctx context.Context, userID int64) (models.UserStreak, error) {
	var s models.UserStreak
	scan := func() error {
		return r.Pool.QueryRow(ctx, `SELECT user_id, current_streak, longest_streak, last_activity_date, streak_start_date, updated_at
			FROM user_streaks WHERE user_id=$1`, userID).Scan(
			&s.UserID, &s.CurrentStreak, &s.LongestStreak, &s.LastActivityDate, &s.StreakStartDate, &s.UpdatedAt)
	}
	err := scan()
	if errors.Is(err, pgx.ErrNoRows) {
		if _, err := r.Pool.Exec(ctx, `INSERT INTO user_streaks (user_id) VALUES ($1) ON CONFLICT DO NOTHING`, userID); err != nil {
			return models.UserStreak{}, err
		}
		err = scan()
	}
	return s, err
}

// ListUserAchievements returns every achievement visible to the user together
// with the user's progress record, zeroed where none exists yet.
func (r *Repo) ListUserAchievements(ctx context.Context, userID int64) ([]models.Achievement, []models.UserAchievement, error) {
	rows, err := r.Pool.Query(ctx, `SELECT a.id, a.name, a.description, a.icon, a.points, a.requirement_type, a.requirement_value,
		a.level, a.is_system, a.workspace_id, a.created_at,
		COALESCE(ua.progress, 0), ua.unlocked_at, COALESCE(ua.current, 0), COALESCE(ua.target, a.requirement_value)
		FROM achievements a
		LEFT JOIN user_achievements ua ON ua.achievement_id = a.id AND ua.user_id = $1
		WHERE a.is_system OR a.workspace_id IN (SELECT workspace_id FROM workspace_members WHERE user_id=$1)
		ORDER BY a.level, a.id`, userID)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var catalog []models.Achievement
	var records []models.UserAchievement
	for rows.Next() {
		var a models.Achievement
		var ua models.UserAchievement
		if err := rows.Scan(&a.ID, &a.Name, &a.Description, &a.Icon, &a.Points, &a.RequirementType, &a.RequirementValue,
			&a.Level, &a.IsSystem, &a.WorkspaceID, &a.CreatedAt,
			&ua.Progress, &ua.UnlockedAt, &ua.Current, &ua.Target); err != nil {
			return nil, nil, err
		}
		ua.UserID = userID
		ua.AchievementID = a.ID
		catalog = append(catalog, a)
		records = append(records, ua)
	}
	return catalog, records, rows.Err()
}

func (r *Repo) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := r.Pool.Query(ctx, `SELECT s.user_id, u.username, s.points, s.level, s.tasks_completed, s.current_streak, s.longest_streak
		FROM user_stats s JOIN users u ON u.id = s.user_id
		ORDER BY s.points DESC, s.user_id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Username, &e.Points, &e.Level, &e.TasksCompleted, &e.CurrentStreak, &e.LongestStreak); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repo) CreateNotification(ctx context.Context, n models.Notification) (models.Notification, error) {
	err := r.Pool.QueryRow(ctx, `INSERT INTO notifications (user_id, type, title, content, related_entity_type, related_entity_id)
		VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at`,
		n.UserID, n.Type, n.Title, n.Content, n.RelatedEntityType, n.RelatedEntityID).Scan(&n.ID, &n.CreatedAt)
	return n, err
}

func (r *Repo) ListNotifications(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]models.Notification, error) {
	query := `SELECT id, user_id, type, title, content, related_entity_type, related_entity_id, read, created_at
		FROM notifications WHERE user_id=$1`
	if unreadOnly {
		query += ` AND read = false`
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT $2`
	rows, err := r.Pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Content, &n.RelatedEntityType, &n.RelatedEntityID, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *Repo) MarkNotificationRead(ctx context.Context, userID, notificationID int64) error {
	cmd, err := r.Pool.Exec(ctx, `UPDATE notifications SET read=true WHERE id=$1 AND user_id=$2`, notificationID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
