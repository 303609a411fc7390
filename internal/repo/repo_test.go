package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mukkelmaus/Flox/internal/db"
	"github.com/mukkelmaus/Flox/internal/models"
	"github.com/mukkelmaus/Flox/migrations"
)

func setupTestRepo(t *testing.T) (*Repo, func()) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	schema := fmt.Sprintf("test_%d", time.Now().UnixNano())
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
		return err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if _, err := pool.Exec(ctx, fmt.Sprintf("CREATE SCHEMA %s", schema)); err != nil {
		pool.Close()
		t.Fatalf("create schema: %v", err)
	}
	if err := db.RunMigrations(ctx, pool, migrations.FS); err != nil {
		pool.Close()
		t.Fatalf("migrate: %v", err)
	}
	repo := New(pool)
	return repo, func() {
		_, _ = pool.Exec(ctx, fmt.Sprintf("DROP SCHEMA %s CASCADE", schema))
		pool.Close()
	}
}

func createTestUser(t *testing.T, r *Repo, email, username string) models.User {
	t.Helper()
	u, err := r.CreateUser(context.Background(), email, username, "x")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := repo.CreateUser(ctx, "a@b.com", "alice", "x"); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := repo.CreateUser(ctx, "a@b.com", "alice2", "x"); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestCompleteTaskIdempotent(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	user := createTestUser(t, repo, "a@b.com", "alice")
	task, err := repo.CreateTask(ctx, models.Task{
		UserID: user.ID, Title: "Task", Status: models.StatusTodo, Priority: models.PriorityMedium,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	now := time.Now().UTC()
	done, completed, err := repo.CompleteTask(ctx, user.ID, task.ID, now)
	if err != nil || !completed {
		t.Fatalf("first complete failed: completed=%v err=%v", completed, err)
	}
	if done.Status != models.StatusDone || done.CompletedAt == nil {
		t.Fatalf("task not marked done: %+v", done)
	}

	_, completed, err = repo.CompleteTask(ctx, user.ID, task.ID, now.Add(time.Hour))
	if err != nil || completed {
		t.Fatalf("second complete should be noop: completed=%v err=%v", completed, err)
	}
	got, err := repo.GetTask(ctx, user.ID, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if !got.CompletedAt.Equal(now) {
		t.Fatalf("completed_at changed on repeat completion: %v != %v", got.CompletedAt, now)
	}
}

func TestCompleteTaskWrongUser(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	owner := createTestUser(t, repo, "a@b.com", "alice")
	other := createTestUser(t, repo, "c@d.com", "carol")
	task, err := repo.CreateTask(ctx, models.Task{
		UserID: owner.ID, Title: "Task", Status: models.StatusTodo, Priority: models.PriorityMedium,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	if _, _, err := repo.CompleteTask(ctx, other.ID, task.ID, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user, got %v", err)
	}
}

func TestSoftDeleteHidesTask(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	user := createTestUser(t, repo, "a@b.com", "alice")
	task, err := repo.CreateTask(ctx, models.Task{
		UserID: user.ID, Title: "Task", Status: models.StatusTodo, Priority: models.PriorityLow,
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := repo.DeleteTask(ctx, user.ID, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetTask(ctx, user.ID, task.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	open, err := repo.ListOpenTasks(ctx, user.ID)
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("deleted task still listed")
	}
}

func TestGetOrCreateStats(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	user := createTestUser(t, repo, "a@b.com", "alice")
	stats, err := repo.GetOrCreateStats(ctx, user.ID)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if stats.UserID != user.ID || stats.Level != 1 || stats.Points != 0 {
		t.Fatalf("unexpected fresh stats: %+v", stats)
	}

	// Second read returns the same row, not a new one.
	again, err := repo.GetOrCreateStats(ctx, user.ID)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if again.UserID != stats.UserID || again.Points != stats.Points || again.Level != stats.Level {
		t.Fatalf("stats changed between reads: %+v vs %+v", again, stats)
	}
}

func TestUpdateGamificationPersistsOutcome(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	user := createTestUser(t, repo, "a@b.com", "alice")
	out, err := repo.UpdateGamification(ctx, user.ID, func(state GamificationState) (GamificationOutcome, error) {
		if state.Stats.UserID != user.ID {
			t.Fatalf("state for wrong user: %+v", state.Stats)
		}
		// Seeded system achievements must be visible.
		if len(state.Catalog) == 0 {
			t.Fatal("expected seeded achievement catalog")
		}
		stats := state.Stats
		stats.Points = 60
		stats.Level = 1
		stats.TasksCompleted = 1
		streak := state.Streak
		streak.CurrentStreak = 1
		streak.LongestStreak = 1
		return GamificationOutcome{
			Stats:  stats,
			Streak: streak,
			Records: []models.UserAchievement{{
				UserID: user.ID, AchievementID: state.Catalog[0].ID, Progress: 1, Current: 1, Target: 1,
			}},
			Notifications: []models.Notification{{
				UserID: user.ID, Type: "achievement_unlocked", Title: "First Steps",
			}},
		}, nil
	})
	if err != nil {
		t.Fatalf("update gamification: %v", err)
	}
	if out.Stats.Points != 60 {
		t.Fatalf("outcome points = %d", out.Stats.Points)
	}

	stats, err := repo.GetOrCreateStats(ctx, user.ID)
	if err != nil {
		t.Fatalf("read stats: %v", err)
	}
	if stats.Points != 60 || stats.TasksCompleted != 1 {
		t.Fatalf("stats not persisted: %+v", stats)
	}
	streak, err := repo.GetOrCreateStreak(ctx, user.ID)
	if err != nil {
		t.Fatalf("read streak: %v", err)
	}
	if streak.CurrentStreak != 1 {
		t.Fatalf("streak not persisted: %+v", streak)
	}
	notifs, err := repo.ListNotifications(ctx, user.ID, true, 10)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(notifs) != 1 || notifs[0].Type != "achievement_unlocked" {
		t.Fatalf("notification not persisted: %+v", notifs)
	}
}

func TestUpdateGamificationRollbackOnError(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	user := createTestUser(t, repo, "a@b.com", "alice")
	wantErr := errors.New("boom")
	_, err := repo.UpdateGamification(ctx, user.ID, func(state GamificationState) (GamificationOutcome, error) {
		return GamificationOutcome{}, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected callback error, got %v", err)
	}
}

func TestLeaderboardOrdersByPoints(t *testing.T) {
	repo, cleanup := setupTestRepo(t)
	defer cleanup()
	ctx := context.Background()

	alice := createTestUser(t, repo, "a@b.com", "alice")
	bob := createTestUser(t, repo, "b@b.com", "bob")
	for _, seed := range []struct {
		userID int64
		points int
	}{{alice.ID, 100}, {bob.ID, 250}} {
		if _, err := repo.Pool.Exec(ctx, `INSERT INTO user_stats (user_id, points, level) VALUES ($1, $2, 1)`, seed.userID, seed.points); err != nil {
			t.Fatalf("seed stats: %v", err)
		}
	}

	entries, err := repo.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 2 || entries[0].Username != "bob" || entries[1].Username != "alice" {
		t.Fatalf("unexpected order: %+v", entries)
	}
}
