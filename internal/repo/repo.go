package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mukkelmaus/Flox/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

type Repo struct {
	Pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repo {
	return &Repo{Pool: pool}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *Repo) CreateUser(ctx context.Context, email, username, passwordHash string) (models.User, error) {
	var u models.User
	err := r.Pool.QueryRow(ctx, `INSERT INTO users (email, username, password_hash) VALUES ($1, $2, $3)
		RETURNING id, email, username, password_hash, created_at, updated_at`,
		email, username, passwordHash).Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return models.User{}, ErrDuplicate
	}
	return u, err
}

func (r *Repo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	err := r.Pool.QueryRow(ctx, `SELECT id, email, username, password_hash, created_at, updated_at FROM users WHERE email=$1`,
		email).Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	return u, err
}

func (r *Repo) GetUserByID(ctx context.Context, userID int64) (models.User, error) {
	var u models.User
	err := r.Pool.QueryRow(ctx, `SELECT id, email, username, password_hash, created_at, updated_at FROM users WHERE id=$1`,
		userID).Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	return u, err
}

func (r *Repo) CreateWorkspace(ctx context.Context, name, workspaceType string, ownerID int64) (models.Workspace, error) {
	var w models.Workspace
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return w, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `INSERT INTO workspaces (name, type) VALUES ($1, $2)
		RETURNING id, name, type, created_at, updated_at`,
		name, workspaceType).Scan(&w.ID, &w.Name, &w.Type, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return models.Workspace{}, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO workspace_members (workspace_id, user_id, role) VALUES ($1, $2, 'owner')`,
		w.ID, ownerID); err != nil {
		return models.Workspace{}, err
	}
	return w, tx.Commit(ctx)
}

func (r *Repo) AddWorkspaceMember(ctx context.Context, workspaceID, userID int64, role string) error {
	_, err := r.Pool.Exec(ctx, `INSERT INTO workspace_members (workspace_id, user_id, role) VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`, workspaceID, userID, role)
	return err
}

func (r *Repo) UserInWorkspace(ctx context.Context, userID, workspaceID int64) (bool, error) {
	var exists bool
	err := r.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM workspace_members WHERE workspace_id=$1 AND user_id=$2)`,
		workspaceID, userID).Scan(&exists)
	return exists, err
}

func (r *Repo) ListUserWorkspaces(ctx context.Context, userID int64) ([]models.Workspace, error) {
	rows, err := r.Pool.Query(ctx, `SELECT w.id, w.name, w.type, w.created_at, w.updated_at
		FROM workspaces w JOIN workspace_members m ON m.workspace_id = w.id
		WHERE m.user_id=$1 ORDER BY w.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Workspace
	for rows.Next() {
		var w models.Workspace
		if err := rows.Scan(&w.ID, &w.Name, &w.Type, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

const taskColumns = `id, user_id, workspace_id, parent_id, title, description, status, priority,
	due_date, start_date, completed_at, estimated_minutes, actual_minutes,
	ai_complexity_score, ai_energy_level, ai_suggestions, context_tags, focus_mode_included,
	created_at, updated_at, deleted_at`

func scanTask(row pgx.Row) (models.Task, error) {
	var t models.Task
	var energy *string
	err := row.Scan(&t.ID, &t.UserID, &t.WorkspaceID, &t.ParentID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.DueDate, &t.StartDate, &t.CompletedAt, &t.EstimatedMinutes, &t.ActualMinutes,
		&t.AIComplexityScore, &energy, &t.AISuggestions, &t.ContextTags, &t.FocusModeIncluded,
		&t.CreatedAt, &t.UpdatedAt, &t.DeletedAt)
	if err != nil {
		return models.Task{}, err
	}
	if energy != nil {
		t.AIEnergyLevel = models.EnergyLevel(*energy)
	}
	return t, nil
}

func (r *Repo) CreateTask(ctx context.Context, t models.Task) (models.Task, error) {
	var energy *string
	if t.AIEnergyLevel != models.EnergyNone {
		s := string(t.AIEnergyLevel)
		energy = &s
	}
	if t.ContextTags == nil {
		t.ContextTags = []string{}
	}
	row := r.Pool.QueryRow(ctx, `INSERT INTO tasks
		(user_id, workspace_id, parent_id, title, description, status, priority, due_date, start_date,
		 estimated_minutes, ai_complexity_score, ai_energy_level, ai_suggestions, context_tags, focus_mode_included)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING `+taskColumns,
		t.UserID, t.WorkspaceID, t.ParentID, t.Title, t.Description, t.Status, t.Priority, t.DueDate, t.StartDate,
		t.EstimatedMinutes, t.AIComplexityScore, energy, t.AISuggestions, t.ContextTags, t.FocusModeIncluded)
	return scanTask(row)
}

func (r *Repo) GetTask(ctx context.Context, userID, taskID int64) (models.Task, error) {
	row := r.Pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks
		WHERE id=$1 AND user_id=$2 AND deleted_at IS NULL`, taskID, userID)
	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Task{}, ErrNotFound
	}
	return t, err
}

// TaskFilter narrows ListTasks. Zero values mean "no constraint".
type TaskFilter struct {
	Status      models.TaskStatus
	WorkspaceID *int64
	Limit       int
}

func (r *Repo) ListTasks(ctx context.Context, userID int64, f TaskFilter) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id=$1 AND deleted_at IS NULL`
	args := []any{userID}
	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND status=$%d", len(args))
	}
	if f.WorkspaceID != nil {
		args = append(args, *f.WorkspaceID)
		query += fmt.Sprintf(" AND workspace_id=$%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListOpenTasks returns the user's non-completed tasks, the candidate set for
// prioritization and focus sessions.
func (r *Repo) ListOpenTasks(ctx context.Context, userID int64) ([]models.Task, error) {
	rows, err := r.Pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks
		WHERE user_id=$1 AND status != 'done' AND deleted_at IS NULL
		ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type TaskUpdate struct {
	Title             *string
	Description       *string
	Status            *models.TaskStatus
	Priority          *models.TaskPriority
	DueDate           *time.Time
	ClearDueDate      bool
	StartDate         *time.Time
	EstimatedMinutes  *int
	ContextTags       []string
	FocusModeIncluded *bool
}

func (r *Repo) UpdateTask(ctx context.Context, userID, taskID int64, u TaskUpdate) (models.Task, error) {
	row := r.Pool.QueryRow(ctx, `UPDATE tasks SET
		title = COALESCE($3, title),
		description = COALESCE($4, description),
		status = COALESCE($5, status),
		priority = COALESCE($6, priority),
		due_date = CASE WHEN $8 THEN NULL ELSE COALESCE($7, due_date) END,
		start_date = COALESCE($9, start_date),
		estimated_minutes = COALESCE($10, estimated_minutes),
		context_tags = COALESCE($11, context_tags),
		focus_mode_included = COALESCE($12, focus_mode_included),
		updated_at = now()
		WHERE id=$1 AND user_id=$2 AND deleted_at IS NULL
		RETURNING `+taskColumns,
		taskID, userID, u.Title, u.Description, u.Status, u.Priority, u.DueDate, u.ClearDueDate,
		u.StartDate, u.EstimatedMinutes, u.ContextTags, u.FocusModeIncluded)
	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Task{}, ErrNotFound
	}
	return t, err
}

func (r *Repo) UpdateTaskAssessment(ctx context.Context, userID, taskID int64, score float64, energy models.EnergyLevel, suggestions []byte) error {
	cmd, err := r.Pool.Exec(ctx, `UPDATE tasks SET ai_complexity_score=$3, ai_energy_level=$4, ai_suggestions=$5, updated_at=now()
		WHERE id=$1 AND user_id=$2 AND deleted_at IS NULL`,
		taskID, userID, score, string(energy), suggestions)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) DeleteTask(ctx context.Context, userID, taskID int64) error {
	cmd, err := r.Pool.Exec(ctx, `UPDATE tasks SET deleted_at=now(), updated_at=now()
		WHERE id=$1 AND user_id=$2 AND deleted_at IS NULL`, taskID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteTask marks a task done exactly once. The bool reports whether this
// call performed the transition; completing an already-done task is a no-op.
func (r *Repo) CompleteTask(ctx context.Context, userID, taskID int64, now time.Time) (models.Task, bool, error) {
	row := r.Pool.QueryRow(ctx, `UPDATE tasks SET status='done', completed_at=$3, updated_at=now()
		WHERE id=$1 AND user_id=$2 AND status != 'done' AND deleted_at IS NULL
		RETURNING `+taskColumns, taskID, userID, now)
	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, getErr := r.GetTask(ctx, userID, taskID)
		if getErr != nil {
			return models.Task{}, false, getErr
		}
		if existing.Status == models.StatusDone {
			return existing, false, nil
		}
		return models.Task{}, false, ErrNotFound
	}
	if err != nil {
		return models.Task{}, false, err
	}
	return t, true, nil
}

func (r *Repo) CreateSubTask(ctx context.Context, taskID int64, title string, position int) (models.SubTask, error) {
	var s models.SubTask
	err := r.Pool.QueryRow(ctx, `INSERT INTO subtasks (task_id, title, position) VALUES ($1, $2, $3)
		RETURNING id, task_id, title, is_completed, position, created_at, completed_at`,
		taskID, title, position).Scan(&s.ID, &s.TaskID, &s.Title, &s.IsCompleted, &s.Position, &s.CreatedAt, &s.CompletedAt)
	return s, err
}

func (r *Repo) ListSubTasks(ctx context.Context, taskID int64) ([]models.SubTask, error) {
	rows, err := r.Pool.Query(ctx, `SELECT id, task_id, title, is_completed, position, created_at, completed_at
		FROM subtasks WHERE task_id=$1 ORDER BY position, id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.SubTask
	for rows.Next() {
		var s models.SubTask
		if err := rows.Scan(&s.ID, &s.TaskID, &s.Title, &s.IsCompleted, &s.Position, &s.CreatedAt, &s.CompletedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) SetSubTaskCompleted(ctx context.Context, taskID, subTaskID int64, completed bool) error {
	cmd, err := r.Pool.Exec(ctx, `UPDATE subtasks SET is_completed=$3,
		completed_at=CASE WHEN $3 THEN now() ELSE NULL END
		WHERE id=$1 AND task_id=$2`, subTaskID, taskID, completed)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
