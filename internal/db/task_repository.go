package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/chepyr/study-planner/internal/models"
	"github.com/google/uuid"
)

const taskColumns = `id, owner_id, title, description, is_completed, due_date, xp,
 priority, tags, sort_order, created_at, updated_at`

type TaskRepository struct {
	db dbtx
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// WithTx returns a copy of the repository that runs its queries inside tx.
func (r *TaskRepository) WithTx(tx *sql.Tx) *TaskRepository {
	return &TaskRepository{db: tx}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	err := row.Scan(
		&task.ID, &task.OwnerID, &task.Title, &task.Description, &task.IsCompleted,
		&task.DueDate, &task.XP, &task.Priority, &task.Tags, &task.Order,
		&task.CreatedAt, &task.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `INSERT INTO tasks (` + taskColumns + `)
	 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(
		ctx, query, task.ID, task.OwnerID, task.Title, task.Description, task.IsCompleted,
		task.DueDate, task.XP, string(task.Priority), task.Tags, task.Order,
		task.CreatedAt, task.UpdatedAt)
	return err
}

func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return scanTask(r.db.QueryRowContext(ctx, query, id))
}

func (r *TaskRepository) GetByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND owner_id = $2`
	return scanTask(r.db.QueryRowContext(ctx, query, id, ownerID))
}

// ListByOwner returns the owner's tasks by ascending order. Tasks without an
// order come last; ties keep creation order.
func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = $1
	 ORDER BY CASE WHEN sort_order IS NULL THEN 1 ELSE 0 END, sort_order, created_at, id`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []*models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update persists the user-editable fields. Owner, xp, completion and order
// are never written here.
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `UPDATE tasks SET title = $1, description = $2, due_date = $3, priority = $4,
	 tags = $5, updated_at = $6 WHERE id = $7`
	res, err := r.db.ExecContext(ctx, query, task.Title, task.Description, task.DueDate,
		string(task.Priority), task.Tags, task.UpdatedAt, task.ID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// UpdateOrder sets the order of the task only if it belongs to ownerID.
func (r *TaskRepository) UpdateOrder(ctx context.Context, id, ownerID uuid.UUID, order int, now time.Time) (*models.Task, error) {
	query := `UPDATE tasks SET sort_order = $1, updated_at = $2 WHERE id = $3 AND owner_id = $4`
	res, err := r.db.ExecContext(ctx, query, order, now, id, ownerID)
	if err != nil {
		return nil, err
	}
	if err := expectOneRow(res); err != nil {
		return nil, err
	}
	return r.GetByIDAndOwner(ctx, id, ownerID)
}

// MarkCompleted flips is_completed from false to true. It reports false when
// the task was already completed, so only one caller ever wins the flip.
func (r *TaskRepository) MarkCompleted(ctx context.Context, id, ownerID uuid.UUID, now time.Time) (bool, error) {
	query := `UPDATE tasks SET is_completed = TRUE, updated_at = $1
	 WHERE id = $2 AND owner_id = $3 AND is_completed = FALSE`
	res, err := r.db.ExecContext(ctx, query, now, id, ownerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
