package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chepyr/study-planner/internal/models"
	"github.com/google/uuid"
)

// Store bundles the repositories with the operations that must span both
// tables in one transaction.
type Store struct {
	db    *sql.DB
	Tasks *TaskRepository
	Users *UserRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:    db,
		Tasks: NewTaskRepository(db),
		Users: NewUserRepository(db),
	}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CompleteTask marks the task completed and credits its xp to the owner in a
// single transaction. ErrAlreadyCompleted is returned when another caller
// completed the task first; nothing is credited in that case.
func (s *Store) CompleteTask(ctx context.Context, taskID, ownerID uuid.UUID, now time.Time) (*models.Task, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	tasks := s.Tasks.WithTx(tx)
	users := s.Users.WithTx(tx)

	flipped, err := tasks.MarkCompleted(ctx, taskID, ownerID, now)
	if err != nil {
		return nil, 0, fmt.Errorf("mark completed: %w", err)
	}
	if !flipped {
		return nil, 0, ErrAlreadyCompleted
	}
	task, err := tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, 0, fmt.Errorf("reload task: %w", err)
	}
	total, err := users.AddXP(ctx, ownerID, task.XP, now)
	if err != nil {
		return nil, 0, fmt.Errorf("credit xp: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit: %w", err)
	}
	return task, total, nil
}

// ReorderStrict applies every update or none of them. ErrNotFound is returned
// when any id is missing or owned by someone else.
func (s *Store) ReorderStrict(ctx context.Context, ownerID uuid.UUID, updates []models.OrderUpdate, now time.Time) ([]*models.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	tasks := s.Tasks.WithTx(tx)
	out := make([]*models.Task, 0, len(updates))
	for _, u := range updates {
		task, err := tasks.UpdateOrder(ctx, u.ID, ownerID, u.Order, now)
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}
