package planner

import (
	"context"
	"errors"

	"github.com/chepyr/study-planner/internal/db"
	"github.com/chepyr/study-planner/internal/models"
	"github.com/google/uuid"
)

// Guard loads the task and checks that the caller owns it. A missing task is
// ErrTaskNotFound, a task owned by someone else is ErrForbidden.
func (s *Service) Guard(ctx context.Context, id Identity, taskID uuid.UUID) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, storeErr("load task", err)
	}
	if task.OwnerID != id.UserID {
		return nil, ErrForbidden
	}
	return task, nil
}
