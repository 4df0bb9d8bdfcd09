package planner

import (
	"context"
	"errors"

	"github.com/chepyr/study-planner/internal/db"
	"github.com/chepyr/study-planner/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const reorderParallelism = 8

type ReorderItem struct {
	ID    string
	Order *int
}

// parseReorder validates the whole batch before anything is written.
func parseReorder(items []ReorderItem) ([]models.OrderUpdate, error) {
	updates := make([]models.OrderUpdate, 0, len(items))
	for i, item := range items {
		taskID, err := uuid.Parse(item.ID)
		if err != nil {
			return nil, invalid("Invalid task ID: %s", item.ID)
		}
		if item.Order == nil {
			return nil, invalid("order is required for tasks[%d]", i)
		}
		updates = append(updates, models.OrderUpdate{ID: taskID, Order: *item.Order})
	}
	return updates, nil
}

// ReorderTasks applies each (id, order) pair independently, scoped to the
// caller. Pairs naming a missing or foreign task are skipped and show up as
// nil at the same index of the result. A store failure aborts the call but
// pairs already applied stay applied.
func (s *Service) ReorderTasks(ctx context.Context, id Identity, items []ReorderItem) ([]*models.Task, error) {
	updates, err := parseReorder(items)
	if err != nil {
		return nil, err
	}

	now := s.now()
	results := make([]*models.Task, len(updates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reorderParallelism)
	for i, u := range updates {
		g.Go(func() error {
			task, err := s.tasks.UpdateOrder(gctx, u.ID, id.UserID, u.Order, now)
			if errors.Is(err, db.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			results[i] = task
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, storeErr("reorder tasks", err)
	}

	applied := make([]*models.Task, 0, len(results))
	for _, task := range results {
		if task != nil {
			applied = append(applied, task)
		}
	}
	s.log.WithFields(logrus.Fields{
		"operation": "planner.ReorderTasks",
		"user_id":   id.UserID,
		"requested": len(updates),
		"applied":   len(applied),
	}).Info("tasks reordered")
	if len(applied) > 0 {
		s.notify(id.UserID, Event{Type: EventTasksReordered, Tasks: applied})
	}
	return results, nil
}

// ReorderTasksStrict is the all-or-nothing variant: if any pair names a task
// the caller does not own, nothing is changed and ErrTaskNotFound is returned.
func (s *Service) ReorderTasksStrict(ctx context.Context, id Identity, items []ReorderItem) ([]*models.Task, error) {
	updates, err := parseReorder(items)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tx.ReorderStrict(ctx, id.UserID, updates, s.now())
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, storeErr("reorder tasks", err)
	}
	if len(tasks) > 0 {
		s.notify(id.UserID, Event{Type: EventTasksReordered, Tasks: tasks})
	}
	return tasks, nil
}
