package planner

import (
	"context"
	"errors"

	"github.com/chepyr/study-planner/internal/db"
	"github.com/chepyr/study-planner/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CompleteTask marks the caller's task completed and credits its xp to the
// caller exactly once. The flip and the credit commit together; a second
// completion, concurrent or not, gets ErrAlreadyCompleted.
func (s *Service) CompleteTask(ctx context.Context, id Identity, taskID uuid.UUID) (*models.Task, error) {
	log := s.log.WithFields(logrus.Fields{
		"operation": "planner.CompleteTask",
		"user_id":   id.UserID,
		"task_id":   taskID,
	})

	task, err := s.Guard(ctx, id, taskID)
	if err != nil {
		return nil, err
	}
	if task.IsCompleted {
		return nil, ErrAlreadyCompleted
	}

	done, total, err := s.tx.CompleteTask(ctx, taskID, id.UserID, s.now())
	switch {
	case errors.Is(err, db.ErrAlreadyCompleted):
		log.Info("lost completion race")
		return nil, ErrAlreadyCompleted
	case err != nil:
		log.WithError(err).Error("completion failed, nothing was credited")
		return nil, storeErr("complete task", err)
	}
	log.WithField("xp_total", total).Info("task completed")

	if s.cache != nil {
		if err := s.cache.InvalidateLeaderboard(ctx); err != nil {
			log.WithError(err).Warn("leaderboard cache invalidation failed")
		}
	}
	s.notify(id.UserID, Event{Type: EventTaskCompleted, Task: done, XP: &total})
	return done, nil
}
