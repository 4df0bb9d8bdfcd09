package planner

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/chepyr/study-planner/internal/db"
	"github.com/chepyr/study-planner/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type CreateTaskInput struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=2000"`
	DueDate     *time.Time `json:"dueDate"`
	XP          *int       `json:"xp" validate:"required,min=0"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=High Medium Low"`
	Tags        []string   `json:"tags" validate:"max=20,dive,required,max=50"`
	Order       *int       `json:"order"`
}

// UpdateTaskInput carries the fields a caller may edit. Completion, xp,
// order and owner are deliberately absent.
type UpdateTaskInput struct {
	Title       *string    `json:"title" validate:"omitempty,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=2000"`
	DueDate     *time.Time `json:"dueDate"`
	Priority    *string    `json:"priority" validate:"omitempty,oneof=High Medium Low"`
	Tags        []string   `json:"tags" validate:"omitempty,max=20,dive,required,max=50"`
}

func (s *Service) CreateTask(ctx context.Context, id Identity, in CreateTaskInput) (*models.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || in.XP == nil {
		return nil, invalid("Title and XP are required")
	}
	if err := s.check(in); err != nil {
		return nil, err
	}

	now := s.now()
	task := &models.Task{
		ID:          uuid.New(),
		OwnerID:     id.UserID,
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		XP:          *in.XP,
		Priority:    models.Priority(in.Priority),
		Tags:        models.StringList(in.Tags),
		Order:       in.Order,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if task.Tags == nil {
		task.Tags = models.StringList{}
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, storeErr("create task", err)
	}
	s.log.WithFields(logrus.Fields{
		"operation": "planner.CreateTask",
		"user_id":   id.UserID,
		"task_id":   task.ID,
	}).Info("task created")
	s.notify(id.UserID, Event{Type: EventTaskCreated, Task: task})
	return task, nil
}

// ListTasks returns the caller's tasks by ascending order.
func (s *Service) ListTasks(ctx context.Context, id Identity) ([]*models.Task, error) {
	tasks, err := s.tasks.ListByOwner(ctx, id.UserID)
	if err != nil {
		return nil, storeErr("list tasks", err)
	}
	return tasks, nil
}

func (s *Service) GetTask(ctx context.Context, id Identity, taskID uuid.UUID) (*models.Task, error) {
	return s.Guard(ctx, id, taskID)
}

func (s *Service) UpdateTask(ctx context.Context, id Identity, taskID uuid.UUID, in UpdateTaskInput) (*models.Task, error) {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, invalid("title cannot be empty")
		}
		in.Title = &title
	}
	if err := s.check(in); err != nil {
		return nil, err
	}

	task, err := s.Guard(ctx, id, taskID)
	if err != nil {
		return nil, err
	}
	if in.Title != nil {
		task.Title = *in.Title
	}
	if in.Description != nil {
		task.Description = *in.Description
	}
	if in.DueDate != nil {
		task.DueDate = in.DueDate
	}
	if in.Priority != nil {
		task.Priority = models.Priority(*in.Priority)
	}
	if in.Tags != nil {
		task.Tags = models.StringList(in.Tags)
	}
	task.UpdatedAt = s.now()

	err = s.tasks.Update(ctx, task)
	if errors.Is(err, db.ErrNotFound) {
		// deleted between the guard and the write
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, storeErr("update task", err)
	}
	s.notify(id.UserID, Event{Type: EventTaskUpdated, Task: task})
	return task, nil
}

func (s *Service) DeleteTask(ctx context.Context, id Identity, taskID uuid.UUID) error {
	if _, err := s.Guard(ctx, id, taskID); err != nil {
		return err
	}
	err := s.tasks.Delete(ctx, taskID)
	if errors.Is(err, db.ErrNotFound) {
		return ErrTaskNotFound
	}
	if err != nil {
		return storeErr("delete task", err)
	}
	s.log.WithFields(logrus.Fields{
		"operation": "planner.DeleteTask",
		"user_id":   id.UserID,
		"task_id":   taskID,
	}).Info("task deleted")
	s.notify(id.UserID, Event{Type: EventTaskDeleted, TaskID: &taskID})
	return nil
}

// check runs the struct validator and turns the first failure into a
// ValidationError.
func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return invalid("invalid input")
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return invalid("%s is required", fe.Field())
	case "oneof":
		return invalid("%s must be one of %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		return invalid("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return invalid("%s is too long (max %s)", fe.Field(), fe.Param())
	default:
		return invalid("%s is invalid", fe.Field())
	}
}
