// Package planner holds the task workflows: ownership checks, completion
// with xp credit, and list reordering.
package planner

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/chepyr/study-planner/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Identity is the caller as verified by the token layer. Every workflow
// takes it explicitly.
type Identity struct {
	UserID uuid.UUID
}

type TaskStore interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetByIDAndOwner(ctx context.Context, id, ownerID uuid.UUID) (*models.Task, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	UpdateOrder(ctx context.Context, id, ownerID uuid.UUID, order int, now time.Time) (*models.Task, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	TopByXP(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
}

// TxStore runs the operations that touch several records atomically.
type TxStore interface {
	CompleteTask(ctx context.Context, taskID, ownerID uuid.UUID, now time.Time) (*models.Task, int, error)
	ReorderStrict(ctx context.Context, ownerID uuid.UUID, updates []models.OrderUpdate, now time.Time) ([]*models.Task, error)
}

// Notifier receives task events after they were persisted.
type Notifier interface {
	Notify(userID uuid.UUID, event Event)
}

// LeaderboardCache is optional; a nil cache always reads from the store.
type LeaderboardCache interface {
	GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, bool, error)
	SetLeaderboard(ctx context.Context, limit int, entries []models.LeaderboardEntry) error
	InvalidateLeaderboard(ctx context.Context) error
}

const (
	EventTaskCreated    = "task_created"
	EventTaskUpdated    = "task_updated"
	EventTaskCompleted  = "task_completed"
	EventTaskDeleted    = "task_deleted"
	EventTasksReordered = "tasks_reordered"
)

type Event struct {
	Type   string         `json:"event"`
	Task   *models.Task   `json:"task,omitempty"`
	Tasks  []*models.Task `json:"tasks,omitempty"`
	TaskID *uuid.UUID     `json:"task_id,omitempty"`
	XP     *int           `json:"xp,omitempty"`
}

type Deps struct {
	Tasks    TaskStore
	Users    UserStore
	Tx       TxStore
	Notifier Notifier
	Cache    LeaderboardCache
	Log      *logrus.Logger
	Now      func() time.Time
}

type Service struct {
	tasks    TaskStore
	users    UserStore
	tx       TxStore
	notifier Notifier
	cache    LeaderboardCache
	log      *logrus.Logger
	now      func() time.Time
	validate *validator.Validate

	leaderboardLoads singleflight.Group
}

func NewService(d Deps) *Service {
	s := &Service{
		tasks:    d.Tasks,
		users:    d.Users,
		tx:       d.Tx,
		notifier: d.Notifier,
		cache:    d.Cache,
		log:      d.Log,
		now:      d.Now,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	s.validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return s
}

func (s *Service) notify(userID uuid.UUID, event Event) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(userID, event)
}
