package models

import (
	"time"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Valid reports whether p is one of the known priorities or unset.
func (p Priority) Valid() bool {
	switch p {
	case "", PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Task is owned by exactly one user. OwnerID and XP never change after
// creation; IsCompleted only moves from false to true.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	OwnerID     uuid.UUID  `json:"user"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	XP          int        `json:"xp"`
	Priority    Priority   `json:"priority,omitempty"`
	Tags        StringList `json:"tags"`
	Order       *int       `json:"order,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// OrderUpdate moves one task to a new list position.
type OrderUpdate struct {
	ID    uuid.UUID
	Order int
}
