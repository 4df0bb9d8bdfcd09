package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	XP                  int        `json:"xp"`
	Streak              int        `json:"streak"`
	LastCompletedDate   *time.Time `json:"lastCompletedDate,omitempty"`
	Achievements        StringList `json:"achievements"`
	TotalTasksCompleted int        `json:"totalTasksCompleted"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

type LeaderboardEntry struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	XP   int       `json:"xp"`
}
