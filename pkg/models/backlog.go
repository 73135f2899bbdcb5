package models

import "time"

// Backlog statuses. Anything else is rejected at the handler.
const (
	BacklogStatusBacklog   = "backlog"
	BacklogStatusPlaying   = "playing"
	BacklogStatusCompleted = "completed"
	BacklogStatusDropped   = "dropped"
)

type BacklogItem struct {
	UserID    string    `json:"user_id"`
	AppID     int64     `json:"appid"`
	Status    string    `json:"status"`
	Rating    *int      `json:"rating,omitempty"` // 1-10
	Notes     string    `json:"notes,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
