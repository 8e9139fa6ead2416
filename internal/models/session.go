package models

import "time"

// LearningMode is the tutoring style a session was started with.
type LearningMode string

const (
	ModeGuided   LearningMode = "guided"
	ModeSocratic LearningMode = "socratic"
	ModePractice LearningMode = "practice"
	ModeReview   LearningMode = "review"
)

type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusPaused    SessionStatus = "paused"
	StatusCompleted SessionStatus = "completed"
)

// Session groups an ordered sequence of messages owned by one user.
type Session struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	Title         string        `json:"title"`
	Mode          LearningMode  `json:"mode"`
	Status        SessionStatus `json:"status"`
	TotalMessages int           `json:"total_messages"`
	InsightsCount int           `json:"insights_count"`
	Progress      int           `json:"progress"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}
