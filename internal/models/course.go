package models

import (
	"time"

	"github.com/google/uuid"
)

// Course is a catalog entry with a bounded number of seats.
type Course struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	InstructorID    uuid.UUID `json:"instructor_id"`
	FeeCents        int64     `json:"fee_cents"`
	Currency        string    `json:"currency"`
	MaxParticipants int       `json:"max_participants"`
	EnrolledCount   int       `json:"enrolled_count"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsFull reports whether every seat is taken.
func (c *Course) IsFull() bool {
	return c.EnrolledCount >= c.MaxParticipants
}

// SeatsLeft returns the number of free seats.
func (c *Course) SeatsLeft() int {
	if n := c.MaxParticipants - c.EnrolledCount; n > 0 {
		return n
	}
	return 0
}

// WaitlistEntry is a student queued for a full course.
type WaitlistEntry struct {
	CourseID  uuid.UUID `json:"course_id"`
	StudentID uuid.UUID `json:"student_id"`
	Position  int64     `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}
