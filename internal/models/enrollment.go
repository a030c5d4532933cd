package models

import (
	"time"

	"github.com/google/uuid"
)

// EnrollmentStatus is the lifecycle state of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentStatusPending    EnrollmentStatus = "pending"
	EnrollmentStatusActive     EnrollmentStatus = "active"
	EnrollmentStatusCompleted  EnrollmentStatus = "completed"
	EnrollmentStatusWaitlisted EnrollmentStatus = "waitlisted"
)

// EnrollmentPaymentStatus tracks whether the course fee was collected.
type EnrollmentPaymentStatus string

const (
	EnrollmentUnpaid EnrollmentPaymentStatus = "unpaid"
	EnrollmentPaid   EnrollmentPaymentStatus = "paid"
)

// Enrollment links a student to a course. One row per (student, course).
type Enrollment struct {
	ID            uuid.UUID               `json:"id"`
	StudentID     uuid.UUID               `json:"student_id"`
	CourseID      uuid.UUID               `json:"course_id"`
	Status        EnrollmentStatus        `json:"status"`
	PaymentStatus EnrollmentPaymentStatus `json:"payment_status"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with course and student info for read projections.
type EnrollmentDetail struct {
	Enrollment
	CourseTitle  string `json:"course_title"`
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
}
