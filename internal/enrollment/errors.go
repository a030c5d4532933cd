package enrollment

import (
	"errors"

	"github.com/vighneshparab/SkyWings-sub000/internal/courses"
	"github.com/vighneshparab/SkyWings-sub000/internal/payments"
)

var (
	// ErrCourseNotFound is returned when the course does not exist.
	ErrCourseNotFound = courses.ErrCourseNotFound
	// ErrCourseInactive is returned when the course is closed for enrollment.
	ErrCourseInactive = errors.New("course is not open for enrollment")
	// ErrAlreadyEnrolled is returned when the student already holds an enrollment for the course.
	ErrAlreadyEnrolled = errors.New("already enrolled in this course")
	// ErrStudentNotFound is returned when the enrolling or paying student does not exist.
	ErrStudentNotFound = errors.New("student not found")
	// ErrEnrollmentNotFound is returned when a payment points at a missing enrollment.
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	// ErrPaymentRecordNotFound is returned when no payment matches the checkout session.
	ErrPaymentRecordNotFound = errors.New("payment record not found")
	// ErrPaymentForbidden is returned when the caller does not own the payment.
	ErrPaymentForbidden = errors.New("payment belongs to another user")
	// ErrDuplicateTransaction is returned when a checkout session id is recorded twice.
	ErrDuplicateTransaction = errors.New("checkout session already recorded")
	// ErrPaymentNotSuccessful is returned when the provider does not report the session as paid.
	ErrPaymentNotSuccessful = errors.New("payment verification failed")

	// ErrGatewayUnavailable and ErrGatewayRejected are the payment provider failures.
	ErrGatewayUnavailable = payments.ErrGatewayUnavailable
	ErrGatewayRejected    = payments.ErrGatewayRejected
)
