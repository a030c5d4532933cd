package models

import (
	"time"

	"github.com/google/uuid"
)

// Invoice is the summary returned to the client and emailed after a confirmed payment.
type Invoice struct {
	InvoiceNumber    string           `json:"invoiceNumber"`
	PaymentID        uuid.UUID        `json:"paymentId"`
	EnrollmentID     uuid.UUID        `json:"enrollmentId"`
	EnrollmentStatus EnrollmentStatus `json:"enrollmentStatus"`
	StudentID        uuid.UUID        `json:"studentId"`
	StudentName      string           `json:"studentName"`
	StudentEmail     string           `json:"studentEmail"`
	CourseID         uuid.UUID        `json:"courseId"`
	CourseName       string           `json:"courseName"`
	CourseFeeCents   int64            `json:"courseFeeCents"`
	TransactionID    string           `json:"transactionId"`
	AmountCents      int64            `json:"amountCents"`
	Currency         string           `json:"currency"`
	PaymentStatus    PaymentStatus    `json:"paymentStatus"`
	IssuedAt         time.Time        `json:"issuedAt"`
}
