package database

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "enrollments_student_course_key"}
	tests := []struct {
		name       string
		err        error
		constraint []string
		want       bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "other error", err: fmt.Errorf("boom"), want: false},
		{name: "other sqlstate", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "any constraint", err: dup, want: true},
		{name: "wrapped", err: fmt.Errorf("insert: %w", dup), want: true},
		{name: "named match", err: dup, constraint: []string{"enrollments_student_course_key"}, want: true},
		{name: "named mismatch", err: dup, constraint: []string{"payments_transaction_id_key"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err, tt.constraint...))
		})
	}
}

func TestIsNoRows(t *testing.T) {
	assert.True(t, IsNoRows(pgx.ErrNoRows))
	assert.True(t, IsNoRows(fmt.Errorf("get course: %w", pgx.ErrNoRows)))
	assert.False(t, IsNoRows(fmt.Errorf("other")))
}
