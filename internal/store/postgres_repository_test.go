package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "campaigns_single_active_idx"}
	if !isUniqueViolation(unique) {
		t.Fatal("expected 23505 to be recognized as a unique violation")
	}
	if !isUniqueViolation(fmt.Errorf("activate: %w", unique)) {
		t.Fatal("expected a wrapped 23505 to be recognized")
	}

	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("foreign key violation must not count as a unique violation")
	}
	if isUniqueViolation(errors.New("connection reset")) {
		t.Fatal("plain errors must not count as a unique violation")
	}
	if isUniqueViolation(nil) {
		t.Fatal("nil must not count as a unique violation")
	}
}
