package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestCursorRoundTrip(t *testing.T) {
	in := &PaginationCursor{ID: "01J0000000000000000000000", CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}

	out, err := decodeCursor(encodeCursor(in))
	if err != nil {
		t.Fatalf("decode cursor: %v", err)
	}
	if out.ID != in.ID || !out.CreatedAt.Equal(in.CreatedAt) {
		t.Fatalf("cursor mismatch: got %+v, want %+v", out, in)
	}
}

func TestDecodeCursor_Invalid(t *testing.T) {
	for _, raw := range []string{"not base64!!", "e30=", "bnVsbA=="} {
		if _, err := decodeCursor(raw); err == nil {
			t.Errorf("decodeCursor(%q) expected error", raw)
		}
	}
}

func TestContainsPattern(t *testing.T) {
	testCases := map[string]string{
		"lamp":   "%lamp%",
		"50%":    `%50\%%`,
		"a_b":    `%a\_b%`,
		`back\s`: `%back\\s%`,
	}

	for in, want := range testCases {
		if got := containsPattern(in); got != want {
			t.Errorf("containsPattern(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPgErrorClassification(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	fk := &pgconn.PgError{Code: "23503"}

	if !isUniqueViolation(unique) {
		t.Error("expected wrapped 23505 to be a unique violation")
	}
	if isUniqueViolation(fk) {
		t.Error("23503 is not a unique violation")
	}
	if !isForeignKeyViolation(fk) {
		t.Error("expected 23503 to be a foreign key violation")
	}
	if isUniqueViolation(errors.New("duplicate key value violates unique constraint")) {
		t.Error("plain errors must not be classified by message")
	}
}
