package unanswered

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/wolfman30/intake-ai-platform/internal/dialogue"
)

var _ dialogue.UnansweredRecorder = (*Recorder)(nil)

func TestHashIgnoresCaseAndSpacing(t *testing.T) {
	if Hash("What are your  hours?") != Hash("what are your hours") {
		t.Fatal("expected equivalent questions to share a hash")
	}
	if Hash("What are your hours?") == Hash("Where are you located?") {
		t.Fatal("expected distinct questions to differ")
	}
}

func TestPostgresStore_Record(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newPostgresStoreWithQuerier(mock)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	mock.ExpectExec("INSERT INTO unanswered_questions").
		WithArgs("org-1", Hash("Do you charge for parking?"), "Do you charge for parking?", 12.0, fixed).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := store.Record(context.Background(), Question{OrgID: "org-1", Text: " Do you charge for parking? ", LastConfidence: 12}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	mock.ExpectExec("INSERT INTO unanswered_questions").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("db down"))
	if err := store.Record(context.Background(), Question{OrgID: "org-1", Text: "x"}); err == nil {
		t.Fatal("expected database error")
	}

	if err := store.Record(context.Background(), Question{OrgID: "org-1", Text: "  "}); err == nil {
		t.Fatal("expected validation error for empty question")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresStore_List(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	store := newPostgresStoreWithQuerier(mock)
	seen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{"org_id", "question", "last_confidence", "occurrences", "first_seen_at", "last_seen_at"}).
		AddRow("org-1", "Do you charge for parking?", 0.1, 4, seen, seen).
		AddRow("org-1", "Are you open Sundays?", 0.0, 1, seen, seen)
	mock.ExpectQuery("SELECT org_id, question").WithArgs("org-1", defaultListLimit).WillReturnRows(rows)

	got, err := store.List(context.Background(), "org-1", 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 || got[0].Occurrences != 4 || got[1].Text != "Are you open Sundays?" {
		t.Fatalf("unexpected questions %#v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMemoryStore_CountsOccurrences(t *testing.T) {
	store := NewMemoryStore()
	rec := NewRecorder(store)
	ctx := context.Background()

	_ = rec.RecordUnanswered(ctx, "org-1", "Do you charge for parking?", 10)
	_ = rec.RecordUnanswered(ctx, "org-1", "do you charge for parking", 5)
	_ = rec.RecordUnanswered(ctx, "org-1", "Are you open Sundays?", 0)
	_ = rec.RecordUnanswered(ctx, "org-2", "Do you charge for parking?", 0)

	got, err := store.List(ctx, "org-1", 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 questions for org-1, got %#v", got)
	}
	if got[0].Occurrences != 2 || got[0].LastConfidence != 5 {
		t.Fatalf("expected parking question counted twice, got %#v", got[0])
	}

	limited, _ := store.List(ctx, "org-1", 1)
	if len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
}
