//go:build integration

package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/locatekit/stakeflow/internal/database"
	"github.com/locatekit/stakeflow/internal/models"
)

func getTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database.SetDriver("sqlite3")
	db, err := database.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE project_tickets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ticket_number TEXT NOT NULL,
			old_ticket TEXT,
			is_continue_update BOOLEAN NOT NULL DEFAULT 1,
			project_id INTEGER,
			replace_by_date TIMESTAMP,
			create_time TIMESTAMP NOT NULL,
			change_time TIMESTAMP NOT NULL
		)`)
	if err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return db
}

func TestAssignmentRepositoryChain(t *testing.T) {
	db := getTestDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()

	deadline := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	projectID := int64(7)

	err := repo.Insert(ctx, models.AssignmentRow{
		TicketNumber:     "A1",
		IsContinueUpdate: true,
		ProjectID:        &projectID,
		ReplaceByDate:    &deadline,
	})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	// Advance the chain: deactivate A1, insert A2 pointing back at it.
	if err := repo.Deactivate(ctx, "A1"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	newDeadline := deadline.AddDate(0, 0, 21)
	err = repo.Insert(ctx, models.AssignmentRow{
		TicketNumber:     "A2",
		OldTicket:        "A1",
		IsContinueUpdate: true,
		ProjectID:        &projectID,
		ReplaceByDate:    &newDeadline,
	})
	if err != nil {
		t.Fatalf("Insert renewal: %v", err)
	}

	rows, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len = %d", len(rows))
	}
	if rows[0].TicketNumber != "A1" || rows[0].IsContinueUpdate {
		t.Errorf("A1 should be inactive: %+v", rows[0])
	}
	if rows[1].TicketNumber != "A2" || rows[1].OldTicket != "A1" || !rows[1].IsContinueUpdate {
		t.Errorf("A2 should be the active link: %+v", rows[1])
	}
}

func TestAssignmentRepositoryListDue(t *testing.T) {
	db := getTestDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()

	now := time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC)
	today := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	tomorrow := today.AddDate(0, 0, 1)
	lastWeek := today.AddDate(0, 0, -7)

	for _, row := range []models.AssignmentRow{
		{TicketNumber: "DUE-TODAY", IsContinueUpdate: true, ReplaceByDate: &today},
		{TicketNumber: "DUE-PAST", IsContinueUpdate: true, ReplaceByDate: &lastWeek},
		{TicketNumber: "NOT-YET", IsContinueUpdate: true, ReplaceByDate: &tomorrow},
		{TicketNumber: "CLOSED", IsContinueUpdate: false, ReplaceByDate: &lastWeek},
	} {
		if err := repo.Insert(ctx, row); err != nil {
			t.Fatalf("Insert %s: %v", row.TicketNumber, err)
		}
	}

	due, err := repo.ListDue(ctx, now)
	if err != nil {
		t.Fatalf("ListDue: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("due rows = %d, want 2: %+v", len(due), due)
	}
	// Sorted ascending by replace_by_date.
	if due[0].TicketNumber != "DUE-PAST" || due[1].TicketNumber != "DUE-TODAY" {
		t.Errorf("due order: %s, %s", due[0].TicketNumber, due[1].TicketNumber)
	}
}

func TestAssignmentRepositoryDeactivateIdempotent(t *testing.T) {
	db := getTestDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()

	if err := repo.Deactivate(ctx, "GHOST"); err != nil {
		t.Errorf("deactivating unknown ticket should be a no-op, got %v", err)
	}

	if err := repo.Insert(ctx, models.AssignmentRow{TicketNumber: "B1", IsContinueUpdate: true}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := repo.Deactivate(ctx, "B1"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if err := repo.Deactivate(ctx, "B1"); err != nil {
		t.Errorf("second Deactivate should be a no-op, got %v", err)
	}
}

func TestAssignmentRepositoryUpsert(t *testing.T) {
	db := getTestDB(t)
	repo := NewAssignmentRepository(db)
	ctx := context.Background()

	// No existing row: Upsert inserts.
	deadline := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	projectID := int64(3)
	err := repo.Upsert(ctx, models.AssignmentRow{
		TicketNumber:     "C1",
		IsContinueUpdate: true,
		ProjectID:        &projectID,
		ReplaceByDate:    &deadline,
	})
	if err != nil {
		t.Fatalf("Upsert insert path: %v", err)
	}

	// Existing row: Upsert updates in place.
	newProject := int64(9)
	err = repo.Upsert(ctx, models.AssignmentRow{
		TicketNumber:     "C1",
		IsContinueUpdate: true,
		ProjectID:        &newProject,
		ReplaceByDate:    &deadline,
	})
	if err != nil {
		t.Fatalf("Upsert update path: %v", err)
	}

	rows, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected single row after upsert, got %d", len(rows))
	}
	if rows[0].ProjectID == nil || *rows[0].ProjectID != 9 {
		t.Errorf("ProjectID = %v", rows[0].ProjectID)
	}
}
