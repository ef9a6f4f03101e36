package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/locatekit/stakeflow/internal/database"
	"github.com/locatekit/stakeflow/internal/models"
)

// AssignmentRepository defines the operations the reconciliation engine needs
// against the project_tickets table.
type AssignmentRepository interface {
	List(ctx context.Context) ([]models.AssignmentRow, error)
	ListDue(ctx context.Context, now time.Time) ([]models.AssignmentRow, error)
	Insert(ctx context.Context, row models.AssignmentRow) error
	Deactivate(ctx context.Context, ticketNumber string) error
	Upsert(ctx context.Context, row models.AssignmentRow) error
}

// AssignmentSQLRepository handles database operations for the project_tickets
// table, which holds one row per link in a renewal chain.
type AssignmentSQLRepository struct {
	db *sql.DB
}

// NewAssignmentRepository creates a new assignment repository.
func NewAssignmentRepository(db *sql.DB) *AssignmentSQLRepository {
	return &AssignmentSQLRepository{db: db}
}

const assignmentColumns = `id, ticket_number, old_ticket, is_continue_update, project_id, replace_by_date, create_time, change_time`

// List retrieves the full assignment table for reconciliation.
func (r *AssignmentSQLRepository) List(ctx context.Context) ([]models.AssignmentRow, error) {
	query := database.ConvertPlaceholders(`
		SELECT ` + assignmentColumns + `
		FROM project_tickets
		ORDER BY id`)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()

	return scanAssignmentRows(rows)
}

// ListDue retrieves active rows whose deadline has arrived, by calendar day.
// A row dated today is due.
func (r *AssignmentSQLRepository) ListDue(ctx context.Context, now time.Time) ([]models.AssignmentRow, error) {
	query := database.ConvertPlaceholders(`
		SELECT ` + assignmentColumns + `
		FROM project_tickets
		WHERE is_continue_update = ? AND replace_by_date < ?
		ORDER BY replace_by_date ASC`)

	y, m, d := now.Date()
	startOfTomorrow := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)

	rows, err := r.db.QueryContext(ctx, query, true, startOfTomorrow)
	if err != nil {
		return nil, fmt.Errorf("query due assignments: %w", err)
	}
	defer rows.Close()

	return scanAssignmentRows(rows)
}

// Insert creates a new assignment row.
func (r *AssignmentSQLRepository) Insert(ctx context.Context, row models.AssignmentRow) error {
	if row.TicketNumber == "" {
		return errors.New("ticket number is required")
	}

	query := database.ConvertPlaceholders(`
		INSERT INTO project_tickets
		(ticket_number, old_ticket, is_continue_update, project_id, replace_by_date, create_time, change_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		row.TicketNumber, nullString(row.OldTicket), row.IsContinueUpdate,
		row.ProjectID, row.ReplaceByDate, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

// Deactivate sets is_continue_update = false for every row tracking
// ticketNumber. Idempotent: deactivating an unknown or already inactive
// ticket is not an error.
func (r *AssignmentSQLRepository) Deactivate(ctx context.Context, ticketNumber string) error {
	if ticketNumber == "" {
		return errors.New("ticket number is required")
	}

	query := database.ConvertPlaceholders(`
		UPDATE project_tickets
		SET is_continue_update = ?, change_time = ?
		WHERE ticket_number = ?`)

	if _, err := r.db.ExecContext(ctx, query, false, time.Now(), ticketNumber); err != nil {
		return fmt.Errorf("deactivate assignment: %w", err)
	}
	return nil
}

// Upsert updates the pending row for ticketNumber or inserts a new one.
// Used by the manual assignment path, where a ticket may already have a row
// with a null project.
func (r *AssignmentSQLRepository) Upsert(ctx context.Context, row models.AssignmentRow) error {
	if row.TicketNumber == "" {
		return errors.New("ticket number is required")
	}

	query := database.ConvertPlaceholders(`
		UPDATE project_tickets
		SET project_id = ?, replace_by_date = ?, is_continue_update = ?, change_time = ?
		WHERE ticket_number = ?`)

	result, err := r.db.ExecContext(ctx, query,
		row.ProjectID, row.ReplaceByDate, row.IsContinueUpdate, time.Now(), row.TicketNumber,
	)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	if affected == 0 {
		return r.Insert(ctx, row)
	}
	return nil
}

func scanAssignmentRows(rows *sql.Rows) ([]models.AssignmentRow, error) {
	var result []models.AssignmentRow
	for rows.Next() {
		var (
			row       models.AssignmentRow
			oldTicket sql.NullString
			projectID sql.NullInt64
			replaceBy sql.NullTime
		)
		err := rows.Scan(
			&row.ID, &row.TicketNumber, &oldTicket, &row.IsContinueUpdate,
			&projectID, &replaceBy, &row.CreateTime, &row.ChangeTime,
		)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		if oldTicket.Valid {
			row.OldTicket = oldTicket.String
		}
		if projectID.Valid {
			row.ProjectID = &projectID.Int64
		}
		if replaceBy.Valid {
			t := replaceBy.Time
			row.ReplaceByDate = &t
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
