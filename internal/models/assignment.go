package models

import "time"

// AssignmentRow links the currently active ticket of a renewal chain to a
// project. A chain advances by deactivating the old row and inserting a new
// one whose old_ticket points back at the superseded number.
type AssignmentRow struct {
	ID               int64      `json:"id"`
	TicketNumber     string     `json:"ticket_number"`
	OldTicket        string     `json:"old_ticket,omitempty"`
	IsContinueUpdate bool       `json:"is_continue_update"`
	ProjectID        *int64     `json:"project_id,omitempty"`
	ReplaceByDate    *time.Time `json:"replace_by_date,omitempty"`
	CreateTime       time.Time  `json:"create_time"`
	ChangeTime       time.Time  `json:"change_time"`
}

// DueOn reports whether the row's deadline has arrived by calendar day:
// a replace_by_date equal to today counts as due. Rows with no deadline are
// never due.
func (r AssignmentRow) DueOn(now time.Time) bool {
	if !r.IsContinueUpdate || r.ReplaceByDate == nil {
		return false
	}
	return SameDayOrBefore(*r.ReplaceByDate, now)
}

// SameDayOrBefore compares two times by calendar day, ignoring the
// time-of-day component.
func SameDayOrBefore(t, now time.Time) bool {
	return truncateDay(t).Compare(truncateDay(now)) <= 0
}

// AfterDay reports whether t falls on a strictly later calendar day than now.
func AfterDay(t, now time.Time) bool {
	return truncateDay(t).After(truncateDay(now))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
