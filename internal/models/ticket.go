package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Ticket is a locate request record from the upstream utility-locate service.
// The upstream feed is loosely typed; tickets are produced exclusively by
// NormalizeTicket so the rest of the codebase can rely on these fields.
type Ticket struct {
	TicketNumber   string     `json:"ticket_number"`
	OriginalTicket string     `json:"original_ticket,omitempty"`
	ReplaceByDate  *time.Time `json:"replace_by_date,omitempty"`
	Expires        *time.Time `json:"expires,omitempty"`

	Street       string `json:"street,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Zip          string `json:"zip,omitempty"`
	CrossStreet1 string `json:"cross_street1,omitempty"`
	CrossStreet2 string `json:"cross_street2,omitempty"`

	// Placeholder is set when the detail fetch for this ticket failed and
	// only the ticket number and deadline are known.
	Placeholder bool `json:"placeholder,omitempty"`

	// Server-side presentation annotations, filled in for due-list rows.
	DueInWords           string `json:"due_in_words,omitempty"`
	BusinessDaysUntilDue *int   `json:"business_days_until_due,omitempty"`
}

// NewPlaceholderTicket builds a degraded ticket row carrying only the known
// ticket number and deadline, so a due-list entry can still render after a
// failed detail fetch.
func NewPlaceholderTicket(ticketNumber string, replaceBy *time.Time) Ticket {
	return Ticket{
		TicketNumber:  ticketNumber,
		ReplaceByDate: replaceBy,
		Placeholder:   true,
	}
}

// rawTicket mirrors the upstream payload. Every field is deliberately
// tolerant: the feed mixes casing, omits fields, and sends dates as strings
// in more than one format.
type rawTicket struct {
	TicketNumber   string `json:"ticket"`
	TicketNumber2  string `json:"ticket_number"`
	OriginalTicket string `json:"original_ticket"`
	ReplaceByDate  string `json:"replace_by_date"`
	Expires        string `json:"expires"`
	Street         string `json:"street"`
	Address        string `json:"address"`
	City           string `json:"city"`
	State          string `json:"state"`
	Zip            string `json:"zip"`
	CrossStreet1   string `json:"cross1"`
	CrossStreet2   string `json:"cross2"`
}

// NormalizeTicket converts a raw upstream JSON object into a typed Ticket.
// It is the only place upstream field fallbacks live; callers past this
// boundary never access the payload defensively.
func NormalizeTicket(data []byte) (Ticket, error) {
	var raw rawTicket
	if err := json.Unmarshal(data, &raw); err != nil {
		return Ticket{}, err
	}
	return raw.normalize(), nil
}

// NormalizeTicketList converts a raw upstream JSON array into typed Tickets.
// Entries that fail to decode individually are skipped rather than failing
// the batch.
func NormalizeTicketList(data []byte) ([]Ticket, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, err
	}
	tickets := make([]Ticket, 0, len(raws))
	for _, r := range raws {
		t, err := NormalizeTicket(r)
		if err != nil || t.TicketNumber == "" {
			continue
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

func (r rawTicket) normalize() Ticket {
	num := strings.TrimSpace(r.TicketNumber)
	if num == "" {
		num = strings.TrimSpace(r.TicketNumber2)
	}
	street := strings.TrimSpace(r.Street)
	if street == "" {
		street = strings.TrimSpace(r.Address)
	}
	return Ticket{
		TicketNumber:   num,
		OriginalTicket: strings.TrimSpace(r.OriginalTicket),
		ReplaceByDate:  parseUpstreamDate(r.ReplaceByDate),
		Expires:        parseUpstreamDate(r.Expires),
		Street:         street,
		City:           strings.TrimSpace(r.City),
		State:          strings.TrimSpace(r.State),
		Zip:            strings.TrimSpace(r.Zip),
		CrossStreet1:   strings.TrimSpace(r.CrossStreet1),
		CrossStreet2:   strings.TrimSpace(r.CrossStreet2),
	}
}

// upstreamDateFormats lists the date layouts the feed has been observed to
// send, most common first.
var upstreamDateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

func parseUpstreamDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" || value == "null" {
		return nil
	}
	for _, layout := range upstreamDateFormats {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
