package bluestakes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoginStripsBearerPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/login" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("username") != "digger" || r.PostForm.Get("password") != "hunter2" {
			t.Errorf("credentials not form-encoded: %v", r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Authorization": "Bearer tok-123"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	token, err := client.Login(context.Background(), "digger", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token != "tok-123" {
		t.Errorf("token = %q, want %q (prefix must be stripped)", token, "tok-123")
	}
}

func TestLoginRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Login(context.Background(), "digger", "wrong")
	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteError, got %T: %v", err, err)
	}
	if remoteErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d", remoteErr.StatusCode)
	}
}

func TestListTickets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tickets" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`[
			{"ticket": "A1", "expires": "2099-01-01"},
			{"ticket": "A2", "original_ticket": "A1", "expires": "2099-06-01"}
		]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	tickets, err := client.ListTickets(context.Background(), "tok-123")
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if len(tickets) != 2 {
		t.Fatalf("len = %d", len(tickets))
	}
	if tickets[1].OriginalTicket != "A1" {
		t.Errorf("OriginalTicket = %q", tickets[1].OriginalTicket)
	}
}

func TestGetTicketDetailEscapesNumber(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`{"ticket": "A/1", "replace_by_date": "2026-09-01"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	ticket, err := client.GetTicketDetail(context.Background(), "A/1", "tok")
	if err != nil {
		t.Fatalf("GetTicketDetail: %v", err)
	}
	if gotPath != "/api/tickets/A%2F1" {
		t.Errorf("path = %q", gotPath)
	}
	if ticket.TicketNumber != "A/1" {
		t.Errorf("TicketNumber = %q", ticket.TicketNumber)
	}
}

func TestGetTicketDetailServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.GetTicketDetail(context.Background(), "B9", "tok")
	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteError, got %T", err)
	}
}
