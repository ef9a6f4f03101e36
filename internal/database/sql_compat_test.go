package database

import "testing"

func TestConvertPlaceholders(t *testing.T) {
	orig := Driver()
	defer SetDriver(orig)

	SetDriver("mysql")
	q := ConvertPlaceholders("SELECT * FROM project_tickets WHERE ticket_number = ? AND project_id = ?")
	if q != "SELECT * FROM project_tickets WHERE ticket_number = ? AND project_id = ?" {
		t.Errorf("mysql query was rewritten: %q", q)
	}

	SetDriver("postgres")
	q = ConvertPlaceholders("SELECT * FROM project_tickets WHERE ticket_number = ? AND project_id = ?")
	want := "SELECT * FROM project_tickets WHERE ticket_number = $1 AND project_id = $2"
	if q != want {
		t.Errorf("postgres conversion: got %q, want %q", q, want)
	}

	SetDriver("sqlite3")
	q = ConvertPlaceholders("UPDATE project_tickets SET is_continue_update = ? WHERE ticket_number = ?")
	if q != "UPDATE project_tickets SET is_continue_update = ? WHERE ticket_number = ?" {
		t.Errorf("sqlite query was rewritten: %q", q)
	}
}

func TestConvertPlaceholdersRejectsDollarN(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for $N placeholder")
		}
	}()
	ConvertPlaceholders("SELECT 1 WHERE id = $1")
}

func TestNormalizeDriver(t *testing.T) {
	cases := map[string]string{
		"mysql":      "mysql",
		"mariadb":    "mysql",
		"postgres":   "postgres",
		"postgresql": "postgres",
		"sqlite":     "sqlite3",
		"sqlite3":    "sqlite3",
	}
	for in, want := range cases {
		got, err := normalizeDriver(in)
		if err != nil {
			t.Errorf("normalizeDriver(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("normalizeDriver(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := normalizeDriver("oracle"); err == nil {
		t.Error("expected error for unsupported driver")
	}
	if _, err := normalizeDriver(""); err == nil {
		t.Error("expected error for empty driver")
	}
}
