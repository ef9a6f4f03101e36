package database

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

var (
	driverMu     sync.RWMutex
	activeDriver = "mysql"
)

// SetDriver records the driver the process is running against. It must be
// called once at startup, before any query is built.
func SetDriver(driver string) {
	name, err := normalizeDriver(driver)
	if err != nil {
		return
	}
	driverMu.Lock()
	activeDriver = name
	driverMu.Unlock()
}

// Driver returns the active database driver name.
func Driver() string {
	driverMu.RLock()
	defer driverMu.RUnlock()
	return activeDriver
}

// IsPostgreSQL returns true when running against PostgreSQL.
func IsPostgreSQL() bool {
	return Driver() == "postgres"
}

var dollarPlaceholder = regexp.MustCompile(`\$\d+`)

// ConvertPlaceholders converts SQL placeholders to the format required by the
// active database. Queries in this codebase always use ? placeholders; for
// PostgreSQL they are rewritten to $1, $2, ... MySQL and SQLite take ? as-is.
//
// Using $N placeholders directly panics so that non-portable queries are
// caught in development.
func ConvertPlaceholders(query string) string {
	if dollarPlaceholder.MatchString(query) {
		panic(fmt.Sprintf("ConvertPlaceholders: $N placeholders are not allowed, use ?\nQuery: %s", query))
	}

	if !IsPostgreSQL() || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	n := 1
	for _, c := range query {
		if c == '?' {
			fmt.Fprintf(&b, "$%d", n)
			n++
		} else {
			b.WriteRune(c)
		}
	}
	return b.String()
}
