package directory

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pairchat/pairchat/internal/bus"
)

// DB wraps the directory-store database connection. All clients of one
// deployment share the same store; this process only queries and inserts,
// it never migrates rows it does not own.
//
// Every successful insert is also published on the bus as an
// "insert.<table>" event, which is what live subscriptions consume.
type DB struct {
	*sql.DB
	bus *bus.Bus
}

// Open creates a new connection with WAL mode and recommended pragmas.
// The bus may be nil for consumers that never subscribe.
func Open(path string, b *bus.Bus) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Verify connection.
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return &DB{DB: db, bus: b}, nil
}
