package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// schema is applied in full at every open. The state is a rebuildable
// cache, so there is no migration history; new columns mean a new
// table or a dropped state file.
const schema = `
CREATE TABLE IF NOT EXISTS session (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	auth_token TEXT NOT NULL,
	user_id TEXT NOT NULL,
	profile TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS preferences (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	do_not_disturb INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS dismissals (
	room_id TEXT PRIMARY KEY,
	unread INTEGER NOT NULL DEFAULT 0
);
`

type SQLiteStateRepository struct {
	conn *sql.DB
}

// NewSQLiteStateRepository opens (or creates) the state file and
// ensures the schema exists. Use ":memory:" for an ephemeral store.
func NewSQLiteStateRepository(path string) (*SQLiteStateRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}

	// The state file is accessed from multiple poller goroutines;
	// modernc.org/sqlite serializes writes per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping state db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create state schema: %w", err)
	}

	return &SQLiteStateRepository{conn: db}, nil
}

func (db *SQLiteStateRepository) Ping() error {
	return db.conn.Ping()
}

func (db *SQLiteStateRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}
