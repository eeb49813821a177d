package store

import (
	"database/sql"
	"fmt"
)

// Tables names the tables the store reads and writes.
type Tables struct {
	List string
	Code string
	Meta string
}

// DefaultTables are the table names used by the CLI.
var DefaultTables = Tables{
	List: "list",
	Code: "code",
	Meta: "meta",
}

func (t Tables) listTableDDL() string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    gist_id     TEXT NOT NULL,
    file_name   TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    language    TEXT NOT NULL DEFAULT '',
    file_url    TEXT NOT NULL,
    size        INTEGER NOT NULL DEFAULT 0,
    created_at  DATETIME,
    updated_at  DATETIME
);
`, t.List)
}

func (t Tables) listIndexDDL() string {
	return fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s_file_url ON %s (file_url);", t.List, t.List)
}

func (t Tables) ddl() string {
	return `
PRAGMA journal_mode=WAL;
` + t.listTableDDL() + t.listIndexDDL() + fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    file_url TEXT NOT NULL UNIQUE,
    code     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS %s (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`, t.Code, t.Meta)
}

// Init creates the schema tables if they don't exist.
func Init(db *sql.DB, t Tables) error {
	_, err := db.Exec(t.ddl())
	return err
}
