package tracelog

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

const currentSchemaVersion = 1

// Record is one persisted action.
type Record struct {
	Seq       int64  `json:"seq"`
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
	Key       string `json:"key,omitempty"`
	Payload   string `json:"payload"`
}

// ActionKey returns "namespace::name".
func (r Record) ActionKey() string {
	return r.Namespace + "::" + r.Name
}

// Log is the SQLite-backed action log.
type Log struct {
	db *sql.DB
}

// Open creates or opens the log at path. ":memory:" gives a private
// in-memory log.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer; one connection also keeps :memory: shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Log{db: db}, nil
}

// Close closes the database.
func (l *Log) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// Write appends a record. Writing an existing seq is a no-op.
func (l *Log) Write(ctx context.Context, r Record) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO actions (seq, namespace, name, key, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`, r.Seq, r.Namespace, r.Name, r.Key, r.Payload)
	if err != nil {
		return fmt.Errorf("write action %d: %w", r.Seq, err)
	}
	return nil
}

// MaxSeq returns the highest recorded seq, or 0 for an empty log.
func (l *Log) MaxSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := l.db.QueryRowContext(ctx, "SELECT MAX(seq) FROM actions").Scan(&seq); err != nil {
		return 0, fmt.Errorf("max seq: %w", err)
	}
	return seq.Int64, nil
}

// ReadAll returns every record ordered by seq.
// Returns an empty slice (not nil) for an empty log.
func (l *Log) ReadAll(ctx context.Context) ([]Record, error) {
	return l.query(ctx, `
		SELECT seq, namespace, name, key, payload
		FROM actions
		ORDER BY seq ASC
	`)
}

// ReadByKey returns the records correlated with key ordered by seq.
func (l *Log) ReadByKey(ctx context.Context, key string) ([]Record, error) {
	return l.query(ctx, `
		SELECT seq, namespace, name, key, payload
		FROM actions
		WHERE key = ?
		ORDER BY seq ASC
	`, key)
}

// Keys returns the distinct correlation keys in order of first appearance.
func (l *Log) Keys(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT key
		FROM actions
		WHERE key != ''
		GROUP BY key
		ORDER BY MIN(seq) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return keys, nil
}

func (l *Log) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Seq, &r.Namespace, &r.Name, &r.Key, &r.Payload); err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return records, nil
}
