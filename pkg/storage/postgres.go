package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// DefaultTitle names revisions saved without an explicit title
const DefaultTitle = "document"

// PostgresSink stores every save as a new revision row in PostgreSQL
type PostgresSink struct {
	db    *sql.DB
	title string
}

// NewPostgresSink creates a new PostgreSQL sink. Revisions are grouped under title.
func NewPostgresSink(connStr, title string) (*PostgresSink, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return newPostgresSink(db, title)
}

func newPostgresSink(db *sql.DB, title string) (*PostgresSink, error) {
	if title == "" {
		title = DefaultTitle
	}
	sink := &PostgresSink{db: db, title: title}

	if err := sink.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return sink, nil
}

// WithTitle returns a sink that shares the connection but files revisions under title.
func (s *PostgresSink) WithTitle(title string) *PostgresSink {
	if title == "" {
		title = DefaultTitle
	}
	return &PostgresSink{db: s.db, title: title}
}

// Close closes the database connection, including for sinks derived with WithTitle
func (s *PostgresSink) Close() error {
	return s.db.Close()
}

func (s *PostgresSink) String() string {
	return "postgres:" + s.title
}

// Save inserts data as the next revision of the sink's title.
func (s *PostgresSink) Save(data string) error {
	_, err := s.insertRevision(data)
	return err
}

func (s *PostgresSink) insertRevision(content string) (*Revision, error) {
	id := uuid.New().String()
	now := time.Now()

	query := `
		INSERT INTO document_revisions (id, title, content, created_at, version)
		SELECT $1::varchar, $2::varchar, $3::text, $4::timestamptz, COALESCE(MAX(version), 0) + 1
		FROM document_revisions
		WHERE title = $2::varchar
		RETURNING id, title, content, created_at, version
	`

	rev := &Revision{}
	err := s.db.QueryRow(query, id, s.title, content, now).Scan(
		&rev.ID,
		&rev.Title,
		&rev.Content,
		&rev.CreatedAt,
		&rev.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save revision: %w", err)
	}

	return rev, nil
}

// Latest returns the newest revision for the sink's title
func (s *PostgresSink) Latest() (*Revision, error) {
	query := `
		SELECT id, title, content, created_at, version
		FROM document_revisions
		WHERE title = $1
		ORDER BY version DESC
		LIMIT 1
	`
	return s.scanOne(s.db.QueryRow(query, s.title))
}

func (s *PostgresSink) GetRevision(id string) (*Revision, error) {
	query := `
		SELECT id, title, content, created_at, version
		FROM document_revisions
		WHERE id = $1
	`
	return s.scanOne(s.db.QueryRow(query, id))
}

func (s *PostgresSink) scanOne(row *sql.Row) (*Revision, error) {
	rev := &Revision{}
	err := row.Scan(
		&rev.ID,
		&rev.Title,
		&rev.Content,
		&rev.CreatedAt,
		&rev.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRevisionNotFound
		}
		return nil, fmt.Errorf("failed to get revision: %w", err)
	}
	return rev, nil
}

// ListRevisions returns the sink's revisions, newest first
func (s *PostgresSink) ListRevisions() ([]*Revision, error) {
	query := `
		SELECT id, title, content, created_at, version
		FROM document_revisions
		WHERE title = $1
		ORDER BY version DESC
	`

	rows, err := s.db.Query(query, s.title)
	if err != nil {
		return nil, fmt.Errorf("failed to list revisions: %w", err)
	}
	defer rows.Close()

	var revisions []*Revision
	for rows.Next() {
		rev := &Revision{}
		err := rows.Scan(
			&rev.ID,
			&rev.Title,
			&rev.Content,
			&rev.CreatedAt,
			&rev.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		revisions = append(revisions, rev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}

	return revisions, nil
}

func (s *PostgresSink) DeleteRevision(id string) error {
	query := `DELETE FROM document_revisions WHERE id = $1`

	result, err := s.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete revision: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrRevisionNotFound
	}

	return nil
}

// Compile-time check to ensure PostgresSink implements RevisionStore
var _ RevisionStore = (*PostgresSink)(nil)
