package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/rollcall/internal/domain/attendance"
	"github.com/rpggio/rollcall/internal/repository"
)

// DocumentStore implements attendance.DocumentStore in a single-row table,
// with snapshots kept in their own table.
type DocumentStore struct {
	db  *DB
	now func() time.Time
}

// NewDocumentStore creates a new DocumentStore
func NewDocumentStore(db *DB) *DocumentStore {
	return &DocumentStore{db: db, now: time.Now}
}

// Load returns the stored document, inserting a default one on first use
func (s *DocumentStore) Load(ctx context.Context) (*attendance.Document, error) {
	body, err := s.body(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		doc := attendance.NewDocument(s.now())
		if err := s.Save(ctx, doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeDocument(body)
}

// Save replaces the stored document in one transaction
func (s *DocumentStore) Save(ctx context.Context, doc *attendance.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO documents (id, body, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
	`
	if _, err := tx.ExecContext(ctx, query, string(data), s.now()); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document: %w", err)
	}
	return nil
}

// Backup copies the stored document into the snapshots table
func (s *DocumentStore) Backup(ctx context.Context) (string, error) {
	if _, err := s.Load(ctx); err != nil {
		return "", err
	}
	body, err := s.body(ctx)
	if err != nil {
		return "", err
	}

	stamp := s.now()
	name := attendance.BackupName(stamp, 0)
	for i := 1; i < 1000; i++ {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO snapshots (name, body, created_at) VALUES (?, ?, ?)`,
			name, body, s.now(),
		)
		if err == nil {
			return name, nil
		}
		if !isUniqueViolation(err) {
			return "", fmt.Errorf("failed to create snapshot: %w", err)
		}
		name = attendance.BackupName(stamp, i)
	}
	return "", fmt.Errorf("%w: too many snapshots at %s", repository.ErrConflict, stamp.Format(attendance.BackupLayout))
}

// Restore replaces the stored document with a snapshot
func (s *DocumentStore) Restore(ctx context.Context, name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: snapshot name %q", repository.ErrInvalidInput, name)
	}
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM snapshots WHERE name = ?`, name).Scan(&body)
	if err == sql.ErrNoRows {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	doc, err := decodeDocument(body)
	if err != nil {
		return err
	}
	if !doc.Stamped() {
		return fmt.Errorf("%w: snapshot %q is not a document", repository.ErrCorrupt, name)
	}
	return s.Save(ctx, doc)
}

// ListBackups returns snapshot names, newest first
func (s *DocumentStore) ListBackups(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM snapshots`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}
	attendance.SortBackups(names)
	return names, nil
}

func (s *DocumentStore) body(ctx context.Context) (string, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM documents WHERE id = 1`).Scan(&body)
	if err == sql.ErrNoRows {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	return body, nil
}

func decodeDocument(body string) (*attendance.Document, error) {
	var doc attendance.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrCorrupt, err)
	}
	doc.Normalize()
	return &doc, nil
}
