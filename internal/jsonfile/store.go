// Package jsonfile stores the attendance document as a single JSON file.
//
// Writes go to a temporary file in the same directory which is synced and
// then renamed over the live file, so a crash mid-write leaves either the
// old or the new document on disk. Backups are plain copies of the live
// file in a separate directory.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rpggio/rollcall/internal/domain/attendance"
	"github.com/rpggio/rollcall/internal/repository"
)

// Store implements attendance.DocumentStore on the local filesystem.
type Store struct {
	path      string
	backupDir string
	now       func() time.Time
}

// New creates a store for the document at path with snapshots in backupDir.
func New(path, backupDir string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: document path is required", repository.ErrInvalidInput)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create document directory: %w", err)
		}
	}
	if backupDir != "" {
		if err := os.MkdirAll(backupDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create backup directory: %w", err)
		}
	}
	return &Store{path: path, backupDir: backupDir, now: time.Now}, nil
}

// Path returns the location of the live document.
func (s *Store) Path() string {
	return s.path
}

// Load reads the document, writing a default one first if none exists.
func (s *Store) Load(ctx context.Context) (*attendance.Document, error) {
	if err := s.ensure(ctx); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	doc, err := decode(data)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Save atomically replaces the live document.
func (s *Store) Save(ctx context.Context, doc *attendance.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	return writeAtomic(s.path, data)
}

// Backup copies the live document into the backup directory.
func (s *Store) Backup(ctx context.Context) (string, error) {
	if s.backupDir == "" {
		return "", fmt.Errorf("%w: backup directory is not configured", repository.ErrInvalidInput)
	}
	if err := s.ensure(ctx); err != nil {
		return "", err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}

	stamp := s.now()
	name := attendance.BackupName(stamp, 0)
	for i := 1; ; i++ {
		_, err := os.Stat(filepath.Join(s.backupDir, name))
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to stat backup: %w", err)
		}
		name = attendance.BackupName(stamp, i)
	}

	if err := writeAtomic(filepath.Join(s.backupDir, name), data); err != nil {
		return "", err
	}
	return name, nil
}

// Restore replaces the live document with a snapshot. The snapshot must
// parse as a document; otherwise the live file is left as it was.
func (s *Store) Restore(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if s.backupDir == "" {
		return repository.ErrNotFound
	}
	data, err := os.ReadFile(filepath.Join(s.backupDir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("failed to read backup: %w", err)
	}
	doc, err := decode(data)
	if err != nil {
		return err
	}
	if !doc.Stamped() {
		return fmt.Errorf("%w: backup %q is not a document", repository.ErrCorrupt, name)
	}
	return s.Save(ctx, doc)
}

// ListBackups returns snapshot file names, newest first.
func (s *Store) ListBackups(_ context.Context) ([]string, error) {
	if s.backupDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), attendance.BackupPrefix) && strings.HasSuffix(e.Name(), attendance.BackupSuffix) {
			names = append(names, e.Name())
		}
	}
	attendance.SortBackups(names)
	return names, nil
}

func (s *Store) ensure(ctx context.Context) error {
	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat document: %w", err)
	}
	return s.Save(ctx, attendance.NewDocument(s.now()))
}

func decode(data []byte) (*attendance.Document, error) {
	var doc attendance.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrCorrupt, err)
	}
	doc.Normalize()
	return &doc, nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: backup name %q", repository.ErrInvalidInput, name)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace document: %w", err)
	}
	return nil
}
