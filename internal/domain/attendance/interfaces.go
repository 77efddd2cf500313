package attendance

import "context"

// DocumentStore persists the whole document at once.
type DocumentStore interface {
	// Load returns the current document, creating a default one on first use.
	Load(ctx context.Context) (*Document, error)
	// Save replaces the stored document atomically.
	Save(ctx context.Context, doc *Document) error
	// Backup snapshots the stored document and returns the snapshot name.
	Backup(ctx context.Context) (string, error)
	// Restore replaces the stored document with the named snapshot.
	Restore(ctx context.Context, name string) error
	// ListBackups returns snapshot names, newest first.
	ListBackups(ctx context.Context) ([]string, error)
}
