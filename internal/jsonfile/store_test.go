package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rpggio/rollcall/internal/domain/attendance"
	"github.com/rpggio/rollcall/internal/repository"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "data", "db.json"), filepath.Join(dir, "backups"))
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2025, time.May, 2, 14, 3, 9, 0, time.UTC) }
	return s
}

func TestStore_LoadCreatesDefault(t *testing.T) {
	s := newTestStore(t)

	doc, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, doc.Groups)
	require.Empty(t, doc.Attendance)
	require.Nil(t, doc.Settings.LogChatID)
	require.Equal(t, 2025, doc.Meta.Created.Year())

	_, err = os.Stat(s.Path())
	require.NoError(t, err)
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	chat := int64(-42)
	doc := attendance.NewDocument(time.Now())
	doc.Groups["G1"] = attendance.Group{Name: "G1", Code: "7", Students: []string{"A", "B"}}
	doc.Settings.LogChatID = &chat
	require.NoError(t, s.Save(ctx, doc))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, doc.Groups, got.Groups)
	require.Equal(t, chat, *got.Settings.LogChatID)

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
}

func TestStore_LoadToleratesMissingFields(t *testing.T) {
	s := newTestStore(t)
	raw := `{"groups":{"G1":{"students":["A"],"code":"1"}},"extra":true}`
	require.NoError(t, os.WriteFile(s.Path(), []byte(raw), 0o644))

	doc, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "G1", doc.Groups["G1"].Name)
	require.NotNil(t, doc.Attendance)
}

func TestStore_LoadCorrupt(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{nope"), 0o644))

	_, err := s.Load(context.Background())
	require.ErrorIs(t, err, repository.ErrCorrupt)
}

func TestStore_BackupNamesAndCollisions(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.Backup(ctx)
	require.NoError(t, err)
	require.Equal(t, "db_backup_20250502_140309.json", first)

	second, err := s.Backup(ctx)
	require.NoError(t, err)
	require.Equal(t, "db_backup_20250502_140309_1.json", second)

	s.now = func() time.Time { return time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC) }
	third, err := s.Backup(ctx)
	require.NoError(t, err)

	names, err := s.ListBackups(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{third, second, first}, names)
}

func TestStore_ListBackupsOrdersCollisionsNumerically(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var names []string
	for i := 0; i < 12; i++ {
		name, err := s.Backup(ctx)
		require.NoError(t, err)
		names = append(names, name)
	}
	require.Equal(t, "db_backup_20250502_140309_11.json", names[11])

	got, err := s.ListBackups(ctx)
	require.NoError(t, err)
	require.Len(t, got, 12)
	for i := range got {
		require.Equal(t, names[11-i], got[i])
	}
}

func TestStore_RestoreReplacesDocument(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	doc, err := s.Load(ctx)
	require.NoError(t, err)
	doc.Groups["G1"] = attendance.Group{Name: "G1", Students: []string{"A"}}
	require.NoError(t, s.Save(ctx, doc))
	name, err := s.Backup(ctx)
	require.NoError(t, err)

	delete(doc.Groups, "G1")
	doc.Groups["G2"] = attendance.Group{Name: "G2", Students: []string{}}
	require.NoError(t, s.Save(ctx, doc))

	require.NoError(t, s.Restore(ctx, name))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Contains(t, got.Groups, "G1")
	require.NotContains(t, got.Groups, "G2")
}

func TestStore_RestoreFailuresKeepLiveDocument(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	doc, err := s.Load(ctx)
	require.NoError(t, err)
	doc.Groups["G1"] = attendance.Group{Name: "G1", Students: []string{"A"}}
	require.NoError(t, s.Save(ctx, doc))
	before, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	require.ErrorIs(t, s.Restore(ctx, "db_backup_20000101_000000.json"), repository.ErrNotFound)
	require.ErrorIs(t, s.Restore(ctx, "../data/db.json"), repository.ErrInvalidInput)
	require.ErrorIs(t, s.Restore(ctx, ".."), repository.ErrInvalidInput)

	bad := "db_backup_20000101_000001.json"
	require.NoError(t, os.WriteFile(filepath.Join(s.backupDir, bad), []byte("not json"), 0o644))
	require.ErrorIs(t, s.Restore(ctx, bad), repository.ErrCorrupt)

	for i, body := range []string{"null", "{}", `{"groups":{}}`} {
		empty := fmt.Sprintf("db_backup_20000101_00001%d.json", i)
		require.NoError(t, os.WriteFile(filepath.Join(s.backupDir, empty), []byte(body), 0o644))
		require.ErrorIs(t, s.Restore(ctx, empty), repository.ErrCorrupt, "body %s", body)
	}

	after, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	require.JSONEq(t, string(before), string(after))

	var check attendance.Document
	require.NoError(t, json.Unmarshal(after, &check))
	require.Contains(t, check.Groups, "G1")
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New("", "")
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}
