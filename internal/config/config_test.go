package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, key := range []string{
		"ROLLCALL_CONFIG_PATH", "ROLLCALL_SERVER_HOST", "ROLLCALL_SERVER_PORT",
		"ROLLCALL_TRANSPORT_MODE", "ROLLCALL_AUTH_TOKEN", "ROLLCALL_DB_PATH",
		"ROLLCALL_STORE_DRIVER", "ROLLCALL_STORE_PATH", "ROLLCALL_BACKUP_DIR",
		"ROLLCALL_LOG_LEVEL", "ROLLCALL_TIMEZONE", "ROLLCALL_OPERATORS", "ADMIN_IDS",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "http", cfg.Transport.Mode)
	require.Equal(t, "file", cfg.Store.Driver)
	require.Equal(t, "attendance_db.json", cfg.Store.Path)
	require.Empty(t, cfg.Operators)

	loc, err := cfg.Location()
	require.NoError(t, err)
	require.Equal(t, time.Local, loc)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "rollcall.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
store:
  driver: sqlite
log:
  level: debug
timezone: Asia/Tashkent
operators: [1, 2]
seed_groups:
  - name: G1
    code: "101"
    students: [A, B]
`), 0o644))

	t.Setenv("ROLLCALL_CONFIG_PATH", path)
	t.Setenv("ROLLCALL_SERVER_PORT", "9100")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Store.Driver)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, []int64{1, 2}, cfg.Operators)
	require.Len(t, cfg.SeedGroups, 1)
	require.Equal(t, []string{"A", "B"}, cfg.SeedGroups[0].Students)

	loc, err := cfg.Location()
	require.NoError(t, err)
	require.Equal(t, "Asia/Tashkent", loc.String())
}

func TestDotEnvIsLoaded(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ROLLCALL_AUTH_TOKEN=from-dotenv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("ROLLCALL_AUTH_TOKEN") })
	os.Unsetenv("ROLLCALL_AUTH_TOKEN")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "from-dotenv", cfg.Auth.Token)
}

func TestOperatorsFromAdminIDs(t *testing.T) {
	isolate(t)
	t.Setenv("ADMIN_IDS", "100, abc,200,,")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []int64{100, 200}, cfg.Operators)
	require.Len(t, cfg.Warnings, 1)
	require.Contains(t, cfg.Warnings[0], `"abc"`)
}

func TestOperatorsPreferRollcallVariable(t *testing.T) {
	isolate(t)
	t.Setenv("ADMIN_IDS", "1")
	t.Setenv("ROLLCALL_OPERATORS", "2")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []int64{2}, cfg.Operators)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string][2]string{
		"port":      {"ROLLCALL_SERVER_PORT", "abc"},
		"mode":      {"ROLLCALL_TRANSPORT_MODE", "carrier-pigeon"},
		"driver":    {"ROLLCALL_STORE_DRIVER", "csv"},
		"log level": {"ROLLCALL_LOG_LEVEL", "loud"},
		"timezone":  {"ROLLCALL_TIMEZONE", "Mars/Olympus"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			t.Setenv(env[0], env[1])
			_, err := Load()
			require.Error(t, err)
		})
	}
}
