package attendance

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Snapshot names look like db_backup_20250310_090000.json, with _N before
// the extension when several are taken within one second.
const (
	BackupPrefix = "db_backup_"
	BackupSuffix = ".json"
	BackupLayout = "20060102_150405"
)

// BackupName returns the snapshot name for t. n > 0 adds a collision suffix.
func BackupName(t time.Time, n int) string {
	base := BackupPrefix + t.Format(BackupLayout)
	if n > 0 {
		return fmt.Sprintf("%s_%d%s", base, n, BackupSuffix)
	}
	return base + BackupSuffix
}

type backupKey struct {
	stamp string
	n     int
	ok    bool
}

func parseBackupName(name string) backupKey {
	rest, ok := strings.CutPrefix(name, BackupPrefix)
	if !ok {
		return backupKey{}
	}
	rest, ok = strings.CutSuffix(rest, BackupSuffix)
	if !ok || len(rest) < len(BackupLayout) {
		return backupKey{}
	}
	stamp, tail := rest[:len(BackupLayout)], rest[len(BackupLayout):]
	if _, err := time.Parse(BackupLayout, stamp); err != nil {
		return backupKey{}
	}
	if tail == "" {
		return backupKey{stamp: stamp, ok: true}
	}
	n, err := strconv.Atoi(strings.TrimPrefix(tail, "_"))
	if err != nil || !strings.HasPrefix(tail, "_") || n <= 0 {
		return backupKey{}
	}
	return backupKey{stamp: stamp, n: n, ok: true}
}

// SortBackups orders snapshot names newest first by timestamp, then by
// collision number. Names that do not follow the pattern go last.
func SortBackups(names []string) {
	keys := make(map[string]backupKey, len(names))
	for _, n := range names {
		keys[n] = parseBackupName(n)
	}
	sort.SliceStable(names, func(i, j int) bool {
		a, b := keys[names[i]], keys[names[j]]
		switch {
		case a.ok != b.ok:
			return a.ok
		case !a.ok:
			return names[i] > names[j]
		case a.stamp != b.stamp:
			return a.stamp > b.stamp
		default:
			return a.n > b.n
		}
	})
}
