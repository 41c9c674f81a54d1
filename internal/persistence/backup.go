package persistence

import (
	"encoding/json"
	"os"
	"sort"
	"time"
)

// Manifest lists the rooms included in a single backup snapshot.
type Manifest struct {
	CreatedAt time.Time `json:"createdAt"`
	RoomIDs   []string  `json:"roomIds"`
}

// BackupTimestamp formats now as a lexically-sortable directory name.
func BackupTimestamp(now time.Time) string {
	return now.UTC().Format("20060102T150405.000000000Z")
}

// CreateBackup snapshots the index and copies each dirty room's JSON
// into backups/<timestamp>/. Callers are responsible for clearing the
// dirty set only after this returns successfully.
func CreateBackup(l Layout, idx Index, dirtyRoomIDs []string, now time.Time) (string, error) {
	ts := BackupTimestamp(now)
	dir := l.BackupDir(ts)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	idxData, err := json.Marshal(idx)
	if err != nil {
		return "", err
	}
	if err := AtomicWriteFile(dir+"/rooms_index.json", idxData, 0o644); err != nil {
		return "", err
	}

	sorted := append([]string(nil), dirtyRoomIDs...)
	sort.Strings(sorted)

	manifest := Manifest{CreatedAt: now, RoomIDs: sorted}
	manifestData, err := json.Marshal(manifest)
	if err != nil {
		return "", err
	}
	if err := AtomicWriteFile(dir+"/manifest.json", manifestData, 0o644); err != nil {
		return "", err
	}

	for _, roomID := range sorted {
		data, err := os.ReadFile(l.RoomPath(roomID))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return ts, err
		}
		if err := AtomicWriteFile(dir+"/"+roomID+".json", data, 0o644); err != nil {
			return ts, err
		}
	}

	return ts, nil
}

// PruneBackups removes the oldest backup directories beyond keep,
// ordered lexically (which, given the timestamp format, is also
// chronological).
func PruneBackups(l Layout, keep int) error {
	entries, err := os.ReadDir(l.BackupsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	if len(names) <= keep {
		return nil
	}
	toRemove := names[:len(names)-keep]
	for _, name := range toRemove {
		if err := os.RemoveAll(l.BackupDir(name)); err != nil {
			return err
		}
	}
	return nil
}
