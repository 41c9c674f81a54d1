package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dkeye/frameroom/internal/room"
)

// SaveRoom atomically writes r to its per-room JSON file.
func SaveRoom(l Layout, r *room.Room) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("persistence: marshal room %s: %w", r.RoomID, err)
	}
	return AtomicWriteFile(l.RoomPath(r.RoomID), data, 0o644)
}

// LoadRoom reads and decodes a room's JSON file. Returns an error
// wrapping os.ErrNotExist if the file does not exist.
func LoadRoom(l Layout, roomID string) (*room.Room, error) {
	data, err := os.ReadFile(l.RoomPath(roomID))
	if err != nil {
		return nil, err
	}
	var r room.Room
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("persistence: decode room %s: %w", roomID, err)
	}
	return &r, nil
}

// RoomExists reports whether a room's JSON file is present on disk.
func RoomExists(l Layout, roomID string) bool {
	_, err := os.Stat(l.RoomPath(roomID))
	return err == nil
}

// DeleteRoomFile removes a room's on-disk JSON file, ignoring
// not-exist errors.
func DeleteRoomFile(l Layout, roomID string) error {
	err := os.Remove(l.RoomPath(roomID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ListRoomFiles returns the room IDs of every non-temp room JSON file
// under the rooms directory.
func ListRoomFiles(l Layout) ([]string, error) {
	entries, err := os.ReadDir(l.RoomsDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || IsTempFile(name) {
			continue
		}
		if len(name) > 5 && name[len(name)-5:] == ".json" {
			ids = append(ids, name[:len(name)-5])
		}
	}
	return ids, nil
}
