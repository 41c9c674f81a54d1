package persistence

import (
	"encoding/json"
	"os"

	"github.com/dkeye/frameroom/internal/room"
	"github.com/rs/zerolog/log"
)

// IndexEntry is the materialized view of a room used for O(1) random
// selection without loading the full room.
type IndexEntry struct {
	Theme       string `json:"theme"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
	FilledCount int    `json:"filledCount"`
	Completed   bool   `json:"completed"`
}

// Index maps roomId to its materialized metadata.
type Index map[string]IndexEntry

func EntryFromRoom(r *room.Room) IndexEntry {
	return IndexEntry{
		Theme:       r.Theme,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		FilledCount: r.FilledCount(),
		Completed:   r.Phase == room.PhasePlayback || r.FilledCount() >= room.FrameCount,
	}
}

// SaveIndex atomically writes the index file.
func SaveIndex(l Layout, idx Index) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return err
	}
	return AtomicWriteFile(l.IndexPath(), data, 0o644)
}

// LoadOrRebuildIndex loads rooms_index.json; if it is missing or
// unparseable, it scans rooms/*.json, rebuilds the index from each
// room's roomId/theme/timestamps/filled-count/completion, and
// atomically writes the rebuilt index back out (crash-safe startup,
// §4.C).
func LoadOrRebuildIndex(l Layout) (Index, error) {
	data, err := os.ReadFile(l.IndexPath())
	if err == nil {
		var idx Index
		if jsonErr := json.Unmarshal(data, &idx); jsonErr == nil {
			if idx == nil {
				idx = Index{}
			}
			return idx, nil
		}
		log.Warn().Str("module", "persistence").Msg("index file unparseable, rebuilding from rooms/")
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	idx, rebuildErr := RebuildIndex(l)
	if rebuildErr != nil {
		return nil, rebuildErr
	}
	if saveErr := SaveIndex(l, idx); saveErr != nil {
		log.Error().Err(saveErr).Str("module", "persistence").Msg("failed to persist rebuilt index")
	}
	return idx, nil
}

// RebuildIndex scans rooms/*.json and recomputes the index from
// scratch, skipping any room file that fails to decode.
func RebuildIndex(l Layout) (Index, error) {
	ids, err := ListRoomFiles(l)
	if err != nil {
		return nil, err
	}
	idx := make(Index, len(ids))
	for _, id := range ids {
		r, loadErr := LoadRoom(l, id)
		if loadErr != nil {
			log.Warn().Err(loadErr).Str("module", "persistence").Str("roomId", id).Msg("skipping unreadable room during index rebuild")
			continue
		}
		r.NormalizePhase()
		idx[id] = EntryFromRoom(r)
	}
	return idx, nil
}
