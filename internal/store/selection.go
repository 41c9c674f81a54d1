package store

import (
	"math/rand"

	"github.com/dkeye/frameroom/internal/apperr"
	"github.com/dkeye/frameroom/internal/room"
)

// PickRandomRoomID selects uniformly at random among index entries
// that are not quarantined, not completed, and have filledCount < 60.
// It reads the index only, never loading a full room.
func (s *Store) PickRandomRoomID() (string, error) {
	s.mu.Lock()
	candidates := make([]string, 0, len(s.index))
	for id, entry := range s.index {
		if _, quarantined := s.quarantine[id]; quarantined {
			continue
		}
		if entry.Completed || entry.FilledCount >= room.FrameCount {
			continue
		}
		candidates = append(candidates, id)
	}
	s.mu.Unlock()

	if len(candidates) == 0 {
		return "", apperr.NotFound("no joinable rooms available")
	}
	return candidates[rand.Intn(len(candidates))], nil
}
