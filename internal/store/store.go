// Package store owns every process-wide mutable structure: the room
// cache, the on-disk index, the quarantine set, the dirty-room set,
// the metrics registry, and the rate limiter. Handlers never touch
// internal/persistence directly; they go through a *Store, mirroring
// the teacher's Orchestrator{Registry, Rooms, Policy, Relays}
// composition — one struct, constructor-injected, owning everything
// that must be serialized across goroutines.
package store

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/dkeye/frameroom/internal/apperr"
	"github.com/dkeye/frameroom/internal/config"
	"github.com/dkeye/frameroom/internal/idgen"
	"github.com/dkeye/frameroom/internal/metrics"
	"github.com/dkeye/frameroom/internal/persistence"
	"github.com/dkeye/frameroom/internal/ratelimit"
	"github.com/dkeye/frameroom/internal/room"
	"github.com/rs/zerolog/log"
)

type cachedRoom struct {
	room       *room.Room
	lastAccess time.Time
}

// Store is the single process-wide singleton. Its own mutex guards
// only the cache/index/quarantine/dirty bookkeeping; mutation of an
// individual room's fields is serialized by that room's own Mu, held
// by the caller across the mutate-then-Save critical section.
type Store struct {
	cfg    *config.Config
	layout persistence.Layout

	mu         sync.Mutex
	cache      map[string]*cachedRoom
	index      persistence.Index
	quarantine persistence.QuarantineSet
	dirty      map[string]struct{}
	lastBackup time.Time

	Metrics *metrics.Registry
	Limiter *ratelimit.Limiter

	// OnError, if set, is notified of the most recent internal failure
	// for surfacing on the health snapshot. Not required for correctness.
	OnError func(code, message string)
}

func (s *Store) recordError(code, message string) {
	if s.OnError != nil {
		s.OnError(code, message)
	}
}

// New loads the index and quarantine set from disk (rebuilding the
// index if it is missing or corrupt) and constructs an empty cache.
func New(cfg *config.Config, layout persistence.Layout) (*Store, error) {
	idx, err := persistence.LoadOrRebuildIndex(layout)
	if err != nil {
		return nil, fmt.Errorf("store: load index: %w", err)
	}
	qs, err := persistence.LoadQuarantine(layout)
	if err != nil {
		return nil, fmt.Errorf("store: load quarantine: %w", err)
	}
	return &Store{
		cfg:        cfg,
		layout:     layout,
		cache:      make(map[string]*cachedRoom),
		index:      idx,
		quarantine: qs,
		dirty:      make(map[string]struct{}),
		Metrics:    metrics.New(),
		Limiter:    ratelimit.New(),
	}, nil
}

// themePool is the fixed fallback pool used when a room is created
// with a blank theme.
var themePool = []string{
	"走る犬", "空を飛ぶ魚", "踊る椅子", "歌う山", "笑う月",
	"泳ぐ傘", "眠る街", "跳ねる石", "光る影", "回る時計",
}

func randomTheme() string {
	return themePool[rand.Intn(len(themePool))]
}

// Resolve returns the live room for roomID, loading it from disk into
// the cache on a miss. It never returns a quarantined room's state to
// the caller implicitly — callers that must hide quarantine (join_by_id,
// resync) check IsQuarantined themselves.
func (s *Store) Resolve(roomID string) (*room.Room, error) {
	s.mu.Lock()
	if entry, ok := s.cache[roomID]; ok {
		entry.lastAccess = time.Now()
		s.mu.Unlock()
		return entry.room, nil
	}
	s.mu.Unlock()

	if !persistence.RoomExists(s.layout, roomID) {
		return nil, apperr.NotFound("room not found")
	}
	r, err := persistence.LoadRoom(s.layout, roomID)
	if err != nil {
		return nil, apperr.Internal("failed to load room", err)
	}
	r.NormalizePhase()
	r.Sweep(time.Now().UnixMilli())

	s.mu.Lock()
	if entry, ok := s.cache[roomID]; ok {
		// Lost a race with a concurrent loader; keep the winner.
		entry.lastAccess = time.Now()
		s.mu.Unlock()
		return entry.room, nil
	}
	s.cache[roomID] = &cachedRoom{room: r, lastAccess: time.Now()}
	s.mu.Unlock()
	return r, nil
}

// Save persists r, refreshes its cache recency, marks it dirty for
// the next backup pass, and updates its index entry. Callers must
// hold r.Mu across the mutation that precedes this call.
func (s *Store) Save(r *room.Room) error {
	r.NormalizePhase()
	if err := persistence.SaveRoom(s.layout, r); err != nil {
		s.recordError("PERSIST_FAILED", err.Error())
		return apperr.Internal("failed to persist room", err)
	}

	s.mu.Lock()
	if entry, ok := s.cache[r.RoomID]; ok {
		entry.lastAccess = time.Now()
	} else {
		s.cache[r.RoomID] = &cachedRoom{room: r, lastAccess: time.Now()}
	}
	s.index[r.RoomID] = persistence.EntryFromRoom(r)
	s.dirty[r.RoomID] = struct{}{}
	s.mu.Unlock()
	return nil
}

// CreateRoom mints a fresh room id (retrying on collision), commits
// the caller's first frame into slot 0, and persists it.
func (s *Store) CreateRoom(theme, firstFrameDataURL string) (*room.Room, error) {
	if theme == "" {
		theme = randomTheme()
	}

	var roomID string
	const maxAttempts = 10
	for attempt := 0; ; attempt++ {
		candidate := idgen.NewRoomID()
		s.mu.Lock()
		_, inCache := s.cache[candidate]
		s.mu.Unlock()
		if !inCache && !persistence.RoomExists(s.layout, candidate) {
			roomID = candidate
			break
		}
		if attempt >= maxAttempts {
			return nil, apperr.Internal("failed to mint a unique room id", nil)
		}
	}

	now := time.Now().UnixMilli()
	r := room.New(roomID, theme, now)
	r.Frames[0] = firstFrameDataURL
	r.Committed[0] = true
	r.UpdatedAt = now
	r.NormalizePhase()

	if err := s.Save(r); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[roomID] = &cachedRoom{room: r, lastAccess: time.Now()}
	s.mu.Unlock()
	return r, nil
}

// IsQuarantined reports whether roomID is currently on the quarantine
// list.
func (s *Store) IsQuarantined(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.quarantine[roomID]
	return ok
}

// SetQuarantine sets roomID's quarantine membership to on and persists
// the set atomically.
func (s *Store) SetQuarantine(roomID string, on bool) error {
	s.mu.Lock()
	if on {
		s.quarantine[roomID] = struct{}{}
	} else {
		delete(s.quarantine, roomID)
	}
	snapshot := make(persistence.QuarantineSet, len(s.quarantine))
	for id := range s.quarantine {
		snapshot[id] = struct{}{}
	}
	s.mu.Unlock()

	if err := persistence.SaveQuarantine(s.layout, snapshot); err != nil {
		return apperr.Internal("failed to persist quarantine set", err)
	}
	return nil
}

// ToggleQuarantine flips roomID's quarantine membership and returns
// the resulting state.
func (s *Store) ToggleQuarantine(roomID string) (bool, error) {
	s.mu.Lock()
	_, was := s.quarantine[roomID]
	s.mu.Unlock()
	next := !was
	if err := s.SetQuarantine(roomID, next); err != nil {
		return was, err
	}
	return next, nil
}

// DeleteIndexEntry removes a stale index entry, used when join_random
// or join_by_id discovers the index points at a room file that no
// longer exists on disk.
func (s *Store) DeleteIndexEntry(roomID string) {
	s.mu.Lock()
	delete(s.index, roomID)
	s.mu.Unlock()

	s.mu.Lock()
	snapshot := make(persistence.Index, len(s.index))
	for id, e := range s.index {
		snapshot[id] = e
	}
	s.mu.Unlock()

	if err := persistence.SaveIndex(s.layout, snapshot); err != nil {
		log.Error().Err(err).Str("module", "store").Str("roomId", roomID).Msg("failed to persist index after removing stale entry")
	}
}

// CacheLen reports the number of rooms currently held in memory.
func (s *Store) CacheLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

// IndexLen reports the number of rooms known to the index.
func (s *Store) IndexLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

// QuarantineLen reports the number of rooms currently quarantined.
func (s *Store) QuarantineLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.quarantine)
}

// QuarantineList returns the currently quarantined room ids. Not
// exposed on the public health snapshot, only on /admin/status.
func (s *Store) QuarantineList() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.quarantine))
	for id := range s.quarantine {
		ids = append(ids, id)
	}
	return ids
}

// DirtyLen reports the number of rooms awaiting their next backup.
func (s *Store) DirtyLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty)
}

// RoomsOnDisk counts the room files under the data directory.
func (s *Store) RoomsOnDisk() (int, error) {
	ids, err := persistence.ListRoomFiles(s.layout)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
