package store

import (
	"context"
	"sort"
	"time"

	"github.com/dkeye/frameroom/internal/persistence"
	"github.com/rs/zerolog/log"
)

const evictionInterval = 15 * time.Second

// RunEvictionLoop ticks every 15s, first dropping entries idle longer
// than RoomCacheIdle, then — if the cache still exceeds RoomCacheMax —
// dropping the least-recently-used entries until it fits. Every
// mutation already persists synchronously in Save, so an entry's
// on-disk file is never behind its in-memory state; eviction only
// needs to forget the in-memory copy.
func (s *Store) RunEvictionLoop(ctx context.Context) {
	ticker := time.NewTicker(evictionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evictOnce()
		}
	}
}

func (s *Store) evictOnce() {
	now := time.Now()

	s.mu.Lock()
	idleDropped := 0
	for id, entry := range s.cache {
		if now.Sub(entry.lastAccess) >= s.cfg.RoomCacheIdle {
			delete(s.cache, id)
			idleDropped++
		}
	}

	sizeDropped := 0
	if excess := len(s.cache) - s.cfg.RoomCacheMax; excess > 0 {
		type aged struct {
			id         string
			lastAccess time.Time
		}
		ordered := make([]aged, 0, len(s.cache))
		for id, entry := range s.cache {
			ordered = append(ordered, aged{id: id, lastAccess: entry.lastAccess})
		}
		sort.Slice(ordered, func(i, j int) bool {
			return ordered[i].lastAccess.Before(ordered[j].lastAccess)
		})
		for i := 0; i < excess && i < len(ordered); i++ {
			delete(s.cache, ordered[i].id)
			sizeDropped++
		}
	}
	remaining := len(s.cache)
	s.mu.Unlock()

	if idleDropped > 0 || sizeDropped > 0 {
		log.Debug().Str("module", "store").
			Int("idleDropped", idleDropped).
			Int("sizeDropped", sizeDropped).
			Int("remaining", remaining).
			Msg("evicted rooms from cache")
	}
}

// RunBackupLoop ticks roughly every 30s, creating a backup snapshot
// only when the configured interval has elapsed and the dirty set is
// non-empty, then pruning old backups beyond BackupKeep.
func (s *Store) RunBackupLoop(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.backupIfDue(time.Now())
		}
	}
}

func (s *Store) backupIfDue(now time.Time) {
	s.mu.Lock()
	due := now.Sub(s.lastBackup) >= s.cfg.BackupInterval && len(s.dirty) > 0
	s.mu.Unlock()
	if !due {
		return
	}
	s.forceBackup(now)
}

// ForceBackup runs a backup pass regardless of the interval, used on
// graceful shutdown when the dirty set is non-empty.
func (s *Store) ForceBackup() error {
	s.mu.Lock()
	hasDirty := len(s.dirty) > 0
	s.mu.Unlock()
	if !hasDirty {
		return nil
	}
	return s.forceBackup(time.Now())
}

func (s *Store) forceBackup(now time.Time) error {
	s.mu.Lock()
	idxSnapshot := make(persistence.Index, len(s.index))
	for id, e := range s.index {
		idxSnapshot[id] = e
	}
	dirtyIDs := make([]string, 0, len(s.dirty))
	for id := range s.dirty {
		dirtyIDs = append(dirtyIDs, id)
	}
	s.mu.Unlock()

	ts, err := persistence.CreateBackup(s.layout, idxSnapshot, dirtyIDs, now)
	if err != nil {
		log.Error().Err(err).Str("module", "store").Msg("backup failed")
		s.recordError("BACKUP_FAILED", err.Error())
		return err
	}

	s.mu.Lock()
	s.lastBackup = now
	s.dirty = make(map[string]struct{})
	s.mu.Unlock()

	if err := persistence.PruneBackups(s.layout, s.cfg.BackupKeep); err != nil {
		log.Error().Err(err).Str("module", "store").Msg("backup pruning failed")
		s.recordError("BACKUP_PRUNE_FAILED", err.Error())
		return err
	}

	log.Info().Str("module", "store").Str("backupId", ts).Int("rooms", len(dirtyIDs)).Msg("backup created")
	return nil
}

// RunRateLimitSweepLoop periodically drops stale rate-limit buckets.
func (s *Store) RunRateLimitSweepLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Limiter.Sweep(time.Now())
		}
	}
}
