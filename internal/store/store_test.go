package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkeye/frameroom/internal/config"
	"github.com/dkeye/frameroom/internal/persistence"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		DataDir:        dir,
		RoomCacheMax:   80,
		RoomCacheIdle:  5 * time.Minute,
		ReservationTTL: 3 * time.Minute,
		BackupInterval: 30 * time.Minute,
		BackupKeep:     24,
	}
	s, err := New(cfg, persistence.NewLayout(dir))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestCreateRoomCommitsFirstFrame(t *testing.T) {
	s := testStore(t)
	r, err := s.CreateRoom("theme", "data:image/png;base64,AAAA")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if !r.Committed[0] {
		t.Fatal("frame 0 should be committed")
	}
	if r.Frames[0] != "data:image/png;base64,AAAA" {
		t.Fatalf("frame 0 payload mismatch: %q", r.Frames[0])
	}
	if !persistence.RoomExists(persistence.NewLayout(s.layout.DataDir), r.RoomID) {
		t.Fatal("room should be persisted to disk")
	}
}

func TestCreateRoomBlankThemeUsesPool(t *testing.T) {
	s := testStore(t)
	r, err := s.CreateRoom("", "data:image/png;base64,AAAA")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if r.Theme == "" {
		t.Fatal("expected a non-blank fallback theme")
	}
}

func TestResolveReadsThroughToDiskOnCacheMiss(t *testing.T) {
	s := testStore(t)
	r, err := s.CreateRoom("theme", "data:image/png;base64,AAAA")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	roomID := r.RoomID

	// Simulate a cold cache by constructing a fresh store over the same
	// data directory.
	cfg := &config.Config{DataDir: s.layout.DataDir, RoomCacheMax: 80, RoomCacheIdle: 5 * time.Minute}
	cold, err := New(cfg, persistence.NewLayout(s.layout.DataDir))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	loaded, err := cold.Resolve(roomID)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if loaded.RoomID != roomID || !loaded.Committed[0] {
		t.Fatalf("loaded room mismatch: %+v", loaded)
	}
	if cold.CacheLen() != 1 {
		t.Fatalf("expected 1 cached entry after read-through, got %d", cold.CacheLen())
	}
}

func TestResolveMissingRoomIsNotFound(t *testing.T) {
	s := testStore(t)
	if _, err := s.Resolve("NOPENOPE"); err == nil {
		t.Fatal("expected an error for a nonexistent room")
	}
}

func TestQuarantineRoundTrip(t *testing.T) {
	s := testStore(t)
	if s.IsQuarantined("ROOM1") {
		t.Fatal("should not start quarantined")
	}
	if err := s.SetQuarantine("ROOM1", true); err != nil {
		t.Fatalf("SetQuarantine: %v", err)
	}
	if !s.IsQuarantined("ROOM1") {
		t.Fatal("expected quarantined after SetQuarantine(true)")
	}
	next, err := s.ToggleQuarantine("ROOM1")
	if err != nil {
		t.Fatalf("ToggleQuarantine: %v", err)
	}
	if next {
		t.Fatal("toggle from on should produce off")
	}
	if s.IsQuarantined("ROOM1") {
		t.Fatal("should no longer be quarantined")
	}
}

func TestPickRandomRoomIDExcludesQuarantinedAndCompleted(t *testing.T) {
	s := testStore(t)
	open, err := s.CreateRoom("open room", "data:image/png;base64,AAAA")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	quarantined, err := s.CreateRoom("quarantined room", "data:image/png;base64,AAAA")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if err := s.SetQuarantine(quarantined.RoomID, true); err != nil {
		t.Fatalf("SetQuarantine: %v", err)
	}

	for i := 0; i < 50; i++ {
		id, err := s.PickRandomRoomID()
		if err != nil {
			t.Fatalf("PickRandomRoomID: %v", err)
		}
		if id != open.RoomID {
			t.Fatalf("expected only the open room to be selectable, got %q", id)
		}
	}
}

func TestPickRandomRoomIDEmptyReturnsError(t *testing.T) {
	s := testStore(t)
	if _, err := s.PickRandomRoomID(); err == nil {
		t.Fatal("expected an error with no joinable rooms")
	}
}

func TestEvictOnceDropsIdleEntries(t *testing.T) {
	s := testStore(t)
	s.cfg.RoomCacheIdle = time.Millisecond
	r, err := s.CreateRoom("theme", "data:image/png;base64,AAAA")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	s.evictOnce()
	if s.CacheLen() != 0 {
		t.Fatalf("expected cache empty after idle eviction, got %d", s.CacheLen())
	}
	if !persistence.RoomExists(s.layout, r.RoomID) {
		t.Fatal("eviction must not remove the on-disk copy")
	}
}

func TestEvictOnceSizeEvictsLeastRecentlyUsed(t *testing.T) {
	s := testStore(t)
	s.cfg.RoomCacheMax = 1
	a, err := s.CreateRoom("a", "data:image/png;base64,AAAA")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	b, err := s.CreateRoom("b", "data:image/png;base64,AAAA")
	if err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	s.evictOnce()
	if s.CacheLen() != 1 {
		t.Fatalf("expected exactly 1 cached room, got %d", s.CacheLen())
	}
	if _, err := s.Resolve(b.RoomID); err != nil {
		t.Fatalf("most recently used room should still resolve cleanly: %v", err)
	}
	_ = a
}

func TestForceBackupSkipsWhenNothingDirty(t *testing.T) {
	s := testStore(t)
	if err := s.ForceBackup(); err != nil {
		t.Fatalf("ForceBackup: %v", err)
	}
	entries, _ := filepath.Glob(filepath.Join(s.layout.BackupsDir(), "*"))
	if len(entries) != 0 {
		t.Fatalf("expected no backups when nothing is dirty, got %v", entries)
	}
}

func TestForceBackupWritesSnapshotAndClearsDirty(t *testing.T) {
	s := testStore(t)
	if _, err := s.CreateRoom("theme", "data:image/png;base64,AAAA"); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if s.DirtyLen() == 0 {
		t.Fatal("expected the newly created room to be dirty")
	}
	if err := s.ForceBackup(); err != nil {
		t.Fatalf("ForceBackup: %v", err)
	}
	if s.DirtyLen() != 0 {
		t.Fatal("dirty set should be cleared after a successful backup")
	}
	entries, _ := filepath.Glob(filepath.Join(s.layout.BackupsDir(), "*"))
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 backup directory, got %v", entries)
	}
}

func TestRunEvictionLoopStopsOnContextCancel(t *testing.T) {
	s := testStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunEvictionLoop(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("eviction loop did not stop after cancel")
	}
}
