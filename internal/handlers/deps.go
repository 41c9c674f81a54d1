// Package handlers implements one function per inbound verb, sharing
// the rate-limit → resolve room → sweep → validate → act → persist →
// broadcast skeleton described for the wire protocol. This mirrors the
// teacher's extraction of a resolve-session → act → respond →
// broadcast skeleton shared across its room/user/control handlers.
package handlers

import (
	"time"

	"github.com/dkeye/frameroom/internal/config"
	"github.com/dkeye/frameroom/internal/store"
	"github.com/dkeye/frameroom/internal/ws"
)

const maxDataURLBytes = 1_500_000

// Deps bundles everything a verb handler needs: the room store, the
// connection registry (for room-scoped broadcasts), and configuration
// for reservation lifetimes.
type Deps struct {
	Store  *store.Store
	Hub    *ws.Hub
	Config *config.Config
}

func validDataURL(s string) bool {
	if len(s) > maxDataURLBytes {
		return false
	}
	const prefix = "data:image/"
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func now() int64 { return time.Now().UnixMilli() }

func (d *Deps) reservationExpiry() int64 {
	return now() + d.Config.ReservationTTL.Milliseconds()
}

func broadcastFrameCommitted(d *Deps, roomID string, frameIndex int) {
	d.Hub.Registry.BroadcastRoom(roomID, "frame_committed", map[string]any{
		"roomId":     roomID,
		"frameIndex": frameIndex,
	})
}
