package handlers

import (
	"encoding/json"

	"github.com/dkeye/frameroom/internal/apperr"
	"github.com/dkeye/frameroom/internal/room"
	"github.com/dkeye/frameroom/internal/ws"
)

type getFramePayload struct {
	RoomID     string `json:"roomId"`
	FrameIndex int    `json:"frameIndex"`
}

// handleGetFrame silently drops the request for a frame that is not
// yet committed — clients poll after frame_committed broadcasts.
func handleGetFrame(d *Deps, c *ws.Conn, data []byte) {
	var p getFramePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return
	}
	if p.FrameIndex < 0 || p.FrameIndex >= room.FrameCount {
		_ = c.SendError("frame index out of range", "", 0)
		return
	}

	r, err := d.resolveVisible(p.RoomID)
	if err != nil {
		sendErr(c, err)
		return
	}

	r.Mu.Lock()
	committed := r.Committed[p.FrameIndex]
	payload := r.Frames[p.FrameIndex]
	r.Mu.Unlock()

	if !committed {
		return
	}
	_ = c.Send("frame_data", map[string]any{
		"roomId":     p.RoomID,
		"frameIndex": p.FrameIndex,
		"dataUrl":    payload,
	})
}

type submitFramePayload struct {
	RoomID           string `json:"roomId"`
	FrameIndex       int    `json:"frameIndex"`
	ReservationToken string `json:"reservationToken"`
	DataURL          string `json:"dataUrl"`
}

// handleSubmitFrame is the critical write path: steps 1-11 run inside
// the room's own critical section, step 12 persists durably, and
// steps 13-15 broadcast only after that persistence succeeds.
func handleSubmitFrame(d *Deps, c *ws.Conn, data []byte) {
	var p submitFramePayload
	if err := json.Unmarshal(data, &p); err != nil {
		_ = c.SendError("malformed request", "", 0)
		return
	}

	if d.Store.IsQuarantined(p.RoomID) {
		_ = c.SendError("room not found", "", 0)
		return
	}
	r, err := d.Store.Resolve(p.RoomID)
	if err != nil {
		_ = c.SendError("room not found", "", 0)
		return
	}

	r.Mu.Lock()
	r.NormalizePhase()
	if r.Phase == room.PhasePlayback {
		r.Mu.Unlock()
		_ = c.SendError("not accepting submissions", "", 0)
		return
	}

	r.Sweep(now())

	if p.FrameIndex < 0 || p.FrameIndex >= room.FrameCount {
		r.Mu.Unlock()
		_ = c.SendError("frame index out of range", "", 0)
		return
	}
	if p.ReservationToken == "" {
		r.Mu.Unlock()
		_ = c.SendError("invalid or expired reservation", "", 0)
		return
	}

	res, exists := r.Reservations[p.ReservationToken]
	if !exists || res.ExpiresAt <= now() {
		r.Mu.Unlock()
		_ = c.SendError("invalid or expired reservation", "", 0)
		return
	}
	if res.FrameIndex != p.FrameIndex {
		r.Mu.Unlock()
		_ = c.SendError("frame mismatch", "", 0)
		return
	}
	if r.Committed[p.FrameIndex] {
		r.Mu.Unlock()
		_ = c.SendError("already submitted", "", 0)
		return
	}
	if !validDataURL(p.DataURL) {
		r.Mu.Unlock()
		_ = c.SendError("dataUrl が不正/大きすぎる", "", 0)
		return
	}

	r.Frames[p.FrameIndex] = p.DataURL
	r.Committed[p.FrameIndex] = true
	r.UpdatedAt = now()
	delete(r.Reservations, p.ReservationToken)
	if r.ReservedByFrame[p.FrameIndex] == p.ReservationToken {
		delete(r.ReservedByFrame, p.FrameIndex)
	}

	completed := r.AllCommitted()
	if completed {
		r.Phase = room.PhasePlayback
	}

	if err := d.Store.Save(r); err != nil {
		r.Mu.Unlock()
		sendErr(c, apperr.Internal("failed to persist frame", err))
		return
	}
	roomID := r.RoomID
	frameIndex := p.FrameIndex
	state := r.State()
	r.Mu.Unlock()

	broadcastFrameCommitted(d, roomID, frameIndex)
	_ = c.Send("submitted", map[string]any{"roomId": roomID, "frameIndex": frameIndex})

	if completed {
		d.Hub.Registry.BroadcastRoom(roomID, "start_playback", map[string]any{"roomId": roomID})
		d.Hub.Registry.BroadcastRoom(roomID, "room_state", state)
	}
}
