package handlers

import (
	"encoding/json"

	"github.com/dkeye/frameroom/internal/apperr"
	"github.com/dkeye/frameroom/internal/idgen"
	"github.com/dkeye/frameroom/internal/room"
	"github.com/dkeye/frameroom/internal/ws"
)

// resolveJoinable loads roomID, rejecting quarantined or nonexistent
// rooms with the single "room not found" message (§7 NotFound: no
// leakage of the quarantine decision).
func (d *Deps) resolveVisible(roomID string) (*room.Room, error) {
	if d.Store.IsQuarantined(roomID) {
		return nil, apperr.NotFound("room not found")
	}
	r, err := d.Store.Resolve(roomID)
	if err != nil {
		return nil, apperr.NotFound("room not found")
	}
	return r, nil
}

func sendErr(c *ws.Conn, err error) {
	_ = c.SendError(err.Error(), "", 0)
}

func handleJoinRandom(d *Deps, c *ws.Conn, data []byte) {
	roomID, err := d.Store.PickRandomRoomID()
	if err != nil {
		sendErr(c, err)
		return
	}

	r, err := d.Store.Resolve(roomID)
	if err != nil {
		// Index pointed at a room file that is no longer present.
		d.Store.DeleteIndexEntry(roomID)
		_ = c.SendError("room unavailable, please retry", "", 0)
		return
	}

	assignToRoom(d, c, r)
}

type joinByIDPayload struct {
	RoomID string `json:"roomId"`
}

func handleJoinByID(d *Deps, c *ws.Conn, data []byte) {
	var p joinByIDPayload
	if err := json.Unmarshal(data, &p); err != nil {
		_ = c.SendError("malformed request", "", 0)
		return
	}
	roomID, ok := idgen.ValidRoomID(p.RoomID)
	if !ok {
		_ = c.SendError("room not found", "", 0)
		return
	}

	r, err := d.resolveVisible(roomID)
	if err != nil {
		sendErr(c, err)
		return
	}
	assignToRoom(d, c, r)
}

// assignToRoom sweeps reservations, verifies the room is still
// accepting submissions, and mints a fresh reservation for the first
// youngest empty frame.
func assignToRoom(d *Deps, c *ws.Conn, r *room.Room) {
	r.Mu.Lock()
	r.Sweep(now())
	r.NormalizePhase()
	if r.Phase != room.PhaseDrawing {
		r.Mu.Unlock()
		_ = c.SendError("room not found", "", 0)
		return
	}

	frameIndex, token, err := r.ReserveAny(now(), d.reservationExpiry())
	if err != nil {
		r.Mu.Unlock()
		sendErr(c, err)
		return
	}
	saveErr := d.Store.Save(r)
	filled := r.Committed
	theme := r.Theme
	roomID := r.RoomID
	expiresAt := d.reservationExpiry()
	r.Mu.Unlock()

	if saveErr != nil {
		sendErr(c, saveErr)
		return
	}

	c.SetRoomID(roomID)
	_ = c.Send("room_joined", map[string]any{
		"roomId":              roomID,
		"theme":               theme,
		"assignedFrame":       frameIndex,
		"reservationToken":    token,
		"reservationExpiresAt": expiresAt,
		"filled":              filled,
	})
}

type joinRoomPayload struct {
	RoomID           string `json:"roomId"`
	View             bool   `json:"view"`
	ReservationToken string `json:"reservationToken"`
}

func handleJoinRoom(d *Deps, c *ws.Conn, data []byte) {
	var p joinRoomPayload
	if err := json.Unmarshal(data, &p); err != nil {
		_ = c.SendError("malformed request", "", 0)
		return
	}
	roomID, ok := idgen.ValidRoomID(p.RoomID)
	if !ok {
		_ = c.SendError("room not found", "", 0)
		return
	}

	r, err := d.resolveVisible(roomID)
	if err != nil {
		sendErr(c, err)
		return
	}

	r.Mu.Lock()
	r.Sweep(now())
	r.NormalizePhase()

	if !p.View && p.ReservationToken != "" {
		if r.Phase != room.PhaseDrawing {
			r.Mu.Unlock()
			_ = c.SendError("room not found", "", 0)
			return
		}
		res, exists := r.Reservations[p.ReservationToken]
		if !exists || res.ExpiresAt <= now() {
			r.Mu.Unlock()
			_ = c.SendError("invalid or expired reservation", "", 0)
			return
		}
	}

	state := r.State()
	r.Mu.Unlock()

	c.SetRoomID(roomID)
	_ = c.Send("room_state", state)
}
