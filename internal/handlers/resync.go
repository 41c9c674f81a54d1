package handlers

import (
	"encoding/json"

	"github.com/dkeye/frameroom/internal/ws"
)

type resyncPayload struct {
	RoomID string `json:"roomId"`
}

// handleResync re-establishes a connection's view after reconnection.
func handleResync(d *Deps, c *ws.Conn, data []byte) {
	var p resyncPayload
	_ = json.Unmarshal(data, &p)

	roomID := p.RoomID
	if roomID == "" {
		roomID = c.RoomID()
	}
	if roomID == "" {
		_ = c.SendError("room not found", "", 0)
		return
	}

	r, err := d.resolveVisible(roomID)
	if err != nil {
		sendErr(c, err)
		return
	}

	r.Mu.Lock()
	r.NormalizePhase()
	state := r.State()
	r.Mu.Unlock()

	c.SetRoomID(roomID)
	_ = c.Send("room_state", state)
}
