package handlers

import (
	"encoding/json"

	"github.com/dkeye/frameroom/internal/ws"
)

type createPublicAndSubmitPayload struct {
	Theme   string `json:"theme"`
	DataURL string `json:"dataUrl"`
}

func handleCreatePublicAndSubmit(d *Deps, c *ws.Conn, data []byte) {
	var p createPublicAndSubmitPayload
	if err := json.Unmarshal(data, &p); err != nil {
		_ = c.SendError("malformed request", "", 0)
		return
	}
	if !validDataURL(p.DataURL) {
		_ = c.SendError("dataUrl が不正/大きすぎる", "", 0)
		return
	}

	r, err := d.Store.CreateRoom(p.Theme, p.DataURL)
	if err != nil {
		_ = c.SendError("failed to create room", "", 0)
		return
	}

	c.SetRoomID(r.RoomID)
	_ = c.Send("created_public", r.State())
	broadcastFrameCommitted(d, r.RoomID, 0)
}
