package handlers

import "github.com/dkeye/frameroom/internal/ws"

// handleHello is idempotent and makes no state change.
func handleHello(d *Deps, c *ws.Conn, data []byte) {
	_ = c.Send("welcome", map[string]any{
		"protocol":   1,
		"serverTime": now(),
	})
}
