package handlers

import (
	"fmt"
	"time"

	"github.com/dkeye/frameroom/internal/ws"
)

// Register wires every verb handler onto hub, wrapping each with the
// shared rate-limit and metrics preamble from §4.G/§4.I.
func Register(hub *ws.Hub, d *Deps) {
	hub.Handle("hello", d.wrap("hello", handleHello))
	hub.Handle("create_public_and_submit", d.wrap("create_public_and_submit", handleCreatePublicAndSubmit))
	hub.Handle("join_random", d.wrap("join_random", handleJoinRandom))
	hub.Handle("join_by_id", d.wrap("join_by_id", handleJoinByID))
	hub.Handle("join_room", d.wrap("join_room", handleJoinRoom))
	hub.Handle("resync", d.wrap("resync", handleResync))
	hub.Handle("get_frame", d.wrap("get_frame", handleGetFrame))
	hub.Handle("submit_frame", d.wrap("submit_frame", handleSubmitFrame))

	hub.OnMalformed(func() { d.Store.Metrics.Inc("messages_malformed_total") })
}

// wrap applies the rate-limit preamble and per-verb message/duration
// counters shared by every handler.
func (d *Deps) wrap(verb string, fn func(d *Deps, c *ws.Conn, data []byte)) ws.HandlerFunc {
	return func(c *ws.Conn, data []byte) {
		start := time.Now()
		d.Store.Metrics.Inc(fmt.Sprintf("messages_total:%s", verb))

		ok, retryAfter := d.Store.Limiter.Allow(c.RemoteAddr(), verb, start)
		if !ok {
			d.Store.Metrics.Inc(fmt.Sprintf("rate_limited_total:%s", verb))
			_ = c.SendError("rate limit exceeded", "RATE_LIMIT", retryAfter.Milliseconds())
			return
		}

		fn(d, c, data)
		d.Store.Metrics.ObserveOpDuration(verb, time.Since(start))
	}
}
