package admin

import "fmt"

// renderHealthHTML is a minimal hand-rolled rendering, used only when
// a browser requests /health directly; every programmatic caller gets
// the JSON shape.
func renderHealthHTML(s healthSnapshot) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><title>frameroom health</title></head>
<body>
<h1>frameroom</h1>
<ul>
<li>uptime: %.0fs</li>
<li>connections: %d</li>
<li>rooms in index: %d</li>
<li>rooms on disk: %d</li>
<li>cached rooms: %d</li>
<li>backups: %d</li>
<li>quarantined rooms: %d</li>
<li>dirty rooms: %d</li>
<li>data dir: %s</li>
<li>memory: %d bytes</li>
</ul>
</body></html>
`, s.UptimeSeconds, s.Connections, s.RoomsInIndex, s.RoomsOnDisk, s.CachedRooms,
		s.BackupCount, s.QuarantineSize, s.DirtyRooms, s.DataDir, s.MemoryBytes)
}
