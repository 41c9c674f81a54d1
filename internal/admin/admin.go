// Package admin exposes the plain HTTP surface served on the same
// port as the wire protocol: health snapshots, Prometheus-style
// metrics, and the administrative quarantine toggle, grounded on the
// teacher's gin-group router-setup style.
package admin

import (
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/frameroom/internal/config"
	"github.com/dkeye/frameroom/internal/store"
	"github.com/dkeye/frameroom/internal/ws"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type lastError struct {
	TS      int64  `json:"ts"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Handler owns the process-wide health/metrics/quarantine endpoints.
type Handler struct {
	Store     *store.Store
	Hub       *ws.Hub
	Config    *config.Config
	StartedAt time.Time

	mu   sync.Mutex
	last lastError
}

func New(s *store.Store, hub *ws.Hub, cfg *config.Config) *Handler {
	h := &Handler{Store: s, Hub: hub, Config: cfg, StartedAt: time.Now()}
	s.OnError = h.RecordError
	return h
}

// RecordError remembers the most recent internal failure for the
// health snapshot.
func (h *Handler) RecordError(code, message string) {
	h.mu.Lock()
	h.last = lastError{TS: time.Now().UnixMilli(), Code: code, Message: message}
	h.mu.Unlock()
}

// Register mounts every admin/observability route onto r.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.serveHealth)
	r.GET("/healthz", h.serveHealth)
	r.GET("/metrics", h.serveMetrics)
	r.GET("/admin/status", h.requireAdmin(h.serveAdminStatus))
	r.GET("/admin/quarantine", h.requireAdmin(h.serveQuarantine))
}

type healthSnapshot struct {
	UptimeSeconds  float64        `json:"uptimeSeconds"`
	Connections    int            `json:"connections"`
	RoomsInIndex   int            `json:"roomsInIndex"`
	RoomsOnDisk    int            `json:"roomsOnDisk"`
	CachedRooms    int            `json:"cachedRooms"`
	BackupCount    int            `json:"backupCount"`
	QuarantineSize int            `json:"quarantineCount"`
	DirtyRooms     int            `json:"dirtyRoomCount"`
	DataDir        string         `json:"dataDir"`
	LastError      lastError      `json:"lastError"`
	MemoryBytes    uint64         `json:"memoryBytes"`
	Counters       map[string]int64 `json:"counters"`
}

func (h *Handler) snapshot() healthSnapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	roomsOnDisk, err := h.Store.RoomsOnDisk()
	if err != nil {
		log.Warn().Err(err).Str("module", "admin").Msg("failed to count rooms on disk")
	}
	backupCount, err := countBackups(h.Config.DataDir)
	if err != nil {
		log.Warn().Err(err).Str("module", "admin").Msg("failed to count backups")
	}

	h.mu.Lock()
	last := h.last
	h.mu.Unlock()

	return healthSnapshot{
		UptimeSeconds:  time.Since(h.StartedAt).Seconds(),
		Connections:    h.Hub.Registry.Len(),
		RoomsInIndex:   h.Store.IndexLen(),
		RoomsOnDisk:    roomsOnDisk,
		CachedRooms:    h.Store.CacheLen(),
		BackupCount:    backupCount,
		QuarantineSize: h.Store.QuarantineLen(),
		DirtyRooms:     h.Store.DirtyLen(),
		DataDir:        h.Config.DataDir,
		LastError:      last,
		MemoryBytes:    mem.Alloc,
		Counters:       h.Store.Metrics.CounterSnapshot(),
	}
}

func countBackups(dataDir string) (int, error) {
	entries, err := os.ReadDir(dataDir + "/backups")
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			n++
		}
	}
	return n, nil
}

func (h *Handler) serveHealth(c *gin.Context) {
	snap := h.snapshot()
	if c.Query("format") == "html" || prefersHTML(c.GetHeader("Accept")) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, renderHealthHTML(snap))
		return
	}
	c.JSON(http.StatusOK, snap)
}

// prefersHTML reports whether accept names text/html without also
// naming application/json ahead of it — a bare browser navigation has
// no explicit format query param, so its Accept header is what
// decides.
func prefersHTML(accept string) bool {
	if accept == "" {
		return false
	}
	htmlIdx := strings.Index(accept, "text/html")
	jsonIdx := strings.Index(accept, "application/json")
	if htmlIdx < 0 {
		return false
	}
	return jsonIdx < 0 || htmlIdx < jsonIdx
}

type adminStatus struct {
	healthSnapshot
	QuarantinedRooms []string       `json:"quarantinedRooms"`
	RateLimitBuckets map[string]int `json:"rateLimitBucketsByVerb"`
}

func (h *Handler) serveAdminStatus(c *gin.Context) {
	c.JSON(http.StatusOK, adminStatus{
		healthSnapshot:   h.snapshot(),
		QuarantinedRooms: h.Store.QuarantineList(),
		RateLimitBuckets: h.Store.Limiter.BucketsByVerb(),
	})
}

func (h *Handler) serveMetrics(c *gin.Context) {
	fixed := map[string]float64{
		"clients":    float64(h.Hub.Registry.Len()),
		"rooms":      float64(h.Store.IndexLen()),
		"quarantine": float64(h.Store.QuarantineLen()),
		"dirty":      float64(h.Store.DirtyLen()),
	}
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	fixed["rss_bytes"] = float64(mem.Sys)

	c.Header("Content-Type", "text/plain; version=0.0.4")
	c.String(http.StatusOK, h.Store.Metrics.Text(fixed))
}

func (h *Handler) serveQuarantine(c *gin.Context) {
	roomID := c.Query("roomId")
	mode := c.Query("mode")
	if roomID == "" || (mode != "on" && mode != "off" && mode != "toggle") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "roomId and mode=on|off|toggle are required"})
		return
	}

	auditID := uuid.NewString()
	var result bool
	var err error
	switch mode {
	case "on":
		err = h.Store.SetQuarantine(roomID, true)
		result = true
	case "off":
		err = h.Store.SetQuarantine(roomID, false)
		result = false
	case "toggle":
		result, err = h.Store.ToggleQuarantine(roomID)
	}
	if err != nil {
		log.Error().Err(err).Str("module", "admin").Str("auditId", auditID).Msg("quarantine mutation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update quarantine"})
		return
	}

	log.Info().Str("module", "admin").Str("auditId", auditID).Str("roomId", roomID).
		Str("mode", mode).Bool("quarantined", result).Msg("quarantine mutated")
	c.JSON(http.StatusOK, gin.H{"roomId": roomID, "quarantined": result, "auditId": auditID})
}
