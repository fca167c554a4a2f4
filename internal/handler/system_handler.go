package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizdesk/internal/response"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SessionCounter reports how many attempts are tracked.
type SessionCounter interface {
	Len() int
}

// SystemHandler reports process health and runtime figures.
type SystemHandler struct {
	store       Pinger
	storeDriver string
	sessions    SessionCounter
	startTime   time.Time
	log         zerolog.Logger
}

// NewSystemHandler creates a SystemHandler. store may be nil when the
// configured store has nothing to ping.
func NewSystemHandler(store Pinger, storeDriver string, sessions SessionCounter, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		store:       store,
		storeDriver: storeDriver,
		sessions:    sessions,
		startTime:   time.Now(),
		log:         log.With().Str("component", "system_handler").Logger(),
	}
}

type healthStatus struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	StoreDriver string `json:"store_driver"`
	StoreOK     bool   `json:"store_ok"`
	Sessions    int    `json:"sessions"`
	Goroutines  int    `json:"goroutines"`
	HeapAlloc   uint64 `json:"heap_alloc"`
	GoVersion   string `json:"go_version"`
}

// Health godoc
// GET /health
// Returns 200 when the progress store is reachable, 503 otherwise.
func (h *SystemHandler) Health(c *gin.Context) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	st := healthStatus{
		Status:      "ok",
		Uptime:      formatDuration(time.Since(h.startTime)),
		StoreDriver: h.storeDriver,
		StoreOK:     true,
		Sessions:    h.sessions.Len(),
		Goroutines:  runtime.NumGoroutine(),
		HeapAlloc:   ms.HeapAlloc,
		GoVersion:   runtime.Version(),
	}

	if h.store != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			h.log.Warn().Err(err).Msg("Store ping failed")
			st.Status = "degraded"
			st.StoreOK = false
			response.Success(c, http.StatusServiceUnavailable, st)
			return
		}
	}

	response.Success(c, http.StatusOK, st)
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
