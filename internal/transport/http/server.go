package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/chupchat/chupchat-server/internal/config"
	"github.com/chupchat/chupchat-server/internal/core"
	"github.com/chupchat/chupchat-server/internal/metrics"
	"github.com/chupchat/chupchat-server/internal/store"
)

// NewServer builds the HTTP server: websocket endpoint, room probe API,
// health and metrics.
func NewServer(hub *core.Hub, st store.Store, m *metrics.Metrics, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(LoggerMiddleware(logger), gin.Recovery())

	router.GET("/health", healthHandler)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	rooms := NewRoomHandlers(st, logger)
	router.GET("/api/rooms/:code", rooms.GetRoom)

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, cfg.MessageRateLimit, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
