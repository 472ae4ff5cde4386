package http

import (
	"errors"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/chupchat/chupchat-server/internal/core"
	"github.com/chupchat/chupchat-server/internal/store"
)

// RoomHandlers provides HTTP handlers for room lookup endpoints.
type RoomHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(st store.Store, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{
		store: st,
		log:   logger,
	}
}

// RoomResponse represents a room in API responses. The password and member
// list never leave the relay path.
type RoomResponse struct {
	Code      string `json:"code"`
	CreatedAt string `json:"created_at"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// GetRoom probes whether a room exists, so the client can distinguish
// "create" from "join" before asking for a password.
// GET /api/rooms/:code
func (h *RoomHandlers) GetRoom(c *gin.Context) {
	code := c.Param("code")
	if !core.ValidRoomCode(code) {
		c.JSON(stdhttp.StatusBadRequest, ErrorResponse{Error: "invalid room code"})
		return
	}

	room, err := h.store.GetRoom(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			c.JSON(stdhttp.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		h.log.Error().Err(err).Str("room", code).Msg("lookup room")
		c.JSON(stdhttp.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(stdhttp.StatusOK, RoomResponse{
		Code:      room.Code,
		CreatedAt: room.CreatedAt.Format(time.RFC3339),
	})
}
