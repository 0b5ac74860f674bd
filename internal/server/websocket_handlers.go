package server

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// connectedFrame is the first frame a socket receives once it has joined its room.
type connectedFrame struct {
	Event string `json:"event"`
	Room  string `json:"room"`
}

// WebsocketHandler handles GET /api/ws
// @Summary Notification socket
// @Description Upgrade to a WebSocket that receives swap notifications for the caller's room.
// @Description Browsers authenticate with ?ticket= from POST /ws/ticket.
// @Tags notifications
// @Security BearerAuth
// @Param ticket query string false "Single-use ticket"
// @Success 101
// @Failure 401 {object} models.Response
// @Failure 426 {object} models.Response
// @Router /ws [get]
func (s *Server) WebsocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		ctx := context.Background()

		userID, ok := conn.Locals("userID").(uint)
		if !ok || userID == 0 {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"unauthorized"}`))
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			s.wsLog.LogError(ctx, userID, err, "register")
			if frame, merr := json.Marshal(fiber.Map{"error": err.Error()}); merr == nil {
				_ = conn.WriteMessage(websocket.TextMessage, frame)
			}
			_ = conn.Close()
			return
		}

		connectedAt := time.Now()
		s.wsLog.LogConnect(ctx, userID)
		defer s.wsLog.LogDisconnect(ctx, userID, connectedAt)

		if frame, err := json.Marshal(connectedFrame{Event: "connected", Room: notifications.Room(userID)}); err == nil {
			client.TrySend(frame)
		}

		go client.WritePump()
		// ReadPump blocks until the peer leaves, then unregisters the client.
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return s.respondErrorStatus(c, fiber.StatusUpgradeRequired,
				models.NewValidationError("WebSocket upgrade required"))
		}
		return upgrade(c)
	}
}

// IssueWSTicket handles POST /api/ws/ticket
// @Summary Issue a WebSocket ticket
// @Description Returns a single-use ticket valid for 30 seconds, for clients that cannot set headers on the upgrade request.
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Response{data=object{ticket=string,expiresIn=int}}
// @Failure 401 {object} models.Response
// @Failure 503 {object} models.Response
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	if s.redis == nil {
		return s.respondErrorStatus(c, fiber.StatusServiceUnavailable,
			models.NewBusinessRuleError("WebSocket tickets require Redis"))
	}

	ticket := uuid.NewString()
	userID := strconv.FormatUint(uint64(currentUserID(c)), 10)
	if err := s.redis.Set(c.UserContext(), wsTicketPrefix+ticket, userID, wsTicketTTL).Err(); err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}

	return respondData(c, fiber.StatusOK, "", fiber.Map{
		"ticket":    ticket,
		"expiresIn": int(wsTicketTTL.Seconds()),
	})
}
