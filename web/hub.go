package web

import (
	"encoding/json"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

// hub fans out per-user events to connected websocket clients. A user
// may hold several connections (multiple tabs); each gets the event.
type hub struct {
	mx    sync.Mutex
	conns map[int64]map[*websocket.Conn]chan []byte
}

func newHub() *hub {
	return &hub{conns: map[int64]map[*websocket.Conn]chan []byte{}}
}

func (h *hub) add(userID int64, c *websocket.Conn) chan []byte {
	h.mx.Lock()
	defer h.mx.Unlock()

	if h.conns[userID] == nil {
		h.conns[userID] = map[*websocket.Conn]chan []byte{}
	}

	out := make(chan []byte, 8)
	h.conns[userID][c] = out

	return out
}

func (h *hub) remove(userID int64, c *websocket.Conn) {
	h.mx.Lock()
	defer h.mx.Unlock()

	if out, ok := h.conns[userID][c]; ok {
		close(out)
		delete(h.conns[userID], c)
	}
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}

func (h *hub) push(userID int64, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logrus.WithError(err).Error("failed to marshal websocket event")
		return
	}

	h.mx.Lock()
	defer h.mx.Unlock()

	for _, out := range h.conns[userID] {
		select {
		case out <- data:
		default:
			// Slow consumer, drop the event rather than block the
			// reviewing request.
		}
	}
}

// wsNotifier authenticates the connection via a token query parameter,
// then streams the user's events until the client goes away.
func (s *server) wsNotifier() fiber.Handler {
	handler := websocket.New(func(c *websocket.Conn) {
		defer c.Close()

		userID, _ := c.Locals("user_id").(int64)

		out := s.hub.add(userID, c)
		defer s.hub.remove(userID, c)

		// Reader goroutine: we never expect client messages, but
		// reading is what surfaces the close frame.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := c.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case data, ok := <-out:
				if !ok {
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}
			}
		}
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		claims, err := s.auth.ParseToken(c.Query("token"))
		if err != nil {
			return err
		}
		c.Locals("user_id", claims.UserID)

		return handler(c)
	}
}
