package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ashureev/chatrelay/internal/chat"
	"github.com/ashureev/chatrelay/internal/domain"
	"github.com/coder/websocket"
)

// Frame types.
const (
	typeUserMessage = "userMessage"
	typePing        = "ping"
	typePong        = "pong"
	typeChatHistory = "chatHistory"
	typeBotResponse = "botResponse"
	typeClearScreen = "clearScreen"
)

// inboundMessage is a client frame.
type inboundMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// outboundMessage is a server frame.
type outboundMessage struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// historyMessage always carries the entries array, empty or not.
type historyMessage struct {
	Type    string             `json:"type"`
	Entries []domain.ChatEntry `json:"entries"`
}

// Handler serves the chat WebSocket endpoint.
type Handler struct {
	svc            *chat.Service
	hub            *Hub
	originPatterns []string
	logger         *slog.Logger
}

// NewHandler creates a WebSocket handler. allowedOrigins holds full origins
// ("http://host:port") or "*".
func NewHandler(svc *chat.Service, hub *Hub, allowedOrigins []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		svc:            svc,
		hub:            hub,
		originPatterns: originPatterns(allowedOrigins),
		logger:         logger,
	}
}

// originPatterns converts configured origins into host patterns for Accept.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if o == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return patterns
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("Failed to accept WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			h.logger.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	c := newClient(ws)
	ctx := r.Context()

	var sess *chat.Session
	err = h.hub.join(c, func() error {
		var history []domain.ChatEntry
		sess, history = h.svc.Connect(ctx, c.id.String())
		return c.writeJSON(ctx, h.hub.writeTimeout, historyMessage{Type: typeChatHistory, Entries: history})
	})
	if sess != nil {
		defer h.svc.Disconnect(sess)
	}
	if err != nil {
		h.logger.Warn("Failed to send chat history", "session_id", c.id.String(), "error", err)
		return
	}
	defer h.hub.unregister(c.id)

	h.readLoop(ctx, c, sess)
}

// readLoop handles frames one at a time, so turns on a connection run in
// arrival order.
func (h *Handler) readLoop(ctx context.Context, c *client, sess *chat.Session) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				h.logger.Debug("WebSocket closed by client", "session_id", sess.ID)
			} else if ctx.Err() == nil {
				h.logger.Warn("WebSocket read error", "session_id", sess.ID, "error", err)
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.logger.Warn("Ignoring malformed frame", "session_id", sess.ID, "error", err)
			continue
		}

		switch msg.Type {
		case typeUserMessage:
			reply := h.svc.HandleMessage(ctx, sess, msg.Content)
			out := outboundMessage{Type: typeBotResponse, Content: reply}
			if err := c.writeJSON(context.WithoutCancel(ctx), h.hub.writeTimeout, out); err != nil {
				h.logger.Warn("Failed to send bot response", "session_id", sess.ID, "error", err)
				return
			}
		case typePing:
			if err := c.writeJSON(ctx, h.hub.writeTimeout, outboundMessage{Type: typePong}); err != nil {
				h.logger.Debug("Failed to send pong", "session_id", sess.ID, "error", err)
			}
		default:
			h.logger.Warn("Ignoring unknown frame type", "session_id", sess.ID, "type", msg.Type)
		}
	}
}
