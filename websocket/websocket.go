// Package websocket 將房間與訊息的即時快照推送給前端。
// 同一個房間的所有連線共用一組後端訂閱，最後一個連線離開時釋放。
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"nicetalk/chatservice"
	"nicetalk/models"
	"nicetalk/utils"
)

const (
	// 將訊息寫入到遠端對等點的最長時間
	writeWait = 10 * time.Second

	// 允許從遠端對等點讀取下一個 pong 訊息的最長時間。
	pongWait = 60 * time.Second

	// 發送 ping 訊息給遠端對等點的週期。
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// 每個客戶端的待送事件緩衝
	sendBuffer = 256
)

// 事件類型
const (
	EventRoom     = "room"
	EventMessages = "messages"
)

// Event 是推送給前端的一筆快照
type Event struct {
	Type     string                  `json:"type"`
	RoomID   string                  `json:"roomId"`
	Room     *models.RoomSnapshot    `json:"room,omitempty"`
	Messages *models.MessageSnapshot `json:"messages,omitempty"`
}

// inbound 是前端送來的訊息
type inbound struct {
	Text string `json:"text"`
}

// ServiceSource 提供目前綁定的 adapter
type ServiceSource interface {
	Service() chatservice.ChatService
	// Changed 回傳的通道在綁定的 adapter 改變時關閉
	Changed() <-chan struct{}
}

// upgrader 用於將 HTTP 連線升級為 WebSocket 連線
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 來源由外層的 CORS 設定把關
		return true
	},
}

// Client 代表一個 WebSocket 客戶端
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan Event // 用於發送事件的緩衝通道
	ID     string
	UserID string
	RoomID string // 客戶端所在的聊天室ID
}

// 讀取用戶傳來的訊息，透過 adapter 寫入後端
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregisterClient(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	log := c.hub.log.With().Str("clientId", c.ID).Str("roomId", c.RoomID).Logger()
	for {
		_, p, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Msg("Client disconnected gracefully.")
			} else {
				log.Debug().Err(err).Msg("Error reading message")
			}
			return
		}

		var msg inbound
		if err := json.Unmarshal(p, &msg); err != nil {
			log.Warn().Err(err).Msg("Error unmarshalling message")
			continue
		}
		if strings.TrimSpace(msg.Text) == "" {
			continue
		}

		// 訊息經後端寫入後，由訂閱推回所有客戶端
		sendCtx, cancel := context.WithTimeout(ctx, writeWait)
		err = c.hub.services.Service().SendMessage(sendCtx, c.RoomID, msg.Text, c.UserID)
		cancel()
		if err != nil {
			log.Error().Err(err).Msg("Error sending message")
		}
	}
}

// 接收 Hub 廣播來的事件，丟給前端
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// 如果這個 channel 被關閉了（ok == false），就送出 CloseMessage
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(event); err != nil {
				c.hub.log.Debug().Err(err).Str("clientId", c.ID).Msg("Error writing event")
				return
			}

		// 接收定時器以保持連線活躍並檢測客戶端是否仍在線。
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleConnections 處理 WebSocket 連線請求，需先經過 JWT 驗證
func (h *Hub) HandleConnections(w http.ResponseWriter, r *http.Request) {
	claims, err := utils.ClaimsFromContext(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	roomID := r.URL.Query().Get("roomId")
	if roomID == "" {
		http.Error(w, "Room ID is required for WebSocket connection", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to upgrade to WebSocket")
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan Event, sendBuffer),
		ID:     uuid.NewString(),
		UserID: claims.UserID,
		RoomID: roomID,
	}
	if !h.registerClient(client) {
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump(h.ctx) // readPump 會在連線關閉時自動取消註冊
}
