package websocket

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"nicetalk/chatservice"
	"nicetalk/models"
)

// roomFeed 是一個房間的共用訂閱與目前的客戶端
type roomFeed struct {
	backend      models.Backend
	clients      map[*Client]bool
	cancel       context.CancelFunc
	subs         []*chatservice.Subscription
	lastRoom     *Event
	lastMessages *Event
}

// feedEvent 記錄事件來自哪一組訂閱，已關閉的訂閱遲到的事件直接丟棄
type feedEvent struct {
	feed  *roomFeed
	event Event
}

// Hub 維護所有活躍的 WebSocket 客戶端，並將後端快照廣播到對應的房間
type Hub struct {
	ctx        context.Context
	services   ServiceSource
	rooms      map[string]*roomFeed // 按聊天室ID索引
	register   chan *Client
	unregister chan *Client
	broadcast  chan feedEvent
	releasing  sync.WaitGroup
	log        zerolog.Logger
}

// NewHub 創建並返回一個新的 Hub 實例，ctx 結束時 Run 返回並關閉所有連線
func NewHub(ctx context.Context, services ServiceSource, log zerolog.Logger) *Hub {
	return &Hub{
		ctx:        ctx,
		services:   services,
		rooms:      make(map[string]*roomFeed),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan feedEvent),
		log:        log,
	}
}

func (h *Hub) registerClient(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// Run 啟動 Hub 的運行迴圈，ctx 結束後關閉所有客戶端並等待訂閱釋放
func (h *Hub) Run() {
	defer h.shutdown()
	changed := h.services.Changed()
	for {
		select {
		case client := <-h.register:
			feed, ok := h.rooms[client.RoomID]
			if !ok {
				feed = h.openRoom(client.RoomID)
			} else if feed.backend != h.services.Service().Backend() {
				feed = h.reopenRoom(client.RoomID, feed)
			}
			feed.clients[client] = true

			// 新加入的客戶端先收到目前的狀態
			for _, last := range []*Event{feed.lastRoom, feed.lastMessages} {
				if last != nil {
					client.send <- *last
				}
			}
			h.log.Info().Str("clientId", client.ID).Str("roomId", client.RoomID).Int("clients", len(feed.clients)).Msg("Client registered")

		case client := <-h.unregister:
			feed, ok := h.rooms[client.RoomID]
			if !ok || !feed.clients[client] {
				continue
			}
			h.drop(client.RoomID, feed, client)
			h.log.Info().Str("clientId", client.ID).Str("roomId", client.RoomID).Int("clients", len(feed.clients)).Msg("Client unregistered")

		case fe := <-h.broadcast:
			feed, ok := h.rooms[fe.event.RoomID]
			if !ok || feed != fe.feed {
				continue
			}
			event := fe.event
			switch event.Type {
			case EventRoom:
				feed.lastRoom = &event
			case EventMessages:
				feed.lastMessages = &event
			}
			for client := range feed.clients {
				select {
				case client.send <- event:
				default:
					h.log.Warn().Str("clientId", client.ID).Str("roomId", client.RoomID).Msg("Client channel is full, unregistering client")
					h.drop(event.RoomID, feed, client)
				}
			}

		case <-changed:
			// 重新登入後改用另一個後端，所有房間改訂閱新的 adapter
			changed = h.services.Changed()
			backend := h.services.Service().Backend()
			for roomID, feed := range h.rooms {
				if feed.backend != backend {
					h.reopenRoom(roomID, feed)
				}
			}

		case <-h.ctx.Done():
			return
		}
	}
}

// drop 移除客戶端，房間沒有客戶端時釋放訂閱
func (h *Hub) drop(roomID string, feed *roomFeed, client *Client) {
	delete(feed.clients, client)
	close(client.send)
	if len(feed.clients) == 0 {
		h.closeRoom(roomID, feed)
	}
}

func (h *Hub) openRoom(roomID string) *roomFeed {
	ctx, cancel := context.WithCancel(h.ctx)
	feed := &roomFeed{clients: make(map[*Client]bool), cancel: cancel}
	h.rooms[roomID] = feed

	emit := func(event Event) {
		select {
		case h.broadcast <- feedEvent{feed: feed, event: event}:
		case <-ctx.Done():
		}
	}

	svc := h.services.Service()
	feed.backend = svc.Backend()
	feed.subs = []*chatservice.Subscription{
		svc.OnRoomUpdate(ctx, roomID, func(s models.RoomSnapshot) {
			emit(Event{Type: EventRoom, RoomID: roomID, Room: &s})
		}),
		svc.OnMessageUpdate(ctx, roomID, func(s models.MessageSnapshot) {
			emit(Event{Type: EventMessages, RoomID: roomID, Messages: &s})
		}),
	}
	h.log.Debug().Str("roomId", roomID).Str("backend", string(svc.Backend())).Msg("Opened room subscriptions")
	return feed
}

// reopenRoom 釋放舊的訂閱並以目前的 adapter 重新訂閱，客戶端保留
func (h *Hub) reopenRoom(roomID string, old *roomFeed) *roomFeed {
	clients := old.clients
	h.closeRoom(roomID, old)
	feed := h.openRoom(roomID)
	feed.clients = clients
	h.log.Info().Str("roomId", roomID).Str("backend", string(feed.backend)).Int("clients", len(clients)).Msg("Switched room subscriptions to new backend")
	return feed
}

// closeRoom 取消訂閱；Unsubscribe 會等待遞送結束，因此不在 Run 迴圈中等待
func (h *Hub) closeRoom(roomID string, feed *roomFeed) {
	delete(h.rooms, roomID)
	feed.cancel()

	h.releasing.Add(1)
	go func() {
		defer h.releasing.Done()
		for _, sub := range feed.subs {
			sub.Unsubscribe()
		}
		h.log.Debug().Str("roomId", roomID).Msg("Released room subscriptions")
	}()
}

func (h *Hub) shutdown() {
	for roomID, feed := range h.rooms {
		for client := range feed.clients {
			delete(feed.clients, client)
			close(client.send)
		}
		h.closeRoom(roomID, feed)
	}
	h.releasing.Wait()
}
