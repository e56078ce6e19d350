package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"live_poll/internal/models"
)

// HubOptions 連接參數
type HubOptions struct {
	SendBuffer int           // 每個客戶端的發送佇列長度
	ReadLimit  int64         // 單一訊框的最大位元組數
	PongWait   time.Duration // 超過此時間未收到 pong 即視為斷線
	WriteWait  time.Duration // 單次寫入逾時
}

// DefaultHubOptions 預設連接參數
func DefaultHubOptions() HubOptions {
	return HubOptions{
		SendBuffer: 256,
		ReadLimit:  4096,
		PongWait:   60 * time.Second,
		WriteWait:  10 * time.Second,
	}
}

// Client 代表一個 WebSocket 客戶端連接
type Client struct {
	ID       string          // 連接 ID
	Conn     *websocket.Conn // WebSocket 連接
	SendChan chan []byte     // 已編碼的訊框，由 writePump 寫出
	closed   bool            // 只在事件迴圈中讀寫
}

type inboundEvent struct {
	client   *Client
	envelope models.Envelope
}

type query struct {
	fn   func()
	done chan struct{}
}

// Hub 管理所有連接，並用單一事件迴圈依序處理所有事件。
// 連接、斷線、收到的訊框與 HTTP 查詢都會進入同一個迴圈，
// 因此 Session 不需要加鎖。
type Hub struct {
	clients    map[string]*Client // 只在事件迴圈中讀寫
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundEvent
	queries    chan query
	done       chan struct{}
	opts       HubOptions
	logger     *zap.Logger
}

// NewHub 建立 Hub
func NewHub(opts HubOptions, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundEvent, 256),
		queries:    make(chan query),
		done:       make(chan struct{}),
		opts:       opts,
		logger:     logger,
	}
}

// Run 事件迴圈，ctx 取消後關閉所有連接並返回
func (h *Hub) Run(ctx context.Context, handler EventHandler) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("hub shutting down", zap.Int("clients", len(h.clients)))
			for _, client := range h.clients {
				h.closeClient(client)
			}
			close(h.done)
			return

		case client := <-h.register:
			h.clients[client.ID] = client
			h.logger.Debug("client connected", zap.String("conn_id", client.ID))
			handler.Connect(client.ID)

		case client := <-h.unregister:
			current, ok := h.clients[client.ID]
			if !ok || current != client {
				continue
			}
			delete(h.clients, client.ID)
			h.closeClient(client)
			handler.Disconnect(client.ID)

		case ev := <-h.inbound:
			// 被踢或佇列已滿的客戶端，剩下的訊框一律忽略
			if current, ok := h.clients[ev.client.ID]; !ok || current.closed {
				continue
			}
			handler.Dispatch(ev.client.ID, ev.envelope)

		case q := <-h.queries:
			q.fn()
			close(q.done)
		}
	}
}

// Done 事件迴圈結束後關閉
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// Query 在事件迴圈中執行 fn 並等待完成，用於讀取 Session 的一致快照
func (h *Hub) Query(ctx context.Context, fn func()) error {
	q := query{fn: fn, done: make(chan struct{})}
	select {
	case h.queries <- q:
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ServeClient 處理一個已升級的連接，直到連接關閉才返回
func (h *Hub) ServeClient(conn *websocket.Conn) {
	client := &Client{
		ID:       uuid.New().String(),
		Conn:     conn,
		SendChan: make(chan []byte, h.opts.SendBuffer),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(client)
	h.readPump(client)

	select {
	case h.unregister <- client:
	case <-h.done:
	}
	conn.Close()
}

// readPump 持續讀取客戶端訊框並送進事件迴圈
func (h *Hub) readPump(client *Client) {
	client.Conn.SetReadLimit(h.opts.ReadLimit)
	client.Conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(h.opts.PongWait))
		return nil
	})

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket unexpected close", zap.String("conn_id", client.ID), zap.Error(err))
			}
			return
		}

		var env models.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			h.logger.Debug("message parse error", zap.String("conn_id", client.ID), zap.Error(err))
			continue
		}

		select {
		case h.inbound <- inboundEvent{client: client, envelope: env}:
		case <-h.done:
			return
		}
	}
}

// writePump 把佇列中的訊框寫出，並定期送出 ping
func (h *Hub) writePump(client *Client) {
	ticker := time.NewTicker(h.opts.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		client.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.SendChan:
			client.Conn.SetWriteDeadline(time.Now().Add(h.opts.WriteWait))
			if !ok {
				client.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := client.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			client.Conn.SetWriteDeadline(time.Now().Add(h.opts.WriteWait))
			if err := client.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Broadcast 送給所有連接
func (h *Hub) Broadcast(event string, payload any) {
	data, ok := h.encode(event, payload)
	if !ok {
		return
	}
	for _, client := range h.clients {
		h.enqueue(client, data)
	}
}

// Send 只送給指定連接，連接不存在時忽略
func (h *Hub) Send(connID, event string, payload any) {
	client, ok := h.clients[connID]
	if !ok {
		return
	}
	data, ok := h.encode(event, payload)
	if !ok {
		return
	}
	h.enqueue(client, data)
}

// Disconnect 送完佇列中的訊框後關閉連接
func (h *Hub) Disconnect(connID string) {
	if client, ok := h.clients[connID]; ok {
		h.closeClient(client)
	}
}

// ClientCount 目前仍開啟的連接數，只能在事件迴圈中呼叫
func (h *Hub) ClientCount() int {
	n := 0
	for _, client := range h.clients {
		if !client.closed {
			n++
		}
	}
	return n
}

func (h *Hub) encode(event string, payload any) ([]byte, bool) {
	data, err := json.Marshal(models.OutboundFrame{Event: event, Data: payload})
	if err != nil {
		h.logger.Error("message encoding error", zap.String("event", event), zap.Error(err))
		return nil, false
	}
	return data, true
}

func (h *Hub) enqueue(client *Client, data []byte) {
	if client.closed {
		return
	}
	select {
	case client.SendChan <- data:
	default:
		// 佇列已滿，關閉連接；之後的 unregister 會把它從名單移除
		h.logger.Warn("client send queue full, closing", zap.String("conn_id", client.ID))
		h.closeClient(client)
	}
}

func (h *Hub) closeClient(client *Client) {
	if client.closed {
		return
	}
	client.closed = true
	close(client.SendChan)
}
