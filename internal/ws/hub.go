// Package ws 以 gorilla/websocket 實作 chat.Transport。
//
// 每個連接有一個帶緩衝的 Send channel，由 writePump 負責寫出；
// 所有 Emit* 方法只把訊框排入佇列，永不阻塞。
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"

	"github.com/koopa0/system-design/14-chat-rooms/internal/chat"
)

// Inbound 接收傳輸層入站通知的一方（chat.Coordinator）
type Inbound interface {
	Connect(connID string)
	Disconnect(connID string)
	HandleFrame(connID string, event chat.EventType, data json.RawMessage)
}

// Settings 連接參數
//
// 時間配置沿用 54s Ping / 60s Pong 超時：Ping 一定在讀取期限前送出。
type Settings struct {
	SendBuffer      int
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64
	PingPeriod      time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
	AllowedOrigins  []string // 除同源外額外允許的 Origin
}

// DefaultSettings 返回預設連接參數
func DefaultSettings() Settings {
	return Settings{
		SendBuffer:      256,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		MaxMessageSize:  64 * 1024,
		PingPeriod:      54 * time.Second,
		PongWait:        60 * time.Second,
		WriteWait:       10 * time.Second,
	}
}

// frame WebSocket 訊框
type frame struct {
	Event chat.EventType  `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub WebSocket 連接中心
//
// 兩個索引：
//   - conns：connID → Connection（單播、全域廣播）
//   - rooms：room → connID → Connection（房間廣播）
//
// 讀多寫少：廣播持讀鎖，註冊/註銷/訂閱持寫鎖。
// Send channel 只在寫鎖下關閉，因此持讀鎖發送是安全的。
type Hub struct {
	settings Settings
	logger   *slog.Logger
	upgrader websocket.Upgrader
	inbound  Inbound
	newID    func() string

	conns map[string]*Connection
	rooms map[string]map[string]*Connection
	mu    sync.RWMutex
}

// Connection WebSocket 連接
type Connection struct {
	ID        string
	Conn      *websocket.Conn
	Send      chan []byte
	Hub       *Hub
	LastPing  time.Time
	rooms     map[string]struct{}
	mu        sync.Mutex
	closeOnce sync.Once
}

// NewHub 創建 WebSocket Hub
func NewHub(settings Settings, logger *slog.Logger) *Hub {
	defaults := DefaultSettings()
	if settings.SendBuffer <= 0 {
		settings.SendBuffer = defaults.SendBuffer
	}
	if settings.ReadBufferSize <= 0 {
		settings.ReadBufferSize = defaults.ReadBufferSize
	}
	if settings.WriteBufferSize <= 0 {
		settings.WriteBufferSize = defaults.WriteBufferSize
	}
	if settings.MaxMessageSize <= 0 {
		settings.MaxMessageSize = defaults.MaxMessageSize
	}
	if settings.PongWait <= 0 {
		settings.PongWait = defaults.PongWait
	}
	if settings.PingPeriod <= 0 || settings.PingPeriod >= settings.PongWait {
		settings.PingPeriod = settings.PongWait * 9 / 10
	}
	if settings.WriteWait <= 0 {
		settings.WriteWait = defaults.WriteWait
	}

	hub := &Hub{
		settings: settings,
		logger:   logger,
		newID:    uuid.NewString,
		conns:    make(map[string]*Connection),
		rooms:    make(map[string]map[string]*Connection),
	}
	hub.upgrader = websocket.Upgrader{
		ReadBufferSize:  settings.ReadBufferSize,
		WriteBufferSize: settings.WriteBufferSize,
		CheckOrigin:     hub.checkOrigin,
	}

	return hub
}

// Attach 設定入站事件接收者（需在 ServeWS 之前呼叫）
func (hub *Hub) Attach(inbound Inbound) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.inbound = inbound
}

// checkOrigin 同源或在允許清單內的 Origin 才能升級
func (hub *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}

	return slices.ContainsFunc(hub.settings.AllowedOrigins, func(allowed string) bool {
		return allowed == "*" || strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin)
	})
}

// ServeWS 處理 WebSocket 連接
func (hub *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	hub.mu.RLock()
	inbound := hub.inbound
	hub.mu.RUnlock()
	if inbound == nil {
		http.Error(w, "服務尚未就緒", http.StatusServiceUnavailable)
		return
	}

	conn, err := hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Error("升級 WebSocket 失敗", "error", err)
		return
	}

	c := &Connection{
		ID:       hub.newID(),
		Conn:     conn,
		Send:     make(chan []byte, hub.settings.SendBuffer),
		Hub:      hub,
		LastPing: time.Now(),
		rooms:    make(map[string]struct{}),
	}

	hub.register(c)

	go c.writePump()
	inbound.Connect(c.ID)
	go c.readPump(inbound)

	hub.logger.Debug("WebSocket 連接建立", "conn_id", c.ID, "remote_addr", r.RemoteAddr)
}

// register 註冊連接
func (hub *Hub) register(c *Connection) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.conns[c.ID] = c
}

// unregister 取消註冊連接並退訂所有房間
func (hub *Hub) unregister(c *Connection) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	if actual, exists := hub.conns[c.ID]; !exists || actual != c {
		return
	}
	delete(hub.conns, c.ID)

	for room := range c.rooms {
		hub.leaveLocked(c, room)
	}

	c.closeOnce.Do(func() {
		close(c.Send)
	})
}

// Join 將連接訂閱到房間
func (hub *Hub) Join(connID, room string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	c, exists := hub.conns[connID]
	if !exists {
		return
	}

	if hub.rooms[room] == nil {
		hub.rooms[room] = make(map[string]*Connection)
	}
	hub.rooms[room][connID] = c
	c.rooms[room] = struct{}{}
}

// Leave 取消連接對房間的訂閱
func (hub *Hub) Leave(connID, room string) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	if c, exists := hub.conns[connID]; exists {
		hub.leaveLocked(c, room)
	}
}

// leaveLocked 需持有寫鎖
func (hub *Hub) leaveLocked(c *Connection, room string) {
	delete(c.rooms, room)
	if members, exists := hub.rooms[room]; exists {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(hub.rooms, room)
		}
	}
}

// Emit 發送給單一連接
func (hub *Hub) Emit(connID string, ev chat.Event) {
	message, ok := hub.encode(ev)
	if !ok {
		return
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if c, exists := hub.conns[connID]; exists {
		hub.enqueue(c, message)
	}
}

// EmitRoom 發送給房間內所有連接
func (hub *Hub) EmitRoom(room string, ev chat.Event) {
	hub.EmitRoomExcept(room, "", ev)
}

// EmitRoomExcept 發送給房間內除 except 以外的連接
func (hub *Hub) EmitRoomExcept(room, except string, ev chat.Event) {
	message, ok := hub.encode(ev)
	if !ok {
		return
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for id, c := range hub.rooms[room] {
		if id == except {
			continue
		}
		hub.enqueue(c, message)
	}
}

// EmitAll 發送給所有連接
func (hub *Hub) EmitAll(ev chat.Event) {
	message, ok := hub.encode(ev)
	if !ok {
		return
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for _, c := range hub.conns {
		hub.enqueue(c, message)
	}
}

// encode 序列化事件（每次廣播只序列化一次）
func (hub *Hub) encode(ev chat.Event) ([]byte, bool) {
	message, err := json.Marshal(ev)
	if err != nil {
		hub.logger.Error("序列化事件失敗", "event", ev.Type, "error", err)
		return nil, false
	}
	return message, true
}

// enqueue 非阻塞排入佇列（需持有讀鎖）
//
// 緩衝區滿時丟棄，避免慢客戶端拖累整個房間。
func (hub *Hub) enqueue(c *Connection, message []byte) {
	select {
	case c.Send <- message:
	default:
		hub.logger.Warn("連接緩衝區滿，丟棄訊息", "conn_id", c.ID)
	}
}

// Stop 關閉所有連接
//
// 各連接的 readPump 會隨後結束並通知 Inbound.Disconnect。
func (hub *Hub) Stop() {
	hub.mu.Lock()
	conns := lo.Values(hub.conns)
	hub.mu.Unlock()

	for _, c := range conns {
		c.Conn.Close()
	}

	hub.logger.Info("WebSocket Hub 已停止", "closed_connections", len(conns))
}

// ConnectionCount 目前連接數
func (hub *Hub) ConnectionCount() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.conns)
}

// RoomSubscriptions 每個房間的訂閱連接數
func (hub *Hub) RoomSubscriptions() map[string]int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	return lo.MapValues(hub.rooms, func(members map[string]*Connection, _ string) int {
		return len(members)
	})
}

// Rooms 回傳連接目前訂閱的房間
func (hub *Hub) Rooms(connID string) []string {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	c, exists := hub.conns[connID]
	if !exists {
		return nil
	}
	rooms := lo.Keys(c.rooms)
	slices.Sort(rooms)
	return rooms
}
