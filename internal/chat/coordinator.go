// Package chat 實作房間切換協定與廣播扇出。
//
// 協定步驟的順序是下游觀察者依賴的契約：
// 舊房間的「離開」通知一定先於舊房間名冊更新，名冊更新一定先於新房間的「加入」通知。
package chat

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/koopa0/system-design/14-chat-rooms/internal/presence"
)

// Participant 參與者記錄
type Participant = presence.Participant

// Settings 協定層可調整的文字與時間格式
type Settings struct {
	AdminName   string           // 系統訊息的發送者名稱
	WelcomeText string           // 建立連接時的歡迎詞
	TimeLayout  string           // 訊息時間格式（Go layout）
	Now         func() time.Time // 時鐘，測試時可替換
}

// DefaultSettings 返回預設設定
func DefaultSettings() Settings {
	return Settings{
		AdminName:   "Admin",
		WelcomeText: "Welcome To ChatKaro",
		TimeLayout:  "3:04:05 PM",
		Now:         time.Now,
	}
}

// Coordinator 房間協調器
//
// 登記表的唯一擁有者：所有變更只經由 Upsert/Remove。
// mu 串行化每一次「讀取 → 變更 → 發送」序列，因此單次呼叫的發送順序不會和自己交錯；
// Transport 只排入佇列，持鎖期間不做 I/O。
type Coordinator struct {
	registry  *presence.Registry
	transport Transport
	observer  Observer
	settings  Settings
	logger    *slog.Logger
	mu        sync.Mutex
}

// NewCoordinator 創建房間協調器
func NewCoordinator(registry *presence.Registry, transport Transport, settings Settings, logger *slog.Logger) *Coordinator {
	defaults := DefaultSettings()
	if settings.AdminName == "" {
		settings.AdminName = defaults.AdminName
	}
	if settings.WelcomeText == "" {
		settings.WelcomeText = defaults.WelcomeText
	}
	if settings.TimeLayout == "" {
		settings.TimeLayout = defaults.TimeLayout
	}
	if settings.Now == nil {
		settings.Now = defaults.Now
	}

	return &Coordinator{
		registry:  registry,
		transport: transport,
		settings:  settings,
		logger:    logger,
	}
}

// SetObserver 設定狀態變更觀察者（需在開始處理事件前呼叫）
func (c *Coordinator) SetObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = o
}

// Registry 返回登記表（唯讀用途：HTTP 查詢、統計）
func (c *Coordinator) Registry() *presence.Registry {
	return c.registry
}

// Connect 新連接建立：只對該連接發送歡迎訊息
func (c *Coordinator) Connect(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.transport.Emit(connID, c.adminMessage(c.settings.WelcomeText))
	c.logger.Info("使用者已連線", "conn_id", connID)
}

// EnterRoom 進入（或切換）房間
//
// 重新進入目前所在的房間不做特殊處理：一樣會廣播離開與加入。
func (c *Coordinator) EnterRoom(connID string, p EnterRoomPayload) {
	if p.Room == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// 1. 變更前先記下舊房間
	prev, hadPrev := c.registry.Get(connID)

	// 2. 舊房間：先退訂再公告，離開者自己不會收到
	if hadPrev {
		c.transport.Leave(connID, prev.Room)
		c.transport.EmitRoom(prev.Room, c.adminMessage(fmt.Sprintf("%s has left the room", p.Name)))
	}

	// 3. 取代記錄
	user, err := c.registry.Upsert(connID, p.Name, p.Room)
	if err != nil {
		c.logger.Debug("丟棄進入房間請求", "conn_id", connID, "error", err)
		return
	}

	// 4. 舊房間名冊必須在登記表更新之後才能計算
	if hadPrev {
		c.transport.EmitRoom(prev.Room, UserListEvent(c.registry.ListByRoom(prev.Room)))
	}

	// 5. 訂閱新房間
	c.transport.Join(connID, user.Room)

	// 6. 只給加入者
	c.transport.Emit(connID, c.adminMessage(fmt.Sprintf("You have joined the %s chat room", user.Room)))

	// 7. 給房間內其他人
	c.transport.EmitRoomExcept(user.Room, connID, c.adminMessage(fmt.Sprintf("%s joined the room", user.Name)))

	// 8. 新房間名冊（包含加入者）
	c.transport.EmitRoom(user.Room, UserListEvent(c.registry.ListByRoom(user.Room)))

	// 9. 全域房間目錄
	c.transport.EmitAll(RoomListEvent(c.registry.ActiveRooms()))

	prevRoom := ""
	if hadPrev {
		prevRoom = prev.Room
	}
	if c.observer != nil {
		c.observer.ParticipantEntered(user, prevRoom)
	}

	c.logger.Info("使用者進入房間",
		"conn_id", connID,
		"name", user.Name,
		"room", user.Room,
		"prev_room", prevRoom)
}

// Disconnect 連接關閉
func (c *Coordinator) Disconnect(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.removeLocked(connID) {
		c.logger.Info("使用者已斷線", "conn_id", connID)
		return
	}
	c.logger.Info("使用者已斷線（未進入任何房間）", "conn_id", connID)
}

// LeaveApp 離開應用程式（連接保持開啟，但不再屬於任何房間）
func (c *Coordinator) LeaveApp(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	user, exists := c.registry.Get(connID)
	if !exists {
		return
	}

	c.transport.Leave(connID, user.Room)
	c.removeLocked(connID)
	c.logger.Info("使用者離開應用程式", "conn_id", connID, "room", user.Room)
}

// removeLocked 移除參與者並通知其房間（需持有 mu）
func (c *Coordinator) removeLocked(connID string) bool {
	user, exists := c.registry.Get(connID)
	c.registry.Remove(connID)
	if !exists {
		return false
	}

	c.transport.EmitRoom(user.Room, c.adminMessage(fmt.Sprintf("%s has left the room", user.Name)))
	c.transport.EmitRoom(user.Room, UserListEvent(c.registry.ListByRoom(user.Room)))
	c.transport.EmitAll(RoomListEvent(c.registry.ActiveRooms()))

	if c.observer != nil {
		c.observer.ParticipantLeft(user)
	}
	return true
}

// SendMessage 聊天訊息：發給整個房間，包含發送者
func (c *Coordinator) SendMessage(connID string, p MessagePayload) {
	c.mu.Lock()
	defer c.mu.Unlock()

	user, exists := c.registry.Get(connID)
	if !exists {
		c.logger.Debug("丟棄未進入房間的訊息", "conn_id", connID)
		return
	}

	c.transport.EmitRoom(user.Room, MessageEvent(c.buildMessage(p.Name, p.Text)))
}

// SendActivity 輸入提示：發給房間內其他人，不包含發送者
func (c *Coordinator) SendActivity(connID, name string) {
	if name == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	user, exists := c.registry.Get(connID)
	if !exists {
		return
	}

	c.transport.EmitRoomExcept(user.Room, connID, ActivityEvent(name))
}

// buildMessage 建立訊息，時間取發送當下
func (c *Coordinator) buildMessage(name, text string) Message {
	return Message{
		Name: name,
		Text: text,
		Time: c.settings.Now().Format(c.settings.TimeLayout),
	}
}

// adminMessage 系統訊息事件
func (c *Coordinator) adminMessage(text string) Event {
	return MessageEvent(c.buildMessage(c.settings.AdminName, text))
}
