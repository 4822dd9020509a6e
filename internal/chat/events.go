package chat

import (
	"github.com/koopa0/system-design/14-chat-rooms/internal/presence"
)

// EventType 事件名稱（WebSocket 訊框中的 "event" 欄位）
type EventType string

const (
	// 出站事件
	EventMessage  EventType = "message"  // 聊天訊息或系統訊息
	EventActivity EventType = "activity" // 正在輸入提示
	EventUserList EventType = "userList" // 房間名冊
	EventRoomList EventType = "roomList" // 房間目錄

	// 入站事件
	EventEnterRoom EventType = "enterRoom"
	EventLeaveApp  EventType = "leaveApp"
)

// Event 出站事件
//
// Data 依 Type 不同而為 Message、string（activity）、UserList 或 RoomList。
type Event struct {
	Type EventType `json:"event"`
	Data any       `json:"data"`
}

// Message 聊天訊息
type Message struct {
	Name string `json:"name"`
	Text string `json:"text"`
	Time string `json:"time"`
}

// UserList 房間名冊
type UserList struct {
	Users []presence.Participant `json:"users"`
}

// RoomList 房間目錄
type RoomList struct {
	Rooms []string `json:"rooms"`
}

// MessageEvent 建立聊天訊息事件
func MessageEvent(m Message) Event {
	return Event{Type: EventMessage, Data: m}
}

// ActivityEvent 建立輸入提示事件（payload 為名稱字串本身）
func ActivityEvent(name string) Event {
	return Event{Type: EventActivity, Data: name}
}

// UserListEvent 建立名冊事件
func UserListEvent(users []presence.Participant) Event {
	if users == nil {
		users = []presence.Participant{}
	}
	return Event{Type: EventUserList, Data: UserList{Users: users}}
}

// RoomListEvent 建立房間目錄事件
func RoomListEvent(rooms []string) Event {
	if rooms == nil {
		rooms = []string{}
	}
	return Event{Type: EventRoomList, Data: RoomList{Rooms: rooms}}
}
