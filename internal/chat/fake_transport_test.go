package chat_test

import (
	"sync"

	"github.com/koopa0/system-design/14-chat-rooms/internal/chat"
)

// call 一次 Transport 呼叫的紀錄
type call struct {
	Op     string
	Target string // connID 或 room
	Except string
	Event  chat.Event
}

// fakeTransport 記錄呼叫並模擬房間訂閱，讓測試能檢查每個連接實際收到什麼
type fakeTransport struct {
	mu    sync.Mutex
	conns []string
	rooms map[string]map[string]bool
	inbox map[string][]chat.Event
	calls []call
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		rooms: make(map[string]map[string]bool),
		inbox: make(map[string][]chat.Event),
	}
}

// connect 模擬傳輸層建立連接
func (f *fakeTransport) connect(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conns = append(f.conns, ids...)
}

// disconnect 模擬傳輸層關閉連接（在通知 Coordinator 之前退訂所有房間）
func (f *fakeTransport) disconnect(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.conns {
		if c == id {
			f.conns = append(f.conns[:i], f.conns[i+1:]...)
			break
		}
	}
	for _, members := range f.rooms {
		delete(members, id)
	}
}

func (f *fakeTransport) Emit(connID string, ev chat.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Op: "Emit", Target: connID, Event: ev})
	f.inbox[connID] = append(f.inbox[connID], ev)
}

func (f *fakeTransport) EmitRoom(room string, ev chat.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Op: "EmitRoom", Target: room, Event: ev})
	for id := range f.rooms[room] {
		f.inbox[id] = append(f.inbox[id], ev)
	}
}

func (f *fakeTransport) EmitRoomExcept(room, except string, ev chat.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Op: "EmitRoomExcept", Target: room, Except: except, Event: ev})
	for id := range f.rooms[room] {
		if id != except {
			f.inbox[id] = append(f.inbox[id], ev)
		}
	}
}

func (f *fakeTransport) EmitAll(ev chat.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Op: "EmitAll", Event: ev})
	for _, id := range f.conns {
		f.inbox[id] = append(f.inbox[id], ev)
	}
}

func (f *fakeTransport) Join(connID, room string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Op: "Join", Target: room, Except: connID})
	if f.rooms[room] == nil {
		f.rooms[room] = make(map[string]bool)
	}
	f.rooms[room][connID] = true
}

func (f *fakeTransport) Leave(connID, room string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Op: "Leave", Target: room, Except: connID})
	delete(f.rooms[room], connID)
}

// received 回傳連接收到的某類事件
func (f *fakeTransport) received(connID string, typ chat.EventType) []chat.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []chat.Event
	for _, ev := range f.inbox[connID] {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// reset 清除紀錄（保留訂閱狀態）
func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
	f.inbox = make(map[string][]chat.Event)
}

func (f *fakeTransport) recorded() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}
