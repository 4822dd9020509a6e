package chat_test

import (
	"encoding/json"
	"testing"

	"github.com/koopa0/system-design/14-chat-rooms/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCoordinator_HandleFrame 測試入站事件的解析、驗證與分派
func TestCoordinator_HandleFrame(t *testing.T) {
	tests := []struct {
		name     string
		event    chat.EventType
		data     string
		validate func(t *testing.T, ft *fakeTransport, c *chat.Coordinator)
	}{
		{
			name:  "enter room",
			event: chat.EventEnterRoom,
			data:  `{"name":"alice","room":"lobby"}`,
			validate: func(t *testing.T, ft *fakeTransport, c *chat.Coordinator) {
				p, ok := c.Registry().Get("c1")
				require.True(t, ok)
				assert.Equal(t, "lobby", p.Room)
			},
		},
		{
			name:  "enter room missing room is dropped",
			event: chat.EventEnterRoom,
			data:  `{"name":"alice"}`,
			validate: func(t *testing.T, ft *fakeTransport, c *chat.Coordinator) {
				assert.Equal(t, 0, c.Registry().Len())
				assert.Empty(t, ft.recorded())
			},
		},
		{
			name:  "enter room missing name is dropped",
			event: chat.EventEnterRoom,
			data:  `{"room":"lobby"}`,
			validate: func(t *testing.T, ft *fakeTransport, c *chat.Coordinator) {
				assert.Equal(t, 0, c.Registry().Len())
			},
		},
		{
			name:  "enter room with invalid json is dropped",
			event: chat.EventEnterRoom,
			data:  `{"name":`,
			validate: func(t *testing.T, ft *fakeTransport, c *chat.Coordinator) {
				assert.Equal(t, 0, c.Registry().Len())
			},
		},
		{
			name:  "enter room without data is dropped",
			event: chat.EventEnterRoom,
			data:  "",
			validate: func(t *testing.T, ft *fakeTransport, c *chat.Coordinator) {
				assert.Equal(t, 0, c.Registry().Len())
			},
		},
		{
			name:  "message before entering a room is dropped",
			event: chat.EventMessage,
			data:  `{"name":"alice","text":"hi"}`,
			validate: func(t *testing.T, ft *fakeTransport, c *chat.Coordinator) {
				assert.Empty(t, ft.recorded())
			},
		},
		{
			name:  "activity with object payload is dropped",
			event: chat.EventActivity,
			data:  `{"name":"alice"}`,
			validate: func(t *testing.T, ft *fakeTransport, c *chat.Coordinator) {
				assert.Empty(t, ft.recorded())
			},
		},
		{
			name:  "unknown event is ignored",
			event: chat.EventType("dance"),
			data:  `{}`,
			validate: func(t *testing.T, ft *fakeTransport, c *chat.Coordinator) {
				assert.Empty(t, ft.recorded())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := newFakeTransport()
			ft.connect("c1")
			c, _ := newCoordinator(t, ft)

			var data json.RawMessage
			if tt.data != "" {
				data = json.RawMessage(tt.data)
			}
			c.HandleFrame("c1", tt.event, data)
			tt.validate(t, ft, c)
		})
	}
}

// TestCoordinator_HandleFrame_Conversation 測試完整的入站事件序列
func TestCoordinator_HandleFrame_Conversation(t *testing.T) {
	ft := newFakeTransport()
	ft.connect("a", "b")
	c, reg := newCoordinator(t, ft)

	c.HandleFrame("a", chat.EventEnterRoom, json.RawMessage(`{"name":"A","room":"lobby"}`))
	c.HandleFrame("b", chat.EventEnterRoom, json.RawMessage(`{"name":"B","room":"lobby"}`))
	ft.reset()

	c.HandleFrame("a", chat.EventMessage, json.RawMessage(`{"name":"A","text":"hi"}`))
	c.HandleFrame("b", chat.EventActivity, json.RawMessage(`"B"`))

	msgs := ft.received("b", chat.EventMessage)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Data.(chat.Message).Text)
	assert.Equal(t, []chat.Event{chat.ActivityEvent("B")}, ft.received("a", chat.EventActivity))

	c.HandleFrame("a", chat.EventLeaveApp, nil)
	_, ok := reg.Get("a")
	assert.False(t, ok)
}
