package chat

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// EnterRoomPayload enterRoom 事件內容
type EnterRoomPayload struct {
	Name string `json:"name" validate:"required"`
	Room string `json:"room" validate:"required"`
}

// MessagePayload message 事件內容
type MessagePayload struct {
	Name string `json:"name" validate:"required"`
	Text string `json:"text"`
}

// HandleFrame 將入站事件分派到對應的操作
//
// 無法解析或驗證失敗的內容與「未知參與者」同樣處理：靜默丟棄，只記錄 debug 日誌。
func (c *Coordinator) HandleFrame(connID string, event EventType, data json.RawMessage) {
	switch event {
	case EventEnterRoom:
		var p EnterRoomPayload
		if !c.decode(connID, event, data, &p) {
			return
		}
		c.EnterRoom(connID, p)

	case EventMessage:
		var p MessagePayload
		if !c.decode(connID, event, data, &p) {
			return
		}
		c.SendMessage(connID, p)

	case EventActivity:
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			c.logger.Debug("丟棄無效的輸入提示", "conn_id", connID, "error", err)
			return
		}
		c.SendActivity(connID, name)

	case EventLeaveApp:
		c.LeaveApp(connID)

	default:
		c.logger.Debug("收到未知事件", "conn_id", connID, "event", event)
	}
}

// decode 解析並驗證事件內容
func (c *Coordinator) decode(connID string, event EventType, data json.RawMessage, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		c.logger.Debug("丟棄無法解析的事件", "conn_id", connID, "event", event, "error", err)
		return false
	}
	if err := validate.Struct(v); err != nil {
		c.logger.Debug("丟棄不完整的事件", "conn_id", connID, "event", event, "error", err)
		return false
	}
	return true
}
