package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/koopa0/system-design/14-chat-rooms/pkg/logger"
)

// readPump 讀取客戶端訊框並交給 Inbound
//
// 結束時先從 Hub 註銷（退訂所有房間），再通知 Inbound.Disconnect，
// 因此斷線公告不會再送回這個連接。
func (c *Connection) readPump(inbound Inbound) {
	ctx := logger.WithConnID(context.Background(), c.ID)

	defer func() {
		c.Hub.unregister(c)
		inbound.Disconnect(c.ID)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Hub.settings.MaxMessageSize)
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.Hub.settings.PongWait)); err != nil {
		c.Hub.logger.ErrorContext(ctx, "設置讀取期限失敗", "error", err)
	}

	// 收到 Pong 重置超時
	c.Conn.SetPongHandler(func(string) error {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.Hub.settings.PongWait)); err != nil {
			c.Hub.logger.ErrorContext(ctx, "設置讀取期限失敗", "error", err)
		}
		c.mu.Lock()
		c.LastPing = time.Now()
		c.mu.Unlock()
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.Hub.logger.WarnContext(ctx, "WebSocket 讀取錯誤", "error", err)
			}
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		var f frame
		if err := json.Unmarshal(message, &f); err != nil {
			c.Hub.logger.DebugContext(ctx, "解析客戶端訊框失敗", "error", err)
			continue
		}
		inbound.HandleFrame(c.ID, f.Event, f.Data)
	}
}

// writePump 將 Send 佇列寫出，並定期發送 Ping
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Hub.settings.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	writeWait := c.Hub.settings.WriteWait

	for {
		select {
		case message, ok := <-c.Send:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.Hub.logger.Error("設置寫入期限失敗", "conn_id", c.ID, "error", err)
			}
			if !ok {
				// Hub 關閉了通道，嘗試送出關閉訊框（連接可能已關閉，忽略錯誤）
				_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// 每個事件一個訊框，批次送出佇列中已有的訊息
			n := len(c.Send)
			for i := 0; i < n; i++ {
				next, ok := <-c.Send
				if !ok {
					return
				}
				if err := c.Conn.WriteMessage(websocket.TextMessage, next); err != nil {
					c.Hub.logger.Debug("發送訊息失敗", "conn_id", c.ID, "error", err)
					return
				}
			}

		case <-ticker.C:
			if err := c.Conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.Hub.logger.Error("設置寫入期限失敗", "conn_id", c.ID, "error", err)
			}
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
