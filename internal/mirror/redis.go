// Package mirror 將參與者狀態鏡像到 Redis，供外部儀表板查詢。
//
// 鏡像是單向、盡力而為的：記憶體中的登記表永遠是唯一真實來源，
// Redis 寫入失敗只記錄日誌，不影響聊天流程。
//
// Redis 鍵結構：
//   - {prefix}:participants      Hash  connID → Participant JSON
//   - {prefix}:room:{room}       Set   該房間的 connID
//   - {prefix}:rooms             Set   目前有人的房間
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	"github.com/koopa0/system-design/14-chat-rooms/internal/presence"
)

type opKind int

const (
	opEnter opKind = iota
	opLeave
)

type op struct {
	kind        opKind
	participant presence.Participant
	prevRoom    string
}

// RedisMirror 以單一背景 worker 依序套用變更
//
// 觀察者方法在協調器的鎖內被呼叫，所以只做非阻塞的排入佇列；
// 佇列滿時丟棄並記錄警告。
type RedisMirror struct {
	client    *redis.Client
	prefix    string
	timeout   time.Duration
	logger    *slog.Logger
	ops       chan op
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

// NewRedisMirror 創建鏡像並啟動 worker
func NewRedisMirror(client *redis.Client, prefix string, buffer int, timeout time.Duration, logger *slog.Logger) *RedisMirror {
	if prefix == "" {
		prefix = "chat"
	}
	if buffer <= 0 {
		buffer = 1024
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	m := &RedisMirror{
		client:  client,
		prefix:  prefix,
		timeout: timeout,
		logger:  logger,
		ops:     make(chan op, buffer),
	}

	m.wg.Add(1)
	go m.run()

	return m
}

func (m *RedisMirror) participantsKey() string { return m.prefix + ":participants" }
func (m *RedisMirror) roomsKey() string        { return m.prefix + ":rooms" }
func (m *RedisMirror) roomKey(room string) string {
	return m.prefix + ":room:" + room
}

// ParticipantEntered 參與者進入（或切換）房間
func (m *RedisMirror) ParticipantEntered(p presence.Participant, prevRoom string) {
	m.enqueue(op{kind: opEnter, participant: p, prevRoom: prevRoom})
}

// ParticipantLeft 參與者離開
func (m *RedisMirror) ParticipantLeft(p presence.Participant) {
	m.enqueue(op{kind: opLeave, participant: p})
}

// enqueue 非阻塞排入佇列
func (m *RedisMirror) enqueue(o op) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return
	}

	select {
	case m.ops <- o:
	default:
		m.logger.Warn("Redis 鏡像佇列已滿，丟棄變更",
			"conn_id", o.participant.ID,
			"room", o.participant.Room)
	}
}

// run worker 主迴圈
func (m *RedisMirror) run() {
	defer m.wg.Done()

	for o := range m.ops {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		var err error
		switch o.kind {
		case opEnter:
			err = m.applyEnter(ctx, o.participant, o.prevRoom)
		case opLeave:
			err = m.applyLeave(ctx, o.participant)
		}
		cancel()

		if err != nil {
			m.logger.Error("Redis 鏡像寫入失敗",
				"conn_id", o.participant.ID,
				"room", o.participant.Room,
				"error", err)
		}
	}
}

// applyEnter 套用進入房間
func (m *RedisMirror) applyEnter(ctx context.Context, p presence.Participant, prevRoom string) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal participant: %w", err)
	}

	_, err = m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if prevRoom != "" {
			pipe.SRem(ctx, m.roomKey(prevRoom), p.ID)
		}
		pipe.HSet(ctx, m.participantsKey(), p.ID, data)
		pipe.SAdd(ctx, m.roomKey(p.Room), p.ID)
		pipe.SAdd(ctx, m.roomsKey(), p.Room)
		return nil
	})
	if err != nil {
		return fmt.Errorf("mirror enter: %w", err)
	}

	if prevRoom != "" && prevRoom != p.Room {
		return m.pruneRoom(ctx, prevRoom)
	}
	return nil
}

// applyLeave 套用離開
func (m *RedisMirror) applyLeave(ctx context.Context, p presence.Participant) error {
	_, err := m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, m.participantsKey(), p.ID)
		pipe.SRem(ctx, m.roomKey(p.Room), p.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("mirror leave: %w", err)
	}

	return m.pruneRoom(ctx, p.Room)
}

// pruneRoom 房間沒人時從目錄移除（只有 worker 寫入，不需要 WATCH）
func (m *RedisMirror) pruneRoom(ctx context.Context, room string) error {
	n, err := m.client.SCard(ctx, m.roomKey(room)).Result()
	if err != nil {
		return fmt.Errorf("count room members: %w", err)
	}
	if n > 0 {
		return nil
	}
	if err := m.client.SRem(ctx, m.roomsKey(), room).Err(); err != nil {
		return fmt.Errorf("prune room: %w", err)
	}
	return nil
}

// Reset 清除上一個行程留下的鏡像資料（啟動時呼叫）
func (m *RedisMirror) Reset(ctx context.Context) error {
	rooms, err := m.client.SMembers(ctx, m.roomsKey()).Result()
	if err != nil {
		return fmt.Errorf("list mirrored rooms: %w", err)
	}

	keys := append(lo.Map(rooms, func(room string, _ int) string {
		return m.roomKey(room)
	}), m.participantsKey(), m.roomsKey())

	if err := m.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("reset mirror: %w", err)
	}
	return nil
}

// Rooms 讀取鏡像中的房間目錄
func (m *RedisMirror) Rooms(ctx context.Context) ([]string, error) {
	return m.client.SMembers(ctx, m.roomsKey()).Result()
}

// Roster 讀取鏡像中的房間名冊
func (m *RedisMirror) Roster(ctx context.Context, room string) ([]presence.Participant, error) {
	ids, err := m.client.SMembers(ctx, m.roomKey(room)).Result()
	if err != nil {
		return nil, fmt.Errorf("list room members: %w", err)
	}
	if len(ids) == 0 {
		return []presence.Participant{}, nil
	}

	values, err := m.client.HMGet(ctx, m.participantsKey(), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}

	out := make([]presence.Participant, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var p presence.Participant
		if err := json.Unmarshal([]byte(s), &p); err != nil {
			return nil, fmt.Errorf("decode participant: %w", err)
		}
		out = append(out, p)
	}
	return out, nil
}

// Close 停止接收變更，等待佇列排空
func (m *RedisMirror) Close() error {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		close(m.ops)
		m.mu.Unlock()
	})
	m.wg.Wait()
	return nil
}
