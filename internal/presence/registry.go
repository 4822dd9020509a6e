// Package presence 維護「連接 ID → 參與者」的唯一真實來源。
//
// 房間不是獨立的實體，只是參與者記錄上的一個字串屬性；
// 名冊（ListByRoom）與房間目錄（ActiveRooms）每次都從目前的記錄即時推導，不做快取。
package presence

import (
	"errors"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// ErrEmptyRoom 房間名稱為空（已註冊的參與者必須位於某個房間）
var ErrEmptyRoom = errors.New("presence: room must not be empty")

// Participant 一個已連線且已進入房間的身分
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Room string `json:"room"`
}

// Registry 參與者登記表
//
// 不變量：
//   - 每個 ID 最多一筆記錄
//   - 每筆記錄的 Room 非空
//   - 記錄順序即插入順序；Upsert 取代時記錄移到最後（先移除再加入）
//
// 讀寫鎖只保護單一操作；跨多步驟的讀-改-寫序列由呼叫端（chat.Coordinator）串行化。
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]Participant
	order []string
}

// NewRegistry 建立空的登記表
func NewRegistry() *Registry {
	return &Registry{
		byID: make(map[string]Participant),
	}
}

// Upsert 新增或取代 id 的記錄
func (r *Registry) Upsert(id, name, room string) (Participant, error) {
	if room == "" {
		return Participant{}, ErrEmptyRoom
	}

	p := Participant{ID: id, Name: name, Room: room}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; exists {
		r.dropFromOrder(id)
	}
	r.byID[id] = p
	r.order = append(r.order, id)

	return p, nil
}

// Remove 刪除 id 的記錄，回傳被刪除的記錄
func (r *Registry) Remove(id string) (Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, exists := r.byID[id]
	if !exists {
		return Participant{}, false
	}

	delete(r.byID, id)
	r.dropFromOrder(id)

	return p, true
}

// Get 查詢單筆記錄
func (r *Registry) Get(id string) (Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.byID[id]
	return p, exists
}

// ListByRoom 回傳房間名冊（依登記順序）
func (r *Registry) ListByRoom(room string) []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.FilterMap(r.order, func(id string, _ int) (Participant, bool) {
		p := r.byID[id]
		return p, p.Room == room
	})
}

// ActiveRooms 回傳目前至少有一位參與者的房間（依首次出現順序去重）
func (r *Registry) ActiveRooms() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Uniq(lo.Map(r.order, func(id string, _ int) string {
		return r.byID[id].Room
	}))
}

// Snapshot 回傳全部記錄的副本（依登記順序）
func (r *Registry) Snapshot() []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Map(r.order, func(id string, _ int) Participant {
		return r.byID[id]
	})
}

// Len 回傳記錄數
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// dropFromOrder 從順序表移除 id（需持有寫鎖）
func (r *Registry) dropFromOrder(id string) {
	if i := slices.Index(r.order, id); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
}
