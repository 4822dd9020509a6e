package chat

//go:generate mockgen -destination=mocks/transport.go -package=mocks . Transport

// Transport 即時傳輸層
//
// 所有方法都必須是非阻塞的（只負責排入佇列），
// 因為 Coordinator 在持有鎖的狀態下依序呼叫它們。
type Transport interface {
	// Emit 發送給單一連接
	Emit(connID string, ev Event)
	// EmitRoom 發送給房間內所有連接（包含發送者）
	EmitRoom(room string, ev Event)
	// EmitRoomExcept 發送給房間內除 except 以外的連接
	EmitRoomExcept(room, except string, ev Event)
	// EmitAll 發送給所有連接
	EmitAll(ev Event)
	// Join 將連接訂閱到房間
	Join(connID, room string)
	// Leave 取消連接對房間的訂閱
	Leave(connID, room string)
}

// Observer 參與者狀態變更的旁路觀察者（例如 Redis 鏡像）
//
// 在 Coordinator 的鎖內呼叫，實作不可阻塞。
type Observer interface {
	ParticipantEntered(p Participant, prevRoom string)
	ParticipantLeft(p Participant)
}
