// Package handler 提供 HTTP API：健康檢查、統計、房間目錄與名冊查詢，以及 WebSocket 入口。
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/koopa0/system-design/14-chat-rooms/internal/chat"
	"github.com/koopa0/system-design/14-chat-rooms/internal/presence"
	apperrors "github.com/koopa0/system-design/14-chat-rooms/pkg/errors"
	"github.com/koopa0/system-design/14-chat-rooms/pkg/logger"
)

// Hub 傳輸層中 HTTP 需要的部分
type Hub interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
	ConnectionCount() int
	RoomSubscriptions() map[string]int
}

// Handler HTTP 請求處理器
type Handler struct {
	registry  *presence.Registry
	hub       Hub
	staticDir string
	logger    *slog.Logger
}

// NewHandler 創建 HTTP 處理器
//
// registry 只用於讀取；staticDir 為空時不提供靜態檔案。
func NewHandler(registry *presence.Registry, hub Hub, staticDir string, logger *slog.Logger) *Handler {
	return &Handler{
		registry:  registry,
		hub:       hub,
		staticDir: staticDir,
		logger:    logger,
	}
}

// Routes 設定路由
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	// 中間件鏈
	wrap := func(handler http.HandlerFunc) http.HandlerFunc {
		return h.recoverer(h.loggerMiddleware(handler))
	}

	mux.HandleFunc("GET /api/v1/rooms", wrap(h.listRooms))
	mux.HandleFunc("GET /api/v1/rooms/{room}/users", wrap(h.listRoomUsers))
	mux.HandleFunc("GET /api/v1/participants/{id}", wrap(h.getParticipant))

	// WebSocket 需要 Hijacker，不經過 responseWriter 包裝
	mux.HandleFunc("GET /ws", h.recoverer(h.hub.ServeWS))

	mux.HandleFunc("GET /health", wrap(h.health))
	mux.HandleFunc("GET /stats", wrap(h.stats))

	if h.staticDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(h.staticDir)))
	}

	return mux
}

// listRooms 房間目錄
func (h *Handler) listRooms(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, chat.RoomList{Rooms: h.registry.ActiveRooms()}, http.StatusOK)
}

// listRoomUsers 房間名冊（房間不存在時回傳空名冊：房間只是推導出來的值）
func (h *Handler) listRoomUsers(w http.ResponseWriter, r *http.Request) {
	room := r.PathValue("room")
	h.jsonResponse(w, chat.UserList{Users: h.registry.ListByRoom(room)}, http.StatusOK)
}

// getParticipant 查詢參與者
func (h *Handler) getParticipant(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	p, ok := h.registry.Get(id)
	if !ok {
		h.errorResponse(w, apperrors.ErrParticipantNotFound.WithDetails(id))
		return
	}

	h.jsonResponse(w, p, http.StatusOK)
}

// health 健康檢查
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, map[string]any{
		"status": "healthy",
		"time":   time.Now().Unix(),
	}, http.StatusOK)
}

// stats 統計資訊
func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, map[string]any{
		"participants":       h.registry.Len(),
		"rooms":              len(h.registry.ActiveRooms()),
		"connections":        h.hub.ConnectionCount(),
		"room_subscriptions": h.hub.RoomSubscriptions(),
	}, http.StatusOK)
}

// jsonResponse 返回 JSON 響應
func (h *Handler) jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("編碼 JSON 失敗", "error", err)
	}
}

// errorResponse 依錯誤碼決定狀態碼
func (h *Handler) errorResponse(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperrors.CodeOf(err) {
	case apperrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case apperrors.ErrCodeUnavailable:
		status = http.StatusServiceUnavailable
	}

	body := map[string]any{"error": err.Error(), "code": apperrors.CodeOf(err)}
	h.jsonResponse(w, body, status)
}

// loggerMiddleware 日誌中間件（附帶 request_id）
func (h *Handler) loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := logger.WithRequestID(r.Context(), requestID)

		ww := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next(ww, r.WithContext(ctx))

		h.logger.InfoContext(ctx, "HTTP 請求",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.statusCode,
			"duration", time.Since(start))
	}
}

// recoverer panic 恢復中間件
func (h *Handler) recoverer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.logger.Error("處理請求時發生 panic",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path)

				h.errorResponse(w, apperrors.New(apperrors.ErrCodeInternal, "internal server error"))
			}
		}()

		next(w, r)
	}
}

// responseWriter 包裝 ResponseWriter 以獲取狀態碼
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
