package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"nicetalk/utils"
)

// JoinRoomRequest 定義加入聊天室的請求體
type JoinRoomRequest struct {
	Password string `json:"password"`
}

// SendMessageRequest 定義發送訊息的請求體
type SendMessageRequest struct {
	Text string `json:"text"`
}

// roomRequest 取出路徑中的房間 ID 與 token 的使用者
func (h *Handler) roomRequest(w http.ResponseWriter, r *http.Request) (roomID, userID string, ok bool) {
	claims, err := utils.ClaimsFromContext(r.Context())
	if err != nil {
		h.sendJSONError(w, "Unauthorized: user ID not found in context", http.StatusUnauthorized)
		return "", "", false
	}

	roomID = mux.Vars(r)["roomId"]
	if roomID == "" {
		h.sendJSONError(w, "Room ID is required", http.StatusBadRequest)
		return "", "", false
	}
	return roomID, claims.UserID, true
}

// JoinChatRoom 加入或建立聊天室
func (h *Handler) JoinChatRoom(w http.ResponseWriter, r *http.Request) {
	roomID, userID, ok := h.roomRequest(w, r)
	if !ok {
		return
	}

	var req JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.registry.Service().JoinOrCreateRoom(ctx, roomID, req.Password, userID); err != nil {
		h.log.Warn().Err(err).Str("roomId", roomID).Str("userId", userID).Msg("Join room failed")
		h.sendJSONError(w, err.Error(), statusForError(err))
		return
	}

	h.sendJSON(w, map[string]string{"roomId": roomID, "userId": userID}, http.StatusOK)
}

// LeaveChatRoom 離開聊天室，失敗也回報成功
func (h *Handler) LeaveChatRoom(w http.ResponseWriter, r *http.Request) {
	roomID, userID, ok := h.roomRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	h.registry.Service().LeaveRoom(ctx, roomID, userID)
	h.sendJSON(w, map[string]string{"message": "Left room"}, http.StatusOK)
}

// DeleteChatRoom 銷毀聊天室與所有訊息
func (h *Handler) DeleteChatRoom(w http.ResponseWriter, r *http.Request) {
	roomID, _, ok := h.roomRequest(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.registry.Service().DestroyRoom(ctx, roomID); err != nil {
		h.log.Error().Err(err).Str("roomId", roomID).Msg("Destroy room failed")
		h.sendJSONError(w, err.Error(), statusForError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SendMessage 以 token 的使用者身分發送訊息
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	roomID, userID, ok := h.roomRequest(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		h.sendJSONError(w, "Message text is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := h.registry.Service().SendMessage(ctx, roomID, req.Text, userID); err != nil {
		h.log.Error().Err(err).Str("roomId", roomID).Msg("Send message failed")
		h.sendJSONError(w, err.Error(), statusForError(err))
		return
	}
	h.sendJSON(w, map[string]string{"message": "Message sent"}, http.StatusCreated)
}
