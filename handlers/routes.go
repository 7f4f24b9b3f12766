package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Register 註冊 API 路由；auth 套用在需要 token 的路由上
func (h *Handler) Register(router *mux.Router, auth func(http.Handler) http.Handler) {
	// 健康檢查路由
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	router.HandleFunc("/login", h.LoginUser).Methods(http.MethodPost)
	router.HandleFunc("/session/anonymous", h.AnonymousSession).Methods(http.MethodPost)

	protected := router.NewRoute().Subrouter()
	protected.Use(auth)
	protected.HandleFunc("/session", h.GetSession).Methods(http.MethodGet)
	protected.HandleFunc("/rooms/{roomId}/join", h.JoinChatRoom).Methods(http.MethodPost)
	protected.HandleFunc("/rooms/{roomId}/leave", h.LeaveChatRoom).Methods(http.MethodPost)
	protected.HandleFunc("/rooms/{roomId}", h.DeleteChatRoom).Methods(http.MethodDelete)
	protected.HandleFunc("/rooms/{roomId}/messages", h.SendMessage).Methods(http.MethodPost)
}
