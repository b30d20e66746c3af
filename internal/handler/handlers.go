package handler

import (
	"lms_backend/internal/config"
	"lms_backend/internal/hub"
	"lms_backend/internal/service"
	"lms_backend/pkg/logger"
)

type Handlers struct {
	Health    *HealthHandler
	Auth      *AuthHandler
	User      *UserHandler
	Chat      *ChatHandler
	Course    *CourseHandler
	Payment   *PaymentHandler
	WebSocket *WebSocketHandler
}

func NewHandlers(services *service.Services, h *hub.Hub, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(cfg),
		Auth:      NewAuthHandler(services.Auth, log),
		User:      NewUserHandler(services.User, log),
		Chat:      NewChatHandler(services.Chat, services.Media, log),
		Course:    NewCourseHandler(services.Course, log),
		Payment:   NewPaymentHandler(services.Payment, log),
		WebSocket: NewWebSocketHandler(h, services.Auth, cfg.Server.ClientOrigin, log),
	}
}
