package service

import (
	"lms_backend/internal/config"
	"lms_backend/internal/repository"
	"lms_backend/pkg/logger"
)

// Services bundles all business logic layers for dependency injection into
// handlers.
type Services struct {
	Auth    AuthService
	User    UserService
	Chat    ChatService
	Course  CourseService
	Payment PaymentService
	Media   MediaService
}

// NewServices wires services on top of the repositories. The notifier is the
// realtime hub; chat events flow through it after persistence.
func NewServices(repos *repository.Repositories, cfg *config.Config, notifier Notifier, log logger.Logger) *Services {
	mailer := NewSMTPMailer(cfg.SMTP, log)
	provider := NewStripeProvider(cfg.Payment, log)

	return &Services{
		Auth:    NewAuthService(repos.User, repos.ResetToken, repos.Denylist, mailer, cfg.JWT, cfg.Server.ClientOrigin, log),
		User:    NewUserService(repos.User, log),
		Chat:    NewChatService(repos.Conversation, repos.Message, repos.User, notifier, log),
		Course:  NewCourseService(repos.Course, repos.User, log),
		Payment: NewPaymentService(repos.Course, repos.Transaction, repos.User, provider, log),
		Media:   NewMediaService(cfg.Media.UploadDir, cfg.Media.BaseURL, cfg.Media.MaxBytes, log),
	}
}
