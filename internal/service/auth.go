package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"lms_backend/internal/config"
	"lms_backend/internal/domain"
	"lms_backend/internal/repository"
	apperr "lms_backend/pkg/errors"
	"lms_backend/pkg/jwt"
	"lms_backend/pkg/logger"
)

const resetTokenTTL = 15 * time.Minute

type AuthService interface {
	Register(ctx context.Context, name, email, password, role string) (*domain.User, string, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	Logout(ctx context.Context, tokenString string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, password string) error
	ValidateToken(ctx context.Context, tokenString string) (*domain.User, error)
}

type authService struct {
	userRepo  repository.UserRepository
	tokenRepo repository.ResetTokenRepository
	denylist  repository.TokenDenylistRepository
	mailer    Mailer
	jwtCfg    config.JWTConfig
	clientURL string
	log       logger.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	tokenRepo repository.ResetTokenRepository,
	denylist repository.TokenDenylistRepository,
	mailer Mailer,
	jwtCfg config.JWTConfig,
	clientURL string,
	log logger.Logger,
) AuthService {
	return &authService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		denylist:  denylist,
		mailer:    mailer,
		jwtCfg:    jwtCfg,
		clientURL: clientURL,
		log:       log,
	}
}

func (s *authService) Register(ctx context.Context, name, email, password, role string) (*domain.User, string, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if len(name) < 3 {
		return nil, "", fmt.Errorf("name must be at least 3 characters: %w", apperr.ErrBadRequest)
	}
	if len(password) < 6 {
		return nil, "", fmt.Errorf("password must be at least 6 characters: %w", apperr.ErrBadRequest)
	}
	if !domain.ValidRole(role) {
		return nil, "", fmt.Errorf("role must be admin, teacher or student: %w", apperr.ErrBadRequest)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		s.log.Error("failed to hash password", "error", err)
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &domain.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := jwt.GenerateAccessToken(user.ID, user.Email, user.Role, s.jwtCfg.Secret, s.jwtCfg.TTL, s.jwtCfg.Issuer)
	if err != nil {
		s.log.Error("failed to generate token", "error", err)
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user.Public(), token, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// Do not reveal whether the account exists.
		return nil, "", apperr.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", apperr.ErrInvalidCredentials
	}

	token, err := jwt.GenerateAccessToken(user.ID, user.Email, user.Role, s.jwtCfg.Secret, s.jwtCfg.TTL, s.jwtCfg.Issuer)
	if err != nil {
		s.log.Error("failed to generate token", "error", err)
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	return user.Public(), token, nil
}

// Logout revokes the bearer token for the remainder of its lifetime. Tokens
// are stateless, so revocation is a denylist entry that expires with the
// token itself.
func (s *authService) Logout(ctx context.Context, tokenString string) error {
	claims, err := jwt.ValidateToken(tokenString, s.jwtCfg.Secret)
	if err != nil {
		return apperr.ErrInvalidToken
	}

	// Tokens issued here always carry an expiry; fall back to the configured
	// TTL for any that do not.
	ttl := s.jwtCfg.TTL
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return nil
	}
	if err := s.denylist.Deny(ctx, tokenString, ttl); err != nil {
		return err
	}

	s.log.Info("user logged out", "user_id", claims.UserID)
	return nil
}

func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return err
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	token := hex.EncodeToString(buf)

	if err := s.tokenRepo.Save(ctx, token, user.ID, resetTokenTTL); err != nil {
		return err
	}

	resetURL := s.clientURL + "/reset-password"
	body := fmt.Sprintf(`<h2>Password Reset Request</h2>
<p>Your password reset token is: %s</p>
<p>Click the link below to reset your password:</p>
<a href="%s" target="_blank">%s</a>`, token, resetURL, resetURL)

	if err := s.mailer.Send(ctx, user.Email, "Password Reset Request", body); err != nil {
		s.log.Error("failed to send reset email", "error", err, "user_id", user.ID)
		return fmt.Errorf("failed to send reset email: %w", err)
	}

	s.log.Info("password reset email sent", "user_id", user.ID)
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters: %w", apperr.ErrBadRequest)
	}

	userID, err := s.tokenRepo.Consume(ctx, token)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.userRepo.UpdatePassword(ctx, userID, string(hash))
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*domain.User, error) {
	claims, err := jwt.ValidateToken(tokenString, s.jwtCfg.Secret)
	if err != nil {
		return nil, apperr.ErrInvalidToken
	}

	denied, err := s.denylist.IsDenied(ctx, tokenString)
	if err != nil {
		// Fail open: signature and expiry checks above still apply.
		s.log.Error("token denylist unavailable", "error", err)
	} else if denied {
		return nil, apperr.ErrInvalidToken
	}

	return s.userRepo.GetByID(ctx, claims.UserID)
}
