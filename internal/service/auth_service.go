package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sales-crm/internal/auth"
	"github.com/spec-kit/sales-crm/internal/config"
	"github.com/spec-kit/sales-crm/internal/domain"
	"github.com/spec-kit/sales-crm/internal/realtime"
	"github.com/spec-kit/sales-crm/internal/repository"
	apperrors "github.com/spec-kit/sales-crm/pkg/util/errorutil"
)

// AuthService coordinates login and logout.
type AuthService struct {
	collections *repository.Collections
	sync        *realtime.Manager
	tokenMgr    *auth.TokenManager
	logger      *zap.Logger
	now         Clock
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	Collections *repository.Collections
	Sync        *realtime.Manager
	Logger      *zap.Logger
	Clock       Clock
}

// LoginResult is a successful login.
type LoginResult struct {
	User      domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	s := &AuthService{
		collections: deps.Collections,
		sync:        deps.Sync,
		tokenMgr:    auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		logger:      deps.Logger,
		now:         deps.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = utcNow
	}
	return s
}

var errInvalidCredentials = apperrors.NewUnauthorized("invalid employee ID or password")

// Login authenticates by employee id and plaintext password. Unknown ids and
// wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, employeeID, password string) (*LoginResult, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" || password == "" {
		return nil, apperrors.NewValidationError("employee ID and password are required", nil)
	}

	var user domain.User
	err := s.sync.MutateUsers(ctx, employeeID, func(users []domain.User) ([]domain.User, error) {
		idx := -1
		for i := range users {
			if users[i].EmployeeID == employeeID && users[i].Password == password {
				idx = i
				break
			}
		}
		if idx < 0 {
			s.logAttempt(ctx, employeeID, "", false, "login")
			return nil, errInvalidCredentials
		}
		if !users[idx].Active() {
			s.logAttempt(ctx, employeeID, users[idx].ID, false, "login")
			return nil, apperrors.NewForbidden("account is inactive")
		}
		users[idx].LastLogin = domain.FormatTimestamp(s.now())
		user = users[idx].Clone()
		return users, nil
	})
	if err != nil {
		return nil, err
	}
	user.Password = ""
	if err := s.collections.SetCurrentUser(ctx, &user); err != nil {
		return nil, err
	}
	s.logAttempt(ctx, employeeID, user.ID, true, "login")

	token, exp, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("user logged in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return &LoginResult{User: user, Token: token, ExpiresAt: exp}, nil
}

// Logout clears the session-user slot.
func (s *AuthService) Logout(ctx context.Context, actor *domain.User) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if err := s.collections.SetCurrentUser(ctx, nil); err != nil {
		return err
	}
	s.logAttempt(ctx, actor.EmployeeID, actor.ID, true, "logout")
	return nil
}

// CurrentUser returns the most recently signed-in user, if any.
func (s *AuthService) CurrentUser(ctx context.Context) (*domain.User, error) {
	return s.collections.CurrentUser(ctx)
}

func (s *AuthService) logAttempt(ctx context.Context, employeeID, userID string, success bool, action string) {
	entry := domain.LoginLogEntry{
		Timestamp:  domain.FormatTimestamp(s.now()),
		EmployeeID: employeeID,
		UserID:     userID,
		Success:    success,
		Action:     action,
	}
	if err := s.collections.AppendLoginLog(ctx, entry); err != nil {
		s.logger.Warn("login log append failed", zap.Error(err))
	}
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
