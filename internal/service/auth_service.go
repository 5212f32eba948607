package service

import (
	"strings"
	"time"

	"github.com/kombat1337-ui/Support-bot/internal/auth"
	"github.com/kombat1337-ui/Support-bot/internal/config"
	"github.com/kombat1337-ui/Support-bot/internal/domain"
	apperrors "github.com/kombat1337-ui/Support-bot/pkg/util/errorutil"
)

// IssuedToken is a signed operator token.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// AuthService issues access tokens for the operator API.
type AuthService struct {
	tokenMgr *auth.TokenManager
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig) *AuthService {
	return &AuthService{tokenMgr: auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes)}
}

// TokenManager exposes the manager used to validate issued tokens.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// IssueStaffToken signs a token for the named operator.
func (s *AuthService) IssueStaffToken(operatorID string) (*IssuedToken, error) {
	operatorID = strings.TrimSpace(operatorID)
	if operatorID == "" {
		return nil, apperrors.NewValidationError("operator id required", nil)
	}
	token, expiresAt, err := s.tokenMgr.GenerateToken(operatorID, domain.SubjectTypeStaff)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &IssuedToken{Token: token, ExpiresAt: expiresAt}, nil
}
