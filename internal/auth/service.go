package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	pkgAuth "github.com/angelmondragon/footfall-dashboard/pkg/auth"
	"github.com/angelmondragon/footfall-dashboard/pkg/auth/session"
	"github.com/angelmondragon/footfall-dashboard/pkg/config"
	pkgerrors "github.com/angelmondragon/footfall-dashboard/pkg/errors"
	"github.com/angelmondragon/footfall-dashboard/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context, sessionID string) error
}

type sessionManager interface {
	Create(ctx context.Context, accessID, email string) error
	Revoke(ctx context.Context, accessID string) error
}

// dashboardSessions releases per-session dashboard state on logout.
type dashboardSessions interface {
	Drop(id string)
}

type service struct {
	operator   config.OperatorConfig
	session    sessionManager
	dashboards dashboardSessions
	jwtCfg     config.JWTConfig
	now        func() time.Time
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	Operator       config.OperatorConfig
	SessionManager sessionManager
	Dashboards     dashboardSessions
	JWTConfig      config.JWTConfig
	Clock          func() time.Time
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if strings.TrimSpace(params.Operator.Email) == "" {
		return nil, fmt.Errorf("operator email is required")
	}
	if strings.TrimSpace(params.Operator.PasswordHash) == "" {
		return nil, fmt.Errorf("operator password hash is required")
	}
	now := params.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		operator:   params.Operator,
		session:    params.SessionManager,
		dashboards: params.Dashboards,
		jwtCfg:     params.JWTConfig,
		now:        now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email, err := s.authenticate(req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		Email:     email,
		SessionID: accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	if err := s.session.Create(ctx, accessID, email); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session")
	}

	return &LoginResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresAt:   now.Add(s.jwtCfg.SessionTTL()),
		Email:       email,
	}, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "session required")
	}
	if s.dashboards != nil {
		s.dashboards.Drop(sessionID)
	}
	if err := s.session.Revoke(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

// authenticate checks the credentials against the configured operator and returns the canonical email.
func (s *service) authenticate(email, password string) (string, error) {
	input := strings.ToLower(strings.TrimSpace(email))
	if input == "" || password == "" {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	expected := strings.ToLower(strings.TrimSpace(s.operator.Email))

	// Always run the hash so unknown emails cost the same as wrong passwords.
	valid, err := security.VerifyPassword(password, s.operator.PasswordHash)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || input != expected {
		return "", pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return expected, nil
}
