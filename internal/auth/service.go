package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	pkgAuth "github.com/archivobordado/bordado-backend/pkg/auth"
	"github.com/archivobordado/bordado-backend/pkg/config"
	pkgerrors "github.com/archivobordado/bordado-backend/pkg/errors"
	"github.com/archivobordado/bordado-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service authenticates the single dashboard operator. There is no
// user table, the operator account lives in configuration as an email
// plus an argon2id hash.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context, sessionID string) error
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type sessionManager interface {
	Start(ctx context.Context, email string) (string, error)
	Revoke(ctx context.Context, sessionID string) error
}

type service struct {
	admin   config.AdminConfig
	session sessionManager
	jwtCfg  config.JWTConfig
	now     func() time.Time
}

type ServiceParams struct {
	AdminConfig    config.AdminConfig
	SessionManager sessionManager
	JWTConfig      config.JWTConfig
}

func NewService(params ServiceParams) (Service, error) {
	if params.AdminConfig.Email == "" || params.AdminConfig.PasswordHash == "" {
		return nil, fmt.Errorf("admin credentials are not configured")
	}
	if params.SessionManager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	return &service{
		admin:   params.AdminConfig,
		session: params.SessionManager,
		jwtCfg:  params.JWTConfig,
		now:     time.Now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	// wrong email and wrong password fail the same way, the response
	// must not reveal which one matched
	if email != strings.ToLower(s.admin.Email) {
		security.VerifyPassword(req.Password, s.admin.PasswordHash)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	ok, err := security.VerifyPassword(req.Password, s.admin.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	sessionID, err := s.session.Start(ctx, email)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "start admin session")
	}

	now := s.now().UTC()
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		Email: email,
		JTI:   sessionID,
	})
	if err != nil {
		// the session is orphaned otherwise
		if revokeErr := s.session.Revoke(ctx, sessionID); revokeErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, revokeErr, "revoke session after mint failure")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}

	return &LoginResponse{
		AccessToken: token,
		ExpiresAt:   now.Add(time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute),
	}, nil
}

// Logout revokes the redis session; the JWT becomes useless even
// before it expires.
func (s *service) Logout(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if err := s.session.Revoke(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke admin session")
	}
	return nil
}
