package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	errors "github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/internal/core/events"
	"github.com/frahmantamala/gatepass/internal/httpclient"
	"github.com/frahmantamala/gatepass/internal/session"
	"github.com/frahmantamala/gatepass/pkg/logger"
)

const authPath = "/auth/"

type Service struct {
	client    APIClient
	store     SessionStore
	publisher events.Publisher
	logger    *slog.Logger
}

// NewService wires the service. publisher may be nil.
func NewService(client APIClient, store SessionStore, publisher events.Publisher, lg *slog.Logger) *Service {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &Service{
		client:    client,
		store:     store,
		publisher: publisher,
		logger:    lg,
	}
}

// Login exchanges credentials for a token pair and stores it with the role.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (session.Session, error) {
	if err := dto.Validate(); err != nil {
		return session.Session{}, err
	}

	var tokens Tokens
	err := s.client.DoJSON(ctx, &httpclient.Request{
		Method:      http.MethodPost,
		Path:        authPath,
		Body:        dto,
		Anonymous:   true,
		SkipRefresh: true,
	}, &tokens)
	if err != nil {
		if appErr, ok := errors.IsAppError(err); ok {
			switch appErr.StatusCode {
			case http.StatusBadRequest, http.StatusUnauthorized:
				return session.Session{}, errors.NewAuthError("Invalid username or password", errors.ErrCodeInvalidCredentials)
			}
		}
		return session.Session{}, err
	}

	if tokens.Access == "" || tokens.Refresh == "" {
		return session.Session{}, errors.NewDecodeError("login response is missing tokens", nil)
	}

	role, err := session.ParseRole(tokens.UserType)
	if err != nil {
		return session.Session{}, errors.NewAuthError("Account has no usable role", errors.ErrCodeUnknownRole).WithCause(err)
	}

	sess := session.Session{
		AccessToken:  tokens.Access,
		RefreshToken: tokens.Refresh,
		Role:         role,
	}
	if err := s.store.Set(ctx, sess); err != nil {
		return session.Session{}, errors.NewInternalError("failed to save session", err)
	}

	s.logger.Info("signed in", "username", dto.Username, "role", role.String())
	s.publish(ctx, events.NewSessionStartedEvent(dto.Username, string(role)))

	return sess, nil
}

// Refresh satisfies httpclient.Refresher. It bypasses the client's own
// refresh handling, so a 401 here is simply a failed refresh.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	var resp refreshResponse
	err := s.client.DoJSON(ctx, &httpclient.Request{
		Method:      http.MethodPut,
		Path:        authPath,
		Body:        RefreshDTO{Refresh: refreshToken},
		Anonymous:   true,
		SkipRefresh: true,
	}, &resp)
	if err != nil {
		return "", errors.NewAuthError("Session expired", errors.ErrCodeSessionExpired).WithCause(err)
	}
	if resp.Access == "" {
		return "", errors.NewAuthError("Session expired", errors.ErrCodeSessionExpired)
	}
	return resp.Access, nil
}

// Logout tells the server to revoke the refresh token and always clears the
// local session. A server failure is returned after clearing and is only
// informational.
func (s *Service) Logout(ctx context.Context) error {
	sess, err := s.store.Get(ctx)
	if err != nil {
		return errors.NewInternalError("failed to read session", err)
	}

	var serverErr error
	if sess.CanRefresh() {
		serverErr = s.client.DoJSON(ctx, &httpclient.Request{
			Method:      http.MethodDelete,
			Path:        authPath,
			Body:        RefreshDTO{Refresh: sess.RefreshToken},
			SkipRefresh: true,
		}, nil)
		if serverErr != nil {
			s.logger.Warn("logout request failed, clearing local session anyway", "error", serverErr)
		}
	}

	if err := s.store.Clear(ctx); err != nil {
		return errors.NewInternalError("failed to clear session", err)
	}

	s.publish(ctx, events.NewSessionEndedEvent(serverErr == nil))
	return serverErr
}

func (s *Service) Status(ctx context.Context) (Status, error) {
	sess, err := s.store.Get(ctx)
	if err != nil {
		return Status{}, errors.NewInternalError("failed to read session", err)
	}

	status := Status{
		Authenticated: sess.Authenticated(),
		CanRefresh:    sess.CanRefresh(),
		Role:          sess.Role,
	}
	if sess.AccessToken == "" {
		return status, nil
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(sess.AccessToken, claims); err != nil {
		s.logger.Debug("access token is not a readable JWT", "error", err)
		return status, nil
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		status.ExpiresAt = &exp
	}
	return status, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("event delivery failed", "event_type", event.EventType(), "error", err)
	}
}
