package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/denteo/clinic-auth/internal/events"
	"github.com/denteo/clinic-auth/internal/hash"
	"github.com/denteo/clinic-auth/internal/models"
	"github.com/denteo/clinic-auth/internal/repo"
	"github.com/denteo/clinic-auth/internal/tokens"
	"github.com/denteo/clinic-auth/pkg/logging"
)

// EventPublisher and EventRecorder are the two fan-out targets for auth
// events; *events.Producer and *audit.Trail satisfy them in production.
type EventPublisher interface {
	PublishEvent(ctx context.Context, ev events.AuthEvent) error
}

type EventRecorder interface {
	Record(ctx context.Context, ev events.AuthEvent) error
}

type AuthService struct {
	Repo     repo.GormRepo
	Issuer   *tokens.Issuer
	Producer EventPublisher
	Audit    EventRecorder
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

type LoginResult struct {
	User *models.User
	TokenPair
}

func (s *AuthService) Register(ctx context.Context, email, password, firstName, lastName string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	if !strings.Contains(email, "@") || password == "" || firstName == "" || lastName == "" {
		return nil, ErrValidation
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("register_failed", "reason", "cannot hash password", "error", err)
		return nil, err
	}

	user := models.User{
		Email:        email,
		PasswordHash: pwHash,
		FirstName:    firstName,
		LastName:     lastName,
		Role:         models.RolePatient,
		Status:       models.StatusActive,
	}
	if err := s.Repo.CreateUserIfNotExists(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_failed", "status", 409, "reason", "email taken")
			return nil, ErrConflict
		}
		l.Error("register_failed", "error", err)
		return nil, err
	}

	pair, err := s.startSession(ctx, &user)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.AuthEvent{Type: events.TypeUserRegistered, UserID: user.ID.String(), Email: user.Email})
	l.Info("register_successful", "user_id", user.ID)

	return &LoginResult{User: &user, TokenPair: *pair}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if email == "" || password == "" {
		return nil, ErrValidation
	}

	user, err := s.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown email")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "error", err)
		return nil, err
	}

	if !hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "bad password", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	// Correct credentials are not enough: suspended, pending and deactivated
	// accounts never authenticate.
	if user.Status != models.StatusActive {
		l.Warn("login_failed", "status", 401, "reason", "account inactive", "user_id", user.ID, "account_status", user.Status)
		return nil, ErrAccountInactive
	}

	pair, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.AuthEvent{Type: events.TypeUserLoggedIn, UserID: user.ID.String(), Email: user.Email})
	l.Info("login_successful", "user_id", user.ID)

	return &LoginResult{User: user, TokenPair: *pair}, nil
}

// startSession mints a token pair and persists exactly one ledger row.
func (s *AuthService) startSession(ctx context.Context, user *models.User) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.session")

	accessToken, accessExp, err := s.Issuer.IssueAccess(user.ID, user.Role)
	if err != nil {
		l.Error("token_issue_failed", "error", err)
		return nil, err
	}
	refreshToken, refreshExp, err := s.Issuer.IssueRefresh(user.ID)
	if err != nil {
		l.Error("token_issue_failed", "error", err)
		return nil, err
	}

	if _, err := s.Repo.CreateSession(ctx, user.ID, accessToken, refreshToken, refreshExp); err != nil {
		l.Error("session_create_failed", "error", err)
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Refresh exchanges a valid refresh token for a fresh pair and rotates the
// ledger row. Wrong, already-rotated and genuinely expired tokens all come
// back as ErrInvalidOrExpiredToken so the response leaks nothing.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	if refreshToken == "" {
		return nil, ErrMissingToken
	}

	if _, err := s.Issuer.ParseRefresh(refreshToken); err != nil {
		l.Warn("refresh_failed", "status", 401, "reason", "signature or expiry", "error", err)
		return nil, ErrInvalidOrExpiredToken
	}

	session, err := s.Repo.FindValidSession(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repo.ErrSessionNotFound) {
			l.Warn("refresh_failed", "status", 401, "reason", "no valid session")
			return nil, ErrInvalidOrExpiredToken
		}
		l.Error("refresh_failed", "error", err)
		return nil, err
	}

	user, err := s.Repo.GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			l.Warn("refresh_failed", "status", 401, "reason", "owner missing")
			return nil, ErrInvalidOrExpiredToken
		}
		l.Error("refresh_failed", "error", err)
		return nil, err
	}
	if user.Status != models.StatusActive {
		l.Warn("refresh_failed", "status", 401, "reason", "account inactive", "user_id", user.ID)
		return nil, ErrAccountInactive
	}

	accessToken, accessExp, err := s.Issuer.IssueAccess(user.ID, user.Role)
	if err != nil {
		l.Error("refresh_failed", "error", err)
		return nil, err
	}
	newRefresh, refreshExp, err := s.Issuer.IssueRefresh(user.ID)
	if err != nil {
		l.Error("refresh_failed", "error", err)
		return nil, err
	}

	// One conditional UPDATE: either the old token is still live and gets
	// replaced, or a concurrent refresh won and this call fails closed.
	if err := s.Repo.RotateSession(ctx, refreshToken, accessToken, newRefresh, refreshExp); err != nil {
		if errors.Is(err, repo.ErrSessionNotFound) {
			l.Warn("refresh_failed", "status", 401, "reason", "lost rotation race")
			return nil, ErrInvalidOrExpiredToken
		}
		l.Error("refresh_failed", "error", err)
		return nil, err
	}

	l.Info("refresh_successful", "user_id", user.ID)
	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Logout is idempotent: an unknown or already-revoked token still succeeds.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	l := logging.FromContext(ctx).With("svc", "auth.logout")

	if refreshToken == "" {
		return nil
	}

	// Look the session up first so the event can carry the owner; the row is
	// gone once the revoke lands.
	session, err := s.Repo.FindValidSession(ctx, refreshToken)
	if err != nil && !errors.Is(err, repo.ErrSessionNotFound) {
		l.Error("logout_failed", "error", err)
		return err
	}

	if err := s.Repo.RevokeByRefreshToken(ctx, refreshToken); err != nil {
		l.Error("logout_failed", "error", err)
		return err
	}

	if session != nil {
		s.emit(ctx, events.AuthEvent{Type: events.TypeUserLoggedOut, UserID: session.UserID.String()})
	}
	l.Info("logout_successful")
	return nil
}

// ActiveSessions reports how many live devices the user is signed in on.
func (s *AuthService) ActiveSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.Repo.CountSessionsForUser(ctx, userID)
}

func (s *AuthService) LogoutAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	l := logging.FromContext(ctx).With("svc", "auth.logout_all", "user_id", userID)

	count, err := s.Repo.RevokeAllForUser(ctx, userID)
	if err != nil {
		l.Error("logout_all_failed", "error", err)
		return 0, err
	}

	s.emit(ctx, events.AuthEvent{Type: events.TypeSessionsRevoked, UserID: userID.String(), Sessions: count})
	l.Info("logout_all_successful", "revoked", count)
	return count, nil
}

// ChangePassword rehashes the secret and force-revokes every session, so
// stolen refresh tokens die with the old password.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	l := logging.FromContext(ctx).With("svc", "auth.change_password", "user_id", userID)

	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	user, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		l.Error("change_password_failed", "error", err)
		return err
	}
	if !hash.CheckPassword(user.PasswordHash, oldPassword) {
		l.Warn("change_password_failed", "status", 401, "reason", "bad old password")
		return ErrInvalidCredentials
	}

	pwHash, err := hash.HashPassword(newPassword)
	if err != nil {
		l.Error("change_password_failed", "error", err)
		return err
	}
	if err := s.Repo.UpdatePassword(ctx, userID, pwHash); err != nil {
		l.Error("change_password_failed", "error", err)
		return err
	}

	if _, err := s.Repo.RevokeAllForUser(ctx, userID); err != nil {
		l.Error("change_password_revoke_failed", "error", err)
		return err
	}

	s.emit(ctx, events.AuthEvent{Type: events.TypePasswordChanged, UserID: userID.String()})
	l.Info("change_password_successful")
	return nil
}

// emit fans an event out to kafka and the audit index. Neither failure is
// allowed to fail the auth flow that produced the event.
func (s *AuthService) emit(ctx context.Context, ev events.AuthEvent) {
	l := logging.FromContext(ctx)

	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if s.Producer != nil {
		if err := s.Producer.PublishEvent(pubCtx, ev); err != nil {
			l.Error("kafka_publish_error", "type", ev.Type, "error", err)
		}
	}
	if s.Audit != nil {
		if err := s.Audit.Record(pubCtx, ev); err != nil {
			l.Error("audit_record_error", "type", ev.Type, "error", err)
		}
	}
}
