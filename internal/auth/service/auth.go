package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/Skotchmaster/storefront/internal/auth/models"
	"github.com/Skotchmaster/storefront/internal/auth/repo"
	"github.com/Skotchmaster/storefront/internal/auth/token"
	"github.com/Skotchmaster/storefront/pkg/events"
	pkg_hash "github.com/Skotchmaster/storefront/pkg/hash"
	"github.com/Skotchmaster/storefront/pkg/lock"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

var (
	ErrValidation          = errors.New("validation")
	ErrConflict            = errors.New("conflict")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrNotFound            = errors.New("not found")
)

const minPasswordLen = 6

type AuthService struct {
	Users  repo.UserStore
	Tokens *token.Service
	Locker lock.Locker
	Events events.Publisher
}

type LoginResult struct {
	User         *models.User
	AccessToken  string
	AccessExp    time.Time
	RefreshToken string
	RefreshExp   time.Time
}

type RefreshResult struct {
	User        *models.User
	AccessToken string
	AccessExp   time.Time
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	switch {
	case username == "" || email == "" || password == "":
		return nil, fmt.Errorf("%w: username, email and password are required", ErrValidation)
	case len(username) > 50:
		return nil, fmt.Errorf("%w: username is too long", ErrValidation)
	case len(password) < minPasswordLen:
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLen)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, fmt.Errorf("%w: invalid email", ErrValidation)
	}

	if _, err := s.Users.GetUserByEmail(ctx, email); err == nil {
		l.Warn("register_error", "status", 400, "reason", "email already registered")
		return nil, ErrConflict
	} else if !errors.Is(err, repo.ErrUserNotFound) {
		return nil, err
	}

	pwHash, err := pkg_hash.HashPassword(password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
	}
	if err := s.Users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_error", "status", 400, "reason", "user already exist")
			return nil, ErrConflict
		}
		return nil, err
	}

	events.Emit(ctx, s.Events, events.TopicUsers, user.ID, map[string]any{
		"type":     "user_registered",
		"userID":   user.ID,
		"username": user.Username,
	})
	return user, nil
}

// Login answers ErrInvalidCredentials for an unknown email and for a wrong
// password alike, and spends one bcrypt comparison on both paths.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.login")

	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			pkg_hash.BurnCompare(password)
			l.Warn("login_failed", "status", 400, "reason", "invalid credentials")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !pkg_hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "status", 400, "reason", "invalid credentials")
		return nil, ErrInvalidCredentials
	}

	refreshToken, refreshExp, err := s.rotateRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	accessToken, accessExp, err := s.Tokens.IssueAccessToken(user.ID)
	if err != nil {
		return nil, err
	}

	events.Emit(ctx, s.Events, events.TopicUsers, user.ID, map[string]any{
		"type":   "user_logged_in",
		"userID": user.ID,
	})

	return &LoginResult{
		User:         user,
		AccessToken:  accessToken,
		AccessExp:    accessExp,
		RefreshToken: refreshToken,
		RefreshExp:   refreshExp,
	}, nil
}

// rotateRefreshToken mints and stores a new refresh token, superseding any
// session the user had elsewhere.
func (s *AuthService) rotateRefreshToken(ctx context.Context, userID string) (string, time.Time, error) {
	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return "", time.Time{}, err
	}
	defer unlock()

	refreshToken, refreshExp, err := s.Tokens.IssueRefreshToken(userID)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := s.Users.SetRefreshToken(ctx, userID, refreshToken); err != nil {
		return "", time.Time{}, fmt.Errorf("store refresh token: %w", err)
	}
	return refreshToken, refreshExp, nil
}

// Refresh mints an access token for the user named by the userId cookie,
// provided their stored refresh token still verifies.
func (s *AuthService) Refresh(ctx context.Context, userID string) (*RefreshResult, error) {
	if userID == "" {
		return nil, ErrInvalidRefreshToken
	}

	stored, err := s.Users.GetUserWithRefreshToken(ctx, token.CandidateFromCookie(userID).LookupKey())
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}
	if !stored.HasRefreshToken() {
		return nil, ErrInvalidRefreshToken
	}

	owner, err := s.Tokens.VerifyRefreshTokenAgainstUser(ctx, *stored.RefreshToken)
	if err != nil {
		return nil, err
	}
	if owner == nil || owner.ID != stored.ID {
		return nil, ErrInvalidRefreshToken
	}

	accessToken, accessExp, err := s.Tokens.IssueAccessToken(owner.ID)
	if err != nil {
		return nil, err
	}
	owner.RefreshToken = nil
	return &RefreshResult{User: owner, AccessToken: accessToken, AccessExp: accessExp}, nil
}

func (s *AuthService) LogOut(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}

	unlock, err := s.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.Users.ClearRefreshToken(ctx, userID); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}

	events.Emit(ctx, s.Events, events.TopicUsers, userID, map[string]any{
		"type":   "user_logged_out",
		"userID": userID,
	})
	return nil
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) lock(ctx context.Context, userID string) (func(), error) {
	if s.Locker == nil {
		return func() {}, nil
	}
	unlock, err := s.Locker.Lock(ctx, "user:"+userID)
	if err != nil {
		return nil, fmt.Errorf("lock user %s: %w", userID, err)
	}
	return unlock, nil
}
