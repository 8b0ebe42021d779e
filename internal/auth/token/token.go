package token

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Skotchmaster/storefront/internal/auth/models"
	"github.com/Skotchmaster/storefront/internal/auth/repo"
)

const (
	DefaultAccessTTL  = 2 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

var (
	ErrExpired     = errors.New("token expired")
	ErrInvalid     = errors.New("token invalid")
	ErrUndecodable = errors.New("token undecodable")
	ErrNoSubject   = errors.New("token carries no user id")
)

// Claims is the payload of both token classes: {id} plus the registered times.
type Claims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// CandidateUserID comes from an unverified source (an expired token payload or the
// userId cookie). It may only be used to look up whose refresh token to check,
// never as an authenticated identity.
//
// The stored refresh token is checked against itself, not against anything the
// client sends, so anyone who presents a user's id (for example by setting the
// userId cookie) can use that user's live refresh session to mint an access
// token. Logout or a failed check clears the stored token and ends that.
type CandidateUserID string

func (c CandidateUserID) LookupKey() string { return string(c) }

func CandidateFromCookie(v string) CandidateUserID { return CandidateUserID(v) }

type RefreshTokenLookup interface {
	GetUserWithRefreshToken(ctx context.Context, id string) (*models.User, error)
}

type Service struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Users         RefreshTokenLookup
	Now           func() time.Time
}

func NewService(accessSecret, refreshSecret []byte, accessTTL, refreshTTL time.Duration, users RefreshTokenLookup) *Service {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &Service{
		AccessSecret:  accessSecret,
		RefreshSecret: refreshSecret,
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
		Users:         users,
	}
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) IssueAccessToken(userID string) (string, time.Time, error) {
	return s.sign(s.AccessSecret, userID, s.AccessTTL, "")
}

// IssueRefreshToken mints a token; persisting it is the caller's job.
func (s *Service) IssueRefreshToken(userID string) (string, time.Time, error) {
	return s.sign(s.RefreshSecret, userID, s.RefreshTTL, uuid.NewString())
}

func (s *Service) sign(secret []byte, userID string, ttl time.Duration, jti string) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, ErrNoSubject
	}
	now := s.now()
	exp := now.Add(ttl)
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        jti,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

func (s *Service) VerifyAccessToken(tokenStr string) (*Claims, error) {
	return s.parse(tokenStr, s.AccessSecret)
}

func (s *Service) parse(tokenStr string, secret []byte) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenStr, &claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, ErrNoSubject)
	}
	return &claims, nil
}

// VerifyRefreshTokenAgainstUser returns the owning user only when the token is
// correctly signed, unexpired and byte-equal to the user's stored token. Every
// mismatch yields (nil, nil); an error means the store itself failed.
func (s *Service) VerifyRefreshTokenAgainstUser(ctx context.Context, tokenStr string) (*models.User, error) {
	claims, err := s.parse(tokenStr, s.RefreshSecret)
	if err != nil {
		return nil, nil
	}

	user, err := s.Users.GetUserWithRefreshToken(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !user.HasRefreshToken() {
		return nil, nil
	}
	if subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(tokenStr)) != 1 {
		return nil, nil
	}
	return user, nil
}

// RecoverCandidateUserIDFromExpiredToken reads the id from a token payload without
// checking the signature or expiry.
func (s *Service) RecoverCandidateUserIDFromExpiredToken(tokenStr string) (CandidateUserID, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, &claims); err != nil {
		return "", fmt.Errorf("%w: %w", ErrUndecodable, err)
	}
	if claims.UserID == "" {
		return "", ErrNoSubject
	}
	return CandidateUserID(claims.UserID), nil
}
