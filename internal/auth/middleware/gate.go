package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/Skotchmaster/storefront/internal/auth/identity"
	"github.com/Skotchmaster/storefront/internal/auth/repo"
	"github.com/Skotchmaster/storefront/internal/auth/token"
	"github.com/Skotchmaster/storefront/pkg/apperr"
	"github.com/Skotchmaster/storefront/pkg/cookies"
	"github.com/Skotchmaster/storefront/pkg/events"
	"github.com/Skotchmaster/storefront/pkg/lock"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

type Outcome int

const (
	Rejected Outcome = iota
	Authorized
	AuthorizedViaRefresh
)

func (o Outcome) String() string {
	switch o {
	case Authorized:
		return "authorized"
	case AuthorizedViaRefresh:
		return "authorized_via_refresh"
	default:
		return "rejected"
	}
}

type Result struct {
	Outcome  Outcome
	Identity identity.Identity
}

// Gate establishes the caller from the session cookies, minting a new access
// token from the stored refresh token when the presented one is no longer valid.
type Gate struct {
	Tokens  *token.Service
	Users   repo.UserStore
	Cookies cookies.Policy
	Locker  lock.Locker
	Events  events.Publisher
}

// Authenticate runs one pass of the gate. A non-nil error is always an *apperr.Error.
func (g *Gate) Authenticate(ctx context.Context, jar cookies.Jar) (Result, error) {
	access, ok := jar.Get(cookies.AccessToken)
	if !ok {
		uid, ok := jar.Get(cookies.UserID)
		if !ok {
			return Result{}, apperr.Unauthenticated(apperr.CodeTokenMissing, "Authentication required")
		}
		return g.refresh(ctx, jar, token.CandidateFromCookie(uid))
	}

	claims, err := g.Tokens.VerifyAccessToken(access)
	if err == nil {
		return Result{Outcome: Authorized, Identity: identity.FromClaims(claims)}, nil
	}

	candidate, err := g.Tokens.RecoverCandidateUserIDFromExpiredToken(access)
	if err != nil {
		jar.Set(g.Cookies.Delete(cookies.AccessToken))
		if errors.Is(err, token.ErrNoSubject) {
			return Result{}, apperr.Unauthenticated(apperr.CodeInvalidTokenFormat, "Invalid token format")
		}
		return Result{}, apperr.Unauthenticated(apperr.CodeTokenDecodeError, "Token could not be decoded").WithCause(err)
	}
	return g.refresh(ctx, jar, candidate)
}

func (g *Gate) refresh(ctx context.Context, jar cookies.Jar, candidate token.CandidateUserID) (Result, error) {
	user, err := g.Users.GetUserWithRefreshToken(ctx, candidate.LookupKey())
	if err != nil && !errors.Is(err, repo.ErrUserNotFound) {
		return Result{}, authError(err)
	}
	if user == nil || !user.HasRefreshToken() {
		g.clearSession(jar)
		return Result{}, apperr.Unauthenticated(apperr.CodeNoRefreshTokenFound, "Session expired, please log in again")
	}

	stored := *user.RefreshToken
	owner, err := g.Tokens.VerifyRefreshTokenAgainstUser(ctx, stored)
	if err != nil {
		return Result{}, authError(err)
	}
	if owner == nil || owner.ID != user.ID {
		if err := g.revoke(ctx, user.ID, stored); err != nil {
			return Result{}, authError(err)
		}
		g.clearSession(jar)
		return Result{}, apperr.Unauthenticated(apperr.CodeRefreshTokenInvalid, "Session expired, please log in again")
	}

	access, _, err := g.Tokens.IssueAccessToken(owner.ID)
	if err != nil {
		return Result{}, authError(err)
	}
	jar.Set(g.Cookies.Create(cookies.AccessToken, access, g.Tokens.AccessTTL))

	return Result{Outcome: AuthorizedViaRefresh, Identity: identity.Identity{ID: owner.ID, Username: owner.Username}}, nil
}

// revoke clears the stored token only if it is still the one that failed, so a
// login that raced this request keeps its fresh token.
func (g *Gate) revoke(ctx context.Context, userID, failed string) error {
	if g.Locker != nil {
		unlock, err := g.Locker.Lock(ctx, "user:"+userID)
		if err != nil {
			logging.FromContext(ctx).Warn("revoke_lock_failed", "user_id", userID, "error", err)
		} else {
			defer unlock()
		}
	}

	cleared, err := g.Users.ClearRefreshTokenIf(ctx, userID, failed)
	if err != nil {
		return err
	}
	if cleared {
		logging.FromContext(ctx).Warn("refresh_token_revoked", "user_id", userID, "reason", "stored token failed verification")
		events.Emit(ctx, g.Events, events.TopicUsers, userID, map[string]any{
			"type":   "refresh_token_revoked",
			"userID": userID,
		})
	}
	return nil
}

func (g *Gate) clearSession(jar cookies.Jar) {
	jar.Set(g.Cookies.Delete(cookies.AccessToken))
	jar.Set(g.Cookies.Delete(cookies.UserID))
}

func authError(cause error) *apperr.Error {
	return &apperr.Error{
		Status:  http.StatusInternalServerError,
		Code:    apperr.CodeAuthError,
		Message: "Authentication error",
		Cause:   cause,
	}
}
