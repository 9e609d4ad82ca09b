package service

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/iliyamo/pms-backend/internal/model"
	"github.com/iliyamo/pms-backend/internal/queue"
	"github.com/iliyamo/pms-backend/internal/repository"
	"github.com/iliyamo/pms-backend/internal/token"
)

const (
	msgLoginFailed   = "Active user with the user name and password not found!"
	msgRefreshFailed = "User not found!"
)

// Login exchanges credentials for an access token and a fresh refresh
// token. The failure message is the same whichever credential was wrong.
func (h *Handlers) Login(ctx context.Context, req TokenRequest) (TokenResponse, error) {
	candidates, err := h.users.Query(true).
		Where("?TableAlias.user_name = ?", req.UserName).
		Where("?TableAlias.is_active = ?", true).
		List(ctx)
	if err != nil {
		return TokenResponse{}, err
	}
	var user *model.User
	for _, u := range candidates {
		// Some collations compare case-insensitively; the login name must
		// match exactly.
		if u.UserName == req.UserName && h.hasher.Verify(u.Password, req.Password) {
			user = u
			break
		}
	}
	if user == nil {
		return TokenResponse{CommandResponse: Failure(ErrUnauthenticated, msgLoginFailed)}, nil
	}

	refresh, err := h.tokens.CreateRefreshToken()
	if err != nil {
		return TokenResponse{}, err
	}
	user.IssueRefreshToken(refresh, h.tokens.RefreshExpiration())
	if err := h.users.Update(ctx, user); err != nil {
		return TokenResponse{}, err
	}
	access, err := h.accessToken(user)
	if err != nil {
		return TokenResponse{}, err
	}
	if sess, ok := repository.SessionFrom(ctx); ok {
		sess.Record(queue.UserLoggedIn(user.ID, user.UserName))
	}
	return TokenResponse{
		CommandResponse: Success("Token created successfully.", user.ID),
		Token:           access,
		RefreshToken:    refresh,
	}, nil
}

// Refresh rotates the refresh token and issues a new access token. The
// access token may be expired but must be well formed and signed by us;
// a malformed one is returned as an error, not a failure response.
func (h *Handlers) Refresh(ctx context.Context, req RefreshTokenRequest) (TokenResponse, error) {
	principal, err := h.tokens.ExtractClaims(req.Token)
	if err != nil {
		return TokenResponse{}, err
	}
	id, err := principal.UserID()
	if err != nil {
		return TokenResponse{}, err
	}

	user, err := h.users.Query(true).
		Where("?TableAlias.id = ?", id).
		Where("?TableAlias.refresh_token = ?", req.RefreshToken).
		First(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return TokenResponse{CommandResponse: Failure(ErrUnauthenticated, msgRefreshFailed)}, nil
	}
	if err != nil {
		return TokenResponse{}, err
	}
	if !h.refreshValid(user, req.RefreshToken) {
		return TokenResponse{CommandResponse: Failure(ErrUnauthenticated, msgRefreshFailed)}, nil
	}

	next, err := h.tokens.CreateRefreshToken()
	if err != nil {
		return TokenResponse{}, err
	}
	expires := *user.RefreshTokenExpiration
	if h.tokens.SlidingRefresh() {
		expires = h.tokens.RefreshExpiration()
	}
	user.IssueRefreshToken(next, expires)
	if err := h.users.Update(ctx, user); err != nil {
		return TokenResponse{}, err
	}
	access, err := h.accessToken(user)
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{
		CommandResponse: Success("Token created successfully.", user.ID),
		Token:           access,
		RefreshToken:    next,
	}, nil
}

// refreshValid re-checks the stored refresh state: same value and a
// window that has not closed yet.
func (h *Handlers) refreshValid(user *model.User, supplied string) bool {
	if user.RefreshToken == nil || user.RefreshTokenExpiration == nil {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(supplied)) != 1 {
		return false
	}
	return !user.RefreshTokenExpiration.Before(h.tokens.Now())
}

func (h *Handlers) accessToken(user *model.User) (string, error) {
	claims := token.UserClaims(user.ID, user.UserName, user.RoleNames())
	raw, err := h.tokens.CreateAccessToken(claims, h.tokens.AccessExpiration())
	if err != nil {
		return "", err
	}
	return token.BearerPrefix + raw, nil
}
