package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/drop-waitlist/internal/config"
	"github.com/iliyamo/drop-waitlist/internal/model"
	"github.com/iliyamo/drop-waitlist/internal/repository"
	"github.com/iliyamo/drop-waitlist/internal/utils"
)

// UserStore is implemented by *repository.UserRepo.  Missing users are
// reported as sql.ErrNoRows.
type UserStore interface {
	Create(ctx context.Context, email, password, role string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore is implemented by *repository.TokenRepo.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string, now time.Time) (uint64, error)
	Rotate(ctx context.Context, userID uint64, oldHash, newHash string, exp, now time.Time) error
	RevokeByHash(ctx context.Context, tokenHash string, now time.Time) error
	RevokeAllForUser(ctx context.Context, userID uint64, now time.Time) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Tokens TokenStore
	Now    func() time.Time
}

func NewAuthHandler(cfg config.Config, u UserStore, t TokenStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Now: time.Now}
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type userPart struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func toUserPart(u model.User) userPart {
	return userPart{ID: u.ID, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

func bindCredentials(c echo.Context) (credentialsReq, error) {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return req, &requestError{http.StatusBadRequest, "INVALID_BODY", "invalid body"}
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return req, &requestError{http.StatusBadRequest, "INVALID_BODY", "email/password required"}
	}
	return req, nil
}

// Register creates a USER account and returns a token pair.  Admin
// accounts are provisioned outside the API.
func (h *AuthHandler) Register(c echo.Context) error {
	req, err := bindCredentials(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, model.RoleUser, h.Cfg.BcryptCost)
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return jsonError(c, http.StatusConflict, "EMAIL_EXISTS", "email already exists")
	case errors.Is(err, utils.ErrPasswordLength):
		return jsonError(c, http.StatusBadRequest, "INVALID_PASSWORD", err.Error())
	case err != nil:
		return jsonError(c, http.StatusInternalServerError, "INTERNAL", "create user failed")
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "INTERNAL", "load user failed")
	}
	resp, err := h.issuePair(ctx, u)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "INTERNAL", "issue tokens failed")
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	req, err := bindCredentials(c)
	if err != nil {
		return writeError(c, err)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return jsonError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials")
		}
		return jsonError(c, http.StatusInternalServerError, "INTERNAL", "query failed")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return jsonError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid credentials")
	}
	resp, err := h.issuePair(ctx, u)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "INTERNAL", "issue tokens failed")
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh rotates a refresh token: the presented token is revoked and a
// new pair is issued.  A token can be rotated only once.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return jsonError(c, http.StatusBadRequest, "INVALID_BODY", "refresh_token required")
	}
	oldHash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	now := h.Now()

	userID, err := h.Tokens.ValidateRefresh(ctx, oldHash, now)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid refresh token")
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return jsonError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid refresh token")
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin, now)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "INTERNAL", "issue access failed")
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays, now)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, "INTERNAL", "issue refresh failed")
	}
	if err := h.Tokens.Rotate(ctx, u.ID, oldHash, utils.HashRefreshRaw(refresh.Raw), refresh.Exp, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return jsonError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid refresh token")
		}
		return jsonError(c, http.StatusInternalServerError, "INTERNAL", "rotate refresh failed")
	}
	return c.JSON(http.StatusOK, authResp{
		User:    toUserPart(u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

// Logout revokes the refresh token in the body, or every refresh token
// of the caller when the body has none.  Requires JWTAuth.
func (h *AuthHandler) Logout(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, errUnauthorized)
	}
	var req refreshReq
	_ = c.Bind(&req)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	now := h.Now()

	if raw := strings.TrimSpace(req.RefreshToken); raw != "" {
		hash := utils.HashRefreshRaw(raw)
		owner, err := h.Tokens.ValidateRefresh(ctx, hash, now)
		if err != nil || owner != uid {
			return jsonError(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid refresh token")
		}
		if err := h.Tokens.RevokeByHash(ctx, hash, now); err != nil {
			return jsonError(c, http.StatusInternalServerError, "INTERNAL", "revoke failed")
		}
		return c.JSON(http.StatusOK, echo.Map{"revoked": "token"})
	}
	if err := h.Tokens.RevokeAllForUser(ctx, uid, now); err != nil {
		return jsonError(c, http.StatusInternalServerError, "INTERNAL", "revoke failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"revoked": "all"})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return writeError(c, errUnauthorized)
	}
	u, err := h.Users.GetByID(c.Request().Context(), uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return writeError(c, model.ErrUserNotFound)
		}
		return jsonError(c, http.StatusInternalServerError, "INTERNAL", "load user failed")
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}

func (h *AuthHandler) issuePair(ctx context.Context, u model.User) (authResp, error) {
	now := h.Now()
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin, now)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays, now)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    toUserPart(u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	}, nil
}
