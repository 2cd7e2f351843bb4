package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/buildbuddy/engine/internal/api/types"
	"github.com/buildbuddy/engine/internal/identity"
	"github.com/buildbuddy/engine/internal/models"
	appErr "github.com/buildbuddy/engine/pkg/errors"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type AuthHandler struct {
	svc      identity.Service
	tokenTTL time.Duration
}

func NewAuthHandler(svc identity.Service, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{svc: svc, tokenTTL: tokenTTL}
}

func toUser(u *models.User) types.User {
	return types.User{ID: u.ID.String(), Email: u.Email, Name: u.Name}
}

// Register creates an account.
//
//	@Summary	Register
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.RegisterRequest	true	"account"
//	@Success	201		{object}	types.APIResponse{data=types.User}
//	@Failure	400		{object}	types.APIResponse
//	@Failure	409		{object}	types.APIResponse
//	@Router		/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := validate.Struct(req); err != nil {
		writeError(w, r, appErr.Wrap(err, appErr.CodeValidation, "email, password (8+ characters) and name are required"))
		return
	}

	u, err := h.svc.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, toUser(u))
}

// Login exchanges credentials for a bearer token.
//
//	@Summary	Login
//	@Tags		auth
//	@Accept		json
//	@Produce	json
//	@Param		body	body		types.LoginRequest	true	"credentials"
//	@Success	200		{object}	types.APIResponse{data=types.TokenResponse}
//	@Failure	401		{object}	types.APIResponse
//	@Router		/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := validate.Struct(req); err != nil {
		writeError(w, r, appErr.Wrap(err, appErr.CodeValidation, "email and password are required"))
		return
	}

	token, u, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, types.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.tokenTTL / time.Second),
		User:        toUser(u),
	})
}

// Logout revokes the current token. The user's wizard session is discarded.
//
//	@Summary	Logout
//	@Tags		auth
//	@Security	BearerAuth
//	@Success	200	{object}	types.APIResponse
//	@Router		/auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Logout(r.Context(), identity.TokenFrom(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, nil)
}

// Me returns the signed-in user.
//
//	@Summary	Current user
//	@Tags		auth
//	@Security	BearerAuth
//	@Success	200	{object}	types.APIResponse{data=types.User}
//	@Failure	401	{object}	types.APIResponse
//	@Router		/auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.CurrentUser(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toUser(u))
}
