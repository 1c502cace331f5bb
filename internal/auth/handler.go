package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayush/taskboard/backend/internal/apperr"
	"github.com/ayush/taskboard/backend/internal/models"
	"github.com/ayush/taskboard/backend/internal/web"
)

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	users  UserStore
	tokens *TokenService
}

func NewHandler(users UserStore, tokens *TokenService) *Handler {
	return &Handler{users: users, tokens: tokens}
}

// Register creates a new user and returns an identity token alongside it.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Error(w, apperr.New(apperr.CodeValidation, "invalid request body"))
		return
	}
	if err := models.Validate(&req); err != nil {
		web.Error(w, err)
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		web.Error(w, err)
		return
	}

	user, err := h.users.CreateUser(r.Context(), req.Username, strings.ToLower(req.Email), hash)
	if err != nil {
		web.Error(w, err)
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		web.Error(w, err)
		return
	}

	web.JSON(w, http.StatusCreated, models.AuthResponse{Token: token, User: user})
}

// Login authenticates a user by email and password and issues a token.
// Unknown email and wrong password produce the same INVALID_CREDENTIALS
// response so accounts cannot be enumerated.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Error(w, apperr.New(apperr.CodeValidation, "invalid request body"))
		return
	}
	if err := models.Validate(&req); err != nil {
		web.Error(w, err)
		return
	}

	user, err := h.users.GetUserByEmail(r.Context(), strings.ToLower(req.Email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			web.Error(w, apperr.New(apperr.CodeInvalidCredentials, "invalid email or password"))
			return
		}
		web.Error(w, err)
		return
	}

	if !CheckPassword(user.Password, req.Password) {
		web.Error(w, apperr.New(apperr.CodeInvalidCredentials, "invalid email or password"))
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		web.Error(w, err)
		return
	}

	web.JSON(w, http.StatusOK, models.AuthResponse{Token: token, User: user})
}

// Profile returns the currently authenticated user.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFrom(r.Context())
	if !ok {
		web.Error(w, apperr.New(apperr.CodeAuthTokenMissing, "not authenticated"))
		return
	}
	web.JSON(w, http.StatusOK, map[string]*models.User{"user": user})
}
