package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSCAN/hobbyist-haven-api/internal/identity/service"
	"github.com/MrSCAN/hobbyist-haven-api/internal/server/httpx"
	"github.com/MrSCAN/hobbyist-haven-api/internal/server/middleware"
	userdomain "github.com/MrSCAN/hobbyist-haven-api/internal/user/domain"
)

// AuthService is the slice of the identity service the auth handler uses.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*service.AuthResult, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
}

type Handler struct {
	auth AuthService
}

func NewHandler(auth AuthService) *Handler {
	return &Handler{auth: auth}
}

// Routes mounts the auth endpoints. requireAuth guards /me; register and
// login are public.
func (h *Handler) Routes(requireAuth func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/me", h.me)
	})
	return r
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toUserResponse(u *userdomain.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role)}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	result, err := h.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			httpx.Error(w, http.StatusBadRequest, verr.Message)
		case errors.Is(err, service.ErrEmailAlreadyRegistered):
			httpx.Error(w, http.StatusBadRequest, "Email already registered")
		default:
			slog.Error("register failed", "error", err)
			httpx.InternalError(w)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, authResponse{Token: result.Token, User: toUserResponse(result.User)})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	result, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			httpx.Error(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		slog.Error("login failed", "error", err)
		httpx.InternalError(w)
		return
	}
	httpx.JSON(w, http.StatusOK, authResponse{Token: result.Token, User: toUserResponse(result.User)})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		httpx.Error(w, http.StatusUnauthorized, "No token provided")
		return
	}
	httpx.JSON(w, http.StatusOK, toUserResponse(caller))
}
