package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSCAN/hobbyist-haven-api/internal/identity/service"
	"github.com/MrSCAN/hobbyist-haven-api/internal/server/httpx"
	"github.com/MrSCAN/hobbyist-haven-api/internal/user/domain"
)

// maxWebhookBody bounds webhook payload reads.
const maxWebhookBody = 1 << 20

// Store is the slice of the user repository the handler uses.
type Store interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error)
}

// ProviderSync provisions users pushed by the external identity provider.
type ProviderSync interface {
	SyncProviderUser(ctx context.Context, providerID, email, firstName, lastName string) error
}

// WebhookVerifier checks a webhook delivery's signature headers. A nil
// verifier disables verification.
type WebhookVerifier interface {
	Verify(msgID, timestamp string, payload []byte, signatureHeader string) error
}

type Handler struct {
	store    Store
	sync     ProviderSync
	verifier WebhookVerifier
}

func NewHandler(store Store, sync ProviderSync, verifier WebhookVerifier) *Handler {
	return &Handler{store: store, sync: sync, verifier: verifier}
}

// Routes mounts the user endpoints. The webhook is public; reads require
// auth and role management requires admin.
func (h *Handler) Routes(requireAuth, requireAdmin func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/webhook", h.webhook)
	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/{id}", h.getRole)
	})
	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Get("/", h.list)
		r.Put("/{id}/role", h.updateRole)
	})
	return r
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func toUserResponse(u *domain.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name, Role: string(u.Role)}
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	u, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		slog.Error("user lookup failed", "user_id", id, "error", err)
		httpx.InternalError(w)
		return
	}
	if u == nil {
		httpx.Error(w, http.StatusNotFound, "User not found")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"role": string(u.Role)})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.List(r.Context())
	if err != nil {
		slog.Error("user list failed", "error", err)
		httpx.InternalError(w)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type updateRoleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req updateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	role := domain.Role(req.Role)
	if !role.Valid() {
		httpx.Error(w, http.StatusBadRequest, "Invalid role")
		return
	}
	u, err := h.store.UpdateRole(r.Context(), id, role)
	if err != nil {
		slog.Error("role update failed", "user_id", id, "error", err)
		httpx.InternalError(w)
		return
	}
	if u == nil {
		httpx.Error(w, http.StatusNotFound, "User not found")
		return
	}
	httpx.JSON(w, http.StatusOK, toUserResponse(u))
}

// webhookEvent is the provider's delivery envelope. Only user.created is
// acted on; other event types are acknowledged and dropped.
type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		ID             string `json:"id"`
		EmailAddresses []struct {
			EmailAddress string `json:"email_address"`
		} `json:"email_addresses"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"data"`
}

func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}

	if h.verifier != nil {
		err := h.verifier.Verify(
			r.Header.Get("svix-id"),
			r.Header.Get("svix-timestamp"),
			payload,
			r.Header.Get("svix-signature"),
		)
		if err != nil {
			slog.Warn("webhook signature rejected", "error", err)
			httpx.Error(w, http.StatusBadRequest, "Invalid webhook signature")
			return
		}
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Invalid webhook payload")
		return
	}
	if event.Type != "user.created" {
		httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}

	var email string
	if len(event.Data.EmailAddresses) > 0 {
		email = event.Data.EmailAddresses[0].EmailAddress
	}
	err = h.sync.SyncProviderUser(r.Context(), event.Data.ID, email, event.Data.FirstName, event.Data.LastName)
	switch {
	case err == nil, errors.Is(err, service.ErrAlreadyProvisioned):
		// Repeat deliveries of the same user are acknowledged so the
		// provider stops retrying.
		httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
	default:
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			httpx.Error(w, http.StatusBadRequest, verr.Message)
			return
		}
		slog.Error("webhook sync failed", "provider_id", event.Data.ID, "error", err)
		httpx.InternalError(w)
	}
}
