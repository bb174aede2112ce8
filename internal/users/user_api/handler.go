package user_api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-theatre/internal/auth"
	"ms-theatre/internal/models"
	"ms-theatre/internal/utils"
)

type UserService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Token(ctx context.Context, req models.TokenRequest) (*models.TokenResponse, error)
	Me(ctx context.Context, id string) (*models.User, error)
}

type Handler struct {
	Users UserService
}

func NewHandler(users UserService) *Handler {
	return &Handler{Users: users}
}

// Routes mounts under /api/user. Authenticate must already run upstream.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/register", h.Register)
	r.Post("/token", h.Token)
	r.With(auth.RequireAuth).Get("/me", h.Me)
	return r
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	user, err := h.Users.Register(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req models.TokenRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}
	tok, err := h.Users.Token(r.Context(), req)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, tok)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.Me(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, user)
}
