package reservation_api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-theatre/internal/auth"
	"ms-theatre/internal/config"
	"ms-theatre/internal/models"
	"ms-theatre/internal/utils"
)

type ReservationService interface {
	CreateReservation(ctx context.Context, userID string, requests []models.TicketRequest) (*models.ReservationResult, error)
	CancelReservation(ctx context.Context, id int64, userID string) error
	ListReservations(ctx context.Context, userID string, limit, offset int) ([]models.ReservationView, int, error)
	GetReservation(ctx context.Context, id int64, userID string) (*models.ReservationView, error)
}

type Handler struct {
	Reservations ReservationService
	Pagination   config.PaginationConfig
}

func NewHandler(reservations ReservationService, pagination config.PaginationConfig) *Handler {
	return &Handler{Reservations: reservations, Pagination: pagination}
}

// Mount registers /reservations. Every route is scoped to the caller.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/reservations", func(r chi.Router) {
		r.Use(auth.RequireAuth)
		r.Get("/", h.ListReservations)
		r.Post("/", h.CreateReservation)
		r.Get("/{id}", h.GetReservation)
		r.Delete("/{id}", h.CancelReservation)
	})
}

func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var req models.ReservationRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteError(w, err)
		return
	}

	result, err := h.Reservations.CreateReservation(r.Context(), auth.UserID(r.Context()), req.Tickets)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) ListReservations(w http.ResponseWriter, r *http.Request) {
	p, err := utils.ParsePagination(r.URL.Query(), h.Pagination.DefaultPageSize, h.Pagination.MaxPageSize)
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	views, count, err := h.Reservations.ListReservations(r.Context(), auth.UserID(r.Context()), p.Limit(), p.Offset())
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if p.Page > 1 && p.Offset() >= count {
		utils.WriteError(w, &models.NotFoundError{Entity: "page", ID: p.Page})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.NewPage(r, p, count, views))
}

func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	view, err := h.Reservations.GetReservation(r.Context(), id, auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if err := h.Reservations.CancelReservation(r.Context(), id, auth.UserID(r.Context())); err != nil {
		utils.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
