package ticket_api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-theatre/internal/auth"
	"ms-theatre/internal/models"
	"ms-theatre/internal/utils"
)

type TicketService interface {
	ListForUser(ctx context.Context, userID string) ([]models.TicketView, error)
	ViewForUser(ctx context.Context, id int64, userID string) (*models.TicketView, error)
	QRCode(ctx context.Context, id int64, userID string) ([]byte, error)
	Verify(ctx context.Context, token string) (*models.TicketView, error)
}

type PDFRenderer interface {
	Generate(ticket models.TicketView, qrCode []byte) ([]byte, error)
}

type Handler struct {
	Tickets TicketService
	PDF     PDFRenderer
}

func NewHandler(tickets TicketService, pdf PDFRenderer) *Handler {
	return &Handler{Tickets: tickets, PDF: pdf}
}

func (h *Handler) Mount(r chi.Router) {
	r.Route("/tickets", func(r chi.Router) {
		r.With(auth.RequireStaff).Post("/verify", h.VerifyTicket)
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)
			r.Get("/", h.ListTickets)
			r.Get("/{id}", h.GetTicket)
			r.Get("/{id}/qr", h.GetTicketQR)
			r.Get("/{id}/pdf", h.GetTicketPDF)
		})
	})
}

func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	views, err := h.Tickets.ListForUser(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	view, err := h.Tickets.ViewForUser(r.Context(), id, auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, view)
}

// GetTicketQR returns a PNG whose content is the encrypted ticket payload.
func (h *Handler) GetTicketQR(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	png, err := h.Tickets.QRCode(r.Context(), id, auth.UserID(r.Context()))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=ticket-%d.png", id))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func (h *Handler) GetTicketPDF(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	userID := auth.UserID(r.Context())

	view, err := h.Tickets.ViewForUser(r.Context(), id, userID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	png, err := h.Tickets.QRCode(r.Context(), id, userID)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	doc, err := h.PDF.Generate(*view, png)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=ticket-%d.pdf", id))
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

// VerifyTicket expects {"encrypted_qr": "..."} as scanned at the door.
func (h *Handler) VerifyTicket(w http.ResponseWriter, r *http.Request) {
	var body struct {
		EncryptedQR string `json:"encrypted_qr" validate:"required"`
	}
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.WriteError(w, err)
		return
	}

	view, err := h.Tickets.Verify(r.Context(), body.EncryptedQR)
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ticket is valid", view))
}
