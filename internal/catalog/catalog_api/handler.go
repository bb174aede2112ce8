package catalog_api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-theatre/internal/auth"
	"ms-theatre/internal/models"
	"ms-theatre/internal/utils"
)

// maxImageSize bounds multipart uploads of play posters.
const maxImageSize = 10 << 20

type CatalogService interface {
	ListGenres(ctx context.Context) ([]models.Genre, error)
	GetGenre(ctx context.Context, id int64) (*models.Genre, error)
	CreateGenre(ctx context.Context, in models.GenreInput) (*models.Genre, error)
	UpdateGenre(ctx context.Context, id int64, in models.GenreInput) (*models.Genre, error)
	DeleteGenre(ctx context.Context, id int64) error

	ListActors(ctx context.Context) ([]models.ActorView, error)
	GetActor(ctx context.Context, id int64) (*models.ActorView, error)
	CreateActor(ctx context.Context, in models.ActorInput) (*models.ActorView, error)
	UpdateActor(ctx context.Context, id int64, in models.ActorInput) (*models.ActorView, error)
	DeleteActor(ctx context.Context, id int64) error

	ListHalls(ctx context.Context) ([]models.TheatreHall, error)
	GetHall(ctx context.Context, id int64) (*models.TheatreHall, error)
	CreateHall(ctx context.Context, in models.TheatreHallInput) (*models.TheatreHall, error)
	UpdateHall(ctx context.Context, id int64, in models.TheatreHallInput) (*models.TheatreHall, error)
	DeleteHall(ctx context.Context, id int64) error

	ListPlays(ctx context.Context, f models.PlayFilter) ([]models.PlayListItem, error)
	GetPlay(ctx context.Context, id int64) (*models.PlayDetail, error)
	CreatePlay(ctx context.Context, in models.PlayInput) (*models.PlayDetail, error)
	UpdatePlay(ctx context.Context, id int64, in models.PlayInput) (*models.PlayDetail, error)
	DeletePlay(ctx context.Context, id int64) error
	UploadImage(ctx context.Context, id int64, filename, contentType string, r io.Reader) (*models.PlayDetail, error)

	ListPerformances(ctx context.Context, playID int64) ([]models.PerformanceListItem, error)
	GetPerformance(ctx context.Context, id int64) (*models.PerformanceDetail, error)
	CreatePerformance(ctx context.Context, in models.PerformanceInput) (*models.PerformanceView, error)
	UpdatePerformance(ctx context.Context, id int64, in models.PerformanceInput) (*models.PerformanceView, error)
	DeletePerformance(ctx context.Context, id int64) error
}

type Handler struct {
	Catalog CatalogService
}

func NewHandler(catalog CatalogService) *Handler {
	return &Handler{Catalog: catalog}
}

// Mount registers the catalog routes. Reads are public, writes need staff.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/genres", func(r chi.Router) {
		r.Get("/", h.ListGenres)
		r.Get("/{id}", h.GetGenre)
		r.With(auth.RequireStaff).Post("/", h.CreateGenre)
		r.With(auth.RequireStaff).Put("/{id}", h.UpdateGenre)
		r.With(auth.RequireStaff).Delete("/{id}", h.DeleteGenre)
	})
	r.Route("/actors", func(r chi.Router) {
		r.Get("/", h.ListActors)
		r.Get("/{id}", h.GetActor)
		r.With(auth.RequireStaff).Post("/", h.CreateActor)
		r.With(auth.RequireStaff).Put("/{id}", h.UpdateActor)
		r.With(auth.RequireStaff).Delete("/{id}", h.DeleteActor)
	})
	r.Route("/theatre-halls", func(r chi.Router) {
		r.Get("/", h.ListHalls)
		r.Get("/{id}", h.GetHall)
		r.With(auth.RequireStaff).Post("/", h.CreateHall)
		r.With(auth.RequireStaff).Put("/{id}", h.UpdateHall)
		r.With(auth.RequireStaff).Delete("/{id}", h.DeleteHall)
	})
	r.Route("/plays", func(r chi.Router) {
		r.Get("/", h.ListPlays)
		r.Get("/{id}", h.GetPlay)
		r.With(auth.RequireStaff).Post("/", h.CreatePlay)
		r.With(auth.RequireStaff).Put("/{id}", h.UpdatePlay)
		r.With(auth.RequireStaff).Delete("/{id}", h.DeletePlay)
		r.With(auth.RequireStaff).Post("/{id}/upload-image", h.UploadImage)
	})
	r.Route("/performances", func(r chi.Router) {
		r.Get("/", h.ListPerformances)
		r.Get("/{id}", h.GetPerformance)
		r.With(auth.RequireStaff).Post("/", h.CreatePerformance)
		r.With(auth.RequireStaff).Put("/{id}", h.UpdatePerformance)
		r.With(auth.RequireStaff).Delete("/{id}", h.DeletePerformance)
	})
}

func respond(w http.ResponseWriter, status int, body interface{}, err error) {
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	utils.WriteJSON(w, status, body)
}

// Genres

func (h *Handler) ListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.Catalog.ListGenres(r.Context())
	respond(w, http.StatusOK, genres, err)
}

func (h *Handler) GetGenre(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	genre, err := h.Catalog.GetGenre(r.Context(), id)
	respond(w, http.StatusOK, genre, err)
}

func (h *Handler) CreateGenre(w http.ResponseWriter, r *http.Request) {
	var in models.GenreInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	genre, err := h.Catalog.CreateGenre(r.Context(), in)
	respond(w, http.StatusCreated, genre, err)
}

func (h *Handler) UpdateGenre(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var in models.GenreInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	genre, err := h.Catalog.UpdateGenre(r.Context(), id, in)
	respond(w, http.StatusOK, genre, err)
}

func (h *Handler) DeleteGenre(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil, h.Catalog.DeleteGenre(r.Context(), id))
}

// Actors

func (h *Handler) ListActors(w http.ResponseWriter, r *http.Request) {
	actors, err := h.Catalog.ListActors(r.Context())
	respond(w, http.StatusOK, actors, err)
}

func (h *Handler) GetActor(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	actor, err := h.Catalog.GetActor(r.Context(), id)
	respond(w, http.StatusOK, actor, err)
}

func (h *Handler) CreateActor(w http.ResponseWriter, r *http.Request) {
	var in models.ActorInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	actor, err := h.Catalog.CreateActor(r.Context(), in)
	respond(w, http.StatusCreated, actor, err)
}

func (h *Handler) UpdateActor(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var in models.ActorInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	actor, err := h.Catalog.UpdateActor(r.Context(), id, in)
	respond(w, http.StatusOK, actor, err)
}

func (h *Handler) DeleteActor(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil, h.Catalog.DeleteActor(r.Context(), id))
}

// Theatre halls

func (h *Handler) ListHalls(w http.ResponseWriter, r *http.Request) {
	halls, err := h.Catalog.ListHalls(r.Context())
	respond(w, http.StatusOK, halls, err)
}

func (h *Handler) GetHall(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	hall, err := h.Catalog.GetHall(r.Context(), id)
	respond(w, http.StatusOK, hall, err)
}

func (h *Handler) CreateHall(w http.ResponseWriter, r *http.Request) {
	var in models.TheatreHallInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	hall, err := h.Catalog.CreateHall(r.Context(), in)
	respond(w, http.StatusCreated, hall, err)
}

func (h *Handler) UpdateHall(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var in models.TheatreHallInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	hall, err := h.Catalog.UpdateHall(r.Context(), id, in)
	respond(w, http.StatusOK, hall, err)
}

func (h *Handler) DeleteHall(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil, h.Catalog.DeleteHall(r.Context(), id))
}

// Plays

func (h *Handler) ListPlays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	genres, err := utils.ParseIDs("genres", q.Get("genres"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	actors, err := utils.ParseIDs("actors", q.Get("actors"))
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	plays, err := h.Catalog.ListPlays(r.Context(), models.PlayFilter{Title: q.Get("title"), GenreIDs: genres, ActorIDs: actors})
	respond(w, http.StatusOK, plays, err)
}

func (h *Handler) GetPlay(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	play, err := h.Catalog.GetPlay(r.Context(), id)
	respond(w, http.StatusOK, play, err)
}

func (h *Handler) CreatePlay(w http.ResponseWriter, r *http.Request) {
	var in models.PlayInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	play, err := h.Catalog.CreatePlay(r.Context(), in)
	respond(w, http.StatusCreated, play, err)
}

func (h *Handler) UpdatePlay(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var in models.PlayInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	play, err := h.Catalog.UpdatePlay(r.Context(), id, in)
	respond(w, http.StatusOK, play, err)
}

func (h *Handler) DeletePlay(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil, h.Catalog.DeletePlay(r.Context(), id))
}

// UploadImage expects a multipart form with the file under "image".
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize)
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		utils.WriteError(w, &models.ValidationError{Field: "image", Reason: fmt.Sprintf("invalid upload: %v", err)})
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		utils.WriteError(w, &models.ValidationError{Field: "image", Reason: "no file was submitted"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	play, err := h.Catalog.UploadImage(r.Context(), id, header.Filename, contentType, file)
	respond(w, http.StatusOK, play, err)
}

// Performances

func (h *Handler) ListPerformances(w http.ResponseWriter, r *http.Request) {
	var playID int64
	if raw := r.URL.Query().Get("play"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			utils.WriteError(w, &models.ValidationError{Field: "play", Reason: fmt.Sprintf("%q is not a valid id", raw)})
			return
		}
		playID = n
	}
	perfs, err := h.Catalog.ListPerformances(r.Context(), playID)
	respond(w, http.StatusOK, perfs, err)
}

func (h *Handler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	perf, err := h.Catalog.GetPerformance(r.Context(), id)
	respond(w, http.StatusOK, perf, err)
}

func (h *Handler) CreatePerformance(w http.ResponseWriter, r *http.Request) {
	var in models.PerformanceInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	perf, err := h.Catalog.CreatePerformance(r.Context(), in)
	respond(w, http.StatusCreated, perf, err)
}

func (h *Handler) UpdatePerformance(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	var in models.PerformanceInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		utils.WriteError(w, err)
		return
	}
	perf, err := h.Catalog.UpdatePerformance(r.Context(), id, in)
	respond(w, http.StatusOK, perf, err)
}

func (h *Handler) DeletePerformance(w http.ResponseWriter, r *http.Request) {
	id, err := utils.PathID(r, "id")
	if err != nil {
		utils.WriteError(w, err)
		return
	}
	respond(w, http.StatusNoContent, nil, h.Catalog.DeletePerformance(r.Context(), id))
}
