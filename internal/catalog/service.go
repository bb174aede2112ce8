package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/uptrace/bun"

	"ms-theatre/internal/cache"
	"ms-theatre/internal/database"
	"ms-theatre/internal/logger"
	"ms-theatre/internal/media"
	"ms-theatre/internal/models"
)

type CatalogDBLayer interface {
	MissingIDs(ctx context.Context, idb bun.IDB, model interface{}, ids []int64) ([]int64, error)

	ListGenres(ctx context.Context) ([]models.Genre, error)
	GetGenre(ctx context.Context, id int64) (*models.Genre, error)
	CreateGenre(ctx context.Context, genre *models.Genre) error
	UpdateGenre(ctx context.Context, genre *models.Genre) (bool, error)
	DeleteGenre(ctx context.Context, id int64) (bool, error)

	ListActors(ctx context.Context) ([]models.Actor, error)
	GetActor(ctx context.Context, id int64) (*models.Actor, error)
	CreateActor(ctx context.Context, actor *models.Actor) error
	UpdateActor(ctx context.Context, actor *models.Actor) (bool, error)
	DeleteActor(ctx context.Context, id int64) (bool, error)

	ListHalls(ctx context.Context) ([]models.TheatreHall, error)
	GetHall(ctx context.Context, id int64) (*models.TheatreHall, error)
	CreateHall(ctx context.Context, hall *models.TheatreHall) error
	UpdateHall(ctx context.Context, hall *models.TheatreHall) (bool, error)
	DeleteHall(ctx context.Context, id int64) (bool, error)

	ListPlays(ctx context.Context, f models.PlayFilter) ([]models.Play, error)
	GetPlay(ctx context.Context, idb bun.IDB, id int64) (*models.Play, error)
	CreatePlay(ctx context.Context, idb bun.IDB, play *models.Play) error
	UpdatePlay(ctx context.Context, idb bun.IDB, play *models.Play) (bool, error)
	SetPlayImage(ctx context.Context, id int64, image string) (bool, error)
	DeletePlay(ctx context.Context, id int64) (bool, error)
	ReplacePlayLinks(ctx context.Context, idb bun.IDB, playID int64, genreIDs, actorIDs []int64) error

	GetPerformance(ctx context.Context, id int64) (*models.Performance, error)
	CreatePerformance(ctx context.Context, perf *models.Performance) error
	UpdatePerformance(ctx context.Context, perf *models.Performance) (bool, error)
	DeletePerformance(ctx context.Context, id int64) (bool, error)
}

// SeatReader exposes the availability figures owned by the tickets package.
type SeatReader interface {
	Availability(ctx context.Context, idb bun.IDB, performanceID int64) (*models.Availability, error)
	ListPerformances(ctx context.Context, playID int64) ([]models.PerformanceListItem, error)
}

type TxRunner interface {
	RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error
}

type CatalogService struct {
	DB     CatalogDBLayer
	Tx     TxRunner
	Seats  SeatReader
	Cache  cache.Cache
	Media  media.Storage
	Logger *logger.Logger
}

func NewCatalogService(db CatalogDBLayer, tx TxRunner, seats SeatReader, c cache.Cache, store media.Storage, log *logger.Logger) *CatalogService {
	if c == nil {
		c = cache.Noop{}
	}
	return &CatalogService{DB: db, Tx: tx, Seats: seats, Cache: c, Media: store, Logger: log}
}

func notFound(entity string, id int64, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &models.NotFoundError{Entity: entity, ID: id}
	}
	return fmt.Errorf("failed to load %s %d: %w", entity, id, err)
}

func mutated(entity string, id int64, ok bool, err error) error {
	if err != nil {
		return fmt.Errorf("failed to write %s %d: %w", entity, id, err)
	}
	if !ok {
		return &models.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}

// invalidate drops every cached catalog response. A failing cache is logged
// and otherwise ignored; entries expire on their own.
func (s *CatalogService) invalidate(ctx context.Context) {
	if err := s.Cache.Invalidate(ctx); err != nil {
		s.Logger.Warn("CACHE", fmt.Sprintf("catalog invalidation failed: %v", err))
	}
}

// Genres

func (s *CatalogService) ListGenres(ctx context.Context) ([]models.Genre, error) {
	return s.DB.ListGenres(ctx)
}

func (s *CatalogService) GetGenre(ctx context.Context, id int64) (*models.Genre, error) {
	genre, err := s.DB.GetGenre(ctx, id)
	if err != nil {
		return nil, notFound("genre", id, err)
	}
	return genre, nil
}

func (s *CatalogService) CreateGenre(ctx context.Context, in models.GenreInput) (*models.Genre, error) {
	genre := &models.Genre{Name: in.Name}
	if err := s.DB.CreateGenre(ctx, genre); err != nil {
		return nil, fmt.Errorf("failed to create genre: %w", err)
	}
	s.invalidate(ctx)
	return genre, nil
}

func (s *CatalogService) UpdateGenre(ctx context.Context, id int64, in models.GenreInput) (*models.Genre, error) {
	genre := &models.Genre{ID: id, Name: in.Name}
	ok, err := s.DB.UpdateGenre(ctx, genre)
	if err := mutated("genre", id, ok, err); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return genre, nil
}

func (s *CatalogService) DeleteGenre(ctx context.Context, id int64) error {
	ok, err := s.DB.DeleteGenre(ctx, id)
	if err := mutated("genre", id, ok, err); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Actors

func (s *CatalogService) ListActors(ctx context.Context) ([]models.ActorView, error) {
	actors, err := s.DB.ListActors(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]models.ActorView, 0, len(actors))
	for _, a := range actors {
		views = append(views, models.NewActorView(a))
	}
	return views, nil
}

func (s *CatalogService) GetActor(ctx context.Context, id int64) (*models.ActorView, error) {
	actor, err := s.DB.GetActor(ctx, id)
	if err != nil {
		return nil, notFound("actor", id, err)
	}
	view := models.NewActorView(*actor)
	return &view, nil
}

func (s *CatalogService) CreateActor(ctx context.Context, in models.ActorInput) (*models.ActorView, error) {
	actor := &models.Actor{FirstName: in.FirstName, LastName: in.LastName}
	if err := s.DB.CreateActor(ctx, actor); err != nil {
		return nil, fmt.Errorf("failed to create actor: %w", err)
	}
	s.invalidate(ctx)
	view := models.NewActorView(*actor)
	return &view, nil
}

func (s *CatalogService) UpdateActor(ctx context.Context, id int64, in models.ActorInput) (*models.ActorView, error) {
	actor := &models.Actor{ID: id, FirstName: in.FirstName, LastName: in.LastName}
	ok, err := s.DB.UpdateActor(ctx, actor)
	if err := mutated("actor", id, ok, err); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	view := models.NewActorView(*actor)
	return &view, nil
}

func (s *CatalogService) DeleteActor(ctx context.Context, id int64) error {
	ok, err := s.DB.DeleteActor(ctx, id)
	if err := mutated("actor", id, ok, err); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Theatre halls

func (s *CatalogService) ListHalls(ctx context.Context) ([]models.TheatreHall, error) {
	return s.DB.ListHalls(ctx)
}

func (s *CatalogService) GetHall(ctx context.Context, id int64) (*models.TheatreHall, error) {
	hall, err := s.DB.GetHall(ctx, id)
	if err != nil {
		return nil, notFound("theatre hall", id, err)
	}
	return hall, nil
}

func (s *CatalogService) CreateHall(ctx context.Context, in models.TheatreHallInput) (*models.TheatreHall, error) {
	hall := &models.TheatreHall{Name: in.Name, Rows: in.Rows, SeatsInRow: in.SeatsInRow}
	if err := s.DB.CreateHall(ctx, hall); err != nil {
		return nil, fmt.Errorf("failed to create theatre hall: %w", err)
	}
	return hall, nil
}

// UpdateHall resizes a hall. Tickets already sold outside the new bounds are
// left as they are.
func (s *CatalogService) UpdateHall(ctx context.Context, id int64, in models.TheatreHallInput) (*models.TheatreHall, error) {
	hall := &models.TheatreHall{ID: id, Name: in.Name, Rows: in.Rows, SeatsInRow: in.SeatsInRow}
	ok, err := s.DB.UpdateHall(ctx, hall)
	if err := mutated("theatre hall", id, ok, err); err != nil {
		return nil, err
	}
	s.Logger.Info("CATALOG", fmt.Sprintf("Theatre hall %d resized to %dx%d", id, in.Rows, in.SeatsInRow))
	return hall, nil
}

func (s *CatalogService) DeleteHall(ctx context.Context, id int64) error {
	ok, err := s.DB.DeleteHall(ctx, id)
	return mutated("theatre hall", id, ok, err)
}

// Plays

func playListKey(f models.PlayFilter) string {
	return fmt.Sprintf("plays:list:title=%s:genres=%s:actors=%s",
		strings.ToLower(f.Title), joinIDs(f.GenreIDs), joinIDs(f.ActorIDs))
}

func joinIDs(ids []int64) string {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func (s *CatalogService) ListPlays(ctx context.Context, f models.PlayFilter) ([]models.PlayListItem, error) {
	key := playListKey(f)
	var cached []models.PlayListItem
	if hit, err := s.Cache.Get(ctx, key, &cached); err != nil {
		s.Logger.Warn("CACHE", fmt.Sprintf("read %s: %v", key, err))
	} else if hit {
		return cached, nil
	}

	plays, err := s.DB.ListPlays(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list plays: %w", err)
	}
	items := make([]models.PlayListItem, 0, len(plays))
	for _, p := range plays {
		items = append(items, models.NewPlayListItem(p))
	}

	if err := s.Cache.Set(ctx, key, items); err != nil {
		s.Logger.Warn("CACHE", fmt.Sprintf("write %s: %v", key, err))
	}
	return items, nil
}

func (s *CatalogService) GetPlay(ctx context.Context, id int64) (*models.PlayDetail, error) {
	key := fmt.Sprintf("plays:%d", id)
	var cached models.PlayDetail
	if hit, err := s.Cache.Get(ctx, key, &cached); err != nil {
		s.Logger.Warn("CACHE", fmt.Sprintf("read %s: %v", key, err))
	} else if hit {
		return &cached, nil
	}

	play, err := s.DB.GetPlay(ctx, nil, id)
	if err != nil {
		return nil, notFound("play", id, err)
	}
	detail := models.NewPlayDetail(*play)

	if err := s.Cache.Set(ctx, key, detail); err != nil {
		s.Logger.Warn("CACHE", fmt.Sprintf("write %s: %v", key, err))
	}
	return &detail, nil
}

func (s *CatalogService) checkLinks(ctx context.Context, idb bun.IDB, in models.PlayInput) error {
	missing, err := s.DB.MissingIDs(ctx, idb, (*models.Genre)(nil), in.Genres)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return &models.ValidationError{Field: "genres", Reason: fmt.Sprintf("invalid pk %v - object does not exist", missing)}
	}
	missing, err = s.DB.MissingIDs(ctx, idb, (*models.Actor)(nil), in.Actors)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return &models.ValidationError{Field: "actors", Reason: fmt.Sprintf("invalid pk %v - object does not exist", missing)}
	}
	return nil
}

// savePlay runs the insert or update and the link rewrite in one transaction.
func (s *CatalogService) savePlay(ctx context.Context, play *models.Play, in models.PlayInput, create bool) (*models.PlayDetail, error) {
	var saved *models.Play
	err := s.Tx.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.checkLinks(ctx, tx, in); err != nil {
			return err
		}

		if create {
			if err := s.DB.CreatePlay(ctx, tx, play); err != nil {
				return err
			}
		} else {
			ok, err := s.DB.UpdatePlay(ctx, tx, play)
			if err != nil {
				return err
			}
			if !ok {
				return &models.NotFoundError{Entity: "play", ID: play.ID}
			}
		}

		if err := s.DB.ReplacePlayLinks(ctx, tx, play.ID, in.Genres, in.Actors); err != nil {
			return err
		}
		var err error
		saved, err = s.DB.GetPlay(ctx, tx, play.ID)
		return err
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return nil, &models.ConflictError{Entity: "play", Field: "title", Value: in.Title}
		}
		var validation *models.ValidationError
		var missing *models.NotFoundError
		if errors.As(err, &validation) || errors.As(err, &missing) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to save play: %w", err)
	}

	s.invalidate(ctx)
	detail := models.NewPlayDetail(*saved)
	return &detail, nil
}

func (s *CatalogService) CreatePlay(ctx context.Context, in models.PlayInput) (*models.PlayDetail, error) {
	return s.savePlay(ctx, &models.Play{Title: in.Title, Description: in.Description}, in, true)
}

func (s *CatalogService) UpdatePlay(ctx context.Context, id int64, in models.PlayInput) (*models.PlayDetail, error) {
	return s.savePlay(ctx, &models.Play{ID: id, Title: in.Title, Description: in.Description}, in, false)
}

func (s *CatalogService) DeletePlay(ctx context.Context, id int64) error {
	ok, err := s.DB.DeletePlay(ctx, id)
	if err := mutated("play", id, ok, err); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// UploadImage stores the file under a slugged key and records the returned
// reference on the play.
func (s *CatalogService) UploadImage(ctx context.Context, id int64, filename, contentType string, r io.Reader) (*models.PlayDetail, error) {
	play, err := s.DB.GetPlay(ctx, nil, id)
	if err != nil {
		return nil, notFound("play", id, err)
	}

	key := media.ImagePath(play.Title, filename)
	ref, err := s.Media.Save(ctx, key, r, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	ok, err := s.DB.SetPlayImage(ctx, id, ref)
	if err := mutated("play", id, ok, err); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.Logger.Info("CATALOG", fmt.Sprintf("Stored image for play %d at %s", id, key))

	play.Image = ref
	detail := models.NewPlayDetail(*play)
	return &detail, nil
}

// Performances

func (s *CatalogService) ListPerformances(ctx context.Context, playID int64) ([]models.PerformanceListItem, error) {
	return s.Seats.ListPerformances(ctx, playID)
}

func (s *CatalogService) GetPerformance(ctx context.Context, id int64) (*models.PerformanceDetail, error) {
	perf, err := s.DB.GetPerformance(ctx, id)
	if err != nil {
		return nil, notFound("performance", id, err)
	}
	avail, err := s.Seats.Availability(ctx, nil, id)
	if err != nil {
		return nil, err
	}

	detail := &models.PerformanceDetail{
		ID:               perf.ID,
		ShowTime:         perf.ShowTime,
		TicketsAvailable: avail.TicketsAvailable,
		TakenPlaces:      avail.TakenPlaces,
	}
	if perf.Play != nil {
		detail.Play = models.NewPlayListItem(*perf.Play)
	}
	if perf.TheatreHall != nil {
		detail.TheatreHall = *perf.TheatreHall
	}
	return detail, nil
}

func (s *CatalogService) checkPerformanceRefs(ctx context.Context, in models.PerformanceInput) error {
	missing, err := s.DB.MissingIDs(ctx, nil, (*models.Play)(nil), []int64{in.Play})
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return &models.ValidationError{Field: "play", Reason: fmt.Sprintf("invalid pk %d - object does not exist", in.Play)}
	}
	missing, err = s.DB.MissingIDs(ctx, nil, (*models.TheatreHall)(nil), []int64{in.TheatreHall})
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return &models.ValidationError{Field: "theatre_hall", Reason: fmt.Sprintf("invalid pk %d - object does not exist", in.TheatreHall)}
	}
	return nil
}

// staleReference covers a play or hall deleted between checkPerformanceRefs
// and the write; the foreign key rejects the row.
func (s *CatalogService) staleReference(in models.PerformanceInput) error {
	s.Logger.LogDatabase("FK_VIOLATION", "performances", fmt.Sprintf("play %d or hall %d vanished before write", in.Play, in.TheatreHall))
	return &models.ValidationError{Field: "performance", Reason: "referenced play or theatre hall no longer exists"}
}

func (s *CatalogService) CreatePerformance(ctx context.Context, in models.PerformanceInput) (*models.PerformanceView, error) {
	if err := s.checkPerformanceRefs(ctx, in); err != nil {
		return nil, err
	}
	perf := &models.Performance{PlayID: in.Play, TheatreHallID: in.TheatreHall, ShowTime: in.ShowTime.UTC()}
	if err := s.DB.CreatePerformance(ctx, perf); err != nil {
		if database.IsForeignKeyViolation(err) {
			return nil, s.staleReference(in)
		}
		return nil, fmt.Errorf("failed to create performance: %w", err)
	}
	view := models.NewPerformanceView(*perf)
	return &view, nil
}

func (s *CatalogService) UpdatePerformance(ctx context.Context, id int64, in models.PerformanceInput) (*models.PerformanceView, error) {
	if err := s.checkPerformanceRefs(ctx, in); err != nil {
		return nil, err
	}
	perf := &models.Performance{ID: id, PlayID: in.Play, TheatreHallID: in.TheatreHall, ShowTime: in.ShowTime.UTC()}
	ok, err := s.DB.UpdatePerformance(ctx, perf)
	if database.IsForeignKeyViolation(err) {
		return nil, s.staleReference(in)
	}
	if err := mutated("performance", id, ok, err); err != nil {
		return nil, err
	}
	view := models.NewPerformanceView(*perf)
	return &view, nil
}

func (s *CatalogService) DeletePerformance(ctx context.Context, id int64) error {
	ok, err := s.DB.DeletePerformance(ctx, id)
	return mutated("performance", id, ok, err)
}
