package catalog_api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"ms-theatre/internal/auth"
	"ms-theatre/internal/cache"
	"ms-theatre/internal/catalog"
	catalog_db "ms-theatre/internal/catalog/db"
	"ms-theatre/internal/database/testdb"
	"ms-theatre/internal/logger"
	"ms-theatre/internal/media"
	"ms-theatre/internal/models"
	ticket_db "ms-theatre/internal/tickets/db"
	tickets "ms-theatre/internal/tickets/service"
)

type server struct {
	router http.Handler
	db     *bun.DB
	staff  string
	user   string
}

func newServer(t *testing.T) server {
	t.Helper()
	bunDB := testdb.New(t)
	seats := tickets.NewTicketService(&ticket_db.DB{Bun: bunDB}, nil, logger.Discard())
	svc := catalog.NewCatalogService(&catalog_db.DB{Bun: bunDB}, bunDB, seats, cache.Noop{},
		&media.LocalStorage{Dir: t.TempDir(), BaseURL: "/media"}, logger.Discard())

	jwtManager := auth.NewJWTManager("secret", "ms-theatre", time.Hour)
	staff, err := jwtManager.Issue(&models.User{ID: "staff-1", IsStaff: true})
	require.NoError(t, err)
	user, err := jwtManager.Issue(&models.User{ID: "user-1"})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(auth.Authenticate(jwtManager, logger.Discard()))
	r.Route("/api/theatre", NewHandler(svc).Mount)
	return server{router: r, db: bunDB, staff: staff, user: user}
}

func (s server) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, r)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestCatalogWritesRequireStaff(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/api/theatre/genres", "", `{"name":"Drama"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/theatre/genres", s.user, `{"name":"Drama"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/theatre/genres", s.staff, `{"name":"Drama"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/theatre/genres", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var genres []models.Genre
	decode(t, rec, &genres)
	require.Len(t, genres, 1)
	assert.Equal(t, "Drama", genres[0].Name)
}

func TestPlayLifecycle(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/api/theatre/genres", s.staff, `{"name":"Comedy"}`)
	var genre models.Genre
	decode(t, rec, &genre)
	rec = s.do(t, http.MethodPost, "/api/theatre/actors", s.staff, `{"first_name":"Judi","last_name":"Dench"}`)
	var actor models.ActorView
	decode(t, rec, &actor)
	assert.Equal(t, "Judi Dench", actor.FullName)

	body, _ := json.Marshal(models.PlayInput{Title: "Twelfth Night", Description: "Shipwreck", Genres: []int64{genre.ID}, Actors: []int64{actor.ID}})
	rec = s.do(t, http.MethodPost, "/api/theatre/plays", s.staff, string(body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var detail models.PlayDetail
	decode(t, rec, &detail)

	rec = s.do(t, http.MethodPost, "/api/theatre/plays", s.staff, string(body))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/theatre/plays?title=twelfth&genres="+itoa(genre.ID), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.PlayListItem
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"Comedy"}, list[0].Genres)
	assert.Equal(t, []string{"Judi Dench"}, list[0].Actors)

	rec = s.do(t, http.MethodGet, "/api/theatre/plays?genres=x", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/theatre/plays/"+itoa(detail.ID), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.PlayDetail
	decode(t, rec, &got)
	require.Len(t, got.Actors, 1)
	assert.Equal(t, "Dench", got.Actors[0].LastName)

	rec = s.do(t, http.MethodDelete, "/api/theatre/plays/"+itoa(detail.ID), s.staff, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/theatre/plays/"+itoa(detail.ID), "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateHallValidation(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/api/theatre/theatre-halls", s.staff, `{"name":"Studio","rows":0,"seats_in_row":4}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"rows"`)

	rec = s.do(t, http.MethodPost, "/api/theatre/theatre-halls", s.staff, `{"name":"Studio","rows":8,"seats_in_row":12}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestPerformanceEndpoints(t *testing.T) {
	s := newServer(t)
	perf := testdb.Performance(t, s.db, 2, 3)
	res := testdb.CreateReservation(t, s.db, "user-1")
	testdb.CreateTicket(t, s.db, 1, 2, perf.ID, res.ID)

	rec := s.do(t, http.MethodGet, "/api/theatre/performances", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.PerformanceListItem
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "Hamlet", list[0].PlayTitle)
	assert.Equal(t, 6, list[0].TheatreHallCapacity)
	assert.Equal(t, 5, list[0].TicketsAvailable)

	rec = s.do(t, http.MethodGet, "/api/theatre/performances?play=999", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &list)
	assert.Empty(t, list)

	rec = s.do(t, http.MethodGet, "/api/theatre/performances/"+itoa(perf.ID), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail models.PerformanceDetail
	decode(t, rec, &detail)
	assert.Equal(t, []models.TakenSeat{{Row: 1, Seat: 2}}, detail.TakenPlaces)
	assert.Equal(t, 5, detail.TicketsAvailable)

	body := `{"play":` + itoa(perf.PlayID) + `,"theatre_hall":999,"show_time":"2031-01-01T19:00:00Z"}`
	rec = s.do(t, http.MethodPost, "/api/theatre/performances", s.staff, body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"theatre_hall"`)
}

func TestUploadImage(t *testing.T) {
	s := newServer(t)
	play := testdb.CreatePlay(t, s.db, "The Tempest")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", "storm.png")
	require.NoError(t, err)
	part.Write([]byte("png-bytes"))
	require.NoError(t, mw.Close())

	r := httptest.NewRequest(http.MethodPost, "/api/theatre/plays/"+itoa(play.ID)+"/upload-image", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	r.Header.Set("Authorization", "Bearer "+s.staff)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var detail models.PlayDetail
	decode(t, rec, &detail)
	assert.True(t, strings.HasPrefix(detail.Image, "/media/uploads/movies/the-tempest-"))

	rec = s.do(t, http.MethodPost, "/api/theatre/plays/"+itoa(play.ID)+"/upload-image", s.staff, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
