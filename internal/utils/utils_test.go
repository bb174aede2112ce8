package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-theatre/internal/logger"
	"ms-theatre/internal/models"
)

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&models.OutOfRangeError{Field: "row", Value: 21, Max: 20}, http.StatusBadRequest},
		{&models.ValidationError{Field: "title", Reason: "required"}, http.StatusBadRequest},
		{models.NewTicketRequestError(0, &models.NotFoundError{Entity: "performance", ID: 5}), http.StatusBadRequest},
		{models.NewTicketRequestError(1, &models.SeatTakenError{Row: 1, Seat: 1, PerformanceID: 1}), http.StatusConflict},
		{&models.ConflictError{Entity: "play", Field: "title", Value: "Hamlet"}, http.StatusConflict},
		{&models.NotFoundError{Entity: "play", ID: 1}, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", models.ErrUnauthenticated), http.StatusUnauthorized},
		{models.ErrPermissionDenied, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ErrorStatus(tc.err), tc.err.Error())
	}
}

func TestWriteErrorBatchDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, models.NewTicketRequestError(2, &models.OutOfRangeError{Field: "seat", Value: 30, Max: 20}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Success bool `json:"success"`
		Details struct {
			Index  *int   `json:"index"`
			Field  string `json:"field"`
			Reason string `json:"reason"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Details.Index)
	assert.Equal(t, 2, *body.Details.Index)
	assert.Equal(t, "seat", body.Details.Field)
	assert.Contains(t, body.Details.Reason, "(1, 20)")
}

func TestWriteErrorHidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")

	rec = httptest.NewRecorder()
	WriteError(rec, fmt.Errorf("failed to reserve ticket 0: %w", errors.New(`pq: password authentication failed for user "theatre"`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password authentication")
	assert.NotContains(t, rec.Body.String(), `"details"`)
}

func TestDecodeJSONValidation(t *testing.T) {
	var in models.TheatreHallInput
	err := DecodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Studio","rows":0,"seats_in_row":5}`)), &in)
	var validation *models.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "rows", validation.Field)

	err = DecodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`)), &in)
	assert.ErrorAs(t, err, &validation)

	err = DecodeJSON(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Studio","rows":3,"seats_in_row":5}`)), &in)
	require.NoError(t, err)
	assert.Equal(t, 15, in.Rows*in.SeatsInRow)
}

func TestParseIDs(t *testing.T) {
	ids, err := ParseIDs("genres", "1, 2,,3")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	ids, err = ParseIDs("genres", "")
	require.NoError(t, err)
	assert.Nil(t, ids)

	_, err = ParseIDs("actors", "1,x")
	var validation *models.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Equal(t, "actors", validation.Field)
}

func TestPathID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/plays/7", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "7")
	r = r.WithContext(contextWithRoute(r, rctx))

	id, err := PathID(r, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	rctx.URLParams = chi.RouteParams{}
	rctx.URLParams.Add("id", "abc")
	_, err = PathID(r, "id")
	var notFound *models.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestParsePagination(t *testing.T) {
	p, err := ParsePagination(url.Values{}, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, Pagination{Page: 1, PageSize: 2}, p)

	p, err = ParsePagination(url.Values{"page": {"3"}, "page_size": {"50"}}, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Limit())
	assert.Equal(t, 20, p.Offset())

	_, err = ParsePagination(url.Values{"page": {"0"}}, 2, 10)
	assert.Error(t, err)
}

func TestNewPageLinks(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example.com/api/theatre/reservations?page=2&page_size=2", nil)
	p := Pagination{Page: 2, PageSize: 2}

	page := NewPage(r, p, 5, []int{3, 4})
	require.NotNil(t, page.Next)
	require.NotNil(t, page.Previous)
	assert.Equal(t, "http://example.com/api/theatre/reservations?page=3&page_size=2", *page.Next)
	assert.Equal(t, "http://example.com/api/theatre/reservations?page_size=2", *page.Previous)

	last := NewPage(r, Pagination{Page: 3, PageSize: 2}, 5, []int{5})
	assert.Nil(t, last.Next)

	first := NewPage(r, Pagination{Page: 1, PageSize: 2}, 1, []int{1})
	assert.Nil(t, first.Previous)
	assert.Nil(t, first.Next)
}

func contextWithRoute(r *http.Request, rctx *chi.Context) context.Context {
	return context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
}

func TestRequestLogger(t *testing.T) {
	var out strings.Builder
	h := RequestLogger(logger.New(&out))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Contains(t, out.String(), "GET /healthz - 418")
}
