package utils

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"ms-theatre/internal/models"
)

// PathID reads a positive integer URL parameter.
func PathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, &models.NotFoundError{Entity: name, ID: raw}
	}
	return id, nil
}

// ParseIDs splits a comma-separated id list such as "1,2,3". Empty parts are
// skipped.
func ParseIDs(field, raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, &models.ValidationError{Field: field, Reason: fmt.Sprintf("%q is not a valid id", part)}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Pagination holds the resolved page window of a list request.
type Pagination struct {
	Page     int
	PageSize int
}

func (p Pagination) Limit() int  { return p.PageSize }
func (p Pagination) Offset() int { return (p.Page - 1) * p.PageSize }

// ParsePagination reads page and page_size. page_size is clamped to max.
func ParsePagination(q url.Values, defaultSize, maxSize int) (Pagination, error) {
	p := Pagination{Page: 1, PageSize: defaultSize}
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, &models.NotFoundError{Entity: "page", ID: raw}
		}
		p.Page = n
	}
	if raw := q.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return p, &models.ValidationError{Field: "page_size", Reason: "must be a positive integer"}
		}
		p.PageSize = n
	}
	if p.PageSize > maxSize {
		p.PageSize = maxSize
	}
	return p, nil
}

// NewPage builds the count/next/previous envelope. Links keep every other
// query parameter of the request.
func NewPage(r *http.Request, p Pagination, count int, results interface{}) models.Page {
	page := models.Page{Count: count, Results: results}

	link := func(n int) *string {
		u := *r.URL
		if u.Host == "" {
			u.Host = r.Host
		}
		if u.Scheme == "" {
			u.Scheme = "http"
			if r.TLS != nil {
				u.Scheme = "https"
			}
		}
		q := u.Query()
		if n == 1 {
			q.Del("page")
		} else {
			q.Set("page", strconv.Itoa(n))
		}
		u.RawQuery = q.Encode()
		s := u.String()
		return &s
	}

	if p.Offset()+p.PageSize < count {
		page.Next = link(p.Page + 1)
	}
	if p.Page > 1 {
		page.Previous = link(p.Page - 1)
	}
	return page
}
