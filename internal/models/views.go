package models

import "time"

// The view types below are the list and detail shapes served over HTTP.

type PlayListItem struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Genres      []string `json:"genres"`
	Actors      []string `json:"actors"`
	Image       string   `json:"image,omitempty"`
}

type ActorView struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	FullName  string `json:"full_name"`
}

type PlayDetail struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Genres      []Genre     `json:"genres"`
	Actors      []ActorView `json:"actors"`
	Image       string      `json:"image,omitempty"`
}

func NewActorView(a Actor) ActorView {
	return ActorView{ID: a.ID, FirstName: a.FirstName, LastName: a.LastName, FullName: a.FullName()}
}

func NewPlayListItem(p Play) PlayListItem {
	item := PlayListItem{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Genres:      make([]string, 0, len(p.Genres)),
		Actors:      make([]string, 0, len(p.Actors)),
		Image:       p.Image,
	}
	for _, g := range p.Genres {
		item.Genres = append(item.Genres, g.Name)
	}
	for _, a := range p.Actors {
		item.Actors = append(item.Actors, a.FullName())
	}
	return item
}

func NewPlayDetail(p Play) PlayDetail {
	detail := PlayDetail{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Genres:      make([]Genre, 0, len(p.Genres)),
		Actors:      make([]ActorView, 0, len(p.Actors)),
		Image:       p.Image,
	}
	detail.Genres = append(detail.Genres, p.Genres...)
	for _, a := range p.Actors {
		detail.Actors = append(detail.Actors, NewActorView(a))
	}
	return detail
}

// PerformanceListItem is scanned straight from the availability aggregation query.
type PerformanceListItem struct {
	ID                  int64     `bun:"id" json:"id"`
	ShowTime            time.Time `bun:"show_time" json:"show_time"`
	PlayTitle           string    `bun:"play_title" json:"play_title"`
	TheatreHallName     string    `bun:"theatre_hall_name" json:"theatre_hall_name"`
	TheatreHallCapacity int       `bun:"theatre_hall_capacity" json:"theatre_hall_capacity"`
	TicketsAvailable    int       `bun:"tickets_available" json:"tickets_available"`
}

type PerformanceDetail struct {
	ID               int64        `json:"id"`
	ShowTime         time.Time    `json:"show_time"`
	Play             PlayListItem `json:"play"`
	TheatreHall      TheatreHall  `json:"theatre_hall"`
	TicketsAvailable int          `json:"tickets_available"`
	TakenPlaces      []TakenSeat  `json:"taken_places"`
}

type PerformanceView struct {
	ID          int64     `json:"id"`
	ShowTime    time.Time `json:"show_time"`
	Play        int64     `json:"play"`
	TheatreHall int64     `json:"theatre_hall"`
}

func NewPerformanceView(p Performance) PerformanceView {
	return PerformanceView{ID: p.ID, ShowTime: p.ShowTime, Play: p.PlayID, TheatreHall: p.TheatreHallID}
}

type TicketView struct {
	ID          int64                `json:"id"`
	Row         int                  `json:"row"`
	Seat        int                  `json:"seat"`
	Reservation int64                `json:"reservation"`
	Performance *PerformanceListItem `json:"performance,omitempty"`
}

type ReservationView struct {
	ID        int64        `json:"id"`
	CreatedAt time.Time    `json:"created_at"`
	Tickets   []TicketView `json:"tickets"`
}

// Page mirrors the paginated envelope clients expect from list endpoints.
type Page struct {
	Count    int         `json:"count"`
	Next     *string     `json:"next"`
	Previous *string     `json:"previous"`
	Results  interface{} `json:"results"`
}

// Catalog write payloads.

type GenreInput struct {
	Name string `json:"name" validate:"required,max=50"`
}

type ActorInput struct {
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
}

type TheatreHallInput struct {
	Name       string `json:"name" validate:"required,max=100"`
	Rows       int    `json:"rows" validate:"required,gte=1"`
	SeatsInRow int    `json:"seats_in_row" validate:"required,gte=1"`
}

type PlayInput struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"required"`
	Genres      []int64 `json:"genres" validate:"dive,gte=1"`
	Actors      []int64 `json:"actors" validate:"dive,gte=1"`
}

type PerformanceInput struct {
	Play        int64     `json:"play" validate:"required,gte=1"`
	TheatreHall int64     `json:"theatre_hall" validate:"required,gte=1"`
	ShowTime    time.Time `json:"show_time" validate:"required"`
}

// PlayFilter carries the optional play list filters; empty slices mean "no filter".
type PlayFilter struct {
	Title    string
	GenreIDs []int64
	ActorIDs []int64
}
