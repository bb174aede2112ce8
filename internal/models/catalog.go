package models

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type Genre struct {
	bun.BaseModel `bun:"table:genres,alias:genre"`

	ID   int64  `bun:"id,pk,autoincrement" json:"id"`
	Name string `bun:"name,notnull" json:"name"`
}

type Actor struct {
	bun.BaseModel `bun:"table:actors,alias:actor"`

	ID        int64  `bun:"id,pk,autoincrement" json:"id"`
	FirstName string `bun:"first_name,notnull" json:"first_name"`
	LastName  string `bun:"last_name,notnull" json:"last_name"`
}

func (a Actor) FullName() string {
	return fmt.Sprintf("%s %s", a.FirstName, a.LastName)
}

type Play struct {
	bun.BaseModel `bun:"table:plays,alias:play"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Title       string `bun:"title,notnull,unique"`
	Description string `bun:"description,type:text,notnull"`
	Image       string `bun:"image,nullzero"`

	Genres []Genre `bun:"m2m:play_genres,join:Play=Genre"`
	Actors []Actor `bun:"m2m:play_actors,join:Play=Actor"`
}

// PlayGenre and PlayActor are the join tables behind Play's m2m relations.
// They have to be registered on the bun.DB before any relation query runs.
type PlayGenre struct {
	bun.BaseModel `bun:"table:play_genres,alias:pg"`

	PlayID  int64  `bun:"play_id,pk"`
	Play    *Play  `bun:"rel:belongs-to,join:play_id=id"`
	GenreID int64  `bun:"genre_id,pk"`
	Genre   *Genre `bun:"rel:belongs-to,join:genre_id=id"`
}

type PlayActor struct {
	bun.BaseModel `bun:"table:play_actors,alias:pa"`

	PlayID  int64  `bun:"play_id,pk"`
	Play    *Play  `bun:"rel:belongs-to,join:play_id=id"`
	ActorID int64  `bun:"actor_id,pk"`
	Actor   *Actor `bun:"rel:belongs-to,join:actor_id=id"`
}

// JoinModels lists the m2m join models for bun.DB.RegisterModel.
func JoinModels() []interface{} {
	return []interface{}{(*PlayGenre)(nil), (*PlayActor)(nil)}
}

type TheatreHall struct {
	bun.BaseModel `bun:"table:theatre_halls,alias:hall"`

	ID         int64  `bun:"id,pk,autoincrement" json:"id"`
	Name       string `bun:"name,notnull" json:"name"`
	Rows       int    `bun:"rows,notnull" json:"rows"`
	SeatsInRow int    `bun:"seats_in_row,notnull" json:"seats_in_row"`
}

func (h TheatreHall) Capacity() int {
	return h.Rows * h.SeatsInRow
}

type Performance struct {
	bun.BaseModel `bun:"table:performances,alias:performance"`

	ID            int64     `bun:"id,pk,autoincrement"`
	PlayID        int64     `bun:"play_id,notnull"`
	TheatreHallID int64     `bun:"theatre_hall_id,notnull"`
	ShowTime      time.Time `bun:"show_time,notnull"`

	Play        *Play        `bun:"rel:belongs-to,join:play_id=id"`
	TheatreHall *TheatreHall `bun:"rel:belongs-to,join:theatre_hall_id=id"`
}
