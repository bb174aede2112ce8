package db

import (
	"context"
	"strings"

	"github.com/uptrace/bun"

	"ms-theatre/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) conn(idb bun.IDB) bun.IDB {
	if idb != nil {
		return idb
	}
	return d.Bun
}

// MissingIDs returns the ids from the list that have no row in model's table.
func (d *DB) MissingIDs(ctx context.Context, idb bun.IDB, model interface{}, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []int64
	err := d.conn(idb).NewSelect().
		Model(model).
		Column("id").
		Where("?TableAlias.id IN (?)", bun.In(ids)).
		Scan(ctx, &found)
	if err != nil {
		return nil, err
	}

	present := make(map[int64]bool, len(found))
	for _, id := range found {
		present[id] = true
	}
	var missing []int64
	for _, id := range ids {
		if !present[id] {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// Genres

func (d *DB) ListGenres(ctx context.Context) ([]models.Genre, error) {
	genres := make([]models.Genre, 0)
	err := d.Bun.NewSelect().Model(&genres).OrderExpr("genre.name ASC, genre.id ASC").Scan(ctx)
	return genres, err
}

func (d *DB) GetGenre(ctx context.Context, id int64) (*models.Genre, error) {
	var genre models.Genre
	if err := d.Bun.NewSelect().Model(&genre).Where("genre.id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}
	return &genre, nil
}

func (d *DB) CreateGenre(ctx context.Context, genre *models.Genre) error {
	_, err := d.Bun.NewInsert().Model(genre).Exec(ctx)
	return err
}

func (d *DB) UpdateGenre(ctx context.Context, genre *models.Genre) (bool, error) {
	res, err := d.Bun.NewUpdate().Model(genre).Column("name").WherePK().Exec(ctx)
	return affected(res, err)
}

func (d *DB) DeleteGenre(ctx context.Context, id int64) (bool, error) {
	res, err := d.Bun.NewDelete().Model((*models.Genre)(nil)).Where("id = ?", id).Exec(ctx)
	return affected(res, err)
}

// Actors

func (d *DB) ListActors(ctx context.Context) ([]models.Actor, error) {
	actors := make([]models.Actor, 0)
	err := d.Bun.NewSelect().Model(&actors).OrderExpr("actor.last_name ASC, actor.first_name ASC, actor.id ASC").Scan(ctx)
	return actors, err
}

func (d *DB) GetActor(ctx context.Context, id int64) (*models.Actor, error) {
	var actor models.Actor
	if err := d.Bun.NewSelect().Model(&actor).Where("actor.id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}
	return &actor, nil
}

func (d *DB) CreateActor(ctx context.Context, actor *models.Actor) error {
	_, err := d.Bun.NewInsert().Model(actor).Exec(ctx)
	return err
}

func (d *DB) UpdateActor(ctx context.Context, actor *models.Actor) (bool, error) {
	res, err := d.Bun.NewUpdate().Model(actor).Column("first_name", "last_name").WherePK().Exec(ctx)
	return affected(res, err)
}

func (d *DB) DeleteActor(ctx context.Context, id int64) (bool, error) {
	res, err := d.Bun.NewDelete().Model((*models.Actor)(nil)).Where("id = ?", id).Exec(ctx)
	return affected(res, err)
}

// Theatre halls

func (d *DB) ListHalls(ctx context.Context) ([]models.TheatreHall, error) {
	halls := make([]models.TheatreHall, 0)
	err := d.Bun.NewSelect().Model(&halls).OrderExpr("hall.name ASC, hall.id ASC").Scan(ctx)
	return halls, err
}

func (d *DB) GetHall(ctx context.Context, id int64) (*models.TheatreHall, error) {
	var hall models.TheatreHall
	if err := d.Bun.NewSelect().Model(&hall).Where("hall.id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}
	return &hall, nil
}

func (d *DB) CreateHall(ctx context.Context, hall *models.TheatreHall) error {
	_, err := d.Bun.NewInsert().Model(hall).Exec(ctx)
	return err
}

// UpdateHall changes the geometry in place. Existing tickets are not
// re-validated; only future bookings see the new bounds.
func (d *DB) UpdateHall(ctx context.Context, hall *models.TheatreHall) (bool, error) {
	res, err := d.Bun.NewUpdate().Model(hall).Column("name", "rows", "seats_in_row").WherePK().Exec(ctx)
	return affected(res, err)
}

func (d *DB) DeleteHall(ctx context.Context, id int64) (bool, error) {
	res, err := d.Bun.NewDelete().Model((*models.TheatreHall)(nil)).Where("id = ?", id).Exec(ctx)
	return affected(res, err)
}

// Plays

func withPlayRelations(q *bun.SelectQuery) *bun.SelectQuery {
	return q.
		Relation("Genres", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("genre.name ASC")
		}).
		Relation("Actors", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("actor.last_name ASC, actor.first_name ASC")
		})
}

// ListPlays applies the filters with AND. Genre and actor membership go
// through IN subqueries on the join tables so a play matching several ids is
// still returned once.
func (d *DB) ListPlays(ctx context.Context, f models.PlayFilter) ([]models.Play, error) {
	plays := make([]models.Play, 0)
	q := withPlayRelations(d.Bun.NewSelect().Model(&plays)).OrderExpr("play.title ASC")

	if f.Title != "" {
		q = q.Where("LOWER(play.title) LIKE ? ESCAPE '!'", "%"+escapeLike(strings.ToLower(f.Title))+"%")
	}
	if len(f.GenreIDs) > 0 {
		sub := d.Bun.NewSelect().Model((*models.PlayGenre)(nil)).Column("play_id").Where("genre_id IN (?)", bun.In(f.GenreIDs))
		q = q.Where("play.id IN (?)", sub)
	}
	if len(f.ActorIDs) > 0 {
		sub := d.Bun.NewSelect().Model((*models.PlayActor)(nil)).Column("play_id").Where("actor_id IN (?)", bun.In(f.ActorIDs))
		q = q.Where("play.id IN (?)", sub)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return plays, nil
}

func (d *DB) GetPlay(ctx context.Context, idb bun.IDB, id int64) (*models.Play, error) {
	var play models.Play
	err := withPlayRelations(d.conn(idb).NewSelect().Model(&play)).
		Where("play.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &play, nil
}

func (d *DB) CreatePlay(ctx context.Context, idb bun.IDB, play *models.Play) error {
	_, err := d.conn(idb).NewInsert().Model(play).Exec(ctx)
	return err
}

func (d *DB) UpdatePlay(ctx context.Context, idb bun.IDB, play *models.Play) (bool, error) {
	res, err := d.conn(idb).NewUpdate().Model(play).Column("title", "description").WherePK().Exec(ctx)
	return affected(res, err)
}

func (d *DB) SetPlayImage(ctx context.Context, id int64, image string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Play)(nil)).
		Set("image = ?", image).
		Where("id = ?", id).
		Exec(ctx)
	return affected(res, err)
}

func (d *DB) DeletePlay(ctx context.Context, id int64) (bool, error) {
	res, err := d.Bun.NewDelete().Model((*models.Play)(nil)).Where("id = ?", id).Exec(ctx)
	return affected(res, err)
}

// ReplacePlayLinks rewrites the genre and actor membership of a play.
func (d *DB) ReplacePlayLinks(ctx context.Context, idb bun.IDB, playID int64, genreIDs, actorIDs []int64) error {
	conn := d.conn(idb)

	if _, err := conn.NewDelete().Model((*models.PlayGenre)(nil)).Where("play_id = ?", playID).Exec(ctx); err != nil {
		return err
	}
	if _, err := conn.NewDelete().Model((*models.PlayActor)(nil)).Where("play_id = ?", playID).Exec(ctx); err != nil {
		return err
	}

	if len(genreIDs) > 0 {
		links := make([]models.PlayGenre, 0, len(genreIDs))
		for _, id := range genreIDs {
			links = append(links, models.PlayGenre{PlayID: playID, GenreID: id})
		}
		if _, err := conn.NewInsert().Model(&links).Exec(ctx); err != nil {
			return err
		}
	}
	if len(actorIDs) > 0 {
		links := make([]models.PlayActor, 0, len(actorIDs))
		for _, id := range actorIDs {
			links = append(links, models.PlayActor{PlayID: playID, ActorID: id})
		}
		if _, err := conn.NewInsert().Model(&links).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Performances

func (d *DB) GetPerformance(ctx context.Context, id int64) (*models.Performance, error) {
	var perf models.Performance
	err := d.Bun.NewSelect().
		Model(&perf).
		Relation("Play").
		Relation("TheatreHall").
		Where("performance.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &perf, nil
}

func (d *DB) CreatePerformance(ctx context.Context, perf *models.Performance) error {
	_, err := d.Bun.NewInsert().Model(perf).Exec(ctx)
	return err
}

func (d *DB) UpdatePerformance(ctx context.Context, perf *models.Performance) (bool, error) {
	res, err := d.Bun.NewUpdate().Model(perf).Column("play_id", "theatre_hall_id", "show_time").WherePK().Exec(ctx)
	return affected(res, err)
}

func (d *DB) DeletePerformance(ctx context.Context, id int64) (bool, error) {
	res, err := d.Bun.NewDelete().Model((*models.Performance)(nil)).Where("id = ?", id).Exec(ctx)
	return affected(res, err)
}

func affected(res interface{ RowsAffected() (int64, error) }, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// '!' is the escape character because a backslash literal is itself an
// escape in MySQL strings.
var likeEscaper = strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
