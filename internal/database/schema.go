package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"ms-theatre/internal/models"
)

type foreignKey struct {
	column string
	table  string
}

type table struct {
	model       interface{}
	foreignKeys []foreignKey
	// positive lists integer columns constrained to values above zero.
	positive []string
}

// tables is ordered so every referenced table is created first.
var tables = []table{
	{model: (*models.User)(nil)},
	{model: (*models.Genre)(nil)},
	{model: (*models.Actor)(nil)},
	{model: (*models.TheatreHall)(nil), positive: []string{"rows", "seats_in_row"}},
	{model: (*models.Play)(nil)},
	{model: (*models.PlayGenre)(nil), foreignKeys: []foreignKey{
		{"play_id", "plays"}, {"genre_id", "genres"},
	}},
	{model: (*models.PlayActor)(nil), foreignKeys: []foreignKey{
		{"play_id", "plays"}, {"actor_id", "actors"},
	}},
	{model: (*models.Performance)(nil), foreignKeys: []foreignKey{
		{"play_id", "plays"}, {"theatre_hall_id", "theatre_halls"},
	}},
	{model: (*models.Reservation)(nil)},
	{model: (*models.Ticket)(nil), foreignKeys: []foreignKey{
		{"performance_id", "performances"}, {"reservation_id", "reservations"},
	}, positive: []string{"row", "seat"}},
}

// CreateSchema builds the schema from the models. Postgres deployments use the
// SQL migrations instead; this path serves SQLite, MySQL and tests. Every
// foreign key cascades on delete and the hall dimensions and seat coordinates
// carry the same CHECK constraints as the migrations.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, t := range tables {
		q := db.NewCreateTable().Model(t.model).IfNotExists()
		for _, col := range t.positive {
			q = q.ColumnExpr("CHECK (? > 0)", bun.Ident(col))
		}
		for _, fk := range t.foreignKeys {
			q = q.ForeignKey("(?) REFERENCES ? (?) ON DELETE CASCADE",
				bun.Ident(fk.column), bun.Ident(fk.table), bun.Ident("id"))
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", t.model, err)
		}
	}

	indexes := []struct {
		model   interface{}
		name    string
		columns []string
	}{
		{(*models.Performance)(nil), "performances_show_time_idx", []string{"show_time"}},
		{(*models.Ticket)(nil), "tickets_reservation_id_idx", []string{"reservation_id"}},
		{(*models.Reservation)(nil), "reservations_user_id_idx", []string{"user_id"}},
	}
	for _, idx := range indexes {
		if _, err := db.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.columns...).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// DropSchema removes every table in reverse dependency order.
func DropSchema(ctx context.Context, db *bun.DB) error {
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(tables[i].model).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("drop table for %T: %w", tables[i].model, err)
		}
	}
	return nil
}
