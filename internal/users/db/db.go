package db

import (
	"context"

	"github.com/uptrace/bun"

	"ms-theatre/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateUser(ctx context.Context, user *models.User) error {
	_, err := d.Bun.NewInsert().Model(user).Exec(ctx)
	return err
}

func (d *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := d.Bun.NewSelect().Model(&user).Where("LOWER(u.email) = LOWER(?)", email).Scan(ctx); err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := d.Bun.NewSelect().Model(&user).Where("u.id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}
	return &user, nil
}

// SetStaff flips the staff flag; it is only reachable from the migrate CLI.
func (d *DB) SetStaff(ctx context.Context, id string, staff bool) error {
	_, err := d.Bun.NewUpdate().Model((*models.User)(nil)).Set("is_staff = ?", staff).Where("id = ?", id).Exec(ctx)
	return err
}
