package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/uptrace/bun"

	"ms-theatre/internal/auth"
	"ms-theatre/internal/config"
	"ms-theatre/internal/database"
	"ms-theatre/internal/database/migrations"
	"ms-theatre/internal/logger"
	"ms-theatre/internal/users"
	user_db "ms-theatre/internal/users/db"
)

const usage = `usage: migrate [flags] <up|down|goto N|version>

  up       apply schema migrations (and demo data with -seed)
  down     roll back every migration
  goto N   migrate up or down to version N
  version  print the current schema version

flags:
`

func main() {
	_ = godotenv.Load()

	seed := flag.Bool("seed", false, "also apply the demo catalog data")
	admin := flag.String("create-admin", "", "create or promote a staff account, as email:password")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	command := flag.Arg(0)
	if command == "" && *admin == "" {
		flag.Usage()
		os.Exit(2)
	}

	log := logger.New(os.Stdout)
	if err := run(context.Background(), config.Load(), command, *seed, *admin, log); err != nil {
		log.Error("MIGRATE", err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, command string, seed bool, admin string, log *logger.Logger) error {
	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer bunDB.Close()

	if command != "" {
		if err := migrateCommand(ctx, bunDB, cfg.Database.Driver, command, flag.Arg(1), seed, log); err != nil {
			return err
		}
	}
	if admin != "" {
		return createAdmin(ctx, bunDB, cfg.Auth, admin, log)
	}
	return nil
}

func migrateCommand(ctx context.Context, bunDB *bun.DB, driver, command, arg string, seed bool, log *logger.Logger) error {
	if !database.UsesMigrations(driver) {
		switch command {
		case "up":
			return database.CreateSchema(ctx, bunDB)
		case "down":
			return database.DropSchema(ctx, bunDB)
		case "version":
			log.Info("MIGRATE", fmt.Sprintf("%s schema is created from models and carries no version", driver))
			return nil
		}
		return fmt.Errorf("unknown command %q", command)
	}

	opts := migrations.DefaultOptions()
	opts.SeedData = seed
	runner := migrations.NewRunner(bunDB, opts, log)
	if err := runner.Initialize(); err != nil {
		return err
	}
	defer runner.Close()

	switch command {
	case "up":
		return runner.RunMigrations()
	case "down":
		return runner.MigrateDown()
	case "goto":
		version, err := strconv.ParseUint(arg, 10, 32)
		if err != nil {
			return fmt.Errorf("goto expects a version number, got %q", arg)
		}
		return runner.MigrateTo(uint(version))
	case "version":
		version, dirty, err := runner.Version()
		if err != nil {
			return err
		}
		log.Info("MIGRATE", fmt.Sprintf("version=%d dirty=%t", version, dirty))
		return nil
	}
	return fmt.Errorf("unknown command %q", command)
}

func createAdmin(ctx context.Context, bunDB *bun.DB, cfg config.AuthConfig, credentials string, log *logger.Logger) error {
	email, password, ok := strings.Cut(credentials, ":")
	if !ok || email == "" || password == "" {
		return errors.New("-create-admin expects email:password")
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.Issuer, cfg.TokenTTL)
	svc := users.NewUserService(&user_db.DB{Bun: bunDB}, jwtManager, log)
	user, err := svc.EnsureAdmin(ctx, email, password)
	if err != nil {
		return err
	}
	log.Info("MIGRATE", fmt.Sprintf("Staff account ready: %s (%s)", user.Email, user.ID))
	return nil
}
