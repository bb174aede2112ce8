package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/uptrace/bun"

	"ms-theatre/internal/auth"
	"ms-theatre/internal/cache"
	"ms-theatre/internal/catalog"
	"ms-theatre/internal/catalog/catalog_api"
	catalog_db "ms-theatre/internal/catalog/db"
	"ms-theatre/internal/config"
	"ms-theatre/internal/database"
	"ms-theatre/internal/logger"
	"ms-theatre/internal/media"
	"ms-theatre/internal/reservation"
	reservation_db "ms-theatre/internal/reservation/db"
	"ms-theatre/internal/reservation/reservation_api"
	ticket_db "ms-theatre/internal/tickets/db"
	qr "ms-theatre/internal/tickets/qr_generator"
	tickets "ms-theatre/internal/tickets/service"
	"ms-theatre/internal/tickets/template"
	"ms-theatre/internal/tickets/ticket_api"
	"ms-theatre/internal/users"
	user_db "ms-theatre/internal/users/db"
	"ms-theatre/internal/users/user_api"
	"ms-theatre/internal/utils"
)

type app struct {
	db           *bun.DB
	cfg          *config.Config
	log          *logger.Logger
	verifier     auth.TokenVerifier
	catalog      *catalog.CatalogService
	reservations *reservation.ReservationService
	tickets      *tickets.TicketService
	users        *users.UserService
}

// newApp wires the services on top of an open database. Optional
// infrastructure (cache, event publisher, OIDC) is passed in already built.
func newApp(bunDB *bun.DB, cfg *config.Config, c cache.Cache, events reservation.EventPublisher, store media.Storage, verifier auth.TokenVerifier, jwtManager *auth.JWTManager, log *logger.Logger) *app {
	ticketService := tickets.NewTicketService(&ticket_db.DB{Bun: bunDB}, qr.NewQRGenerator(cfg.Auth.QRKey), log)
	return &app{
		db:           bunDB,
		cfg:          cfg,
		log:          log,
		verifier:     verifier,
		tickets:      ticketService,
		catalog:      catalog.NewCatalogService(&catalog_db.DB{Bun: bunDB}, bunDB, ticketService, c, store, log),
		reservations: reservation.NewReservationService(bunDB, &reservation_db.DB{Bun: bunDB}, ticketService, events, log),
		users:        users.NewUserService(&user_db.DB{Bun: bunDB}, jwtManager, log),
	}
}

func (a *app) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(utils.RequestLogger(a.log))

	r.Get("/healthz", a.health)

	if a.cfg.Media.Backend == "local" && strings.HasPrefix(a.cfg.Media.BaseURL, "/") {
		prefix := strings.TrimRight(a.cfg.Media.BaseURL, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(a.cfg.Media.Dir))))
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.Authenticate(a.verifier, a.log))

		r.Mount("/api/user", user_api.NewHandler(a.users).Routes())
		r.Route("/api/theatre", func(r chi.Router) {
			catalog_api.NewHandler(a.catalog).Mount(r)
			reservation_api.NewHandler(a.reservations, a.cfg.Pagination).Mount(r)
			ticket_api.NewHandler(a.tickets, template.NewTicketPDFGenerator()).Mount(r)
		})
	})
	return r
}

func (a *app) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := a.db.PingContext(ctx); err != nil {
		a.log.Error("HEALTH", fmt.Sprintf("database ping failed: %v", err))
		utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse("unhealthy", "database unreachable"))
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("ok", map[string]string{"database": "up"}))
}

// prepareSchema migrates Postgres through golang-migrate. SQLite and MySQL get
// the schema straight from the models.
func prepareSchema(ctx context.Context, bunDB *bun.DB, cfg config.DatabaseConfig, log *logger.Logger) error {
	if !cfg.AutoMigrate {
		return nil
	}
	if !database.UsesMigrations(cfg.Driver) {
		return database.CreateSchema(ctx, bunDB)
	}
	return runMigrations(bunDB, cfg.Seed, log)
}
