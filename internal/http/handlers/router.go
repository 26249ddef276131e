package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/clinicdesk/appointments/internal/domain"
	mw "github.com/clinicdesk/appointments/internal/http/middleware"
	pkgmw "github.com/clinicdesk/appointments/pkg/middleware"
)

type RouterOptions struct {
	// AuthRateLimit guards /register and /login when set.
	AuthRateLimit func(http.Handler) http.Handler
	// IdempotencyStore enables Idempotency-Key replay on POST /book when set.
	IdempotencyStore pkgmw.IdempotencyStore
}

func NewRouter(h *Handlers, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(pkgmw.RequestID)
	r.Use(pkgmw.ServiceName("appointments"))
	r.Use(pkgmw.Logging)
	r.Use(pkgmw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Public routes
	r.Group(func(r chi.Router) {
		if opts.AuthRateLimit != nil {
			r.Use(opts.AuthRateLimit)
		}
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
	})

	r.Get("/slots", h.ListSlots)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuth(h.config.Auth.JWTSecret))

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(domain.RolePatient))
			r.With(pkgmw.Idempotency(opts.IdempotencyStore)).Post("/book", h.Book)
			r.Get("/my-bookings", h.MyBookings)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(domain.RoleAdmin))
			r.Get("/all-bookings", h.AllBookings)
			r.Post("/admin/slots/generate", h.GenerateSlots)
		})
	})

	return r
}
