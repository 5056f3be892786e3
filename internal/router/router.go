package router

import (
	"log"
	"net/http"

	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/config"
	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/database"
	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/handler"
	mw "github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/middleware"
	"github.com/LSLakshan/Smart-Canteen-Ordering-System/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up under
// /api. Public catalog reads sit outside the auth group; mutations and
// order routes require a bearer token, admin routes a DB-verified
// admin role on top.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // Vite dev server
			"http://localhost:3000",
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	foodItemHandler := handler.NewFoodItemHandler(queries)
	curryHandler := handler.NewCurryHandler(queries)

	scheduleService := service.NewScheduleService(pool, func(db database.DBTX) service.ScheduleStore {
		return database.New(db)
	})
	dailyMealHandler := handler.NewDailyMealHandler(queries, scheduleService)

	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})
	orderHandler := handler.NewOrderHandler(queries, orderService)

	r.Route("/api", func(r chi.Router) {
		// Auth routes (public)
		authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
		authHandler.RegisterRoutes(r)

		// Public catalog and schedule reads
		foodItemHandler.RegisterPublicRoutes(r)
		curryHandler.RegisterPublicRoutes(r)
		dailyMealHandler.RegisterPublicRoutes(r)

		// Protected routes (require authentication)
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))

			orderHandler.RegisterRoutes(r)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireAdmin(queries))

				foodItemHandler.RegisterAdminRoutes(r)
				curryHandler.RegisterAdminRoutes(r)
				dailyMealHandler.RegisterAdminRoutes(r)
				orderHandler.RegisterAdminRoutes(r)
			})
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
