package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/thaicafe/pos-api/internal/config"
	"github.com/thaicafe/pos-api/internal/database"
	"github.com/thaicafe/pos-api/internal/enum"
	"github.com/thaicafe/pos-api/internal/events"
	"github.com/thaicafe/pos-api/internal/handler"
	mw "github.com/thaicafe/pos-api/internal/middleware"
	"github.com/thaicafe/pos-api/internal/service"
	"github.com/thaicafe/pos-api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
// guard may be nil when Redis is not configured.
func New(cfg *config.Config, pool *pgxpool.Pool, hub *ws.Hub, pub events.Publisher, guard service.SettlementGuard) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	queries := database.New(pool)

	// Services share one read store and open per-transaction stores on demand.
	orderService := service.NewOrderService(pool, queries,
		func(db database.DBTX) service.OrderStore { return database.New(db) }, pub)
	kitchenService := service.NewKitchenService(orderService)
	inventoryService := service.NewInventoryService(pool, queries,
		func(db database.DBTX) service.InventoryStore { return database.New(db) }, pub)
	memberService := service.NewMemberService(pool, queries,
		func(db database.DBTX) service.MemberStore { return database.New(db) })
	tableService := service.NewTableService(pool, queries,
		func(db database.DBTX) service.TableStore { return database.New(db) }, pub)
	paymentService := service.NewPaymentService(pool, queries,
		func(db database.DBTX) service.PaymentStore { return database.New(db) },
		service.PaymentConfig{
			PointsUnit:          cfg.PointsUnit,
			DeductStockOnSettle: cfg.DeductStockOnSettle,
		},
		guard, pub)
	receiptService := service.NewReceiptService(queries, service.MerchantConfig{
		Name: cfg.QRISMerchantName,
		City: cfg.QRISMerchantCity,
		ID:   cfg.QRISMerchantID,
	})
	reportService := service.NewReportService(queries)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/{room}", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	userHandler := handler.NewUserHandler(queries)
	categoryHandler := handler.NewCategoryHandler(queries)
	menuHandler := handler.NewMenuHandler(queries)
	recipeHandler := handler.NewRecipeHandler(queries)
	inventoryHandler := handler.NewInventoryHandler(inventoryService, queries)
	tableHandler := handler.NewTableHandler(tableService)
	orderHandler := handler.NewOrderHandler(orderService, inventoryService)
	paymentHandler := handler.NewPaymentHandler(paymentService, receiptService)
	kitchenHandler := handler.NewKitchenHandler(kitchenService)
	memberHandler := handler.NewMemberHandler(memberService)
	reportsHandler := handler.NewReportsHandler(reportService)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Staff accounts
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))
			r.Route("/users", userHandler.RegisterRoutes)
		})

		r.Route("/categories", func(r chi.Router) {
			categoryHandler.RegisterRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin))
				categoryHandler.RegisterAdminRoutes(r)
			})
		})

		r.Route("/menus", func(r chi.Router) {
			menuHandler.RegisterRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin))
				menuHandler.RegisterAdminRoutes(r)
			})

			// Bill of materials (nested under menus)
			r.Route("/{id}/recipes", func(r chi.Router) {
				recipeHandler.RegisterRoutes(r)
				r.Group(func(r chi.Router) {
					r.Use(mw.RequireRole(enum.UserRoleAdmin))
					recipeHandler.RegisterAdminRoutes(r)
				})
			})
		})

		r.Route("/ingredients", func(r chi.Router) {
			inventoryHandler.RegisterIngredientRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin))
				inventoryHandler.RegisterIngredientAdminRoutes(r)
			})
		})

		r.Route("/stock-logs", func(r chi.Router) {
			inventoryHandler.RegisterStockLogRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleKitchen))
				inventoryHandler.RegisterStockLogWriteRoutes(r)
			})
		})

		r.Route("/tables", func(r chi.Router) {
			tableHandler.RegisterRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin))
				tableHandler.RegisterAdminRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleWaiter, enum.UserRoleCashier))
				tableHandler.RegisterStatusRoutes(r)
			})
		})

		// Orders, with payment endpoints beside them
		r.Route("/orders", func(r chi.Router) {
			orderHandler.RegisterRoutes(r)
			paymentHandler.RegisterRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleWaiter, enum.UserRoleCashier))
				orderHandler.RegisterStatusRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin))
				orderHandler.RegisterAdminRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleCashier, enum.UserRoleAdmin))
				paymentHandler.RegisterSettleRoutes(r)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleKitchen, enum.UserRoleAdmin))
			r.Route("/kitchen/tickets", kitchenHandler.RegisterRoutes)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleCashier, enum.UserRoleAdmin))
			r.Route("/members", memberHandler.RegisterRoutes)
			r.Route("/payments", paymentHandler.RegisterHistoryRoutes)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin))
				reportsHandler.RegisterRoutes(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleCashier, enum.UserRoleAdmin))
				reportsHandler.RegisterCashierRoutes(r)
			})
		})
	})

	log.Println("Router initialized with all handlers")

	return r
}
