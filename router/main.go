package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnhub-api/config"
	"github.com/sahilchouksey/learnhub-api/database"
	"github.com/sahilchouksey/learnhub-api/handlers"
	admin_handlers "github.com/sahilchouksey/learnhub-api/handlers/admin"
	auth_handlers "github.com/sahilchouksey/learnhub-api/handlers/auth"
	changes_handlers "github.com/sahilchouksey/learnhub-api/handlers/changes"
	collection_handlers "github.com/sahilchouksey/learnhub-api/handlers/collection"
	course_handlers "github.com/sahilchouksey/learnhub-api/handlers/course"
	discount_handlers "github.com/sahilchouksey/learnhub-api/handlers/discount"
	notification_handlers "github.com/sahilchouksey/learnhub-api/handlers/notification"
	order_handlers "github.com/sahilchouksey/learnhub-api/handlers/order"
	product_handlers "github.com/sahilchouksey/learnhub-api/handlers/product"
	"github.com/sahilchouksey/learnhub-api/model"
	"github.com/sahilchouksey/learnhub-api/services"
	"github.com/sahilchouksey/learnhub-api/services/discount"
	"github.com/sahilchouksey/learnhub-api/services/events"
	"github.com/sahilchouksey/learnhub-api/utils/auth"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"github.com/sahilchouksey/learnhub-api/utils/middleware"
)

// Dependencies are the long-lived collaborators the routes are built from
type Dependencies struct {
	Env        *config.EnviornmentVariable
	Log        *logger.Logger
	Store      *database.GORMStore
	JWT        *auth.JWTManager
	Blacklist  *auth.BlacklistService
	BruteForce *middleware.BruteForceProtection // nil without Redis
	Hub        *events.Hub
	Notifier   events.Notifier

	Users         *services.UserService
	Courses       *services.CourseService
	Progress      *services.ProgressService
	Certificates  *services.CertificateService
	Products      *services.ProductService
	Orders        *services.OrderService
	Notifications *services.NotificationService
	Presets       *discount.PresetService
	Promos        *discount.PromoService
}

func SetupRoutes(app *fiber.App, d Dependencies) {
	db := d.Store.DB()

	authMiddleware := middleware.NewAuthMiddleware(d.JWT, db, d.Log)
	required := authMiddleware.Required()
	optional := authMiddleware.Optional()
	staff := middleware.RequireStaff()
	adminClaim := middleware.RequireAdminClaim()
	audit := func(action, resource string) fiber.Handler {
		return middleware.AuditLog(db, d.Log, action, resource)
	}

	authHandler := auth_handlers.NewAuthHandler(d.Users, d.JWT, d.Blacklist, d.BruteForce, d.Log)
	courseHandler := course_handlers.NewCourseHandler(d.Courses, d.Progress, d.Certificates, d.Log)
	productHandler := product_handlers.NewProductHandler(d.Products)
	orderHandler := order_handlers.NewOrderHandler(d.Orders)
	discountHandler := discount_handlers.NewDiscountHandler(d.Presets, d.Promos, d.Log)
	notificationHandler := notification_handlers.NewNotificationHandler(d.Notifications)
	adminHandler := admin_handlers.NewAdminHandler(d.Users, d.Notifications, db)
	changesHandler := changes_handlers.NewChangesHandler(d.Hub, d.Log)
	healthHandler := handlers.NewHealthHandler(d.Store)

	accessLevelHandler := collection_handlers.NewHandler(
		database.NewRepository[model.AccessLevel](db, events.AccessLevels, "name"),
		d.Notifier, d.Log, func(a *model.AccessLevel) uint { return a.ID })
	currencyHandler := collection_handlers.NewHandler(
		database.NewRepository[model.Currency](db, events.Currencies, "code"),
		d.Notifier, d.Log, func(c *model.Currency) uint { return c.ID })
	timerHandler := collection_handlers.NewHandler(
		database.NewRepository[model.Timer](db, events.Timers, "ends_at", "title"),
		d.Notifier, d.Log, func(t *model.Timer) uint { return t.ID })

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    d.Env.ALLOWED_ORIGINS,
		RateLimitRequests: 100,             // 100 requests
		RateLimitWindow:   1 * time.Minute, // per minute
	})

	// Health check endpoints (public)
	app.Get("/ping", healthHandler.Ping)
	app.Get("/health", healthHandler.Health)

	// API v1 group
	api := app.Group("/api/v1")

	// Auth routes
	authGroup := api.Group("/auth")
	if d.BruteForce != nil {
		authGroup.Post("/login", d.BruteForce.Check(), authHandler.Login)
	} else {
		authGroup.Post("/login", authHandler.Login)
	}
	authGroup.Post("/refresh", authHandler.RefreshToken)
	authGroup.Post("/logout", required, authHandler.Logout)
	authGroup.Get("/me", required, authHandler.Me)

	// Courses: metadata is public, content needs access
	courses := api.Group("/courses")
	courses.Get("/", courseHandler.ListCourses)
	courses.Get("/:id", courseHandler.GetCourse)
	courses.Get("/:id/outline", required, courseHandler.GetOutline)
	courses.Get("/:id/progress", required, courseHandler.GetProgress)
	courses.Get("/:id/stream", required, courseHandler.StreamLocks)
	courses.Get("/:id/certificate", required, courseHandler.GetCertificate)
	courses.Post("/:id/modules/:key/lessons/:index/toggle", required, courseHandler.ToggleLesson)

	// Catalog authoring (moderator or admin)
	courses.Post("/", required, staff, audit("course_create", "courses"), courseHandler.CreateCourse)
	courses.Post("/import", required, staff, audit("course_import", "courses"), courseHandler.ImportCourse)
	courses.Put("/:id", required, staff, audit("course_update", "courses"), courseHandler.UpdateCourse)
	courses.Delete("/:id", required, staff, audit("course_delete", "courses"), courseHandler.DeleteCourse)
	courses.Post("/:id/modules", required, staff, audit("module_create", "courses"), courseHandler.AddModule)
	courses.Put("/:id/modules/:key", required, staff, audit("module_update", "courses"), courseHandler.UpdateModule)
	courses.Post("/:id/modules/:key/lessons", required, staff, audit("lesson_create", "courses"), courseHandler.AddLesson)
	courses.Delete("/:id/modules/:key/lessons/:index", required, staff, audit("lesson_delete", "courses"), courseHandler.RemoveLesson)
	courses.Post("/:id/modules/:key/lessons/:index/handout", required, staff, audit("handout_upload", "courses"), courseHandler.UploadHandout)

	// Products
	products := api.Group("/products")
	products.Get("/", optional, productHandler.ListProducts)
	products.Get("/:id", productHandler.GetProduct)
	products.Post("/", required, staff, audit("product_create", "products"), productHandler.CreateProduct)
	products.Put("/:id", required, staff, audit("product_update", "products"), productHandler.UpdateProduct)
	products.Delete("/:id", required, staff, audit("product_delete", "products"), productHandler.DeleteProduct)

	// Discount presets (moderator or admin)
	presets := api.Group("/discount-presets", required, staff)
	presets.Get("/", discountHandler.ListPresets)
	presets.Get("/:id", discountHandler.GetPreset)
	presets.Post("/", audit("preset_create", "discountPresets"), discountHandler.CreatePreset)
	presets.Put("/:id", audit("preset_update", "discountPresets"), discountHandler.UpdatePreset)
	presets.Delete("/:id", audit("preset_delete", "discountPresets"), discountHandler.DeletePreset)
	presets.Post("/:id/activate", audit("preset_activate", "discountPresets"), discountHandler.ActivatePreset)
	presets.Post("/:id/deactivate", audit("preset_deactivate", "discountPresets"), discountHandler.DeactivatePreset)

	// Promo codes: checking is open to any signed-in user
	api.Post("/promo-codes/check", required, discountHandler.CheckPromo)
	promos := api.Group("/promo-codes", required, staff)
	promos.Get("/", discountHandler.ListPromos)
	promos.Get("/:id", discountHandler.GetPromo)
	promos.Post("/", audit("promo_create", "promoCodes"), discountHandler.CreatePromo)
	promos.Put("/:id", audit("promo_update", "promoCodes"), discountHandler.UpdatePromo)
	promos.Delete("/:id", audit("promo_delete", "promoCodes"), discountHandler.DeletePromo)

	// Orders
	orders := api.Group("/orders", required)
	orders.Post("/", orderHandler.Checkout)
	orders.Get("/", orderHandler.ListOrders)

	// Notifications
	notifications := api.Group("/notifications", required)
	notifications.Get("/", notificationHandler.GetNotifications)
	notifications.Get("/unread-count", notificationHandler.GetUnreadCount)
	notifications.Post("/read-all", notificationHandler.MarkAllAsRead)
	notifications.Post("/:id/read", notificationHandler.MarkAsRead)
	notifications.Delete("/:id", notificationHandler.DeleteNotification)

	// Simple collections: reads for signed-in users, writes for staff
	collections := []struct {
		path     string
		resource string
		list     fiber.Handler
		get      fiber.Handler
		create   fiber.Handler
		update   fiber.Handler
		remove   fiber.Handler
	}{
		{"/access-levels", events.AccessLevels, accessLevelHandler.List, accessLevelHandler.Get, accessLevelHandler.Create, accessLevelHandler.Update, accessLevelHandler.Delete},
		{"/currencies", events.Currencies, currencyHandler.List, currencyHandler.Get, currencyHandler.Create, currencyHandler.Update, currencyHandler.Delete},
		{"/timers", events.Timers, timerHandler.List, timerHandler.Get, timerHandler.Create, timerHandler.Update, timerHandler.Delete},
	}
	for _, col := range collections {
		group := api.Group(col.path)
		group.Get("/", required, col.list)
		group.Get("/:id", required, col.get)
		group.Post("/", required, staff, audit(col.resource+"_create", col.resource), col.create)
		group.Put("/:id", required, staff, audit(col.resource+"_update", col.resource), col.update)
		group.Delete("/:id", required, staff, audit(col.resource+"_delete", col.resource), col.remove)
	}

	// Change feed
	api.Get("/changes", required, changesHandler.Stream)

	// Admin console
	admin := api.Group("/admin", required, staff)
	admin.Get("/users", adminHandler.ListUsers)
	admin.Get("/users/:id", adminHandler.GetUser)
	admin.Post("/users", adminClaim, audit("user_create", "users"), adminHandler.CreateUser)
	admin.Put("/users/:id", audit("user_update", "users"), adminHandler.UpdateUser)
	admin.Delete("/users/:id", adminClaim, audit("user_delete", "users"), adminHandler.DeleteUser)
	admin.Put("/users/:id/courses/:course_id", audit("access_assign", "users"), adminHandler.AssignAccess)
	admin.Post("/notifications", audit("notification_broadcast", "notifications"), adminHandler.Broadcast)
	admin.Get("/audit-logs", adminHandler.ListAuditLogs)
	admin.Get("/audit-logs/:id", adminHandler.GetAuditLog)
}
