package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-sales-tracker/internal/email"
	"go-sales-tracker/internal/handler"
	"go-sales-tracker/internal/middleware"
	"go-sales-tracker/internal/model"
	"go-sales-tracker/internal/queue"
	"go-sales-tracker/internal/repository"
	"go-sales-tracker/internal/scheduler"
	"go-sales-tracker/internal/service"
	"go-sales-tracker/internal/ws"
	"go-sales-tracker/pkg/database"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	zlog, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to init logger:", err)
	}
	defer zlog.Sync()

	// 2. Setup Database
	db := database.ConnectDB()
	db.AutoMigrate(&model.User{}, &model.Product{}, &model.Sale{})

	// 3. Seed default admin user
	seedAdmin(db)

	// 4. Setup WebSocket Hub and Notification Queue
	wsHub := ws.NewHub()
	go wsHub.Run()

	mailer := email.NewSMTPMailer(zlog)
	emailQueue := queue.New(mailer, zlog)
	go emailQueue.Run()

	// 5. Dependency Injection (Wiring Layers)
	userRepo := repository.NewUserRepo(db)
	productRepo := repository.NewProductRepo(db)
	saleRepo := repository.NewSaleRepo(db)

	authService := service.NewAuthService(userRepo, zlog)
	userService := service.NewUserService(userRepo)
	productService := service.NewProductService(productRepo)
	salesService := service.NewSalesService(
		saleRepo, productRepo, userRepo, emailQueue, wsHub, commissionRate(), zlog)

	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	productHandler := handler.NewProductHandler(productService)
	saleHandler := handler.NewSaleHandler(salesService)

	// 6. Setup Periodic Trigger (day 15, noon)
	cronJobs := scheduler.New(zlog)
	if err := cronJobs.RegisterMonthlyCommissionReport(salesService.SendUnpaidCommissionByEmail); err != nil {
		zlog.Fatal("failed to register monthly report job", zap.Error(err))
	}
	cronJobs.Start()

	// 7. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Sales Tracker v1.0",
	})

	// Middleware
	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	// 8. Routes
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(userRepo))

	// Sales Routes (commission engine surface)
	protected.Post("/sales", saleHandler.CreateSale)
	protected.Get("/sales/user", saleHandler.GetUserSales)
	protected.Get("/sales/user/grouped", saleHandler.GetGroupedUnpaidCommission)
	protected.Get("/sales/user/date", saleHandler.GetUserSalesByDate)
	protected.Get("/sales/email", saleHandler.SendSalesReport)
	protected.Post("/sales/commissions/paid", saleHandler.MarkCommissionsPaid)
	protected.Get("/sales/:id", saleHandler.GetSale)
	protected.Put("/sales/:id", saleHandler.UpdateSale)

	// Product Routes
	protected.Get("/products", productHandler.GetProducts)
	protected.Post("/products", productHandler.CreateProduct)
	protected.Get("/products/:id", productHandler.GetProduct)
	protected.Put("/products/:id", productHandler.UpdateProduct)
	protected.Delete("/products/:id", productHandler.DeleteProduct)

	// User Routes
	protected.Get("/users", userHandler.GetUsers)
	protected.Get("/users/:id", userHandler.GetUser)
	protected.Put("/users/:id", userHandler.UpdateUser)
	protected.Delete("/users/:id", userHandler.DeleteUser)

	// WebSocket Route (live sale events)
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() { wsHub.Unregister <- c }()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 9. Graceful Shutdown
	go func() {
		port := os.Getenv("PORT")
		if port == "" {
			port = "3000"
		}
		if err := app.Listen(":" + port); err != nil {
			log.Panic(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}
	cronJobs.Stop()
	emailQueue.Close()

	log.Println("Server exited")
}

// commissionRate reads the configured fraction, e.g. 0.05
func commissionRate() decimal.Decimal {
	raw := os.Getenv("SALES_COMMISSION_PERCENTAGE")
	if raw == "" {
		raw = "0.05"
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		log.Fatalf("Invalid SALES_COMMISSION_PERCENTAGE %q: %v", raw, err)
	}
	return rate
}

// seedAdmin creates the default admin user if it doesn't exist
func seedAdmin(db *gorm.DB) {
	userRepo := repository.NewUserRepo(db)

	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = "admin@example.com"
	}

	if _, err := userRepo.FindByEmail(email); err == nil {
		return
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}

	admin := &model.User{
		Name:     "Administrator",
		Email:    email,
		UserType: model.UserTypeAdmin,
	}
	if err := admin.SetPassword(password); err != nil {
		log.Printf("Warning: Failed to hash admin password: %v", err)
		return
	}

	if err := userRepo.Create(admin); err != nil {
		log.Printf("Warning: Failed to create admin user: %v", err)
	} else {
		log.Printf("Admin user created: %s", email)
	}
}
