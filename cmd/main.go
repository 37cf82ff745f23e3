package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ai-websenor/ai-job-portal-sub001/internal/config"
	"github.com/ai-websenor/ai-job-portal-sub001/internal/handler"
	"github.com/ai-websenor/ai-job-portal-sub001/internal/handler/middleware"
	"github.com/ai-websenor/ai-job-portal-sub001/internal/jobs"
	"github.com/ai-websenor/ai-job-portal-sub001/internal/repository/postgres"
	"github.com/ai-websenor/ai-job-portal-sub001/internal/service"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/blacklist"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/identity"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/jwt"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/notifier"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/otp"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/storage"
	"github.com/ai-websenor/ai-job-portal-sub001/pkg/validator"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database connection: %v", err)
		}
	}()
	log.Println("✓ Database connection established")

	// Initialize Redis client
	redisClient, err := initRedis(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing Redis connection: %v", err)
		}
	}()
	log.Println("✓ Redis connection established")

	// Initialize validator
	validate := validator.NewValidator()

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	companyRepo := postgres.NewCompanyRepository(db)
	employerRepo := postgres.NewEmployerRepository(db)

	// Initialize JWT token service
	tokenService, err := jwt.NewTokenService(
		cfg.JWT.AccessSecret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessExpiry,
		cfg.JWT.RefreshExpiry,
		cfg.JWT.Issuer,
	)
	if err != nil {
		log.Fatalf("Failed to initialize token service: %v", err)
	}

	// Access token verification is either local or delegated to a JWKS
	// endpoint, depending on deployment topology.
	var tokenVerifier jwt.Verifier = tokenService
	if cfg.JWT.VerifierMode == "jwks" {
		tokenVerifier, err = jwt.NewJWKSVerifier(cfg.JWT.JWKSURL)
		if err != nil {
			log.Fatalf("Failed to initialize JWKS verifier: %v", err)
		}
		log.Printf("✓ JWKS verifier initialized - %s", cfg.JWT.JWKSURL)
	}

	// Initialize token blacklist service
	tokenBlacklist := blacklist.NewTokenBlacklist(redisClient)
	log.Println("✓ Token blacklist service initialized")

	// Initialize OTP engine
	otpEngine := otp.NewEngine(redisClient, otp.Config{
		Expiry:         cfg.OTP.Expiry,
		ResendInterval: cfg.OTP.ResendInterval,
		RateWindow:     cfg.OTP.RateWindow,
		MaxPerWindow:   cfg.OTP.MaxPerWindow,
		MaxAttempts:    cfg.OTP.MaxAttempts,
		FixedCode:      cfg.Server.IsDev(),
	})

	// Initialize notifiers
	var emailNotifier notifier.Notifier = notifier.Noop{}
	if cfg.Email.Enabled {
		emailNotifier, err = notifier.NewEmailNotifier(cfg.Email.APIKey, cfg.Email.FromEmail, cfg.Email.FromName)
		if err != nil {
			log.Printf("Warning: Failed to initialize email notifier: %v", err)
			emailNotifier = notifier.Noop{}
		} else {
			log.Println("✓ Email notifier initialized (Resend)")
		}
	} else {
		log.Println("ℹ Email delivery disabled (set EMAIL_ENABLED=true to enable)")
	}

	var smsNotifier notifier.Notifier = notifier.Noop{}
	if cfg.Twilio.AccountSID != "" {
		smsNotifier, err = notifier.NewSMSNotifier(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber)
		if err != nil {
			log.Printf("Warning: Failed to initialize SMS notifier: %v", err)
			smsNotifier = notifier.Noop{}
		} else {
			log.Println("✓ SMS notifier initialized (Twilio)")
		}
	} else {
		log.Println("ℹ SMS delivery disabled (set TWILIO_ACCOUNT_SID to enable)")
	}

	// Identity provider for the onboarding wizard
	var identityProvider identity.Provider
	if cfg.Identity.Enabled {
		identityProvider = identity.NewLocalProvider()
		log.Println("✓ Identity provider initialized")
	}

	// Object storage for KYC documents
	objectStorage := storage.NewLocalStorage(cfg.Storage.PublicURL)

	// Initialize services
	sessionService := service.NewSessionService(sessionRepo, cfg.Session.MaxConcurrent, cfg.Session.Expiry)
	authService := service.NewAuthService(userRepo, sessionService, tokenService, tokenVerifier, otpEngine, tokenBlacklist, emailNotifier)
	registrationService := service.NewRegistrationService(
		redisClient,
		userRepo,
		employerRepo,
		companyRepo,
		sessionService,
		tokenService,
		identityProvider,
		objectStorage,
		smsNotifier,
		emailNotifier,
		cfg,
	)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, validate)
	registrationHandler := handler.NewRegistrationHandler(registrationService, validate)
	sessionHandler := handler.NewSessionHandler(sessionService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "AI Job Portal Auth Service v1.0",
		ErrorHandler: customErrorHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	// Setup global middlewares
	app.Use(middleware.RecoveryMiddleware())
	app.Use(middleware.LoggerMiddleware())
	app.Use(middleware.CORSMiddleware())

	authMiddleware := middleware.AuthMiddleware(tokenVerifier, tokenBlacklist)

	// Setup routes
	handler.SetupRoutes(
		app,
		authHandler,
		registrationHandler,
		sessionHandler,
		healthHandler,
		authMiddleware,
	)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Start background session cleanup
	cleanup := jobs.NewSessionCleanup(sessionService, cfg.Session.SweepInterval)
	go cleanup.Start(ctx)

	// Start server in goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.Printf("🚀 Server starting on http://localhost%s", addr)
		log.Printf("📝 Environment: %s", cfg.Server.Environment)
		if err := app.Listen(addr); err != nil {
			log.Printf("❌ Server failed to start: %v", err)
			stop()
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	log.Println("⏳ Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✓ Server stopped")
}

// initDB initializes PostgreSQL database connection with retry logic
func initDB(cfg *config.Config) (*sqlx.DB, error) {
	dsn := cfg.Database.DSN()

	var db *sqlx.DB
	var err error

	maxRetries := 5
	retryInterval := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			break
		}

		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryInterval)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("Error closing database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// initRedis initializes Redis client and verifies connection
func initRedis(cfg *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			log.Printf("Error closing Redis after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}

// customErrorHandler handles Fiber errors
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	log.Printf("Error handling request [%s %s]: %v", c.Method(), c.Path(), err)

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
