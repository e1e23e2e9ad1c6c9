package main

import (
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/stripe/stripe-go/v72"

	"resale-api/internal/api/controllers"
	"resale-api/internal/api/handlers"
	"resale-api/internal/config"
	"resale-api/internal/db"
	"resale-api/internal/logger"
	"resale-api/internal/middleware"
	"resale-api/internal/repository"
	"resale-api/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")

	// Initialize database connection
	database, err := db.InitDB()
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Get underlying *sql.DB instance for connection pool settings
	sqlDB, err := database.DB()
	if err != nil {
		log.Fatal("Failed to get underlying *sql.DB instance:", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	// Initialize repositories
	userRepo := repository.NewUserRepository(database)
	profileRepo := repository.NewProfileRepository(database)
	evaluationRepo := repository.NewEvaluationRepository(database)
	requestLogRepo := repository.NewRequestLogRepository(database)
	adminTokenRepo := repository.NewAdminTokenRepository(database)

	// Initialize services
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	authService := services.NewAuthService(userRepo, profileRepo, jwtSecret)
	usageService := services.NewUsageService(profileRepo, config.NewPlanLimitConfig())
	requestLogService := services.NewRequestLogService(requestLogRepo)
	adminTokenService := services.NewAdminTokenService(adminTokenRepo)

	cacheConfig := config.NewCacheConfig()
	var cacheService services.CacheService
	if os.Getenv("REDIS_ENABLED") == "true" {
		redisCache, err := services.NewRedisCacheService(cacheConfig)
		if err != nil {
			log.Printf("Warning: cache disabled: %v", err)
		} else {
			cacheService = redisCache
		}
	}

	evaluatorConfig := config.NewEvaluatorConfig()
	var dealClient services.DealClient
	if evaluatorConfig.MockMode || evaluatorConfig.GroqAPIKey == "" {
		log.Println("No model provider configured, running evaluations in mock mode")
		dealClient = services.NewMockDealClient()
	} else {
		dealClient = services.NewGroqClient(evaluatorConfig)
	}

	storageService, err := services.NewS3StorageService()
	if err != nil {
		log.Printf("Warning: screenshot archive disabled: %v", err)
	}

	evaluatorService := services.NewEvaluatorService(
		dealClient,
		services.LoadReferencePrices(evaluatorConfig.ReferencePricesPath),
		evaluationRepo,
		usageService,
		services.NewImageService(),
		storageService,
		cacheService,
		cacheConfig.DefaultTTL,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	evaluateHandler := handlers.NewEvaluateHandler(evaluatorService)
	imageHandler := handlers.NewImageEvaluateHandler(evaluatorService)
	profileHandler := handlers.NewProfileHandler(usageService, authService)
	stripeHandler := handlers.NewStripeHandler(authService, profileRepo)
	adminHandler := handlers.NewAdminHandler(usageService, requestLogService)

	adminToken, err := adminTokenService.GetOrCreateAdminToken()
	if err != nil {
		log.Fatal("Failed to issue admin token:", err)
	}
	logger.Logger.WithField("token", adminToken).Info("Admin token for maintenance endpoints")

	// Initialize router
	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware)

	// Public routes
	router.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	router.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	router.HandleFunc("/api/health", controllers.HealthCheckHandler(database, evaluatorConfig.BaseURL+"/models")).Methods("GET")
	router.HandleFunc("/stripe/webhook", stripeHandler.HandleStripeWebhook).Methods("POST")

	authMiddleware := middleware.AuthMiddleware(authService)
	quotaMiddleware := middleware.QuotaMiddleware(usageService)
	requestLogger := middleware.NewRequestLogger(requestLogService)

	router.Handle("/auth/validate", authMiddleware(http.HandlerFunc(authHandler.ValidateToken))).Methods("GET")

	// API routes (protected)
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(authMiddleware)
	apiRouter.Use(requestLogger.LogRequest)

	apiRouter.Handle("/evaluate", quotaMiddleware(http.HandlerFunc(evaluateHandler.Evaluate))).Methods("POST")
	apiRouter.Handle("/evaluate-image", quotaMiddleware(http.HandlerFunc(imageHandler.EvaluateImage))).Methods("POST")
	apiRouter.HandleFunc("/evaluations", evaluateHandler.ListEvaluations).Methods("GET")
	apiRouter.HandleFunc("/evaluations/{id}", evaluateHandler.GetEvaluation).Methods("GET")
	apiRouter.HandleFunc("/profile", profileHandler.GetProfile).Methods("GET")
	apiRouter.HandleFunc("/usage", profileHandler.GetCurrentUsage).Methods("GET")
	apiRouter.HandleFunc("/billing/checkout", stripeHandler.HandleCreateCheckout).Methods("POST")

	// Maintenance routes (admin token)
	adminRouter := router.PathPrefix("/admin").Subrouter()
	adminRouter.Use(middleware.AdminTokenMiddleware(adminTokenService))
	adminRouter.HandleFunc("/usage/reset", adminHandler.ResetMonthlyUsage).Methods("POST")
	adminRouter.HandleFunc("/requests", adminHandler.ListRecentRequests).Methods("GET")

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins(),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
		},
		AllowCredentials: true,
		MaxAge:           300,
	})

	// Create server with timeouts; model calls can take a while
	srv := &http.Server{
		Handler:      corsMiddleware.Handler(router),
		Addr:         getAddr(),
		WriteTimeout: 90 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	log.Printf("Server starting on %s...", getAddr())
	log.Fatal(srv.ListenAndServe())
}

func allowedOrigins() []string {
	raw := os.Getenv("ALLOWED_ORIGINS")
	if raw == "" {
		return []string{"http://localhost:3000"}
	}
	return strings.Split(raw, ",")
}

func getAddr() string {
	host := os.Getenv("HOST")
	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	return host + ":" + port
}
