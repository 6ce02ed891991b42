package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	rateli "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"ai_app_server/config"
	"ai_app_server/internal/ai"
	"ai_app_server/internal/api"
	"ai_app_server/internal/auth"
	"ai_app_server/internal/logger"
	"ai_app_server/internal/preview"
	"ai_app_server/internal/recorder"
	"ai_app_server/internal/store"
)

func main() {
	// --- Load .env file ---
	// Must run BEFORE viper reads the environment.
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}

	// --- Configuration Loading ---
	cfg, cfgFile, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		log.Fatalf("Cannot build logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()
	zap.ReplaceGlobals(zapLogger)

	zapLogger.Info("Configuration loaded",
		zap.String("configFile", cfgFile),
		zap.String("env", cfg.AppEnv),
		zap.String("aiProvider", cfg.AIProvider),
		zap.String("storeDriver", cfg.StoreDriver),
		zap.String("previewExtractor", cfg.PreviewExtractor),
	)

	// --- Dependency Initialization ---
	generator, err := ai.NewGenerator(cfg, zapLogger.Named("Generator"))
	if err != nil {
		zapLogger.Fatal("Failed to initialize AI generator", zap.Error(err))
	}

	docStore, err := store.Open(cfg, zapLogger.Named("DocumentStore"))
	if err != nil {
		zapLogger.Fatal("Failed to initialize document store", zap.Error(err))
	}
	defer func() {
		if err := docStore.Close(); err != nil {
			zapLogger.Warn("Error closing document store", zap.Error(err))
		}
	}()

	var verifier *auth.Verifier
	if cfg.SessionSecret == "" {
		zapLogger.Warn("SESSION_SECRET not set: no request will carry a session, generated apps will not be saved")
	} else {
		verifier, err = auth.NewVerifier(cfg.SessionSecret, zapLogger.Named("Sessions"))
		if err != nil {
			zapLogger.Fatal("Failed to initialize session verifier", zap.Error(err))
		}
	}

	appRecorder := recorder.New(docStore, zapLogger.Named("Recorder"))
	renderer := preview.NewSandboxRenderer(cfg.PreviewCDNBase)

	apiHandler := api.NewAPIHandler(
		generator,
		strings.ToLower(cfg.AIProvider),
		appRecorder,
		renderer,
		cfg.PreviewExtractor,
		cfg.DesignMaxBytes,
		docStore,
		zapLogger,
	)

	// --- Rate limiting for the generation routes ---
	// Shares the Redis connection when Redis is the document store; in-memory otherwise.
	var limiterStore rateli.Store
	if rs, ok := docStore.(*store.RedisStore); ok {
		limiterStore = rateli.RedisStore(&rateli.RedisOptions{
			RedisClient: rs.Client(),
			Rate:        time.Minute,
			Limit:       cfg.RateLimitPerMinute,
		})
	} else {
		limiterStore = rateli.InMemoryStore(&rateli.InMemoryOptions{
			Rate:  time.Minute,
			Limit: cfg.RateLimitPerMinute,
		})
	}
	rateLimitMiddleware := rateli.RateLimiter(limiterStore, &rateli.Options{
		ErrorHandler: func(c *gin.Context, info rateli.Info) {
			zapLogger.Warn("Rate limit exceeded",
				zap.String("clientIP", c.ClientIP()),
				zap.Time("resetTime", info.ResetTime),
				zap.String("path", c.Request.URL.Path),
			)
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Try again in " + time.Until(info.ResetTime).Round(time.Second).String()})
		},
		KeyFunc: func(c *gin.Context) string {
			return c.ClientIP()
		},
	})

	// --- HTTP Server Setup (Gin) ---
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(api.GinZapLogger(zapLogger.Named("HTTP")))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins()
	corsConfig.AllowMethods = []string{"GET", "POST", "HEAD", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	api.RegisterRoutes(router, apiHandler, auth.Middleware(verifier), rateLimitMiddleware)

	// Applied after the routes so every registered path gets request metrics; also serves /metrics.
	ginprometheus.NewPrometheus("gin").Use(router)

	server := &http.Server{
		Addr:        cfg.ServerAddress,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// generation calls can run well past the usual write window
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zapLogger.Info("Starting API server", zap.String("address", cfg.ServerAddress))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("API server listen error", zap.Error(err))
		}
		zapLogger.Info("API server has stopped listening")
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	zapLogger.Info("Received signal, shutting down server", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("API server forced shutdown", zap.Error(err))
	} else {
		zapLogger.Info("API server gracefully stopped")
	}

	zapLogger.Info("Application exiting")
}
