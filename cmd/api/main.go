// cmd/api/main.go
// Entry point: loads configuration, connects storage, runs migrations,
// wires the modules together and serves the API.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sangamhq/sangam-backend/internal/auth"
	"github.com/sangamhq/sangam-backend/internal/common/database"
	"github.com/sangamhq/sangam-backend/internal/common/logger"
	"github.com/sangamhq/sangam-backend/internal/config"
	"github.com/sangamhq/sangam-backend/internal/notification"
	"github.com/sangamhq/sangam-backend/internal/profile"
	"github.com/sangamhq/sangam-backend/internal/relationship"
)

func main() {
	// Environment and configuration
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file found, using environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(&logger.Config{
		Level:     cfg.LogLevel,
		Format:    logger.Format(cfg.LogFormat),
		Component: "sangam-api",
	})
	logger.Info("starting sangam api", "environment", cfg.Environment, "port", cfg.Port)

	// PostgreSQL
	db, err := database.NewPostgresDBFromURL(cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to postgres")

	// Redis, optional: the token denylist falls back to postgres alone
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClientFromURL(cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, denylist cache disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			logger.Info("connected to redis")
		}
	}

	// Schema
	if err := runMigrations(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations completed")

	// Auth: JWT issue/verify with a durable token denylist
	authRepo := auth.NewPostgresRepository(db)
	denylist := auth.NewDenylist(authRepo, redisClient)
	authService := auth.NewService(authRepo, denylist, &auth.Config{
		JWTSecret:          cfg.JWTSecret,
		AccessTokenExpiry:  cfg.AccessTokenExpiry,
		RefreshTokenExpiry: cfg.RefreshTokenExpiry,
		BCryptCost:         cfg.BCryptCost,
	})
	authHandler := auth.NewHandler(authService)
	authMiddleware := auth.NewMiddleware(authService)

	// Profile: scoring, gate, photo uploads
	profileRepo := profile.NewPostgresRepository(db)
	scorer := profile.NewScorer(cfg.CompletionThreshold)
	gate := profile.NewGateKeeper(profileRepo, cfg.SkipMinStage, cfg.MaxStage)

	var uploadService profile.UploadService
	if cfg.UseS3 {
		uploadService, err = profile.NewS3UploadService(cfg.S3Bucket, cfg.AWSRegion)
		if err != nil {
			logger.Warn("s3 unavailable, falling back to local uploads", "error", err)
			uploadService = profile.NewLocalUploadService(cfg.LocalUploadDir, cfg.BaseURL+"/uploads")
		}
	} else {
		uploadService = profile.NewLocalUploadService(cfg.LocalUploadDir, cfg.BaseURL+"/uploads")
	}

	profileService := profile.NewService(profileRepo, gate, scorer, uploadService)
	profileHandlers := profile.NewHandlers(profileService)

	// Notifications: durable sink plus websocket/email/sms fan-out
	notificationRepo := notification.NewPostgresRepository(db)
	hub := notification.NewHub()

	var emailSender notification.EmailSender
	if cfg.EnableEmailNotifications && cfg.EmailProvider == "sendgrid" {
		emailSender, err = notification.NewSendGridEmailSender(cfg.SendGridAPIKey, cfg.EmailFrom, "Sangam")
		if err != nil {
			logger.Warn("sendgrid unavailable, email channel disabled", "error", err)
		}
	}

	var smsSender notification.SMSSender
	if cfg.EnableSMSNotifications && cfg.SMSProvider == "twilio" {
		smsSender, err = notification.NewTwilioSMSSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
		if err != nil {
			logger.Warn("twilio unavailable, sms channel disabled", "error", err)
		}
	}

	notificationService := notification.NewService(notificationRepo, hub, emailSender, smsSender)
	notificationHandlers := notification.NewHandlers(notificationService, hub)

	// Relationships: interest and block workflows behind the profile gate
	relationshipRepo := relationship.NewPostgresRepository(db)
	relationshipService := relationship.NewService(relationshipRepo, gate, notificationService)
	relationshipHandlers := relationship.NewHandlers(relationshipService)

	// Background jobs
	jobsCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()
	go runCleanupJob(jobsCtx, "revoked tokens", time.Hour, func(ctx context.Context) error {
		return authService.CleanupRevokedTokens(ctx)
	})
	go runCleanupJob(jobsCtx, "old notifications", 24*time.Hour, func(ctx context.Context) error {
		return notificationService.CleanupOldNotifications(ctx, 30*24*time.Hour)
	})

	// Routes
	router := mux.NewRouter()
	router.Use(loggingMiddleware)
	router.Use(corsMiddleware)

	router.HandleFunc("/health", healthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	if !cfg.UseS3 {
		router.PathPrefix("/uploads/").Handler(
			http.StripPrefix("/uploads/",
				http.FileServer(http.Dir(cfg.LocalUploadDir))))
	}

	auth.RegisterRoutes(router, authHandler)

	api := router.PathPrefix("/api/v1").Subrouter()
	profile.RegisterRoutes(api, profileHandlers, authMiddleware.Authenticate)
	relationship.RegisterRoutes(api, relationshipHandlers, authMiddleware.Authenticate)
	notification.RegisterRoutes(api, notificationHandlers, authMiddleware.Authenticate)

	// Serve
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")
	cancelJobs()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited")
}

// runCleanupJob runs fn on a fixed interval until ctx is cancelled
func runCleanupJob(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			jobCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			if err := fn(jobCtx); err != nil {
				logger.Warn("cleanup job failed", "job", name, "error", err)
			}
			cancel()
		}
	}
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":%q}`, time.Now().Format(time.RFC3339))
}

// Middleware

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start).String(),
		)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// runMigrations creates the schema idempotently
func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			username VARCHAR(100) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			phone VARCHAR(20),
			is_verified BOOLEAN DEFAULT FALSE,
			minimal_profile_completion BOOLEAN DEFAULT FALSE,
			profile_stage INT DEFAULT 1,
			email_notifications BOOLEAN DEFAULT TRUE,
			sms_notifications BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS profiles (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			marital_status VARCHAR(50),
			religion VARCHAR(50),
			mother_tongue VARCHAR(50),
			date_of_birth DATE,
			gender VARCHAR(20),
			height_cm INT,
			education VARCHAR(200),
			occupation VARCHAR(200),
			annual_income VARCHAR(50),
			city VARCHAR(100),
			state VARCHAR(100),
			country VARCHAR(100),
			about TEXT,
			complexion VARCHAR(50),
			body_type VARCHAR(50),
			diet VARCHAR(50),
			smoking VARCHAR(20),
			drinking VARCHAR(20),
			hobbies TEXT[],
			family_type VARCHAR(20),
			partner_min_age INT,
			partner_max_age INT,
			partner_religion VARCHAR(50),
			partner_location VARCHAR(100),
			profile_photo VARCHAR(500),
			cover_photo VARCHAR(500),
			photos TEXT[],
			video_intro_url VARCHAR(500),
			is_public BOOLEAN DEFAULT TRUE,
			completion_percentage INT DEFAULT 0,
			is_complete BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS interests (
			id BIGSERIAL PRIMARY KEY,
			from_user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			to_user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			message VARCHAR(500),
			responded_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (from_user_id, to_user_id),
			CHECK (from_user_id <> to_user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS connections (
			id BIGSERIAL PRIMARY KEY,
			user1_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			user2_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			interest_id BIGINT REFERENCES interests(id),
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			ended_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user1_id, user2_id),
			CHECK (user1_id < user2_id)
		)`,

		`CREATE TABLE IF NOT EXISTS blocks (
			id BIGSERIAL PRIMARY KEY,
			blocker_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			blocked_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			reason VARCHAR(500),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (blocker_id, blocked_id),
			CHECK (blocker_id <> blocked_id)
		)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id BIGSERIAL PRIMARY KEY,
			dedupe_key VARCHAR(64) UNIQUE NOT NULL,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type VARCHAR(50) NOT NULL,
			related_user_id BIGINT REFERENCES users(id) ON DELETE SET NULL,
			payload JSONB DEFAULT '{}',
			is_read BOOLEAN DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS revoked_tokens (
			token_id VARCHAR(64) PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			expires_at TIMESTAMP NOT NULL,
			revoked_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_interests_to_user ON interests(to_user_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_interests_from_user ON interests(from_user_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_connections_user1 ON connections(user1_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_connections_user2 ON connections(user2_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_blocks_blocked ON blocks(blocked_id)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, is_read, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_revoked_tokens_expiry ON revoked_tokens(expires_at)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
