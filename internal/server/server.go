// Package server provides the HTTP REST API for JD2Q.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/jd2q/internal/config"
	"github.com/jonathan/jd2q/internal/db"
	"github.com/jonathan/jd2q/internal/generation"
	"github.com/jonathan/jd2q/internal/prompts"
	"github.com/jonathan/jd2q/internal/server/middleware"
	"github.com/jonathan/jd2q/internal/server/ratelimit"
	"github.com/jonathan/jd2q/internal/vault"
)

// Server is the HTTP server and its wired dependencies.
type Server struct {
	httpServer  *http.Server
	db          *db.DB
	vault       *vault.Vault
	gen         *generation.Service
	cfg         *config.App
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	userService *UserService
	authHandler *AuthHandler
	validate    *validator.Validate
	log         *logrus.Logger
}

// New wires the server. Missing required configuration (vault secret, JWT
// secret, database) fails here, before the server starts listening.
func New(ctx context.Context, appCfg *config.App, log *logrus.Logger) (*Server, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	database, err := db.Connect(ctx, appCfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	v, err := vault.NewFromEnv()
	if err != nil {
		database.Close()
		return nil, err
	}

	store, err := prompts.NewStore()
	if err != nil {
		database.Close()
		return nil, err
	}

	s := &Server{
		db:       database,
		vault:    v,
		cfg:      appCfg,
		validate: validator.New(),
		log:      log,
	}

	s.gen = generation.NewService(v, store, generation.Config{
		Model:        appCfg.GeminiModel,
		MinQuestions: appCfg.MinQuestions,
		Timeout:      appCfg.GeminiTimeout,
		Logger:       log,
	})

	s.rateLimiter = ratelimit.NewLimiter(ratelimit.LoadConfig())

	passwordConfig, err := config.NewPasswordConfig()
	if err != nil {
		database.Close()
		return nil, err
	}
	s.userService = NewUserService(database, passwordConfig)

	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		database.Close()
		return nil, err
	}
	s.jwtService = NewJWTService(jwtConfig)
	s.authHandler = NewAuthHandler(s.userService, s.jwtService)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/register", s.authHandler.Register)
	mux.HandleFunc("POST /auth/login", s.authHandler.Login)
	mux.HandleFunc("GET /health", s.handleHealth)

	protected := http.NewServeMux()
	protected.HandleFunc("GET /users/me", s.handleGetMe)
	protected.HandleFunc("PUT /users/me", s.handleUpdateMe)

	protected.HandleFunc("POST /keys", s.handleCreateKey)
	protected.HandleFunc("GET /keys", s.handleListKeys)
	protected.HandleFunc("DELETE /keys/{id}", s.handleDeleteKey)
	protected.HandleFunc("POST /keys/test", s.handleTestKey)

	protected.HandleFunc("POST /generations", s.handleCreateGeneration)
	protected.HandleFunc("GET /generations", s.handleListGenerations)
	protected.HandleFunc("GET /generations/{id}", s.handleGetGeneration)
	protected.HandleFunc("DELETE /generations/{id}", s.handleDeleteGeneration)
	protected.HandleFunc("POST /generations/{id}/regenerate", s.handleRegenerate)
	protected.HandleFunc("GET /generations/{id}/export/json", s.handleExportJSON)
	protected.HandleFunc("GET /generations/{id}/export/csv", s.handleExportCSV)

	protected.HandleFunc("POST /questions/{id}/answer", s.handleGenerateAnswer)

	mux.Handle("/", middleware.Auth(s.jwtService.AsTokenValidator())(protected))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", appCfg.Port),
		Handler:      s.withRateLimit(s.withLogging(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // generation calls block for the model round trip
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Start listens for requests until an interrupt, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.httpServer.Addr).Info("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}

	s.log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	s.db.Close()
	s.log.Info("server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withLogging logs each request with its duration.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"remote":   r.RemoteAddr,
			"duration": time.Since(start).String(),
		}).Info("request completed")
	})
}

// withRateLimit enforces per-client, per-endpoint limits.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := extractClientID(r)
		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)

		if info.Limit > 0 {
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		}
		if !allowed {
			if info.RetryAfter > 0 {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())+1))
			}
			s.errorResponse(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractClientID identifies a client by IP, preferring proxy headers.
func extractClientID(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.Index(fwd, ","); idx > 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
