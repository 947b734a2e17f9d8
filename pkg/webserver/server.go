package webserver

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/felipemendesbraga/EuLevo/pkg/config"
	"github.com/felipemendesbraga/EuLevo/pkg/db"
	"github.com/felipemendesbraga/EuLevo/pkg/deals"
	"github.com/felipemendesbraga/EuLevo/pkg/lifecycle"
	"github.com/felipemendesbraga/EuLevo/pkg/log"
	"github.com/felipemendesbraga/EuLevo/pkg/models"
	"github.com/felipemendesbraga/EuLevo/pkg/perm"
	"github.com/felipemendesbraga/EuLevo/pkg/storage"
	"github.com/felipemendesbraga/EuLevo/pkg/utils"
)

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	db         *db.DB
	logger     *log.Logger
	router     *gin.Engine
	httpServer *http.Server
	jwtManager *utils.JWTManager
	validator  *utils.Validator
	engine     *deals.Engine
	lifecycle  *lifecycle.Manager
	perms      *perm.Propagator
	blobs      storage.BlobStore
}

// New creates a new HTTP server instance
func New(cfg *config.Config, database *db.DB, logger *log.Logger, engine *deals.Engine, lifecycleMgr *lifecycle.Manager, perms *perm.Propagator, blobs storage.BlobStore) (*Server, error) {
	jwtManager := utils.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.JWTExpirationHours)
	validator := utils.NewValidator()

	// Set Gin mode
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router
	router := gin.New()

	server := &Server{
		config:     cfg,
		db:         database,
		logger:     logger,
		router:     router,
		jwtManager: jwtManager,
		validator:  validator,
		engine:     engine,
		lifecycle:  lifecycleMgr,
		perms:      perms,
		blobs:      blobs,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup routes
	server.setupRoutes()

	// Create HTTP server
	server.httpServer = &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	return server, nil
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		s.logger.WithField("panic", recovered).Error("Panic recovered")
		c.JSON(http.StatusInternalServerError, utils.NewErrorResponse("Internal server error"))
		c.Abort()
	}))

	// Logging middleware
	s.router.Use(s.loggingMiddleware())

	// CORS middleware
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Rate limiting middleware
	if s.config.Security.RateLimitEnabled {
		s.router.Use(s.rateLimitMiddleware())
	}

	// Security headers middleware
	s.router.Use(s.securityHeadersMiddleware())
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		// Process request
		c.Next()

		latency := time.Since(start)

		s.logger.LogRequest(
			c.Request.Method,
			path,
			c.Request.UserAgent(),
			c.ClientIP(),
			c.Writer.Status(),
			latency.Milliseconds(),
		)
	}
}

// rateLimitMiddleware implements rate limiting
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	limiter := rate.NewLimiter(
		rate.Limit(s.config.Security.RateLimitPerMinute)/60, // per second
		s.config.Security.RateLimitBurstSize,
	)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			s.logger.LogSecurity("rate_limit_exceeded", 0, c.ClientIP(), map[string]interface{}{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			})
			c.JSON(http.StatusTooManyRequests, utils.NewErrorResponse("Rate limit exceeded"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// securityHeadersMiddleware adds security headers
func (s *Server) securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// authMiddleware validates JWT tokens
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, utils.NewErrorResponse("Authorization header required"))
			c.Abort()
			return
		}

		// Extract token from "Bearer <token>" format
		tokenString := ""
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenString = authHeader[7:]
		} else {
			c.JSON(http.StatusUnauthorized, utils.NewErrorResponse("Invalid authorization header format"))
			c.Abort()
			return
		}

		claims, err := s.jwtManager.ValidateToken(tokenString)
		if err != nil {
			s.logger.LogSecurity("invalid_token", 0, c.ClientIP(), map[string]interface{}{
				"error": err.Error(),
			})
			c.JSON(http.StatusUnauthorized, utils.NewErrorResponse("Invalid token"))
			c.Abort()
			return
		}

		repo := db.NewRepository(s.db)
		user, err := repo.GetUserByID(claims.UserID)
		if err != nil {
			s.logger.LogSecurity("user_not_found", claims.UserID, c.ClientIP(), map[string]interface{}{
				"error": err.Error(),
			})
			c.JSON(http.StatusUnauthorized, utils.NewErrorResponse("User not found"))
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

// getCurrentUser gets the current user from context
func (s *Server) getCurrentUser(c *gin.Context) (*models.User, error) {
	user, exists := c.Get("user")
	if !exists {
		return nil, fmt.Errorf("user not found in context")
	}

	userModel, ok := user.(*models.User)
	if !ok {
		return nil, fmt.Errorf("invalid user type in context")
	}

	return userModel, nil
}

// pageParams reads ?page= and ?limit= from the query string. Defaults are
// page 1 with 20 items; NewPagination clamps out-of-range values.
func pageParams(c *gin.Context) (page, limit int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}
	limit, err = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil {
		limit = 20
	}
	return page, limit
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info(fmt.Sprintf("Starting server on %s", s.config.Server.GetServerAddr()))

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping server...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	s.logger.Info("Server stopped")
	return nil
}

// Health check endpoint
func (s *Server) healthCheck(c *gin.Context) {
	if err := s.db.HealthCheck(); err != nil {
		c.JSON(http.StatusServiceUnavailable, utils.NewErrorResponse("Database unavailable"))
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse(map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	}, "Service is healthy"))
}
