package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/api/handlers"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/api/middleware"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/config"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/db"
	"github.com/ismaeljimenezmejias/dat515-project-personalgithub/internal/services"
)

// SetupRouter configures and returns the main Gin engine. rdb may be nil.
func SetupRouter(cfg *config.Config, provider *db.Provider, rdb *redis.Client) *gin.Engine {
	// Initialize services needed by API handlers
	userService := services.NewUserService(provider)
	listingService := services.NewListingService(provider)
	messageService := services.NewMessageService(provider)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Initialize Middleware
	rateLimiter := middleware.NewRateLimiterMiddleware("api", cfg.RateLimitRefillRate, cfg.RateLimitBucketSize)
	authRateLimiter := middleware.NewRateLimiterMiddleware("auth", cfg.AuthRateLimitRefillRate, cfg.AuthRateLimitBucketSize)

	// Apply global middleware first (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.CORSMiddleware(cfg.CorsOrigins))

	// Initialize handlers
	restListingHandler := handlers.NewRestListingHandler(listingService)
	restUserHandler := handlers.NewRestUserHandler(userService, cfg.JwtSecret, cfg.JwtTTL)
	restMessageHandler := handlers.NewRestMessageHandler(messageService)
	restHealthHandler := handlers.NewRestHealthHandler(provider, rdb)

	r.GET("/health", restHealthHandler.Health)
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	apiGroup := r.Group("/api")
	apiGroup.Use(rateLimiter.Limit())
	{
		// Public Routes; a valid session is picked up when present
		public := apiGroup.Group("/")
		public.Use(middleware.OptionalAuthMiddleware(cfg.JwtSecret))
		{
			public.GET("/me", restUserHandler.Me)
			public.POST("/logout", restUserHandler.Logout)
			public.GET("/bikes", restListingHandler.SearchListings)
			public.GET("/bikes/:id", restListingHandler.GetListingByID)
			public.GET("/users/:id", restUserHandler.GetUserByID)
			public.GET("/users/:id/bikes", restListingHandler.SearchUserListings)
		}

		// Credential routes get a stricter bucket against password guessing
		credentials := apiGroup.Group("/")
		credentials.Use(authRateLimiter.Limit())
		{
			credentials.POST("/signup", restUserHandler.Signup)
			credentials.POST("/login", restUserHandler.Login)
		}

		// Authenticated Routes
		authRequired := apiGroup.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.POST("/bikes", restListingHandler.CreateListing)
			authRequired.PUT("/bikes/:id", restListingHandler.UpdateListing)
			authRequired.DELETE("/bikes/:id", restListingHandler.DeleteListing)
			authRequired.DELETE("/users/:id", restUserHandler.DeleteUser)

			authRequired.POST("/messages", restMessageHandler.SendMessage)
			authRequired.GET("/messages/bike/:id", restMessageHandler.ListingMessages)
			authRequired.GET("/messages/conversations", restMessageHandler.Conversations)
		}
	}

	return r
}
