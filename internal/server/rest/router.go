// Package rest is the HTTP/JSON interface of the backend, built on gin.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/tours/internal/logging"
	"github.com/dmitrijs2005/tours/internal/server/ratelimit"
	"github.com/dmitrijs2005/tours/internal/server/services"
	"github.com/gin-gonic/gin"
)

const apiPrefix = "/api/v1"

// Pinger reports store reachability for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Dependencies struct {
	Users          *services.UserService
	Tours          *services.TourService
	Reviews        *services.ReviewService
	Limiter        ratelimit.Limiter
	Store          Pinger
	Logger         logging.Logger
	AllowedOrigins []string
	RequestTimeout time.Duration
	PublicBaseURL  string
	// TrustedProxies may set the client address through X-Forwarded-For.
	// Nil trusts no proxy.
	TrustedProxies []string
}

func NewRouter(deps Dependencies) (*gin.Engine, error) {
	log := deps.Logger.With("module", "http")

	router := gin.New()
	if err := router.SetTrustedProxies(deps.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(RequestID())
	router.Use(Logger(log))
	router.Use(Recovery(log))
	router.Use(CORS(deps.AllowedOrigins))
	router.Use(Timeout(deps.RequestTimeout))

	userHandler := NewUserHandler(deps.Users, log, deps.PublicBaseURL)
	tourHandler := NewTourHandler(deps.Tours, log)
	reviewHandler := NewReviewHandler(deps.Reviews, log)
	auth := Authenticate(deps.Users, log)

	router.GET("/healthz", health(deps.Store))
	router.NoRoute(func(c *gin.Context) {
		respondFail(c, http.StatusNotFound, "route "+c.Request.URL.String()+" not found")
	})

	api := router.Group(apiPrefix)
	{
		public := api.Group("")
		if deps.Limiter != nil {
			public.Use(RateLimit(deps.Limiter, log))
		}
		public.POST("/auth/signup", userHandler.Signup)
		public.POST("/auth/login", userHandler.Login)
		public.POST("/users/:email/forgot-password", userHandler.ForgotPassword)
		public.PATCH("/users/reset-password/:resetToken", userHandler.ResetPassword)

		api.GET("/reviews/:id", reviewHandler.Get)
	}

	protected := api.Group("")
	protected.Use(auth)
	{
		protected.PATCH("/users/:id", userHandler.Update)
		protected.DELETE("/users/:id", userHandler.Delete)

		protected.GET("/tours", tourHandler.List)
		protected.POST("/tours", tourHandler.Create)
		protected.GET("/tours/:id", tourHandler.Get)
		protected.PATCH("/tours/:id", tourHandler.Update)
		protected.DELETE("/tours/:id", tourHandler.Delete)
		protected.POST("/tours/:id/images/upload-url", tourHandler.ImageUploadURL)

		protected.GET("/reviews", reviewHandler.List)
		protected.POST("/reviews", reviewHandler.Create)
	}

	return router, nil
}

func health(store Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store != nil {
			if err := store.Ping(c.Request.Context()); err != nil {
				respondFail(c, http.StatusServiceUnavailable, "store unavailable")
				return
			}
		}
		c.JSON(http.StatusOK, envelope{Status: statusSuccess})
	}
}
