package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"fitbook/internal/auth"
	"fitbook/internal/booking"
	"fitbook/internal/center"
	"fitbook/internal/config"
	"fitbook/internal/notification"
	"fitbook/internal/user"
	"fitbook/internal/waitlist"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	config *config.Config
}

func New(database *sqlx.DB, redisClient *redis.Client, cfg *config.Config, notifier *notification.Service) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(20, 40))

	userRepo := user.NewRepository(database)
	centerRepo := center.NewRepository(database)
	bookingRepo := booking.NewRepository(database)
	queue := waitlist.NewRedisQueue(redisClient)

	userService := user.NewService(userRepo, cfg.JWTSecret)
	centerService := center.NewService(centerRepo)
	bookingService := booking.NewService(bookingRepo, centerRepo, queue, userRepo, notifier)

	userHandler := user.NewHandler(userService)
	centerHandler := center.NewHandler(centerService)
	bookingHandler := booking.NewHandler(bookingService)

	public := router.Group("/auth")
	{
		public.POST("/register", userHandler.Register)
		public.POST("/login", userHandler.Login)
		public.POST("/refresh", userHandler.RefreshToken)
	}

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.GET("/me", userHandler.GetMe)
		protected.GET("/centers", centerHandler.ListCenters)
		protected.GET("/centers/:centerID", centerHandler.GetCenter)
		protected.GET("/centers/:centerID/slots", centerHandler.ListSlots)
		protected.POST("/slots/:slotID/reserve", bookingHandler.Reserve)
		protected.POST("/slots/:slotID/waitlist", bookingHandler.JoinWaitlist)
		protected.DELETE("/slots/:slotID/waitlist", bookingHandler.LeaveWaitlist)
		protected.GET("/slots/:slotID/conflicts", bookingHandler.ConflictCheck)
		protected.POST("/slots/:slotID/rebook", bookingHandler.Rebook)
		protected.GET("/reservations", bookingHandler.ListMyReservations)
		protected.POST("/reservations/:reservationID/cancel", bookingHandler.Cancel)
	}

	owner := router.Group("/owner")
	owner.Use(authMiddleware, auth.RequireRole(auth.RoleOwner, auth.RoleAdmin))
	{
		owner.POST("/centers", centerHandler.CreateCenter)
		owner.POST("/centers/:centerID/slots", centerHandler.CreateSlot)
		owner.GET("/slots/:slotID/reservations", bookingHandler.ListSlotReservations)
		owner.GET("/centers/:centerID/reservations", bookingHandler.ListCenterReservations)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin))
	{
		admin.GET("/centers", centerHandler.ListCenters)
		admin.POST("/centers", centerHandler.CreateCenter)
		admin.POST("/centers/:centerID/slots", centerHandler.CreateSlot)
		admin.GET("/slots/:slotID/reservations", bookingHandler.ListSlotReservations)
		admin.GET("/slots/:slotID/waitlist", bookingHandler.ListSlotWaitlist)
		admin.GET("/centers/:centerID/reservations", bookingHandler.ListCenterReservations)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())

	// Built here, not in Start, so Shutdown on an early signal never
	// races the serving goroutine.
	return &Server{
		router: router,
		config: cfg,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Start() error {
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
