package devbackend

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetupRouter sets up the Gin router. Every route lives under /api.
func SetupRouter(authService *AuthService, repo *Repository, reframer Reframer, secureCookie bool, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	auth := NewAuthHandlers(authService, secureCookie)
	resources := NewResourceHandlers(repo, reframer)

	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	api := router.Group("/api")

	// Public auth routes
	public := api.Group("/auth")
	{
		public.POST("/register", auth.Register)
		public.POST("/login", auth.Login)
		public.POST("/refresh", auth.Refresh)
		public.POST("/logout", auth.Logout)
	}

	// Protected routes
	protected := api.Group("")
	protected.Use(AuthMiddleware(authService))
	{
		protected.GET("/auth/me", auth.Me)

		protected.GET("/mental-box", resources.ListMentalBox)
		protected.POST("/mental-box", resources.CreateMentalBox)
		protected.GET("/mental-box/:id", resources.GetMentalBox)
		protected.PUT("/mental-box/:id", resources.UpdateMentalBox)
		protected.DELETE("/mental-box/:id", resources.DeleteMentalBox)

		protected.GET("/mood-tracker", resources.ListMoods)
		protected.POST("/mood-tracker", resources.CreateMood)
		protected.GET("/mood-tracker/recent", resources.RecentMoods)
		protected.GET("/mood-tracker/stats", resources.MoodStats)
		protected.GET("/mood-tracker/:id", resources.GetMood)
		protected.PUT("/mood-tracker/:id", resources.UpdateMood)
		protected.DELETE("/mood-tracker/:id", resources.DeleteMood)

		protected.GET("/stress-reframe", resources.ListReframes)
		protected.POST("/stress-reframe", resources.CreateReframe)
	}

	return router
}
