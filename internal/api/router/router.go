package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cantine/config"
	"cantine/internal/api/handler"
	"cantine/internal/api/middleware"
	"cantine/internal/dto"
	"cantine/internal/model"
	"cantine/pkg/jwt"
	"cantine/pkg/redis"
)

// Setup builds the gin engine. rdb may be nil; rate limiting and the token
// blacklist are then disabled.
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	if err := dto.RegisterValidators(); err != nil {
		logger.Warn("custom validators not registered", zap.Error(err))
	}

	r := gin.New()

	// ── global middleware ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(int64(cfg.Server.BodyLimitMB) << 20))

	r.GET("/health", h.Health.Health)

	const (
		admin   = model.RoleAdmin
		manager = model.RoleManager
		scanner = model.RoleScanner
	)
	loginLimit := middleware.RateLimit(rdb, cfg.Auth.LoginRateLimitPerMinute, time.Minute, logger)
	scanLimit := middleware.RateLimit(rdb, cfg.Scan.RateLimitPerMinute, time.Minute, logger)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", loginLimit, h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			users := authorized.Group("/users", middleware.RoleAuth(admin))
			{
				users.GET("", h.User.ListUsers)
				users.POST("", h.User.CreateUser)
				users.POST("/:id/reset-password", h.User.ResetPassword)
				users.DELETE("/:id", h.User.DeleteUser)
			}

			establishments := authorized.Group("/establishments")
			{
				establishments.GET("", h.Establishment.ListEstablishments)
				establishments.GET("/:id", h.Establishment.GetEstablishment)
				establishments.POST("", middleware.RoleAuth(admin), h.Establishment.CreateEstablishment)
				establishments.PUT("/:id", middleware.RoleAuth(admin), h.Establishment.UpdateEstablishment)
				establishments.DELETE("/:id", middleware.RoleAuth(admin), h.Establishment.DeleteEstablishment)
			}

			persons := authorized.Group("/persons", middleware.RoleAuth(admin, manager))
			{
				persons.GET("", h.Person.ListPersons)
				persons.GET("/:id", h.Person.GetPerson)
				persons.POST("", h.Person.CreatePerson)
				persons.PUT("/:id", h.Person.UpdatePerson)
				persons.DELETE("/:id", h.Person.DeletePerson)
			}

			mealPlans := authorized.Group("/mealplans")
			{
				mealPlans.GET("/self", h.MealPlan.GetSelf)
				mealPlans.POST("/self", h.MealPlan.SaveSelf)
				mealPlans.GET("/self/calendar", h.MealPlan.SelfCalendar)
				mealPlans.GET("", middleware.RoleAuth(admin, manager), h.MealPlan.ListMealPlans)
				mealPlans.GET("/summary", middleware.RoleAuth(admin, manager), h.MealPlan.Summary)
				mealPlans.GET("/export", middleware.RoleAuth(admin, manager), h.Export.ExportMealPlans)
				mealPlans.DELETE("", middleware.RoleAuth(admin), h.MealPlan.ClearAll)
			}

			authorized.POST("/scan", middleware.RoleAuth(admin, manager, scanner), scanLimit, h.Scan.Scan)
			authorized.GET("/scan/live", middleware.RoleAuth(admin, manager, scanner), h.Scan.Live)
			authorized.GET("/consumptions", middleware.RoleAuth(admin, manager), h.Scan.ListConsumptions)

			plans := authorized.Group("/plans", middleware.RoleAuth(admin, manager))
			{
				plans.POST("/import", h.Import.Import)
				plans.GET("/imports", h.Import.ListJobs)
			}
		}
	}

	return r
}
