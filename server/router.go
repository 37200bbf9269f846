package server

import (
	"time"

	"course-service/domain/model"
	httpHandler "course-service/interfaces/http"
	"course-service/interfaces/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RouterConfig carries what the router needs besides handlers.
type RouterConfig struct {
	SecretKey      string
	AllowedOrigins []string
}

func InitiateRouter(
	cfg RouterConfig,
	courseHandler httpHandler.ICourseHandler,
	healthHandler httpHandler.IHealthHandler,
	mutationStream gin.HandlerFunc,
	youtubeAuthHandler httpHandler.IYouTubeAuthHandler,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "X-Mutation-ID", "If-Match"},
		ExposeHeaders:    []string{"Content-Length", "X-Mutation-ID", "ETag"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", healthHandler.Healthz)

	// Public catalogue
	router.GET("/courses", courseHandler.ListCourses)
	router.GET("/courses/:id", courseHandler.GetCourse)

	api := router.Group("api")
	api.Use(middleware.Auth(cfg.SecretKey, ""))
	api.GET("/courses/:id/content", courseHandler.GetCourseContent)
	api.GET("/mutations/:mutationId/stream", mutationStream)

	admin := router.Group("api", middleware.Auth(cfg.SecretKey, model.RoleAdmin))
	{
		admin.POST("/courses", courseHandler.CreateCourse)
		admin.PUT("/courses/:id", courseHandler.EditCourse)
		admin.DELETE("/courses/:id", courseHandler.DeleteCourse)
		admin.DELETE("/courses/:id/contents/:contentId", courseHandler.DeleteContentItem)
		admin.POST("/courses/:id/cache/clear", courseHandler.ClearCourseCache)
	}

	// Video store consent flow; Google redirects the browser without a bearer token.
	if youtubeAuthHandler != nil {
		admin.GET("/media/youtube/auth", youtubeAuthHandler.GetAuthURL)
		router.GET("/media/youtube/callback", youtubeAuthHandler.HandleCallback)
	}

	return router
}
