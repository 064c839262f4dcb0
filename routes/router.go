package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/cppla/wallpress/config"
	"github.com/cppla/wallpress/controllers"
	"github.com/cppla/wallpress/middleware"
	"github.com/cppla/wallpress/repository"
	"github.com/cppla/wallpress/services"
	"github.com/cppla/wallpress/session"
	"github.com/cppla/wallpress/storage"
	"github.com/cppla/wallpress/utils"
	"github.com/cppla/wallpress/views"
)

// Deps carries the long-lived collaborators the router wires into handlers.
type Deps struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Blob   storage.BlobService
	Config config.AppConfig
}

// route is one entry of the routing table. Every route names its policy.
type route struct {
	method    string
	path      string
	rule      middleware.Rule
	throttled bool
	handler   gin.HandlerFunc
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(deps Deps) *gin.Engine {
	cfg := deps.Config
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log goes to its own rolling file when configured
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err != nil {
		gl = utils.Logger
	}
	r.Use(ginzap.Ginzap(gl, time.RFC3339, true))
	r.Use(ginzap.CustomRecoveryWithZap(gl, false, utils.PanicResponse))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		// credentials cannot be combined with a wildcard origin
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.SetHTMLTemplate(views.Templates())

	users := repository.NewUserRepository(deps.DB)
	resolver := session.NewResolver(session.NewRedisStore(deps.Redis, cfg.SessionKeyPrefix), cfg.SessionCookieName)
	r.Use(middleware.SessionResolver(resolver, users, cfg.SessionBypassPrefixes))

	posts := repository.NewPostRepository(deps.DB)
	walls := repository.NewWallRepository(deps.DB)
	comments := repository.NewCommentRepository(deps.DB)
	media := repository.NewMediaRepository(deps.DB)

	cache := utils.NewRedisCache(deps.Redis)
	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	contentService := services.NewContentService(posts, cache, ttl, cfg.DefaultPageLimit)
	commentService := services.NewCommentService(comments, posts, walls, cfg.AdminRole, cfg.DefaultPageLimit)
	wallService := services.NewWallService(walls, comments, cfg.DefaultPageLimit)
	uploadService := services.NewUploadService(media, posts, comments, deps.Blob, cfg.MaxUploadBytes, cfg.QuotaBytes())

	postController := controllers.NewPostController(contentService, commentService)
	wallController := controllers.NewWallController(wallService, commentService)
	mediaController := controllers.NewMediaController(uploadService, cfg.MaxUploadBytes)
	adminController := controllers.NewAdminController(commentService)

	limiter := middleware.NewRateLimiter(deps.Redis, "ratelimit", cfg.RateLimitPerMinute)

	table := []route{
		{http.MethodGet, "/health", middleware.Public, false, health},

		{http.MethodGet, "/posts", middleware.Public, false, postController.ListPosts},
		{http.MethodGet, "/posts/:slug", middleware.Public, false, postController.GetPost},
		{http.MethodGet, "/posts/:slug/comments", middleware.Public, false, postController.ListComments},
		{http.MethodPost, "/posts/:id/comments", middleware.Public, true, postController.CreateComment},
		{http.MethodPost, "/posts", middleware.AdminOrOwner, false, postController.CreatePost},
		{http.MethodPut, "/posts/:id", middleware.SelfOrPrivileged(postController.PostOwner), false, postController.UpdatePost},
		{http.MethodPost, "/posts/:id/publish", middleware.SelfOrPrivileged(postController.PostOwner), false, postController.PublishPost},

		{http.MethodGet, "/walls", middleware.Public, false, wallController.ListWalls},
		{http.MethodGet, "/walls/:id", middleware.Public, false, wallController.GetWall},
		{http.MethodPost, "/walls/:id/comments", middleware.Public, true, wallController.CreateComment},
		{http.MethodGet, "/comments/:id/replies", middleware.Public, false, wallController.ListReplies},

		{http.MethodPost, "/upload", middleware.Authenticated, true, mediaController.Upload},
		{http.MethodPost, "/media/upload", middleware.Authenticated, true, mediaController.Upload},
		{http.MethodGet, "/media/quota", middleware.Authenticated, false, mediaController.Quota},
		{http.MethodDelete, "/media/*key", middleware.SelfOrPrivileged(mediaController.MediaOwner), false, mediaController.Delete},

		{http.MethodGet, "/admin/posts", middleware.AdminOrOwner, false, postController.AdminListPosts},
		{http.MethodGet, "/admin/comments", middleware.AdminOrOwner, false, adminController.ListPendingComments},
		{http.MethodPost, "/admin/comments/:id/approve", middleware.AdminOrOwner, false, adminController.ApproveComment},
		{http.MethodPost, "/admin/comments/:id/spam", middleware.AdminOrOwner, false, adminController.MarkSpam},
		{http.MethodDelete, "/admin/comments/:id", middleware.AdminOrOwner, false, adminController.DeleteComment},
		{http.MethodPost, "/admin/walls", middleware.AdminOrOwner, false, wallController.CreateWall},
		{http.MethodPatch, "/admin/walls/:id", middleware.AdminOrOwner, false, wallController.UpdateWall},
		{http.MethodDelete, "/admin/walls/:id", middleware.OwnerOnly, false, wallController.DeleteWall},
	}

	for _, rt := range table {
		handlers := []gin.HandlerFunc{middleware.Authorize(rt.rule)}
		if rt.throttled {
			handlers = append(handlers, limiter.Middleware())
		}
		handlers = append(handlers, rt.handler)
		r.Handle(rt.method, rt.path, handlers...)
	}

	r.NoRoute(func(ctx *gin.Context) {
		if controllers.WantsHTML(ctx) {
			controllers.NotFoundHTML(ctx, "page not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}

func health(ctx *gin.Context) {
	utils.Success(ctx, gin.H{"status": "ok"})
}
