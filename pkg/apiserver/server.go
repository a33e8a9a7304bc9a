package apiserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/alignhq/align/pkg/apiserver/handlers"
	"github.com/alignhq/align/pkg/apiserver/middleware"
	"github.com/alignhq/align/pkg/audit"
	"github.com/alignhq/align/pkg/auth"
	"github.com/alignhq/align/pkg/config"
	"github.com/alignhq/align/pkg/rbac"
	"github.com/alignhq/align/pkg/store/postgres"
	redisclient "github.com/alignhq/align/pkg/store/redis"
)

type Server struct {
	router     *gin.Engine
	db         *postgres.Store
	redis      *redisclient.Client
	cfg        *config.Config
	logger     *zap.Logger
	authorizer *rbac.Authorizer
}

func NewServer(db *postgres.Store, redis *redisclient.Client, cfg *config.Config, logger *zap.Logger) *Server {
	var gdb *gorm.DB
	if db != nil {
		gdb = db.DB()
	}

	s := &Server{
		db:         db,
		redis:      redis,
		cfg:        cfg,
		logger:     logger,
		authorizer: rbac.NewAuthorizer(rbac.NewStore(gdb, cfg.OKR.ManagerChainDepth)),
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	var gdb *gorm.DB
	if s.db != nil {
		gdb = s.db.DB()
	}
	var bus redislib.UniversalClient
	if s.redis != nil {
		bus = s.redis.Client()
	}

	tokens := auth.NewTokenManager([]byte(s.cfg.Auth.JWTSecret), s.cfg.Auth.TokenTTL)
	recorder := audit.NewRecorder(bus, s.logger)
	orgs := postgres.NewOrganizationRepository(gdb)

	api := r.Group("/api/v1")
	{
		api.Use(middleware.Auth(tokens))
		api.Use(middleware.TenantResolver(orgs, s.cfg.Server.BaseDomain))

		objectives := handlers.NewObjectiveHandler(s.db, s.authorizer, recorder, s.logger, s.cfg.OKR.MaxKeyResultWeight)
		api.POST("/objectives", objectives.Create)
		api.GET("/objectives", objectives.List)
		api.GET("/objectives/:id", objectives.Get)
		api.PATCH("/objectives/:id", objectives.Update)
		api.DELETE("/objectives/:id", objectives.Delete)
		api.POST("/objectives/:id/publish", objectives.Publish)
		api.POST("/objectives/:id/unpublish", objectives.Unpublish)
		api.POST("/objectives/:id/check-in", objectives.CheckIn)
		api.PUT("/objectives/:id/key-results/:krID", objectives.Link)

		keyResults := handlers.NewKeyResultHandler(s.db, s.authorizer, recorder, s.logger)
		api.POST("/key-results", keyResults.Create)
		api.GET("/key-results", keyResults.List)
		api.GET("/key-results/:id", keyResults.Get)
		api.PATCH("/key-results/:id", keyResults.Update)
		api.DELETE("/key-results/:id", keyResults.Delete)
		api.POST("/key-results/:id/publish", keyResults.Publish)
		api.POST("/key-results/:id/unpublish", keyResults.Unpublish)
		api.POST("/key-results/:id/check-in", keyResults.CheckIn)

		initiatives := handlers.NewInitiativeHandler(s.db, s.authorizer, recorder, s.logger)
		api.POST("/key-results/:id/initiatives", initiatives.Create)
		api.GET("/key-results/:id/initiatives", initiatives.List)
		api.PATCH("/initiatives/:id", initiatives.Update)
		api.DELETE("/initiatives/:id", initiatives.Delete)

		cycles := handlers.NewCycleHandler(s.db, s.authorizer, recorder, s.logger)
		api.POST("/cycles", cycles.Create)
		api.GET("/cycles", cycles.List)
		api.PATCH("/cycles/:id/status", cycles.UpdateStatus)

		whitelist := handlers.NewWhitelistHandler(s.db, s.authorizer, recorder, s.logger)
		wl := api.Group("/exec-whitelist")
		wl.Use(middleware.PerTenantRateLimit(bus, "whitelist", s.cfg.RateLimit.WhitelistPerMinute))
		wl.GET("", whitelist.List)
		wl.POST("", whitelist.Add)
		wl.DELETE("/:userID", whitelist.Remove)

		explain := handlers.NewExplainHandler(s.db, s.authorizer, s.logger)
		api.POST("/explain", explain.Explain)
	}

	s.router = r
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
