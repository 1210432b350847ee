package bootstrap

import (
	"database/sql"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	httpapi "github.com/GoSim-25-26J-441/diagram-service/internal/api/http"
	"github.com/GoSim-25-26J-441/diagram-service/internal/api/http/middleware"
	"github.com/GoSim-25-26J-441/diagram-service/internal/auth"
	authmw "github.com/GoSim-25-26J-441/diagram-service/internal/auth/middleware"
	"github.com/GoSim-25-26J-441/diagram-service/internal/collections"
	"github.com/GoSim-25-26J-441/diagram-service/internal/diagrams/reconcile"
	"github.com/GoSim-25-26J-441/diagram-service/internal/diagrams/repository"
	"github.com/GoSim-25-26J-441/diagram-service/internal/diagrams/service"
	"github.com/GoSim-25-26J-441/diagram-service/internal/entities"
	"github.com/GoSim-25-26J-441/diagram-service/internal/roles"

	diagramshttp "github.com/GoSim-25-26J-441/diagram-service/internal/diagrams/http"
)

const APIPrefix = "/api/2"

type RouterDeps struct {
	ServiceName string
	Version     string
	CORSOrigins []string
	DB          *sql.DB
	Redis       *redis.Client
	// Verifier checks Firebase ID tokens; nil disables token auth.
	Verifier authmw.TokenVerifier
	// TrustUserHeader accepts X-User-Id as the caller identity.
	TrustUserHeader bool
	Logger          *zap.Logger
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	log := dep.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware(log))
	if len(dep.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     dep.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-Id", "X-User-Id", "X-User-Email", "X-User-Name"},
			ExposeHeaders:    []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version)
	if dep.DB != nil {
		healthHandler.WithCheck("db", httpapi.DBCheck(dep.DB))
	}
	if dep.Redis != nil {
		healthHandler.WithCheck("redis", httpapi.RedisCheck(dep.Redis))
	}
	healthHandler.RegisterRoutes(r)

	api := r.Group(APIPrefix)

	collectionRepo := collections.NewRepo(dep.DB)
	roleRepo := roles.NewRepo(dep.DB)

	if dep.Verifier != nil {
		api.Use(authmw.FirebaseAuthMiddleware(dep.Verifier))
	}
	api.Use(auth.WithRole(roleRepo, collectionRepo, dep.TrustUserHeader))

	reconciler := reconcile.New(repository.NewStore(dep.DB), entities.NewIndexer(dep.Redis), log.Named("reconcile"))
	diagramSvc := service.NewDiagramService(
		repository.NewDiagramRepository(dep.DB),
		collectionRepo,
		reconciler,
		log.Named("diagrams"),
	)
	diagramshttp.New(diagramSvc, log).Register(api)

	return r
}
