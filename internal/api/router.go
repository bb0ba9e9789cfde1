package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/faceliveness/internal/api/handlers"
	"github.com/your-org/faceliveness/internal/api/ws"
	"github.com/your-org/faceliveness/internal/auth"
	"github.com/your-org/faceliveness/internal/queue"
	"github.com/your-org/faceliveness/internal/storage"
	"github.com/your-org/faceliveness/internal/vision"
)

type RouterConfig struct {
	APIKey   string
	DB       *storage.PostgresStore
	MinIO    *storage.MinIOStore
	Producer *queue.Producer
	Hub      *ws.Hub
	Pipeline *vision.Pipeline
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer, cfg.Pipeline)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket feed of verdict events
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Liveness verification
	verifyH := handlers.NewVerifyHandler(cfg.Pipeline, cfg.DB, cfg.MinIO, cfg.Producer)
	v1.POST("/verify", verifyH.Verify)

	// Collections
	colH := handlers.NewCollectionHandler(cfg.DB)
	v1.POST("/collections", colH.Create)
	v1.GET("/collections", colH.List)
	v1.GET("/collections/:id", colH.Get)
	v1.DELETE("/collections/:id", colH.Delete)

	// Persons & Faces
	personH := handlers.NewPersonHandler(cfg.DB, cfg.MinIO, cfg.Pipeline)
	v1.POST("/persons", personH.Create)
	v1.GET("/persons", personH.List)
	v1.GET("/persons/:id", personH.Get)
	v1.POST("/persons/:id/faces", personH.AddFace)
	v1.GET("/persons/:id/faces", personH.ListFaces)
	v1.DELETE("/persons/:id/faces/:faceId", personH.DeleteFace)
	v1.POST("/search", personH.Search)

	return r
}
