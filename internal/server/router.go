package server

import (
	"docrepo/internal/auth"
	"docrepo/internal/config"
	"docrepo/internal/document"
	"docrepo/internal/metrics"
	"docrepo/internal/upload"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
)

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config          config.Config
	DB              *pgxpool.Pool
	ObjectStore     *minio.Client
	AuthService     *auth.Service
	DocumentService *document.Service
	UploadService   *upload.Service
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	api := router.Group("/v1")
	if deps.AuthService != nil {
		auth.RegisterRoutes(api, deps.AuthService)

		protected := api.Group("/")
		protected.Use(auth.AuthMiddleware(deps.AuthService))
		auth.RegisterAdminRoutes(protected, deps.AuthService)

		if deps.DocumentService != nil {
			document.RegisterRoutes(protected, deps.DocumentService)
		}
		if deps.UploadService != nil {
			v2 := router.Group("/v2")
			v2.Use(auth.AuthMiddleware(deps.AuthService))
			upload.RegisterRoutes(v2, deps.UploadService)
		}
	}

	return router
}
