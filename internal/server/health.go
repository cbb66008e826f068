package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const readinessTimeout = 5 * time.Second

type readinessCheck struct {
	component string
	run       func(ctx context.Context) error
}

func registerHealthRoutes(router *gin.Engine, deps Dependencies) {
	checks := []readinessCheck{
		{component: "postgres", run: deps.DB.Ping},
		{component: "minio", run: func(ctx context.Context) error {
			return checkDocumentsBucket(ctx, deps)
		}},
	}

	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/health/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		for _, check := range checks {
			if err := check.run(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":    "degraded",
					"component": check.component,
					"error":     err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// checkDocumentsBucket verifies the bucket holding document content is
// reachable and present, not just that the object store answers.
func checkDocumentsBucket(ctx context.Context, deps Dependencies) error {
	bucket := deps.Config.MinIO.Bucket
	exists, err := deps.ObjectStore.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("documents bucket %q does not exist", bucket)
	}
	return nil
}
