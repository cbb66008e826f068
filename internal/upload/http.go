package upload

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"docrepo/internal/auth"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the chunked upload protocol under the provided
// group. All operations require the EDITOR or ADMIN role.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}

	uploads := group.Group("/documents/upload")
	uploads.Use(auth.RequireRole(auth.RoleAdmin, auth.RoleEditor))
	{
		uploads.POST("/init", handler.initUpload)
		uploads.POST("/:uploadID/chunk/:chunkIndex", handler.uploadChunk)
		uploads.GET("/:uploadID/status", handler.getStatus)
		uploads.POST("/:uploadID/complete", handler.completeUpload)
		uploads.DELETE("/:uploadID", handler.cancelUpload)
	}
}

type httpHandler struct {
	service *Service
}

func (h *httpHandler) initUpload(c *gin.Context) {
	userID, user, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req InitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.Init(c.Request.Context(), Owner{ID: userID, Username: user.Username}, req)
	if err != nil {
		switch err {
		case ErrInvalidFileSize:
			c.JSON(http.StatusBadRequest, gin.H{"error": "file size must be positive"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to initialize upload"})
		}
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *httpHandler) uploadChunk(c *gin.Context) {
	uploadID := c.Param("uploadID")
	chunkIndex, err := strconv.Atoi(c.Param("chunkIndex"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chunk index"})
		return
	}

	fileHeader, err := c.FormFile("chunk")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chunk field is required"})
		return
	}

	chunk, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read chunk payload"})
		return
	}
	defer chunk.Close()

	resp, err := h.service.UploadChunk(c.Request.Context(), uploadID, chunkIndex, chunk)
	if err != nil {
		respondUploadError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *httpHandler) getStatus(c *gin.Context) {
	resp, err := h.service.Status(c.Param("uploadID"))
	if err != nil {
		respondUploadError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *httpHandler) completeUpload(c *gin.Context) {
	// The body is optional; chunked transfers report ContentLength -1, so
	// bind unconditionally and treat an empty body (io.EOF) as no overrides.
	var req CompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.service.Complete(c.Request.Context(), c.Param("uploadID"), req)
	if err != nil {
		respondUploadError(c, err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

func (h *httpHandler) cancelUpload(c *gin.Context) {
	if err := h.service.Cancel(c.Param("uploadID")); err != nil {
		respondUploadError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func respondUploadError(c *gin.Context, err error) {
	var incomplete *IncompleteError
	switch {
	case errors.Is(err, ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "upload session not found"})
	case errors.Is(err, ErrSessionExpired):
		c.JSON(http.StatusGone, gin.H{"error": "upload session expired"})
	case errors.Is(err, ErrInvalidChunkIndex):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chunk index"})
	case errors.As(err, &incomplete):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":          "upload not complete",
			"missing_chunks": incomplete.Missing,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload storage failure"})
	}
}
