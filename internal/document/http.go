package document

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"docrepo/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RegisterRoutes mounts document operations under the provided router group.
// Write operations additionally require the EDITOR or ADMIN role.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}

	group.GET("/documents", handler.listDocuments)
	group.GET("/documents/:documentID", handler.getDocument)
	group.GET("/documents/:documentID/download", handler.downloadDocument)

	editors := group.Group("/")
	editors.Use(auth.RequireRole(auth.RoleAdmin, auth.RoleEditor))
	editors.POST("/documents", handler.uploadDocument)
	editors.PUT("/documents/:documentID", handler.updateDocument)
	editors.DELETE("/documents/:documentID", handler.deleteDocument)
}

type httpHandler struct {
	service *Service
}

func (h *httpHandler) uploadDocument(c *gin.Context) {
	userID, user, ok := auth.RequireUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field is required"})
		return
	}

	tags := parseTags(c.PostForm("tags"))
	description := c.PostForm("description")

	doc, err := h.service.Upload(c.Request.Context(), Owner{ID: userID, Username: user.Username}, fileHeader, tags, description)
	if err != nil {
		switch err {
		case ErrFileTooLarge:
			c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upload document"})
		}
		return
	}

	c.JSON(http.StatusCreated, doc)
}

func (h *httpHandler) getDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("documentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}

	doc, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if err == ErrDocumentNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch document"})
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *httpHandler) listDocuments(c *gin.Context) {
	page := pageFromQuery(c)

	var (
		result Page
		err    error
	)
	switch {
	case c.Query("owner") != "":
		var ownerID uuid.UUID
		ownerID, err = uuid.Parse(c.Query("owner"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid owner id"})
			return
		}
		result, err = h.service.ListByOwner(c.Request.Context(), ownerID, page)
	case c.Query("tag") != "":
		result, err = h.service.ListByTag(c.Request.Context(), c.Query("tag"), page)
	case c.Query("search") != "":
		result, err = h.service.Search(c.Request.Context(), c.Query("search"), page)
	default:
		result, err = h.service.List(c.Request.Context(), page)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list documents"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) downloadDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("documentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}

	doc, reader, err := h.service.Download(c.Request.Context(), id)
	if err != nil {
		switch err {
		case ErrDocumentNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to download document"})
		}
		return
	}
	defer reader.Close()

	c.Header("Content-Type", doc.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.OriginalFilename))
	c.Header("Content-Length", fmt.Sprintf("%d", doc.SizeBytes))

	if _, err := io.Copy(c.Writer, reader); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
}

type updateDocumentRequest struct {
	Filename    *string  `json:"filename"`
	Tags        []string `json:"tags"`
	Description *string  `json:"description"`
}

func (h *httpHandler) updateDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("documentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}

	var req updateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.service.UpdateMetadata(c.Request.Context(), id, UpdateRequest{
		Filename:    req.Filename,
		Tags:        req.Tags,
		Description: req.Description,
	})
	if err != nil {
		switch err {
		case ErrDocumentNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update document"})
		}
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *httpHandler) deleteDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("documentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		switch err {
		case ErrDocumentNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete document"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}

func pageFromQuery(c *gin.Context) PageRequest {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	return PageRequest{Page: page, Size: size}.Normalize()
}

func parseTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
