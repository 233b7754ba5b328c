package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cardvault/backend/internal/models"
	"github.com/cardvault/backend/internal/services"
)

type ImportExportHandler struct {
	impexp *services.ImportExportService
}

func NewImportExportHandler(impexp *services.ImportExportService) *ImportExportHandler {
	return &ImportExportHandler{impexp: impexp}
}

func (h *ImportExportHandler) ExportGroup(c *gin.Context) {
	var typ *models.CollectionType
	if raw := c.Query("type"); raw != "" {
		t := models.CollectionType(raw)
		typ = &t
	}

	doc, err := h.impexp.ExportGroup(c.Request.Context(), currentUser(c), c.Param("name"), typ)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

type importRequest struct {
	Document        *models.ExportDocument `json:"document" binding:"required"`
	TargetGroup     string                 `json:"target_group" binding:"required"`
	CreateIfMissing bool                   `json:"create_if_missing"`
}

func (h *ImportExportHandler) ImportDocument(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target := services.ExistingGroup(req.TargetGroup)
	if req.CreateIfMissing {
		target = services.NewGroup(req.TargetGroup)
	}

	report, err := h.impexp.ImportDocument(c.Request.Context(), currentUser(c), req.Document, target)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
