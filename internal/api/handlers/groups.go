package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cardvault/backend/internal/models"
	"github.com/cardvault/backend/internal/services"
	"github.com/cardvault/backend/internal/store"
)

type GroupHandler struct {
	store       *store.Store
	valueWorker *services.ValueWorker
}

func NewGroupHandler(st *store.Store, vw *services.ValueWorker) *GroupHandler {
	return &GroupHandler{store: st, valueWorker: vw}
}

func (h *GroupHandler) ListGroups(c *gin.Context) {
	collections, err := h.store.FetchAll(c.Request.Context(), currentUser(c))
	if err != nil {
		abortWithError(c, err)
		return
	}

	groups := make([]models.Group, 0, len(collections.Groups))
	for _, gc := range collections.Groups {
		groups = append(groups, gc.Group)
	}
	c.JSON(http.StatusOK, groups)
}

type groupRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.store.CreateGroup(c.Request.Context(), currentUser(c), req.Name, req.Description)
	if result.Status == models.StatusError {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *GroupHandler) RenameGroup(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := h.store.RenameGroup(c.Request.Context(), currentUser(c), c.Param("name"), req.Name, req.Description)
	if result.Status == models.StatusError {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	result := h.store.DeleteGroup(c.Request.Context(), currentUser(c), c.Param("name"))
	if result.Status == models.StatusError {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *GroupHandler) GetGroupValue(c *gin.Context) {
	value, err := h.store.ComputeGroupValue(c.Request.Context(), currentUser(c), c.Param("name"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, value)
}

// GetValueHistory returns group value snapshots for charting
func (h *GroupHandler) GetValueHistory(c *gin.Context) {
	userID := currentUser(c)
	if userID == "" {
		abortWithError(c, models.ErrAuthRequired)
		return
	}

	period := c.DefaultQuery("period", "month")
	snapshots, err := h.valueWorker.GetHistory(userID, c.Param("name"), period)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.ValueHistoryResponse{
		Snapshots: snapshots,
		Period:    period,
	})
}
