package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cardvault/backend/internal/models"
	"github.com/cardvault/backend/internal/services"
)

type ShareHandler struct {
	sharing *services.SharingService
}

func NewShareHandler(sharing *services.SharingService) *ShareHandler {
	return &ShareHandler{sharing: sharing}
}

type createShareRequest struct {
	GroupName         string                 `json:"group_name" binding:"required"`
	Scope             models.ShareScope      `json:"scope" binding:"required"`
	ExpiresInDays     float64                `json:"expires_in_days" binding:"required"`
	Permission        models.SharePermission `json:"permission"`
	PasswordProtected bool                   `json:"password_protected"`
	Password          string                 `json:"password"`
	Collaborative     bool                   `json:"collaborative"`
}

func (h *ShareHandler) CreateShare(c *gin.Context) {
	var req createShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.sharing.CreateSnapshot(c.Request.Context(), currentUser(c), req.GroupName, req.Scope, req.ExpiresInDays, services.SnapshotOptions{
		Permission:        req.Permission,
		PasswordProtected: req.PasswordProtected,
		Password:          req.Password,
		Collaborative:     req.Collaborative,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *ShareHandler) ListShares(c *gin.Context) {
	snapshots, err := h.sharing.ListSnapshots(c.Request.Context(), currentUser(c), c.Query("group"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshots)
}

// AccessShare serves a share link. This route is public; the opaque token
// is the only addressing and the optional password the only gate.
func (h *ShareHandler) AccessShare(c *gin.Context) {
	password := c.Query("password")
	if password == "" {
		password = c.GetHeader("X-Share-Password")
	}

	payload, err := h.sharing.AccessSnapshot(c.Request.Context(), c.Param("id"), password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}
