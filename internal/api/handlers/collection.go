package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cardvault/backend/internal/catalog"
	"github.com/cardvault/backend/internal/models"
	"github.com/cardvault/backend/internal/store"
)

type CollectionHandler struct {
	store   *store.Store
	catalog *catalog.Service
}

func NewCollectionHandler(st *store.Store, cat *catalog.Service) *CollectionHandler {
	return &CollectionHandler{store: st, catalog: cat}
}

// GetCollection returns the user's full collection grouped by group and
// type. Unauthenticated callers get a single empty Default group.
func (h *CollectionHandler) GetCollection(c *gin.Context) {
	collections, err := h.store.FetchAll(c.Request.Context(), currentUser(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, collections)
}

type addItemRequest struct {
	Group    string                `json:"group"`
	Type     models.CollectionType `json:"type" binding:"required"`
	CardID   string                `json:"card_id" binding:"required"`
	Quantity int                   `json:"quantity"`
}

func (h *CollectionHandler) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	card, err := h.catalog.GetByID(c.Request.Context(), req.CardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if card == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "card not found, please search for it first"})
		return
	}

	ref := models.CardRef{ID: card.ID, Name: card.Name, ImageURL: card.ImageURLSmall}
	result := h.store.AddItem(c.Request.Context(), currentUser(c), req.Group, req.Type, ref, req.Quantity)
	if result.Status == models.StatusError {
		c.JSON(http.StatusBadRequest, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *CollectionHandler) RemoveItem(c *gin.Context) {
	group := c.Query("group")
	typ := models.CollectionType(c.Query("type"))
	cardID := c.Query("card_id")
	if !typ.Valid() || cardID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type and card_id are required"})
		return
	}
	decrementOnly := c.DefaultQuery("decrement_only", "true") != "false"

	result := h.store.RemoveItem(c.Request.Context(), currentUser(c), group, typ, cardID, decrementOnly)
	switch result.Status {
	case models.StatusError:
		c.JSON(http.StatusBadRequest, result)
	case models.StatusNotFound:
		c.JSON(http.StatusNotFound, result)
	default:
		c.JSON(http.StatusOK, result)
	}
}

func (h *CollectionHandler) GetQuantity(c *gin.Context) {
	group := c.Query("group")
	typ := models.CollectionType(c.Query("type"))
	cardID := c.Query("card_id")
	if !typ.Valid() || cardID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type and card_id are required"})
		return
	}

	qty := h.store.GetQuantity(c.Request.Context(), currentUser(c), group, typ, cardID)
	c.JSON(http.StatusOK, gin.H{
		"quantity":      qty,
		"in_collection": qty > 0,
	})
}
