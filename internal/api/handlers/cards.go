package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cardvault/backend/internal/catalog"
	"github.com/cardvault/backend/internal/models"
	"github.com/cardvault/backend/internal/services"
	"github.com/cardvault/backend/internal/store"
)

type CardHandler struct {
	catalog     *catalog.Service
	resolver    *store.PriceResolver
	priceWorker *services.PriceWorker
}

func NewCardHandler(cat *catalog.Service, resolver *store.PriceResolver, worker *services.PriceWorker) *CardHandler {
	return &CardHandler{catalog: cat, resolver: resolver, priceWorker: worker}
}

func (h *CardHandler) SearchCards(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	cards, err := h.catalog.GetByName(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, models.CardSearchResult{
		Cards:      cards,
		TotalCount: len(cards),
		HasMore:    false,
	})
}

// GetCard returns a card record plus its resolved market price. A missing
// price is a valid state and renders as null, not an error.
func (h *CardHandler) GetCard(c *gin.Context) {
	card, err := h.catalog.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if card == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"card":         card,
		"market_price": h.resolver.Resolve(card.ID, nil),
	})
}

func (h *CardHandler) RefreshCardPrice(c *gin.Context) {
	position := h.priceWorker.QueueRefresh(c.Param("id"))
	c.JSON(http.StatusAccepted, gin.H{"queued": true, "position": position})
}

func (h *CardHandler) GetPriceStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.priceWorker.Status())
}
