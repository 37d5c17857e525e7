package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Domenick1991/hotelops/internal/domain"
	"github.com/gin-gonic/gin"
)

type Quoter interface {
	Quote(ctx context.Context, unitType string, checkIn, checkOut time.Time) (*domain.PriceQuote, error)
}

type QuoteHandler struct {
	pricer Quoter
}

func NewQuoteHandler(pricer Quoter) *QuoteHandler {
	return &QuoteHandler{pricer: pricer}
}

func (h *QuoteHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.quote)
}

func (h *QuoteHandler) quote(c *gin.Context) {
	unitType := c.Query("unit_type")
	if unitType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unit_type is required"})
		return
	}
	checkIn, err := parseDate(c.Query("check_in"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_in must be YYYY-MM-DD"})
		return
	}
	checkOut, err := parseDate(c.Query("check_out"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "check_out must be YYYY-MM-DD"})
		return
	}

	quote, err := h.pricer.Quote(c.Request.Context(), unitType, checkIn, checkOut)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}
