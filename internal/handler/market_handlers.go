package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/navid-fn/sonar/internal/bitpin"
	"github.com/navid-fn/sonar/internal/book"
	"github.com/navid-fn/sonar/internal/service"
)

type MarketHandler struct {
	marketService *service.MarketService
}

func NewMarketHandler(service *service.MarketService) *MarketHandler {
	return &MarketHandler{
		marketService: service,
	}
}

func (h *MarketHandler) GetMarkets(c *gin.Context) {
	quote := c.Query("quote")

	markets, ok := h.marketService.Markets(quote)
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "market catalog not loaded yet"})
		return
	}
	c.JSON(http.StatusOK, markets)
}

func (h *MarketHandler) GetBook(c *gin.Context) {
	marketID, ok := parseMarketID(c)
	if !ok {
		return
	}

	snapshot, err := h.marketService.Book(c.Request.Context(), marketID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (h *MarketHandler) GetStats(c *gin.Context) {
	marketID, ok := parseMarketID(c)
	if !ok {
		return
	}

	side, err := book.ParseSide(c.Query("side"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	percentage := c.DefaultQuery("percentage", "100")

	stats, err := h.marketService.Stats(c.Request.Context(), marketID, side, percentage)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *MarketHandler) Watch(c *gin.Context) {
	marketID, ok := parseMarketID(c)
	if !ok {
		return
	}

	if err := h.marketService.Watch(marketID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"watching": marketID})
}

func (h *MarketHandler) Unwatch(c *gin.Context) {
	marketID, ok := parseMarketID(c)
	if !ok {
		return
	}

	h.marketService.Unwatch(marketID)
	c.JSON(http.StatusOK, gin.H{"watching": nil})
}

func parseMarketID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "market id must be an integer"})
		return 0, false
	}
	return id, true
}

// writeError maps the error taxonomy to status codes. Transport and
// decode failures are the upstream exchange's fault, not the caller's.
func writeError(c *gin.Context, err error) {
	var (
		transportErr *bitpin.TransportError
		decodeErr    *bitpin.DecodeError
		parseErr     *book.ParseError
		notFoundErr  *service.NotFoundError
	)

	switch {
	case errors.As(err, &parseErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &transportErr), errors.As(err, &decodeErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
