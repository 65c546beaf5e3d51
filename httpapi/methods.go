package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/spooky-finn/go-binance-feed/domain"
)

type startFeedRequest struct {
	// Symbol in BASE/QUOTE form, e.g. "BTC/USDT".
	Symbol   string `json:"symbol" binding:"required"`
	Interval string `json:"interval" binding:"required"`
}

func (s *Server) startFeed(c *gin.Context) {
	var req startFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key, err := subscriptionKey(req.Symbol, req.Interval)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.feed.Start(key); err != nil {
		if errors.Is(err, domain.ErrFeedExists) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		logger.Printf("failed to start feed %s: %s", key.String(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"key": key.String()})
}

func (s *Server) stopFeed(c *gin.Context) {
	key, err := keyFromPath(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.feed.Stop(key); err != nil {
		if errors.Is(err, domain.ErrFeedNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) getCandles(c *gin.Context) {
	key, err := keyFromPath(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	window, err := s.feed.Window(key)
	if err != nil {
		if errors.Is(err, domain.ErrFeedNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":   key.Symbol.String(),
		"interval": key.Interval,
		"candles":  window,
	})
}

func (s *Server) getDepth(c *gin.Context) {
	key, err := keyFromPath(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snapshot, err := s.feed.Depth(key)
	if err != nil {
		if errors.Is(err, domain.ErrFeedNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

// keyFromPath reads a subscription key from :symbol/:interval path params.
// Path symbols use a dash instead of the slash: "BTC-USDT".
func keyFromPath(c *gin.Context) (domain.SubscriptionKey, error) {
	symbol := strings.ReplaceAll(c.Param("symbol"), "-", "/")
	return subscriptionKey(symbol, c.Param("interval"))
}

func subscriptionKey(symbol, interval string) (domain.SubscriptionKey, error) {
	ms, err := domain.NewMarketSymbolFromString(symbol)
	if err != nil {
		return domain.SubscriptionKey{}, err
	}
	return domain.NewSubscriptionKey(ms, interval)
}
