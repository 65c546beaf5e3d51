package httpapi

import (
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/spooky-finn/go-binance-feed/domain"
)

var logger = log.New(os.Stdout, "[httpapi] ", log.LstdFlags)

// MarketFeed is the slice of the feed use case the HTTP surface consumes.
type MarketFeed interface {
	Start(key domain.SubscriptionKey) error
	Stop(key domain.SubscriptionKey) error
	Window(key domain.SubscriptionKey) ([]domain.Candle, error)
	Depth(key domain.SubscriptionKey) (domain.DepthSnapshot, error)
}

type Server struct {
	engine *gin.Engine
	feed   MarketFeed
}

func NewServer(feed MarketFeed) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine: engine,
		feed:   feed,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.engine.Group("/api/v1")
	api.POST("/feeds", s.startFeed)
	api.DELETE("/feeds/:symbol/:interval", s.stopFeed)
	api.GET("/feeds/:symbol/:interval/candles", s.getCandles)
	api.GET("/feeds/:symbol/:interval/depth", s.getDepth)

	s.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func (s *Server) Run(addr string) error {
	logger.Printf("http server listening at %s", addr)
	return s.engine.Run(addr)
}

// Handler exposes the routed engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}
