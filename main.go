package main

import (
	"log"

	"github.com/go-redis/redis/v8"

	"github.com/spooky-finn/go-binance-feed/config"
	"github.com/spooky-finn/go-binance-feed/httpapi"
	"github.com/spooky-finn/go-binance-feed/infrastructure/prometheus"
	"github.com/spooky-finn/go-binance-feed/infrastructure/rediscache"
	"github.com/spooky-finn/go-binance-feed/provider/binance"
	"github.com/spooky-finn/go-binance-feed/usecase"
)

func main() {
	conf := config.Load()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     conf.RedisAddr,
		Password: conf.RedisPassword,
		DB:       conf.RedisDB,
	})

	cache := rediscache.NewWindowCache(redisClient, conf.WindowLimit)
	syncAPI := binance.NewBinanceSyncAPI(conf.RestEndpoint)
	streamAPI := binance.NewBinanceStreamAPI(conf.StreamEndpoint)

	feed := usecase.NewMarketFeedUseCase(syncAPI, streamAPI, cache, conf.WindowLimit)
	defer feed.Close()

	go promclient.StartPromClientServer(conf.MetricsAddr)

	server := httpapi.NewServer(feed)
	if err := server.Run(conf.HTTPAddr); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}
