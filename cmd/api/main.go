package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"web-analysis-platform/internal/api"
	"web-analysis-platform/internal/auth"
	"web-analysis-platform/internal/config"
	"web-analysis-platform/internal/queue"
	"web-analysis-platform/internal/ratelimit"
	"web-analysis-platform/internal/registry"
	"web-analysis-platform/internal/sitemap"
	"web-analysis-platform/internal/store"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	st, err := store.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer st.Close()

	if err := st.RunMigrations(ctx); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	reg := registry.NewRedis(redisClient, cfg.MaxURLsPerAnalysis, cfg.ProgressTTL)
	q := queue.NewRedisQueue(redisClient, cfg.LeaseTimeout)
	limiter := ratelimit.NewTokenBucket(redisClient, cfg.RateLimitCapacity, cfg.RateLimitRefill, time.Hour)
	tokens := auth.NewTokens(cfg.AuthSecret, cfg.TokenTTL)
	sitemaps := sitemap.New(cfg.SitemapTimeout, cfg.ScrapeUserAgent, cfg.SitemapMaxURLs)

	server := api.New(cfg, tokens, st, reg, q, limiter, sitemaps)
	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.Router(),
	}

	log.Printf("api listening on :%s", cfg.HTTPPort)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(shutdownCtx)
}
