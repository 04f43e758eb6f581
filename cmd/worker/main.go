package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"web-analysis-platform/internal/config"
	"web-analysis-platform/internal/llm"
	"web-analysis-platform/internal/pipeline"
	"web-analysis-platform/internal/queue"
	"web-analysis-platform/internal/registry"
	"web-analysis-platform/internal/scrape"
	"web-analysis-platform/internal/store"
	"web-analysis-platform/internal/telemetry"
	"web-analysis-platform/internal/worker"
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

	client, err := llm.NewOpenAI(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMTimeout)
	if err != nil {
		log.Fatalf("init llm client: %v", err)
	}
	scraper := scrape.New(cfg.ScrapeTimeout, cfg.ScrapeUserAgent)
	runner := pipeline.New(reg, scraper, client, st)

	processor := worker.NewProcessor(cfg, q, st, runner)

	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, telemetry.Handler()); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	log.Printf("worker started, lease=%s model=%s", cfg.LeaseTimeout, cfg.LLMModel)
	if err := processor.Run(ctx); err != nil {
		log.Printf("worker stopped: %v", err)
	}
}
