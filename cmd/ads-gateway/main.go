package main

import (
	"context"
	"net/http"
	"time"

	"ads-gateway/internal/config"
	"ads-gateway/internal/fbapi"
	"ads-gateway/internal/kvstore"
	"ads-gateway/internal/logging"
	"ads-gateway/internal/ratelimit"
	"ads-gateway/internal/retry"
	"ads-gateway/internal/session"
	httptransport "ads-gateway/internal/transport/http"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Server.RedisAddr,
		Password: cfg.Server.RedisPassword,
		DB:       cfg.Server.RedisDB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Server.RedisAddr).Msg("redis ping failed")
	}
	kv := kvstore.NewRedis(rdb)

	limiter := ratelimit.New(ratelimit.Tier(cfg.Server.RateLimitTier))
	limiter.StartJanitor(context.Background(), time.Minute)

	api := fbapi.NewClient(limiter, cfg.Provider, fbapi.WithRetryPolicy(retryPolicy(cfg.Limits)))
	sessions := session.NewManager(kv, cfg.Auth, session.WithRetryPolicy(retryPolicy(cfg.Limits)))

	r := httptransport.NewRouter(kv, sessions, api, cfg.Limits)
	httptransport.LogRoutes(r)

	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	log.Info().Str("addr", cfg.Server.HTTPAddr).Str("tier", cfg.Server.RateLimitTier).Msg("http listening")
	log.Fatal().Err(server.ListenAndServe()).Msg("server stopped")
}

func retryPolicy(limits config.LimitsConfig) retry.Policy {
	return retry.Policy{
		MaxAttempts:     limits.RetryMaxAttempts,
		InitialInterval: limits.RetryInitialInterval,
		MaxInterval:     limits.RetryMaxInterval,
		Multiplier:      limits.RetryMultiplier,
		Jitter:          limits.RetryJitter,
	}
}
