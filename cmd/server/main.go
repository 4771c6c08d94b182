package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agora/internal/auth"
	"agora/internal/config"
	"agora/internal/db"
	"agora/internal/router"
	"agora/internal/services"
	"agora/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	var addr, envFile string
	var migrateOnly bool

	flags := pflag.NewFlagSet("agora", pflag.ExitOnError)
	flags.StringVar(&addr, "addr", "", "listen address (overrides API_ADDR/PORT)")
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	flags.BoolVar(&migrateOnly, "migrate-only", false, "migrate the database schema and exit")
	flags.Parse(os.Args[1:])

	if err := godotenv.Load(envFile); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	cfg := config.Load()
	if addr != "" {
		cfg.Addr = addr
	}
	warning, err := cfg.Validate()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if warning != "" {
		log.Printf("WARNING: %s", warning)
	}

	conn, err := db.Init(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if migrateOnly {
		log.Println("Migration finished")
		return
	}

	var locker services.Locker
	if cfg.RedisURL != "" {
		redisLocker, err := services.NewRedisLocker(cfg.RedisURL, cfg.VoteLockTTL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisLocker.Close()
		log.Printf("Using Redis for vote serialization")
		locker = redisLocker
	} else {
		log.Printf("Using in-process vote serialization")
		locker = services.NewLocalLocker()
	}

	cache, err := utils.NewCache(cfg.CacheSize)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}

	codec := auth.NewCodec([]byte(cfg.TokenSecret), cfg.TokenTTL)
	notifications := services.NewNotificationService(conn)
	posts := services.NewPostService(conn, cache)

	gin.SetMode(cfg.GinMode)
	r := gin.Default()
	router.RegisterRoutes(r, router.Deps{
		DB:            conn,
		Codec:         codec,
		Users:         services.NewUserService(conn, codec, cfg.KarmaMode),
		Subreddits:    services.NewSubredditService(conn),
		Posts:         posts,
		Comments:      services.NewCommentService(conn, cache, notifications),
		Votes:         services.NewVoteService(conn, locker, cache),
		Notifications: notifications,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Agora server starting on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
