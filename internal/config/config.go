package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

var ErrMissingTokenSecret = errors.New("TOKEN_SECRET must be set in release mode")

const (
	KarmaModeCount = "count"
	KarmaModeVotes = "votes"
)

type Config struct {
	Addr        string
	DatabaseURL string
	GinMode     string
	// Token codec
	TokenSecret string
	TokenTTL    time.Duration
	// Redis is optional; when set, vote casting is serialized across instances.
	RedisURL    string
	VoteLockTTL time.Duration
	// KarmaMode selects how user karma is derived: "count" of authored items
	// or net "votes" received on them.
	KarmaMode string
	CacheSize int
}

func Load() Config {
	return Config{
		Addr:        getenv("API_ADDR", ":"+getenv("PORT", "8080")),
		DatabaseURL: getenv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=agora port=5432 sslmode=disable TimeZone=UTC"),
		GinMode:     getenv("GIN_MODE", "release"),
		TokenSecret: getenv("TOKEN_SECRET", ""),
		TokenTTL:    time.Duration(getenvInt("TOKEN_TTL_HOURS", 30*24)) * time.Hour,
		RedisURL:    getenv("REDIS_URL", ""),
		VoteLockTTL: time.Duration(getenvInt("VOTE_LOCK_TTL_SECONDS", 10)) * time.Second,
		KarmaMode:   karmaMode(getenv("KARMA_MODE", KarmaModeCount)),
		CacheSize:   getenvInt("CACHE_SIZE", 500),
	}
}

// Validate refuses a release config without a token secret. In any other
// mode a missing secret is replaced by a random one that lives as long as
// the process; the returned warning says so.
func (c *Config) Validate() (warning string, err error) {
	if c.TokenSecret != "" {
		return "", nil
	}
	if c.GinMode == gin.ReleaseMode {
		return "", ErrMissingTokenSecret
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token secret: %w", err)
	}
	c.TokenSecret = hex.EncodeToString(buf)
	return "TOKEN_SECRET is not set; using a random secret, tokens will not survive a restart", nil
}

func karmaMode(value string) string {
	if value == KarmaModeVotes {
		return KarmaModeVotes
	}
	return KarmaModeCount
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
