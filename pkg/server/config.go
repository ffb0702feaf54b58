package server

import (
	"os"
	"strconv"
	"time"

	"github.com/showroomhq/showroom/pkg/callqueue"
	"github.com/showroomhq/showroom/pkg/collab"
)

// Settings gathers everything the process reads at startup. Flags
// override environment variables; environment variables override
// defaults.
type Settings struct {
	Host string
	Port int

	OpenAIAPIKey string
	OpenAIModel  string

	RedisEnabled  bool
	RedisAddr     string
	RedisGroup    string
	RedisConsumer string

	JanitorInterval time.Duration
	GraceWindow     time.Duration
	CollabTTL       time.Duration
	RoomIdleTimeout time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		Host:            envStr("SHOWROOM_HOST", "localhost"),
		Port:            envInt("SHOWROOM_PORT", 3000),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     os.Getenv("OPENAI_MODEL"),
		RedisEnabled:    envBool("SHOWROOM_REDIS_ENABLED", false),
		RedisAddr:       envStr("SHOWROOM_REDIS_ADDR", "localhost:6379"),
		RedisGroup:      envStr("SHOWROOM_REDIS_GROUP", "showroom"),
		RedisConsumer:   envStr("SHOWROOM_REDIS_CONSUMER", "showroom-server"),
		JanitorInterval: callqueue.DefaultJanitorInterval,
		GraceWindow:     callqueue.DefaultGraceWindow,
		CollabTTL:       callqueue.DefaultCollabTTL,
		RoomIdleTimeout: collab.DefaultRoomIdleTimeout,
	}
}

func (s Settings) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
