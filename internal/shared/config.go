package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MetricsAddr    string
	MySQLDSN       string
	RedisAddr      string
	RedisDB        int
	RedisPass      string
	InferenceURL   string
	InferenceToken string
	InferenceRPS   int
	ModelMaxTokens int
	Workers        int
	CacheTTL       time.Duration
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:         env("APP_ENV", "prod"),
		HTTPAddr:       env("HTTP_ADDR", ":8080"),
		MetricsAddr:    env("METRICS_ADDR", ":9100"),
		MySQLDSN:       env("MYSQL_DSN", "root:root@tcp(localhost:3306)/reviews?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:      env("REDIS_ADDR", "localhost:6379"),
		RedisPass:      env("REDIS_PASSWORD", ""),
		RedisDB:        atoi("REDIS_DB", 0),
		InferenceURL:   env("INFERENCE_URL", "https://api-inference.huggingface.co/models/mishitm/Sentiment-Classifier-Skincare"),
		InferenceToken: env("INFERENCE_TOKEN", ""),
		InferenceRPS:   atoi("INFERENCE_RPS", 5),
		ModelMaxTokens: atoi("MODEL_MAX_TOKENS", 512),
		Workers:        atoi("ENRICH_WORKERS", 1),
		CacheTTL:       time.Duration(atoi("CACHE_TTL_SECONDS", 3600)) * time.Second,
	}
	if c.InferenceToken == "" {
		log.Warn().Msg("INFERENCE_TOKEN is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
