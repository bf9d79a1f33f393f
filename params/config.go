package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Gateway struct {
	// QueueCapacity is the total ingest buffer size, split evenly
	// across collector partitions.
	QueueCapacity int
	MaxBatchSize  int
	// MaxBatchDelay bounds how long a collector keeps a non-empty
	// batch open after its first order arrived.
	MaxBatchDelay time.Duration
	Collectors    int
	Workers       int
}

type MarketData struct {
	// BroadcastInterval paces snapshot fanout to stream clients.
	BroadcastInterval time.Duration
	SnapshotDepth     int
	Symbols           []string
	// WriteTimeout bounds a single WS send so one slow client cannot
	// stall the fanout for the rest.
	WriteTimeout time.Duration
	// SendBuffer is the per-client outbound queue; a client that falls
	// this far behind is dropped.
	SendBuffer int
}

type Engine struct {
	MakerFeeRate float64
	TakerFeeRate float64
	// TradeHistory is the per-symbol in-memory ring served on the
	// recent-trades endpoint.
	TradeHistory int
}

type Server struct {
	Addr    string
	DataDir string
}

type Config struct {
	Gateway    Gateway
	MarketData MarketData
	Engine     Engine
	Server     Server
}

func Default() Config {
	return Config{
		Gateway: Gateway{
			QueueCapacity: 10000,
			MaxBatchSize:  64,
			MaxBatchDelay: 2 * time.Second,
			Collectors:    4,
			Workers:       8,
		},
		MarketData: MarketData{
			BroadcastInterval: 50 * time.Millisecond,
			SnapshotDepth:     5,
			Symbols:           []string{"BTC-USD"},
			WriteTimeout:      2 * time.Second,
			SendBuffer:        64,
		},
		Engine: Engine{
			MakerFeeRate: 0.001,
			TakerFeeRate: 0.002,
			TradeHistory: 256,
		},
		Server: Server{
			Addr:    ":8080",
			DataDir: "data",
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v, ok := envInt("GATEWAY_QUEUE_CAPACITY"); ok && v > 0 {
		cfg.Gateway.QueueCapacity = v
	}
	if v, ok := envInt("GATEWAY_MAX_BATCH_SIZE"); ok && v > 0 {
		cfg.Gateway.MaxBatchSize = v
	}
	if v, ok := envInt("GATEWAY_MAX_BATCH_DELAY_MS"); ok && v > 0 {
		cfg.Gateway.MaxBatchDelay = time.Duration(v) * time.Millisecond
	}
	if v, ok := envInt("GATEWAY_COLLECTORS"); ok && v > 0 {
		cfg.Gateway.Collectors = v
	}
	if v, ok := envInt("GATEWAY_WORKERS"); ok && v > 0 {
		cfg.Gateway.Workers = v
	}

	if v, ok := envInt("MARKETDATA_BROADCAST_MS"); ok && v > 0 {
		cfg.MarketData.BroadcastInterval = time.Duration(v) * time.Millisecond
	}
	if v, ok := envInt("MARKETDATA_SNAPSHOT_DEPTH"); ok && v > 0 {
		cfg.MarketData.SnapshotDepth = v
	}
	if v, ok := envInt("MARKETDATA_WRITE_TIMEOUT_MS"); ok && v > 0 {
		cfg.MarketData.WriteTimeout = time.Duration(v) * time.Millisecond
	}
	if syms := os.Getenv("MARKETDATA_SYMBOLS"); syms != "" {
		var out []string
		for _, s := range strings.Split(syms, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			cfg.MarketData.Symbols = out
		}
	}

	cfg.Server.Addr = getEnv("SERVER_ADDR", cfg.Server.Addr)
	cfg.Server.DataDir = getEnv("DATA_DIR", cfg.Server.DataDir)

	return cfg
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
