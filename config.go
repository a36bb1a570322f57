package capture

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds configuration for the capture plugin and its sink.
// Every field can be set from the environment with the CAPTURE_ prefix.
type Config struct {
	// Key is sent to the collector with every request.
	Key string `env:"KEY"`

	// ServerMode disables delivery to the sink.
	ServerMode bool `env:"SERVER_MODE"`

	// Async delivers events from a background goroutine instead of the
	// dispatching one.
	Async bool `env:"ASYNC"`

	// QueueSize bounds the background delivery queue.
	QueueSize int `env:"QUEUE_SIZE"`

	// Endpoint is the HTTP collector URL.
	Endpoint string `env:"ENDPOINT"`

	// RateLimit bounds HTTP requests per second. Zero disables limiting.
	RateLimit float64 `env:"RATE_LIMIT"`

	// FlushSchedule batches HTTP deliveries on a cron schedule,
	// e.g. "@every 5s". Empty posts every event immediately.
	FlushSchedule string `env:"FLUSH_SCHEDULE"`

	// Codec is the wire encoding: "cbor", "msgpack" or "json".
	Codec string `env:"CODEC"`

	// RedisAddr selects the Redis stream sink.
	RedisAddr string `env:"REDIS_ADDR"`

	// RedisStream is the stream key for the Redis sink.
	RedisStream string `env:"REDIS_STREAM"`

	// WSURL selects the WebSocket sink.
	WSURL string `env:"WS_URL"`

	// WriteTimeout bounds each delivery.
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:    1024,
		Codec:        "cbor",
		RedisStream:  "capture:events",
		WriteTimeout: 5 * time.Second,
	}
}

// LoadConfig reads CAPTURE_* environment variables over DefaultConfig.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "CAPTURE_"}); err != nil {
		return Config{}, fmt.Errorf("capture: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.Async && c.QueueSize <= 0:
		return fmt.Errorf("%w: queue size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.RateLimit < 0:
		return fmt.Errorf("%w: rate limit must not be negative", ErrInvalidConfig)
	case c.WriteTimeout < 0:
		return fmt.Errorf("%w: write timeout must not be negative", ErrInvalidConfig)
	}
	switch c.Codec {
	case "", "cbor", "msgpack", "json":
	default:
		return fmt.Errorf("%w: unknown codec %q", ErrInvalidConfig, c.Codec)
	}
	return nil
}
