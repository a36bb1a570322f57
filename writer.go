package capture

import (
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/xraph/capture/sink"
	"github.com/xraph/capture/sink/httpsink"
	"github.com/xraph/capture/sink/redissink"
	"github.com/xraph/capture/sink/wssink"
)

// OpenWriter builds the transport cfg selects. Endpoint wins over
// RedisAddr, which wins over WSURL. It returns ErrNoSink when none is
// set. The caller owns the returned writer.
func OpenWriter(cfg Config, logger *slog.Logger) (sink.Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	codec := sink.GetCodec(cfg.Codec)

	switch {
	case cfg.Endpoint != "":
		s, err := httpsink.New(cfg.Endpoint,
			httpsink.WithKey(cfg.Key),
			httpsink.WithCodec(codec),
			httpsink.WithRateLimit(cfg.RateLimit, 1),
			httpsink.WithFlushSchedule(cfg.FlushSchedule),
			httpsink.WithLogger(logger.With(slog.String("sink", "http"))),
		)
		if err != nil {
			return nil, err
		}
		return s, nil

	case cfg.RedisAddr != "":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		opts := []redissink.Option{
			redissink.WithCodec(codec),
			redissink.WithLogger(logger.With(slog.String("sink", "redis"))),
		}
		if cfg.RedisStream != "" {
			opts = append(opts, redissink.WithStream(cfg.RedisStream))
		}
		return &redisWriter{Sink: redissink.New(client, opts...), client: client}, nil

	case cfg.WSURL != "":
		return wssink.New(cfg.WSURL,
			wssink.WithKey(cfg.Key),
			wssink.WithCodec(codec),
			wssink.WithLogger(logger.With(slog.String("sink", "ws"))),
		), nil
	}
	return nil, ErrNoSink
}

// redisWriter owns the client it writes through.
type redisWriter struct {
	*redissink.Sink
	client *redis.Client
}

func (w *redisWriter) Close() error {
	return errors.Join(w.Sink.Close(), w.client.Close())
}
