package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shinyyama/boilagbe-backend/internal/metrics"
	"go.uber.org/zap"
)

const fanoutChannel = "relay:deliver"

type fanoutFrame struct {
	UserID  string          `json:"userId"`
	Payload json.RawMessage `json:"payload"`
}

// RedisFanout spreads deliveries across instances through a Redis pub/sub channel.
// Like the in-process path it is best-effort: Redis pub/sub does not buffer for absent subscribers.
type RedisFanout struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

func NewRedisFanout(ctx context.Context, redisURL string, logger *zap.Logger) (*RedisFanout, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisFanout{client: client, channel: fanoutChannel, logger: logger.Named("fanout")}, nil
}

func (f *RedisFanout) Publish(ctx context.Context, userID string, payload []byte) error {
	body, err := encodeFrame(userID, payload)
	if err != nil {
		return err
	}
	start := time.Now()
	err = f.client.Publish(ctx, f.channel, body).Err()
	metrics.RedisPublishLatency.Observe(time.Since(start).Seconds())
	return err
}

// Run subscribes to the fanout channel and hands every frame to deliver until ctx ends.
func (f *RedisFanout) Run(ctx context.Context, deliver func(userID string, payload []byte)) {
	sub := f.client.Subscribe(ctx, f.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			userID, payload, err := decodeFrame([]byte(msg.Payload))
			if err != nil {
				f.logger.Warn("bad fanout frame", zap.Error(err))
				continue
			}
			deliver(userID, payload)
		}
	}
}

func (f *RedisFanout) Close() error {
	return f.client.Close()
}

func encodeFrame(userID string, payload []byte) ([]byte, error) {
	return json.Marshal(fanoutFrame{UserID: userID, Payload: payload})
}

func decodeFrame(b []byte) (string, []byte, error) {
	var fr fanoutFrame
	if err := json.Unmarshal(b, &fr); err != nil {
		return "", nil, err
	}
	return fr.UserID, fr.Payload, nil
}
