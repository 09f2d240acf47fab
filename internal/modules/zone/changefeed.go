package zone

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ChangeChannel is the Redis pub/sub channel announcing zone edits.
const ChangeChannel = "zones:changed"

// ChangeFeed fans a "zones changed" signal out to every API instance so
// each one drops its cached mapping.
type ChangeFeed struct {
	redis  *redis.Client
	logger *slog.Logger
}

func NewChangeFeed(client *redis.Client, logger *slog.Logger) *ChangeFeed {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChangeFeed{redis: client, logger: logger}
}

// Publish announces that the stored mapping changed.
func (f *ChangeFeed) Publish(ctx context.Context) error {
	return f.redis.Publish(ctx, ChangeChannel, time.Now().UTC().Format(time.RFC3339Nano)).Err()
}

// Run subscribes to ChangeChannel and calls onChange for every message
// until ctx is done.
func (f *ChangeFeed) Run(ctx context.Context, onChange func()) error {
	sub := f.redis.Subscribe(ctx, ChangeChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	f.logger.Info("listening for zone changes", "channel", ChangeChannel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			f.logger.Info("zone change received", "at", msg.Payload)
			onChange()
		}
	}
}
