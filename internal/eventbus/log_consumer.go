package eventbus

import (
	"context"

	"go.uber.org/zap"
)

// LogConsumer logs every event at debug level.
type LogConsumer struct {
	log *zap.Logger
}

func NewLogConsumer(log *zap.Logger) *LogConsumer {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogConsumer{log: log.Named("event")}
}

func (c *LogConsumer) HandleEvent(_ context.Context, evt Event) error {
	c.log.Debug(evt.Type,
		zap.String("session", evt.SessionID),
		zap.Uint64("version", evt.Version),
		zap.String("detail", evt.Detail))
	return nil
}
