package messaging

import (
	"context"

	"go.uber.org/zap"
	"pay-router.backend/internal/domain/entities"
	"pay-router.backend/pkg/logger"
)

// LogNotifier writes notifications to the log when no broker is configured.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (LogNotifier) Notify(ctx context.Context, n entities.Notification) error {
	fields := []zap.Field{
		zap.String("kind", string(n.Kind)),
		zap.String("subject", n.Subject),
		zap.Time("occurred_at", n.OccurredAt),
	}
	if n.Acquirer != "" {
		fields = append(fields, zap.String("acquirer", string(n.Acquirer)))
	}
	if len(n.Attributes) > 0 {
		fields = append(fields, zap.Any("attributes", n.Attributes))
	}
	logger.Info(ctx, "Notification", fields...)
	return nil
}
