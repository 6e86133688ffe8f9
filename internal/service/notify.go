package service

import (
	"context"

	"github.com/apex-pos/api/internal/events"
	"github.com/apex-pos/api/internal/logger"
	"github.com/apex-pos/api/internal/metrics"
	"go.uber.org/zap"
)

// notify publishes e after a commit. Failures are logged and counted; the
// committed change stands.
func notify(ctx context.Context, pub events.Publisher, m *metrics.Metrics, e events.Event) {
	if pub == nil {
		return
	}
	if err := pub.Publish(context.WithoutCancel(ctx), e); err != nil {
		logger.FromContext(ctx).Warn("publish event failed",
			zap.String("type", string(e.Type)),
			zap.String("company_id", e.CompanyID.String()),
			zap.Error(err),
		)
		m.PublishFailed(string(e.Type))
	}
}
