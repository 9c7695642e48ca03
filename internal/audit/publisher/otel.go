// Package publisher streams audit records to OpenTelemetry logs and Kafka.
package publisher

import (
	"context"

	otellog "go.opentelemetry.io/otel/log"

	"library-service/backend/internal/audit/domain"
)

const instrumentationName = "library-service/audit"

// OTelPublisher emits audit records as OTel log records.
type OTelPublisher struct {
	logger otellog.Logger
}

// NewOTelPublisher returns a publisher using provider. A nil provider yields nil, which callers skip.
func NewOTelPublisher(provider otellog.LoggerProvider) *OTelPublisher {
	if provider == nil {
		return nil
	}
	return &OTelPublisher{logger: provider.Logger(instrumentationName)}
}

// Publish converts rec into a log record and emits it.
func (p *OTelPublisher) Publish(ctx context.Context, rec *domain.Record) error {
	if p == nil || rec == nil {
		return nil
	}
	var r otellog.Record
	r.SetTimestamp(rec.Timestamp)
	r.SetBody(otellog.StringValue(rec.Action))
	if rec.Success {
		r.SetSeverity(otellog.SeverityInfo)
	} else {
		r.SetSeverity(otellog.SeverityWarn)
	}
	r.AddAttributes(
		otellog.String("audit.id", rec.ID),
		otellog.String("audit.action", rec.Action),
		otellog.String("audit.entity_type", rec.EntityType),
		otellog.String("audit.username", rec.Username),
		otellog.String("client.address", rec.IPAddress),
		otellog.String("user_agent.original", rec.UserAgent),
		otellog.Bool("audit.success", rec.Success),
	)
	if rec.EntityID != nil {
		r.AddAttributes(otellog.Int64("audit.entity_id", *rec.EntityID))
	}
	if rec.ErrorMessage != nil {
		r.AddAttributes(otellog.String("audit.error_message", *rec.ErrorMessage))
	}
	p.logger.Emit(ctx, r)
	return nil
}
