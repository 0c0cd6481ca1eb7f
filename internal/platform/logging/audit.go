package logging

import (
	"context"

	"go.uber.org/zap"
)

// Audit results.
const (
	AuditSuccess = "success"
	AuditFailure = "failure"
)

// AuditEvent describes one mutation of an owner-scoped resource.
type AuditEvent struct {
	Action       string // create, update, delete, create_from_template
	OwnerID      string
	ResourceType string
	ResourceID   string
	Result       string
	// Details must only carry audit-safe values such as error categories.
	Details map[string]any
}

// LogAuditEvent writes a structured audit entry through the request logger.
func LogAuditEvent(ctx context.Context, ev AuditEvent) {
	fields := []zap.Field{
		zap.String("audit.action", ev.Action),
		zap.String("audit.owner_id", ev.OwnerID),
		zap.String("audit.resource_type", ev.ResourceType),
		zap.String("audit.resource_id", ev.ResourceID),
		zap.String("audit.result", ev.Result),
	}
	if len(ev.Details) > 0 {
		fields = append(fields, zap.Any("audit.details", ev.Details))
	}
	LoggerFromContext(ctx).Info("Audit event", fields...)
}
