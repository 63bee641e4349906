package domain

import (
	"context"
	"time"
)

// AuditEvent is a persistent audit-trail row. Every forced status override
// and every fund-moving remediation writes one.
type AuditEvent struct {
	ID         string
	Actor      string
	Action     string
	EntityType string
	EntityID   string
	OldStatus  string
	NewStatus  string
	Forced     bool
	Detail     string
	CreatedAt  time.Time
}

type AuditRepository interface {
	CreateAuditEvent(ctx context.Context, event *AuditEvent) error
	GetAuditEventsByEntity(ctx context.Context, entityType, entityID string) ([]*AuditEvent, error)
}
