package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/pkg/logger"
)

// Recorder is the audit sink used by services. Failures never fail the
// audited operation.
type Recorder interface {
	Record(ctx context.Context, actor *model.Principal, action, entityType string, entityID uuid.UUID, metadata interface{})
}

type AuditLogger struct {
	service *Service
	log     *logger.Logger
}

func NewAuditLogger(service *Service, log *logger.Logger) *AuditLogger {
	return &AuditLogger{
		service: service,
		log:     log,
	}
}

func (l *AuditLogger) Record(ctx context.Context, actor *model.Principal, action, entityType string, entityID uuid.UUID, metadata interface{}) {
	err := l.service.Log(ctx, actor, action, entityType, entityID, &LogOptions{Metadata: metadata})
	if err != nil {
		l.log.Error(err, "failed to write audit log",
			"action", action,
			"entity_type", entityType,
			"entity_id", entityID.String(),
		)
	}
}

// Nop discards every record.
type Nop struct{}

func (Nop) Record(context.Context, *model.Principal, string, string, uuid.UUID, interface{}) {}
