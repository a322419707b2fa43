package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

type requestInfoKey struct{}

type requestInfo struct {
	ip        string
	userAgent string
}

// WithRequestInfo attaches the caller's address and user agent to ctx.
func WithRequestInfo(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, requestInfoKey{}, requestInfo{ip: ip, userAgent: userAgent})
}

type Service struct {
	repo repository.AuditRepository
}

func NewService(repo repository.AuditRepository) *Service {
	return &Service{repo: repo}
}

type LogOptions struct {
	Metadata  interface{}
	IPAddress string
	UserAgent string
}

// Log creates an audit log entry. actor may be nil for anonymous actions
// such as failed logins.
func (s *Service) Log(ctx context.Context, actor *model.Principal, action, entityType string, entityID uuid.UUID, opts *LogOptions) error {
	if opts == nil {
		opts = &LogOptions{}
	}

	var metadata json.RawMessage
	if opts.Metadata != nil {
		var err error
		if metadata, err = json.Marshal(opts.Metadata); err != nil {
			return fmt.Errorf("failed to marshal audit metadata: %w", err)
		}
	}

	ipAddress, userAgent := opts.IPAddress, opts.UserAgent
	if info, ok := ctx.Value(requestInfoKey{}).(requestInfo); ok && ipAddress == "" {
		ipAddress = info.ip
		userAgent = info.userAgent
	}

	log := &model.AuditLog{
		ID:         uuid.New(),
		Action:     action,
		EntityType: entityType,
		Metadata:   metadata,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		CreatedAt:  time.Now().UTC(),
	}
	if actor != nil {
		id := actor.AccountID
		log.AccountID = &id
		log.Role = string(actor.Role)
	}
	if entityID != uuid.Nil {
		log.EntityID = &entityID
	}

	return s.repo.Create(ctx, log)
}

func (s *Service) ListWithPagination(ctx context.Context, filters model.AuditFilters) ([]*model.AuditLog, int, error) {
	return s.repo.ListWithPagination(ctx, filters)
}

func (s *Service) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	return s.repo.DeleteBefore(ctx, before)
}
