package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/internal/repository"
)

type auditRepository struct {
	BaseRepository
}

func NewAuditRepository(base BaseRepository) repository.AuditRepository {
	return &auditRepository{base}
}

func (r *auditRepository) Create(ctx context.Context, log *model.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, account_id, role, action, entity_type, entity_id,
			metadata, ip_address, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	var metadata interface{}
	if len(log.Metadata) > 0 {
		metadata = []byte(log.Metadata)
	}

	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.AccountID,
		log.Role,
		log.Action,
		log.EntityType,
		log.EntityID,
		metadata,
		log.IPAddress,
		log.UserAgent,
		log.CreatedAt,
	)
	return translate(err, "create audit log")
}

func (r *auditRepository) ListWithPagination(ctx context.Context, filters model.AuditFilters) ([]*model.AuditLog, int, error) {
	where, args := " WHERE 1=1", []interface{}{}

	if filters.AccountID != nil {
		args = append(args, *filters.AccountID)
		where += fmt.Sprintf(" AND account_id = $%d", len(args))
	}
	if filters.EntityType != "" {
		args = append(args, filters.EntityType)
		where += fmt.Sprintf(" AND entity_type = $%d", len(args))
	}
	if filters.EntityID != nil {
		args = append(args, *filters.EntityID)
		where += fmt.Sprintf(" AND entity_id = $%d", len(args))
	}
	if filters.Action != "" {
		args = append(args, filters.Action)
		where += fmt.Sprintf(" AND action = $%d", len(args))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM audit_logs`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to get total count: %w", err)
	}

	query, args := paginate(`
		SELECT id, account_id, role, action, entity_type, entity_id,
			metadata, ip_address, user_agent, created_at
		FROM audit_logs`+where+` ORDER BY created_at DESC`,
		args, filters.Limit, filters.Offset,
	)

	logs := []*model.AuditLog{}
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}

	return logs, total, nil
}

func (r *auditRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup audit logs: %w", err)
	}
	return result.RowsAffected()
}
