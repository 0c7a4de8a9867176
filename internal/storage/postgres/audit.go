package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/pribylovaa/go-session-auth/internal/models"
)

// SaveAuditEvent добавляет событие в append-only таблицу audit_events.
func (s *Storage) SaveAuditEvent(ctx context.Context, e *models.AuditEvent) error {
	const op = "storage.postgres.SaveAuditEvent"

	query := `
        INSERT INTO audit_events(type, reason, severity, account_id, email, ip, user_agent, request_id, occurred_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `

	var accountID *uuid.UUID
	if e.AccountID != uuid.Nil {
		accountID = &e.AccountID
	}

	_, err := s.db.Exec(ctx, query,
		e.Type,
		e.Reason,
		string(e.Severity),
		accountID,
		e.Email,
		e.IP,
		e.UserAgent,
		e.RequestID,
		e.OccurredAt,
	)
	if err != nil {
		return mapError(op, err)
	}

	return nil
}
