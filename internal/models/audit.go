package models

import (
	"time"

	"github.com/google/uuid"
)

// Severity — уровень важности аудит-события.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AuditEvent — структурированное событие безопасности.
// Email хранится уже замаскированным, секреты сюда не попадают.
type AuditEvent struct {
	Type       string
	Reason     string
	Severity   Severity
	AccountID  uuid.UUID // uuid.Nil, если аккаунт неизвестен
	Email      string
	IP         string
	UserAgent  string
	RequestID  string
	OccurredAt time.Time
}
