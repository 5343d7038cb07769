package services

import (
	"context"

	"github.com/otcheredev/medorders/internal/models"
	"github.com/otcheredev/medorders/internal/repository"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
)

// AuditService reads persisted audit entries
type AuditService struct {
	auditRepo *repository.AuditRepository
}

// NewAuditService creates a new audit service
func NewAuditService(auditRepo *repository.AuditRepository) *AuditService {
	return &AuditService{auditRepo: auditRepo}
}

// UserActivity returns a user's requests, newest first. Entries exist only
// while audit persistence is enabled.
func (s *AuditService) UserActivity(ctx context.Context, userID string, limit, offset int) ([]models.AuditLog, error) {
	if limit < 0 || offset < 0 {
		return nil, invalid("limit and offset must not be negative")
	}
	if limit == 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	return s.auditRepo.GetByUserID(ctx, userID, limit, offset)
}
