package persistence

import (
	"context"

	"course-service/domain/model"
	"course-service/domain/repository"

	"gorm.io/gorm"
)

type MutationAuditRepository struct {
	db *gorm.DB
}

var _ repository.IMutationAudit = (*MutationAuditRepository)(nil)

func NewMutationAuditRepository(db *gorm.DB) *MutationAuditRepository {
	return &MutationAuditRepository{db: db}
}

func (r *MutationAuditRepository) Append(ctx context.Context, audit *model.MutationAudit) error {
	return r.db.WithContext(ctx).Create(audit).Error
}
