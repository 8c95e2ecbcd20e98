package repository

import (
	"context"

	"gorm.io/gorm"

	"cantine/internal/model"
)

// ImportJobRepository import history data access
type ImportJobRepository interface {
	Create(ctx context.Context, job *model.ImportJob) error
	List(ctx context.Context, offset, limit int) ([]model.ImportJob, int64, error)
}

type importJobRepo struct {
	db *gorm.DB
}

// NewImportJobRepo creates an ImportJobRepository.
func NewImportJobRepo(db *gorm.DB) ImportJobRepository {
	return &importJobRepo{db: db}
}

func (r *importJobRepo) Create(ctx context.Context, job *model.ImportJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *importJobRepo) List(ctx context.Context, offset, limit int) ([]model.ImportJob, int64, error) {
	var jobs []model.ImportJob
	var total int64

	db := r.db.WithContext(ctx).Model(&model.ImportJob{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&jobs).Error; err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}
