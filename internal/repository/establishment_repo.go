package repository

import (
	"context"

	"gorm.io/gorm"

	"cantine/internal/model"
)

// EstablishmentRepository establishment data access
type EstablishmentRepository interface {
	Create(ctx context.Context, est *model.Establishment) error
	GetByID(ctx context.Context, id string) (*model.Establishment, error)
	GetByName(ctx context.Context, name string) (*model.Establishment, error)
	List(ctx context.Context) ([]model.Establishment, error)
	Update(ctx context.Context, est *model.Establishment) error
	Delete(ctx context.Context, id string) error
	CountPersons(ctx context.Context, id string) (int64, error)
}

type establishmentRepo struct {
	db *gorm.DB
}

// NewEstablishmentRepo creates an EstablishmentRepository.
func NewEstablishmentRepo(db *gorm.DB) EstablishmentRepository {
	return &establishmentRepo{db: db}
}

func (r *establishmentRepo) Create(ctx context.Context, est *model.Establishment) error {
	return r.db.WithContext(ctx).Create(est).Error
}

func (r *establishmentRepo) GetByID(ctx context.Context, id string) (*model.Establishment, error) {
	var est model.Establishment
	err := r.db.WithContext(ctx).
		Where("establishment_id = ?", id).
		First(&est).Error
	if err != nil {
		return nil, err
	}
	return &est, nil
}

func (r *establishmentRepo) GetByName(ctx context.Context, name string) (*model.Establishment, error) {
	var est model.Establishment
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&est).Error
	if err != nil {
		return nil, err
	}
	return &est, nil
}

func (r *establishmentRepo) List(ctx context.Context) ([]model.Establishment, error) {
	var ests []model.Establishment
	err := r.db.WithContext(ctx).
		Order("name ASC").
		Find(&ests).Error
	return ests, err
}

func (r *establishmentRepo) Update(ctx context.Context, est *model.Establishment) error {
	return r.db.WithContext(ctx).
		Model(est).
		Where("establishment_id = ?", est.EstablishmentID).
		Updates(map[string]interface{}{
			"name":       est.Name,
			"updated_by": est.UpdatedBy,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *establishmentRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("establishment_id = ?", id).
		Delete(&model.Establishment{}).Error
}

func (r *establishmentRepo) CountPersons(ctx context.Context, id string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Person{}).
		Where("establishment_id = ?", id).
		Count(&count).Error
	return count, err
}
