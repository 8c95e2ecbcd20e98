package repository

import (
	"context"

	"gorm.io/gorm"

	"cantine/internal/model"
	pkgerrors "cantine/pkg/errors"
)

// PersonFilter narrows person listings. Empty fields are ignored.
type PersonFilter struct {
	EstablishmentID string
	Type            model.PersonType
	Search          string // matricule prefix or name substring
}

// PersonRepository person data access
type PersonRepository interface {
	Create(ctx context.Context, p *model.Person) error
	GetByID(ctx context.Context, id string) (*model.Person, error)
	GetByMatricule(ctx context.Context, matricule string) (*model.Person, error)
	GetByEmail(ctx context.Context, email string) (*model.Person, error)
	List(ctx context.Context, filter PersonFilter, offset, limit int) ([]model.Person, int64, error)
	// Update writes p when its version still matches; bumps p.Version.
	Update(ctx context.Context, p *model.Person) error
	Delete(ctx context.Context, id string) error
	// UpsertByMatricule inserts p or refreshes the row with the same
	// matricule. p.PersonID is filled in either way.
	UpsertByMatricule(ctx context.Context, p *model.Person) (created bool, err error)
}

type personRepo struct {
	db *gorm.DB
}

// NewPersonRepo creates a PersonRepository.
func NewPersonRepo(db *gorm.DB) PersonRepository {
	return &personRepo{db: db}
}

func (r *personRepo) Create(ctx context.Context, p *model.Person) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *personRepo) GetByID(ctx context.Context, id string) (*model.Person, error) {
	var p model.Person
	err := r.db.WithContext(ctx).
		Preload("Establishment").
		Where("person_id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *personRepo) GetByMatricule(ctx context.Context, matricule string) (*model.Person, error) {
	var p model.Person
	err := r.db.WithContext(ctx).
		Where("matricule = ?", matricule).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *personRepo) GetByEmail(ctx context.Context, email string) (*model.Person, error) {
	var p model.Person
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = LOWER(?)", email).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *personRepo) List(ctx context.Context, filter PersonFilter, offset, limit int) ([]model.Person, int64, error) {
	var persons []model.Person
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Person{})
	if filter.EstablishmentID != "" {
		db = db.Where("establishment_id = ?", filter.EstablishmentID)
	}
	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}
	if filter.Search != "" {
		db = db.Where("matricule LIKE ? OR name ILIKE ?", filter.Search+"%", "%"+filter.Search+"%")
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Establishment").
		Offset(offset).Limit(limit).
		Order("name ASC").
		Find(&persons).Error; err != nil {
		return nil, 0, err
	}

	return persons, total, nil
}

func (r *personRepo) Update(ctx context.Context, p *model.Person) error {
	oldVersion := p.Version
	result := r.db.WithContext(ctx).
		Model(&model.Person{}).
		Where("person_id = ? AND version = ?", p.PersonID, oldVersion).
		Updates(map[string]interface{}{
			"matricule":        p.Matricule,
			"name":             p.Name,
			"email":            p.Email,
			"establishment_id": p.EstablishmentID,
			"type":             p.Type,
			"student_year":     p.StudentYear,
			"updated_by":       p.UpdatedBy,
			"updated_at":       gorm.Expr("NOW()"),
			"version":          oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	p.Version = oldVersion + 1
	return nil
}

func (r *personRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("person_id = ?", id).
		Delete(&model.Person{}).Error
}

const upsertPersonSQL = `
INSERT INTO persons (matricule, name, email, establishment_id, type, student_year, created_by, updated_by)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (matricule) DO UPDATE SET
    name             = EXCLUDED.name,
    email            = CASE WHEN EXCLUDED.email <> '' THEN EXCLUDED.email ELSE persons.email END,
    establishment_id = EXCLUDED.establishment_id,
    type             = EXCLUDED.type,
    student_year     = COALESCE(EXCLUDED.student_year, persons.student_year),
    updated_by       = EXCLUDED.updated_by,
    updated_at       = NOW(),
    version          = persons.version + 1
RETURNING person_id, version, (xmax = 0) AS inserted`

func (r *personRepo) UpsertByMatricule(ctx context.Context, p *model.Person) (bool, error) {
	var row struct {
		PersonID string
		Version  int
		Inserted bool
	}
	err := r.db.WithContext(ctx).
		Raw(upsertPersonSQL,
			p.Matricule, p.Name, p.Email, p.EstablishmentID, p.Type, p.StudentYear,
			p.CreatedBy, p.UpdatedBy).
		Scan(&row).Error
	if err != nil {
		return false, err
	}
	p.PersonID = row.PersonID
	p.Version = row.Version
	return row.Inserted, nil
}
