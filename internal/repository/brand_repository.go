package repository

import (
	"strings"

	"github.com/yukikurage/brand-task-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBrandRepository is a GORM implementation of BrandRepository
type GormBrandRepository struct {
	db *gorm.DB
}

// NewBrandRepository creates a new BrandRepository
func NewBrandRepository(db *gorm.DB) BrandRepository {
	return &GormBrandRepository{db: db}
}

// Create creates a new brand
func (r *GormBrandRepository) Create(brand *models.Brand) error {
	return r.db.Create(brand).Error
}

// FindByID finds a brand by ID
func (r *GormBrandRepository) FindByID(id uint64) (*models.Brand, error) {
	var brand models.Brand
	if err := r.db.First(&brand, id).Error; err != nil {
		return nil, err
	}
	return &brand, nil
}

// FindByNaturalKey finds a brand by owner, name and company
func (r *GormBrandRepository) FindByNaturalKey(ownerID uint64, name, company string) (*models.Brand, error) {
	var brand models.Brand
	if err := r.db.
		Where("owner_id = ? AND name = ? AND company = ?", ownerID, name, company).
		First(&brand).Error; err != nil {
		return nil, err
	}
	return &brand, nil
}

// List retrieves brands matching the filter, newest first
func (r *GormBrandRepository) List(filter BrandFilter) ([]models.Brand, error) {
	var brands []models.Brand

	query := r.db.Model(&models.Brand{})
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(company) LIKE ? OR LOWER(description) LIKE ?", like, like, like)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Company != "" {
		query = query.Where("company = ?", filter.Company)
	}

	if err := query.Order("created_at DESC").Find(&brands).Error; err != nil {
		return nil, err
	}
	return brands, nil
}

// Modify loads the brand with a row lock, applies fn and saves every column in
// the same transaction. An error from fn rolls back and is returned unchanged.
func (r *GormBrandRepository) Modify(id uint64, fn func(tx BrandRepository, brand *models.Brand) error) (*models.Brand, error) {
	var brand models.Brand
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&brand, id).Error; err != nil {
			return err
		}
		if err := fn(&GormBrandRepository{db: tx}, &brand); err != nil {
			return err
		}
		return tx.Save(&brand).Error
	})
	if err != nil {
		return nil, err
	}
	return &brand, nil
}

// Delete deletes a brand and, when cascade is set, all related task data
func (r *GormBrandRepository) Delete(id uint64, cascade bool) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if cascade {
			var taskIDs []uint64
			if err := tx.Model(&models.Task{}).Where("brand_id = ?", id).Pluck("id", &taskIDs).Error; err != nil {
				return err
			}
			if len(taskIDs) > 0 {
				if err := deleteTaskDependents(tx, taskIDs); err != nil {
					return err
				}
				if err := tx.Where("id IN ?", taskIDs).Delete(&models.Task{}).Error; err != nil {
					return err
				}
			}
		}

		return tx.Delete(&models.Brand{}, id).Error
	})
}
