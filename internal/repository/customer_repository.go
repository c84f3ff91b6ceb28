package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"crm-pipeline-api/internal/domain"
)

// CustomerRepository defines the record store operations on the customers table
type CustomerRepository interface {
	FindAll(ctx context.Context) ([]*domain.Customer, error)
	Create(ctx context.Context, customer *domain.Customer) error
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*domain.Customer, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// customerRepositoryImpl is the GORM implementation of CustomerRepository
type customerRepositoryImpl struct {
	db *gorm.DB
}

// NewCustomerRepository creates a new GORM backed CustomerRepository
func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepositoryImpl{db: db}
}

// FindAll returns every customer in creation order
func (r *customerRepositoryImpl) FindAll(ctx context.Context) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&customers).Error; err != nil {
		return nil, translateGormError(err)
	}
	return customers, nil
}

// Create inserts a customer
func (r *customerRepositoryImpl) Create(ctx context.Context, customer *domain.Customer) error {
	if err := r.db.WithContext(ctx).Create(customer).Error; err != nil {
		return translateGormError(err)
	}
	return nil
}

// Update applies a partial update and returns the stored row
func (r *customerRepositoryImpl) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) (*domain.Customer, error) {
	var customer domain.Customer
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Customer{}).Where("id = ?", id).Updates(fields)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("id = ?", id).First(&customer).Error
	})
	if err != nil {
		return nil, translateGormError(err)
	}
	return &customer, nil
}

// Delete hard deletes a customer
func (r *customerRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Customer{})
	if result.Error != nil {
		return translateGormError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
