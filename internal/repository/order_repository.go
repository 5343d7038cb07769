package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/otcheredev/medorders/internal/models"
	"gorm.io/gorm"
)

// OrderRepository handles medical order database operations
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new medical order repository
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create creates a new order. A missing patient is reported by the foreign
// key as ErrPatientNotFound.
func (r *OrderRepository) Create(ctx context.Context, order *models.MedicalOrder) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return ErrPatientNotFound
		}
		return fmt.Errorf("failed to create medical order: %w", err)
	}
	return nil
}

// List retrieves every order
func (r *OrderRepository) List(ctx context.Context) ([]models.MedicalOrder, error) {
	orders := []models.MedicalOrder{}
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list medical orders: %w", err)
	}
	return orders, nil
}

// ListByPatientID retrieves the orders of one patient
func (r *OrderRepository) ListByPatientID(ctx context.Context, patientID string) ([]models.MedicalOrder, error) {
	orders := []models.MedicalOrder{}
	if err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at ASC").
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list medical orders: %w", err)
	}
	return orders, nil
}

// GetByID retrieves an order by id
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.MedicalOrder, error) {
	var order models.MedicalOrder
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get medical order: %w", err)
	}
	return &order, nil
}

// UpdateMessage changes the message of an order in a single statement
func (r *OrderRepository) UpdateMessage(ctx context.Context, id, message string) error {
	result := r.db.WithContext(ctx).
		Model(&models.MedicalOrder{}).
		Where("id = ?", id).
		Update("message", message)
	if result.Error != nil {
		return fmt.Errorf("failed to update medical order: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an order and returns it so callers can see which patient
// it belonged to
func (r *OrderRepository) Delete(ctx context.Context, id string) (*models.MedicalOrder, error) {
	var deleted models.MedicalOrder
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&deleted).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.MedicalOrder{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete medical order: %w", err)
	}
	return &deleted, nil
}
