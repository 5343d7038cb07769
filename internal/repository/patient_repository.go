package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/otcheredev/medorders/internal/models"
	"gorm.io/gorm"
)

// PatientRepository handles patient database operations
type PatientRepository struct {
	db *gorm.DB
}

// NewPatientRepository creates a new patient repository
func NewPatientRepository(db *gorm.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

// Create creates a new patient
func (r *PatientRepository) Create(ctx context.Context, patient *models.Patient) error {
	if err := r.db.WithContext(ctx).Omit("MedicalOrders").Create(patient).Error; err != nil {
		return fmt.Errorf("failed to create patient: %w", err)
	}
	if patient.MedicalOrders == nil {
		patient.MedicalOrders = []models.MedicalOrder{}
	}
	return nil
}

// List retrieves all patients with their orders
func (r *PatientRepository) List(ctx context.Context) ([]models.Patient, error) {
	patients := []models.Patient{}
	if err := r.db.WithContext(ctx).
		Preload("MedicalOrders", orderedByCreation).
		Order("created_at ASC").
		Find(&patients).Error; err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	for i := range patients {
		if patients[i].MedicalOrders == nil {
			patients[i].MedicalOrders = []models.MedicalOrder{}
		}
	}
	return patients, nil
}

// GetByID retrieves a patient and its orders
func (r *PatientRepository) GetByID(ctx context.Context, id string) (*models.Patient, error) {
	var patient models.Patient
	if err := r.db.WithContext(ctx).
		Preload("MedicalOrders", orderedByCreation).
		Where("id = ?", id).
		First(&patient).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	if patient.MedicalOrders == nil {
		patient.MedicalOrders = []models.MedicalOrder{}
	}
	return &patient, nil
}

// UpdateName renames a patient in a single statement
func (r *PatientRepository) UpdateName(ctx context.Context, id, name string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Patient{}).
		Where("id = ?", id).
		Update("name", name)
	if result.Error != nil {
		return fmt.Errorf("failed to update patient: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a patient. Its orders go with it via ON DELETE CASCADE.
func (r *PatientRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Patient{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete patient: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func orderedByCreation(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC")
}
