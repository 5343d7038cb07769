package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Patient owns zero or more medical orders. Deleting a patient deletes its
// orders through the foreign key.
type Patient struct {
	ID            string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name          string         `gorm:"type:varchar(255);not null" json:"name"`
	MedicalOrders []MedicalOrder `gorm:"foreignKey:PatientID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"medicalOrders"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// TableName overrides the table name
func (Patient) TableName() string {
	return "patients"
}

// BeforeCreate hook
func (p *Patient) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// MedicalOrder is a free-text order belonging to exactly one patient
type MedicalOrder struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	PatientID string    `gorm:"type:varchar(36);not null;index" json:"patientId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName overrides the table name
func (MedicalOrder) TableName() string {
	return "medical_orders"
}

// BeforeCreate hook
func (o *MedicalOrder) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

// PatientRequest is the create/update payload for a patient
type PatientRequest struct {
	Name string `json:"name"`
}

// MedicalOrderRequest is the create/update payload for a medical order.
// PatientID is ignored on update.
type MedicalOrderRequest struct {
	Message   string `json:"message"`
	PatientID string `json:"patientId"`
}
