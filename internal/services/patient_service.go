package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/otcheredev/medorders/internal/cache"
	"github.com/otcheredev/medorders/internal/models"
	"github.com/otcheredev/medorders/internal/repository"
	"github.com/rs/zerolog/log"
)

const minVersionTTL = 24 * time.Hour

// PatientService handles patients and their medical orders
type PatientService struct {
	patients *repository.PatientRepository
	orders   *repository.OrderRepository
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewPatientService creates a new patient service. c may be nil, which
// disables read caching.
func NewPatientService(
	patients *repository.PatientRepository,
	orders *repository.OrderRepository,
	c cache.Cache,
	cacheTTL time.Duration,
) *PatientService {
	return &PatientService{
		patients: patients,
		orders:   orders,
		cache:    c,
		cacheTTL: cacheTTL,
	}
}

// ListPatients returns every patient with its orders
func (s *PatientService) ListPatients(ctx context.Context) ([]models.Patient, error) {
	return s.patients.List(ctx)
}

// GetPatient returns one patient with its orders
func (s *PatientService) GetPatient(ctx context.Context, id string) (*models.Patient, error) {
	version, cacheable := s.patientVersion(ctx, id)
	if cacheable {
		if patient, ok := s.cachedPatient(ctx, id, version); ok {
			return patient, nil
		}
	}

	patient, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if cacheable {
		s.storePatient(ctx, patient, version)
	}
	return patient, nil
}

// CreatePatient creates a patient. Any id or orders in the request are
// ignored.
func (s *PatientService) CreatePatient(ctx context.Context, req *models.PatientRequest) (*models.Patient, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalid("Name is required")
	}

	patient := &models.Patient{Name: req.Name}
	if err := s.patients.Create(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

// UpdatePatient renames a patient and returns its new state
func (s *PatientService) UpdatePatient(ctx context.Context, id string, req *models.PatientRequest) (*models.Patient, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, invalid("Name is required")
	}

	if err := s.patients.UpdateName(ctx, id, req.Name); err != nil {
		return nil, err
	}
	s.invalidate(ctx, id)

	return s.patients.GetByID(ctx, id)
}

// DeletePatient removes a patient and, through the store, all its orders
func (s *PatientService) DeletePatient(ctx context.Context, id string) error {
	if err := s.patients.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// ListOrders returns every medical order
func (s *PatientService) ListOrders(ctx context.Context) ([]models.MedicalOrder, error) {
	return s.orders.List(ctx)
}

// ListPatientOrders returns the orders of one patient. A patient without
// orders, known or not, is reported as ErrNotFound.
func (s *PatientService) ListPatientOrders(ctx context.Context, patientID string) ([]models.MedicalOrder, error) {
	orders, err := s.orders.ListByPatientID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrNotFound
	}
	return orders, nil
}

// GetOrder returns one medical order
func (s *PatientService) GetOrder(ctx context.Context, id string) (*models.MedicalOrder, error) {
	return s.orders.GetByID(ctx, id)
}

// CreateOrder attaches a new order to an existing patient
func (s *PatientService) CreateOrder(ctx context.Context, req *models.MedicalOrderRequest) (*models.MedicalOrder, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, invalid("Message is required")
	}
	if req.PatientID == "" {
		return nil, invalid("PatientId is required")
	}

	order := &models.MedicalOrder{
		Message:   req.Message,
		PatientID: req.PatientID,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		if errors.Is(err, repository.ErrPatientNotFound) {
			return nil, invalid("Patient not found")
		}
		return nil, err
	}
	s.invalidate(ctx, order.PatientID)
	return order, nil
}

// UpdateOrder changes the message of an order. The owning patient never
// changes.
func (s *PatientService) UpdateOrder(ctx context.Context, id string, req *models.MedicalOrderRequest) (*models.MedicalOrder, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, invalid("Message is required")
	}

	if err := s.orders.UpdateMessage(ctx, id, req.Message); err != nil {
		return nil, err
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, order.PatientID)
	return order, nil
}

// DeleteOrder removes a medical order
func (s *PatientService) DeleteOrder(ctx context.Context, id string) error {
	order, err := s.orders.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.invalidate(ctx, order.PatientID)
	return nil
}

// cachedPatientEntry tags a cached patient with the version token that was
// current before the store was read
type cachedPatientEntry struct {
	Version string          `json:"version"`
	Patient *models.Patient `json:"patient"`
}

// patientVersion reads the current version token. The second result is
// false when the cache is off or unreadable, in which case nothing is
// cached for this read.
func (s *PatientService) patientVersion(ctx context.Context, id string) (string, bool) {
	if s.cache == nil {
		return "", false
	}

	data, err := s.cache.Get(ctx, cache.PatientVersionKey(id))
	switch {
	case err == nil:
		return string(data), true
	case errors.Is(err, cache.ErrCacheMiss):
		return "", true
	default:
		log.Warn().Err(err).Str("patient_id", id).Msg("Patient cache version read failed")
		return "", false
	}
}

func (s *PatientService) cachedPatient(ctx context.Context, id, version string) (*models.Patient, bool) {
	data, err := s.cache.Get(ctx, cache.PatientKey(id))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn().Err(err).Str("patient_id", id).Msg("Patient cache read failed")
		}
		return nil, false
	}

	var entry cachedPatientEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.Patient == nil {
		log.Warn().Err(err).Str("patient_id", id).Msg("Discarding undecodable cached patient")
		return nil, false
	}
	if entry.Version != version {
		return nil, false
	}
	return entry.Patient, true
}

// storePatient caches patient under the version read before the store was
// queried. A write that lands in between moves the version on, so the entry
// written here is never served.
func (s *PatientService) storePatient(ctx context.Context, patient *models.Patient, version string) {
	data, err := json.Marshal(cachedPatientEntry{Version: version, Patient: patient})
	if err != nil {
		log.Warn().Err(err).Str("patient_id", patient.ID).Msg("Failed to encode patient for cache")
		return
	}
	if err := s.cache.Set(ctx, cache.PatientKey(patient.ID), data, s.cacheTTL); err != nil {
		log.Warn().Err(err).Str("patient_id", patient.ID).Msg("Patient cache write failed")
	}
}

// invalidate moves the patient's version on and drops the cached entry.
// Called after the store write has committed.
func (s *PatientService) invalidate(ctx context.Context, patientID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cache.PatientVersionKey(patientID), []byte(uuid.NewString()), s.versionTTL()); err != nil {
		log.Warn().Err(err).Str("patient_id", patientID).Msg("Patient cache version bump failed")
	}
	if err := s.cache.Delete(ctx, cache.PatientKey(patientID)); err != nil {
		log.Warn().Err(err).Str("patient_id", patientID).Msg("Patient cache invalidation failed")
	}
}

// versionTTL keeps version tokens well past the life of any entry tagged
// with an older token
func (s *PatientService) versionTTL() time.Duration {
	if ttl := 2 * s.cacheTTL; ttl > minVersionTTL {
		return ttl
	}
	return minVersionTTL
}
