package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/otcheredev/medorders/internal/models"
	"github.com/otcheredev/medorders/internal/services"
)

// PatientHandler serves the patient endpoints
type PatientHandler struct {
	patientService *services.PatientService
}

// NewPatientHandler creates a new patient handler
func NewPatientHandler(patientService *services.PatientService) *PatientHandler {
	return &PatientHandler{
		patientService: patientService,
	}
}

// List returns all patients with their orders
func (h *PatientHandler) List(w http.ResponseWriter, r *http.Request) {
	patients, err := h.patientService.ListPatients(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to list patients")
		return
	}
	writeJSON(w, http.StatusOK, patients)
}

// Get returns one patient with its orders
func (h *PatientHandler) Get(w http.ResponseWriter, r *http.Request) {
	patient, err := h.patientService.GetPatient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Failed to get patient")
		return
	}
	writeJSON(w, http.StatusOK, patient)
}

// Create creates a patient and points Location at it
func (h *PatientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.PatientRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	patient, err := h.patientService.CreatePatient(r.Context(), &req)
	if err != nil {
		writeError(w, r, err, "Failed to create patient")
		return
	}

	w.Header().Set("Location", "/api/patients/"+patient.ID)
	writeJSON(w, http.StatusCreated, patient)
}

// Update renames a patient
func (h *PatientHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.PatientRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	patient, err := h.patientService.UpdatePatient(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		writeError(w, r, err, "Failed to update patient")
		return
	}
	writeJSON(w, http.StatusOK, patient)
}

// Delete removes a patient together with its orders
func (h *PatientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.patientService.DeletePatient(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, "Failed to delete patient")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
