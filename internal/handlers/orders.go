package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/otcheredev/medorders/internal/models"
	"github.com/otcheredev/medorders/internal/services"
)

// OrderHandler serves the medical order endpoints
type OrderHandler struct {
	patientService *services.PatientService
}

// NewOrderHandler creates a new medical order handler
func NewOrderHandler(patientService *services.PatientService) *OrderHandler {
	return &OrderHandler{
		patientService: patientService,
	}
}

// List returns every medical order
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.patientService.ListOrders(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to list medical orders")
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// ListByPatient returns the orders of one patient, or 404 when it has none
func (h *OrderHandler) ListByPatient(w http.ResponseWriter, r *http.Request) {
	orders, err := h.patientService.ListPatientOrders(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Failed to list patient medical orders")
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// Get returns one medical order
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.patientService.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Failed to get medical order")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Create attaches a new order to an existing patient
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.MedicalOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.patientService.CreateOrder(r.Context(), &req)
	if err != nil {
		writeError(w, r, err, "Failed to create medical order")
		return
	}

	w.Header().Set("Location", "/api/medicalorders/"+order.ID)
	writeJSON(w, http.StatusCreated, order)
}

// Update changes only the message; the owning patient is fixed at creation
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.MedicalOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.patientService.UpdateOrder(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		writeError(w, r, err, "Failed to update medical order")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Delete removes a medical order
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.patientService.DeleteOrder(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, "Failed to delete medical order")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
