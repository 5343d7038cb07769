package repository_test

import (
	"context"
	"testing"

	"github.com/otcheredev/medorders/internal/database/dbtest"
	"github.com/otcheredev/medorders/internal/models"
	"github.com/otcheredev/medorders/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatientRepository_CRUD(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewPatientRepository(db)
	ctx := context.Background()

	patient := &models.Patient{Name: "Jane Doe"}
	require.NoError(t, repo.Create(ctx, patient))
	require.NotEmpty(t, patient.ID)
	assert.NotNil(t, patient.MedicalOrders)

	got, err := repo.GetByID(ctx, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.Name)
	assert.Empty(t, got.MedicalOrders)

	require.NoError(t, repo.UpdateName(ctx, patient.ID, "Jane Roe"))
	got, err = repo.GetByID(ctx, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Roe", got.Name)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.Delete(ctx, patient.ID))
	_, err = repo.GetByID(ctx, patient.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestPatientRepository_MissingRows(t *testing.T) {
	db := dbtest.New(t)
	repo := repository.NewPatientRepository(db)
	ctx := context.Background()

	assert.ErrorIs(t, repo.UpdateName(ctx, "missing", "x"), repository.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "missing"), repository.ErrNotFound)
}

func TestPatientRepository_DeleteCascadesToOrders(t *testing.T) {
	db := dbtest.New(t)
	patients := repository.NewPatientRepository(db)
	orders := repository.NewOrderRepository(db)
	ctx := context.Background()

	patient := &models.Patient{Name: "Cascade"}
	require.NoError(t, patients.Create(ctx, patient))

	first := &models.MedicalOrder{Message: "CBC", PatientID: patient.ID}
	second := &models.MedicalOrder{Message: "X-ray", PatientID: patient.ID}
	require.NoError(t, orders.Create(ctx, first))
	require.NoError(t, orders.Create(ctx, second))

	got, err := patients.GetByID(ctx, patient.ID)
	require.NoError(t, err)
	require.Len(t, got.MedicalOrders, 2)

	require.NoError(t, patients.Delete(ctx, patient.ID))

	_, err = orders.GetByID(ctx, first.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = orders.GetByID(ctx, second.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	remaining, err := orders.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
