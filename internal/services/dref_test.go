package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"go-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestDrefFromInput_EndDate(t *testing.T) {
	approval := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	d := drefFromInput(models.DrefInput{Title: " Floods ", DateOfApproval: &approval, OperationTimeframe: intPtr(3)})
	d.ComputeEndDate()

	assert.Equal(t, "Floods", d.Title)
	assert.Equal(t, models.DrefStatusDraft, d.Status)
	require.NotNil(t, d.EndDate)
	// time.AddDate normalises 31 April to 1 May.
	assert.Equal(t, time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC), *d.EndDate)
}

func TestDrefFromInput_NoEndDateWithoutTimeframe(t *testing.T) {
	approval := time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC)
	d := drefFromInput(models.DrefInput{Title: "x", DateOfApproval: &approval})
	d.ComputeEndDate()
	assert.Nil(t, d.EndDate)
}

func TestValidateDref(t *testing.T) {
	require.NoError(t, validateDref(models.DrefInput{Title: "Cyclone", Status: models.DrefStatusApproved, TypeOfDref: intPtr(models.DrefTypeLoan)}))

	amount := -5.0
	err := validateDref(models.DrefInput{
		Status:             9,
		TypeOfDref:         intPtr(8),
		TypeOfOnset:        intPtr(3),
		DisasterCategory:   intPtr(5),
		OperationTimeframe: intPtr(-1),
		AmountRequested:    &amount,
	})
	var v *ValidationError
	require.True(t, errors.As(err, &v))
	for _, f := range []string{"title", "status", "type_of_dref", "type_of_onset", "disaster_category", "operation_timeframe", "amount_requested"} {
		assert.Contains(t, v.Fields, f)
	}
}

func TestIsLifecycleError(t *testing.T) {
	assert.True(t, IsLifecycleError(ErrDrefNotApproved))
	assert.True(t, IsLifecycleError(fmt.Errorf("publish: %w", ErrPublished)))
	assert.True(t, IsLifecycleError(ErrFinalReportExists))
	assert.False(t, IsLifecycleError(errors.New("other")))
	assert.False(t, IsLifecycleError(nil))
}
