package services

import (
	"testing"

	"go-api/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillReadiness(t *testing.T) {
	rows := []models.ERUReadiness{
		{Type: models.ERULogistics, Units: 4, EquipmentUnits: 2, Available: 3, Deployed: 1},
	}

	out := FillReadiness(rows)
	require.Len(t, out, len(models.ERUTypeLabels))
	for i, r := range out {
		assert.Equal(t, i, r.Type)
		assert.Equal(t, models.ERUTypeLabels[i], r.Label)
	}
	assert.Equal(t, 4, out[models.ERULogistics].Units)
	assert.Equal(t, 3, out[models.ERULogistics].Available)
	assert.Zero(t, out[models.ERUBasecamp].Units)
}
