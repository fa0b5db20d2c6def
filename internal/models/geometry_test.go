package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeoPoint_ValueScanRoundTrip(t *testing.T) {
	p := NewGeoPoint(36.8219, -1.2921)

	v, err := p.Value()
	require.NoError(t, err)

	var got GeoPoint
	require.NoError(t, got.Scan(v))
	assert.True(t, got.Valid)
	assert.InDelta(t, 36.8219, got.Lng(), 1e-9)
	assert.InDelta(t, -1.2921, got.Lat(), 1e-9)
}

func TestGeoPoint_ScanNull(t *testing.T) {
	p := NewGeoPoint(1, 2)
	require.NoError(t, p.Scan(nil))
	assert.False(t, p.Valid)

	v, err := p.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestGeoPoint_JSON(t *testing.T) {
	b, err := json.Marshal(NewGeoPoint(10, 20))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Point","coordinates":[10,20]}`, string(b))

	var fromGeoJSON GeoPoint
	require.NoError(t, json.Unmarshal([]byte(`{"type":"Point","coordinates":[-70.5,18.2]}`), &fromGeoJSON))
	assert.Equal(t, -70.5, fromGeoJSON.Lng())
	assert.Equal(t, 18.2, fromGeoJSON.Lat())

	var fromPair GeoPoint
	require.NoError(t, json.Unmarshal([]byte(`{"lng":3,"lat":4}`), &fromPair))
	assert.Equal(t, NewGeoPoint(3, 4), fromPair)

	var bad GeoPoint
	assert.Error(t, json.Unmarshal([]byte(`{"type":"LineString","coordinates":[[0,0],[1,1]]}`), &bad))
}

func TestGeoPoint_Validate(t *testing.T) {
	tests := []struct {
		name    string
		give    GeoPoint
		wantErr bool
	}{
		{name: "ok", give: NewGeoPoint(120, -45)},
		{name: "missing", give: GeoPoint{}, wantErr: true},
		{name: "lng out of range", give: NewGeoPoint(181, 0), wantErr: true},
		{name: "lat out of range", give: NewGeoPoint(0, -91), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.give.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
