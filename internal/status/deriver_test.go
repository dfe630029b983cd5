package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shield-iot/dashboard/internal/model"
)

func f(v float64) *float64 { return &v }

func TestClassifyThresholdTable(t *testing.T) {
	d := &Deriver{}
	tests := []struct {
		typ   model.SensorType
		value float64
		want  model.SensorStatus
	}{
		{model.TypeHumidity, 0, model.StatusCritical},
		{model.TypeHumidity, 10, model.StatusCritical},
		{model.TypeHumidity, 25, model.StatusWarning},
		{model.TypeHumidity, 50, model.StatusNormal},
		{model.TypeHumidity, 75, model.StatusWarning},
		{model.TypeHumidity, 85, model.StatusCritical},
		{model.TypeHumidity, 100, model.StatusCritical},
		{model.TypeVibration, 0, model.StatusNormal},
		{model.TypeVibration, 19.9, model.StatusNormal},
		{model.TypeVibration, 35, model.StatusWarning},
		{model.TypeVibration, 75, model.StatusCritical},
		{model.TypeVibration, 10000, model.StatusCritical},
		{model.TypeStress, 30, model.StatusNormal},
		{model.TypeStress, 70, model.StatusWarning},
		{model.TypeStress, 95, model.StatusCritical},
		{model.TypeOther, 1e9, model.StatusNormal},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, d.Classify(tt.typ, tt.value), "%s %v", tt.typ, tt.value)
	}
}

func TestClassifySharedEdges(t *testing.T) {
	edges := []struct {
		typ   model.SensorType
		value float64
	}{
		{model.TypeHumidity, 20},
		{model.TypeHumidity, 80},
		{model.TypeVibration, 50},
		{model.TypeStress, 80},
	}

	crit := &Deriver{Rule: CriticalWins}
	warn := &Deriver{Rule: WarningWins}
	for _, e := range edges {
		assert.Equal(t, model.StatusCritical, crit.Classify(e.typ, e.value), "%s %v", e.typ, e.value)
		assert.Equal(t, model.StatusWarning, warn.Classify(e.typ, e.value), "%s %v", e.typ, e.value)
	}

	// off the edge, the rule does not matter
	assert.Equal(t, model.StatusWarning, crit.Classify(model.TypeHumidity, 20.01))
	assert.Equal(t, model.StatusCritical, warn.Classify(model.TypeHumidity, 19.99))
}

func TestDeriveStaleness(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d := &Deriver{Now: func() time.Time { return now }}

	// never reported
	assert.Equal(t, model.StatusOffline, d.Derive(model.TypeHumidity, nil, time.Time{}))

	// fresh reading classifies by value
	assert.Equal(t, model.StatusNormal, d.Derive(model.TypeHumidity, f(50), now.Add(-time.Second)))

	// exactly at the staleness bound is still alive
	assert.Equal(t, model.StatusNormal, d.Derive(model.TypeHumidity, f(50), now.Add(-StaleAfter)))

	// one millisecond past it is offline, whatever the value
	assert.Equal(t, model.StatusOffline, d.Derive(model.TypeHumidity, f(95), now.Add(-StaleAfter-time.Millisecond)))

	// a recent update without a usable value is offline too
	assert.Equal(t, model.StatusOffline, d.Derive(model.TypeHumidity, nil, now.Add(-time.Second)))
}

func TestDeriveIsTotal(t *testing.T) {
	d := &Deriver{Now: func() time.Time { return time.Unix(1000000, 0) }}
	known := map[model.SensorStatus]bool{
		model.StatusOffline:  true,
		model.StatusCritical: true,
		model.StatusWarning:  true,
		model.StatusNormal:   true,
	}
	for _, typ := range []model.SensorType{model.TypeHumidity, model.TypeVibration, model.TypeStress, model.TypeOther} {
		for _, v := range []float64{-50, 0, 20, 30, 50, 60, 79.999, 80, 100, 1e6} {
			got := d.Derive(typ, &v, time.Unix(999999, 0))
			assert.True(t, known[got], "unexpected class %q for %s %v", got, typ, v)
		}
	}
}
