package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecofy/backend/pkg/model"
)

func TestClampFillLevel(t *testing.T) {
	assert.Equal(t, 0.0, ClampFillLevel(-5))
	assert.Equal(t, 0.0, ClampFillLevel(0))
	assert.Equal(t, 42.5, ClampFillLevel(42.5))
	assert.Equal(t, 100.0, ClampFillLevel(100))
	assert.Equal(t, 100.0, ClampFillLevel(150))
}

func TestClampTemperature(t *testing.T) {
	assert.Equal(t, -40.0, ClampTemperature(-80))
	assert.Equal(t, -40.0, ClampTemperature(-40))
	assert.Equal(t, 21.3, ClampTemperature(21.3))
	assert.Equal(t, 120.0, ClampTemperature(500))
}

func TestClampBatteryLevel(t *testing.T) {
	assert.Equal(t, 0, ClampBatteryLevel(-1))
	assert.Equal(t, 55, ClampBatteryLevel(55))
	assert.Equal(t, 100, ClampBatteryLevel(101))
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name        string
		fillLevel   float64
		tilted      bool
		temperature float64
		want        string
	}{
		{"no tags", 50, false, 20, "active"},
		{"empty", 0, false, 20, "empty"},
		{"overflowing at threshold", 90, false, 20, "overflowing"},
		{"below overflow threshold", 89.9, false, 20, "active"},
		{"tilted", 50, true, 20, "tilted"},
		{"fire risk at threshold", 50, false, 60, "fire-risk"},
		{"below fire risk", 50, false, 59.9, "active"},
		{"tilted and fire risk", 50, true, 75, "tilted,fire-risk"},
		{"overflowing tilted fire risk", 95, true, 80, "overflowing,tilted,fire-risk"},
		{"empty and tilted", 0, true, 20, "empty,tilted"},
		{"empty tilted fire risk", 0, true, 60, "empty,tilted,fire-risk"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.fillLevel, tt.tilted, tt.temperature))
		})
	}
}

func TestDeriveStatusDeterministic(t *testing.T) {
	first := DeriveStatus(92, true, 61)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, DeriveStatus(92, true, 61))
	}
}

func intPtr(v int) *int { return &v }

func TestEvaluateRulesFill(t *testing.T) {
	alerts := EvaluateRules(90, false, 20, nil)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.MessageWarning, alerts[0].Severity)
	assert.Equal(t, "container nearly full", alerts[0].Message)

	assert.Empty(t, EvaluateRules(89.9, false, 20, nil))
}

func TestEvaluateRulesTilt(t *testing.T) {
	alerts := EvaluateRules(10, true, 20, nil)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.MessageCritical, alerts[0].Severity)
	assert.Equal(t, "container tilted", alerts[0].Message)
}

func TestEvaluateRulesTemperatureTiers(t *testing.T) {
	critical := EvaluateRules(10, false, 60, nil)
	require.Len(t, critical, 1)
	assert.Equal(t, model.MessageCritical, critical[0].Severity)
	assert.Equal(t, "critical high temperature in container (60°C)", critical[0].Message)

	elevated := EvaluateRules(10, false, 45, nil)
	require.Len(t, elevated, 1)
	assert.Equal(t, model.MessageWarning, elevated[0].Severity)
	assert.Equal(t, "elevated temperature in container (45°C)", elevated[0].Message)

	assert.Empty(t, EvaluateRules(10, false, 44.9, nil))
}

func TestEvaluateRulesBatteryTiers(t *testing.T) {
	critical := EvaluateRules(10, false, 20, intPtr(10))
	require.Len(t, critical, 1)
	assert.Equal(t, model.MessageCritical, critical[0].Severity)
	assert.Equal(t, "critically low device battery", critical[0].Message)

	low := EvaluateRules(10, false, 20, intPtr(20))
	require.Len(t, low, 1)
	assert.Equal(t, model.MessageWarning, low[0].Severity)
	assert.Equal(t, "low device battery", low[0].Message)

	assert.Empty(t, EvaluateRules(10, false, 20, intPtr(21)))
	assert.Empty(t, EvaluateRules(10, false, 20, nil), "missing battery skips battery rules")
}

func TestEvaluateRulesWorstCase(t *testing.T) {
	// Every rule firing at once yields exactly four alerts: the
	// temperature tiers and battery tiers are mutually exclusive.
	alerts := EvaluateRules(95, true, 70, intPtr(5))
	require.Len(t, alerts, 4)

	severities := map[string]int{}
	for _, a := range alerts {
		severities[a.Severity]++
	}
	assert.Equal(t, 1, severities[model.MessageWarning])
	assert.Equal(t, 3, severities[model.MessageCritical])
}
