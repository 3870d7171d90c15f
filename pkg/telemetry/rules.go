package telemetry

import (
	"fmt"
	"strings"

	"github.com/ecofy/backend/pkg/model"
)

// Physical bounds. Out-of-range readings are clamped, never rejected:
// a malformed sensor value degrades into a valid bound instead of
// dropping the whole reading.
const (
	FillLevelMin = 0
	FillLevelMax = 100

	TemperatureMin = -40
	TemperatureMax = 120

	BatteryLevelMin = 0
	BatteryLevelMax = 100
)

// Alert thresholds.
const (
	FillOverflowThreshold = 90
	TemperatureFireRisk   = 60
	TemperatureElevated   = 45
	BatteryCriticalMax    = 10
	BatteryLowMax         = 20
)

// Container status tags, appended in fixed evaluation order.
const (
	StatusEmpty       = "empty"
	StatusOverflowing = "overflowing"
	StatusTilted      = "tilted"
	StatusFireRisk    = "fire-risk"
	StatusActive      = "active"
)

// ClampFillLevel bounds a fill-level reading to [0, 100].
func ClampFillLevel(v float64) float64 {
	return clamp(v, FillLevelMin, FillLevelMax)
}

// ClampTemperature bounds a temperature reading to [-40, 120].
func ClampTemperature(v float64) float64 {
	return clamp(v, TemperatureMin, TemperatureMax)
}

// ClampBatteryLevel bounds a battery-level reading to [0, 100].
func ClampBatteryLevel(v int) int {
	if v < BatteryLevelMin {
		return BatteryLevelMin
	}
	if v > BatteryLevelMax {
		return BatteryLevelMax
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DeriveStatus recomputes the container's composite status string from
// already-clamped field values. Tags are evaluated in fixed order so
// the output is deterministic; identical inputs always yield an
// identical string.
func DeriveStatus(fillLevel float64, tilted bool, temperature float64) string {
	var tags []string
	if fillLevel == 0 {
		tags = append(tags, StatusEmpty)
	}
	if fillLevel >= FillOverflowThreshold {
		tags = append(tags, StatusOverflowing)
	}
	if tilted {
		tags = append(tags, StatusTilted)
	}
	if temperature >= TemperatureFireRisk {
		tags = append(tags, StatusFireRisk)
	}
	if len(tags) == 0 {
		return StatusActive
	}
	return strings.Join(tags, ",")
}

// Alert is one threshold-rule hit, pending insertion as a notification.
type Alert struct {
	Severity string
	Message  string
}

// EvaluateRules runs every threshold rule against clamped values and
// returns the alerts to emit. The fill and tilt rules are independent;
// the temperature tiers are mutually exclusive, as are the battery
// tiers, so a single reading yields at most four alerts. battery is
// nil when the reading carried no battery level, which skips the
// battery rules entirely.
func EvaluateRules(fillLevel float64, tilted bool, temperature float64, battery *int) []Alert {
	var alerts []Alert

	if fillLevel >= FillOverflowThreshold {
		alerts = append(alerts, Alert{
			Severity: model.MessageWarning,
			Message:  "container nearly full",
		})
	}

	if tilted {
		alerts = append(alerts, Alert{
			Severity: model.MessageCritical,
			Message:  "container tilted",
		})
	}

	switch {
	case temperature >= TemperatureFireRisk:
		alerts = append(alerts, Alert{
			Severity: model.MessageCritical,
			Message:  fmt.Sprintf("critical high temperature in container (%.0f°C)", temperature),
		})
	case temperature >= TemperatureElevated:
		alerts = append(alerts, Alert{
			Severity: model.MessageWarning,
			Message:  fmt.Sprintf("elevated temperature in container (%.0f°C)", temperature),
		})
	}

	if battery != nil {
		switch {
		case *battery <= BatteryCriticalMax:
			alerts = append(alerts, Alert{
				Severity: model.MessageCritical,
				Message:  "critically low device battery",
			})
		case *battery <= BatteryLowMax:
			alerts = append(alerts, Alert{
				Severity: model.MessageWarning,
				Message:  "low device battery",
			})
		}
	}

	return alerts
}
