// Package telemetry implements the ingestion engine: it accepts raw
// device readings, clamps them into physical bounds, updates device
// and container state, derives the container status and emits
// threshold notifications, all inside one store transaction.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ecofy/backend/pkg/auth"
	"github.com/ecofy/backend/pkg/model"
	"github.com/ecofy/backend/pkg/persistence"
)

// Reading is one inbound sensor report, keyed by the device serial
// number. BatteryLevel is optional: readings from mains-powered units
// omit it, which leaves the stored level untouched and skips the
// battery rules.
type Reading struct {
	SerialNumber string  `json:"serialNumber"`
	FillLevel    float64 `json:"fillLevel"`
	Temperature  float64 `json:"temperature"`
	Tilted       bool    `json:"tilted"`
	BatteryLevel *int    `json:"batteryLevel,omitempty"`
}

// Snapshot is the merged device+container view returned to staff.
type Snapshot struct {
	SerialNumber string    `json:"serialNumber"`
	BatteryLevel int       `json:"batteryLevel"`
	LastSignal   time.Time `json:"lastSignal"`
	FillLevel    float64   `json:"fillLevel"`
	Temperature  float64   `json:"temperature"`
	Tilted       bool      `json:"tilted"`
	LastUpdate   time.Time `json:"lastUpdate"`
}

// Store is the slice of the persistence layer the engine needs.
type Store interface {
	persistence.TelemetryStore
	FindDeviceByID(ctx context.Context, id int64) (*model.Device, error)
	FindContainerByID(ctx context.Context, id int64) (*model.Container, error)
	FindSiteByID(ctx context.Context, id int64) (*model.ContainerSite, error)
}

// Engine holds no state between calls; every invocation works off the
// row values read at the start of its transaction.
type Engine struct {
	store   Store
	log     zerolog.Logger
	metrics *Metrics
	now     func() time.Time
}

func NewEngine(store Store, log zerolog.Logger, metrics *Metrics) *Engine {
	return &Engine{
		store:   store,
		log:     log.With().Str("component", "telemetry").Logger(),
		metrics: metrics,
		now:     time.Now,
	}
}

// Ingest applies one reading. Returns persistence.ErrNotFound for an
// unregistered serial number and persistence.ErrConflict for a device
// with no bound container; either way no state changes.
func (e *Engine) Ingest(ctx context.Context, r Reading) error {
	var emitted int

	err := e.store.ApplyReading(ctx, r.SerialNumber, func(dev *model.Device, cont *model.Container) ([]model.Notification, error) {
		if cont == nil {
			return nil, fmt.Errorf("%w: device %q not bound to container", persistence.ErrConflict, r.SerialNumber)
		}

		now := e.now().UTC()

		fill := ClampFillLevel(r.FillLevel)
		temp := ClampTemperature(r.Temperature)
		if fill != r.FillLevel || temp != r.Temperature {
			e.metrics.Clamped.Inc()
			e.log.Warn().
				Str("serial", r.SerialNumber).
				Float64("fill_level", r.FillLevel).
				Float64("temperature", r.Temperature).
				Msg("reading clamped into physical bounds")
		}

		dev.Status = model.DeviceActive
		dev.LastSignal = now
		var battery *int
		if r.BatteryLevel != nil {
			b := ClampBatteryLevel(*r.BatteryLevel)
			dev.BatteryLevel = b
			battery = &b
		}

		cont.FillLevel = fill
		cont.Temperature = temp
		cont.Tilted = r.Tilted
		cont.LastUpdate = now
		cont.Status = DeriveStatus(fill, r.Tilted, temp)

		alerts := EvaluateRules(fill, r.Tilted, temp, battery)
		notifications := make([]model.Notification, 0, len(alerts))
		for _, a := range alerts {
			containerID := cont.ID
			siteID := cont.SiteID
			notifications = append(notifications, model.Notification{
				Message:     a.Message,
				MessageType: a.Severity,
				CreatedAt:   now,
				ContainerID: &containerID,
				SiteID:      &siteID,
			})
			e.metrics.Alerts.WithLabelValues(a.Severity).Inc()
		}
		emitted = len(notifications)

		return notifications, nil
	})
	if err != nil {
		e.metrics.Rejected.Inc()
		return err
	}

	e.metrics.Readings.Inc()
	e.log.Info().
		Str("serial", r.SerialNumber).
		Int("notifications", emitted).
		Msg("reading ingested")
	return nil
}

// Snapshot returns the merged device+container state. Only admins and
// organizations may read it, and an organization only for devices on
// its own sites.
func (e *Engine) Snapshot(ctx context.Context, deviceID int64, p auth.Principal) (*Snapshot, error) {
	if !p.IsStaff() {
		return nil, auth.ErrForbidden
	}

	dev, err := e.store.FindDeviceByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if dev.ContainerID == nil {
		return nil, fmt.Errorf("%w: device %q not bound to container", persistence.ErrConflict, dev.SerialNumber)
	}

	cont, err := e.store.FindContainerByID(ctx, *dev.ContainerID)
	if err != nil {
		// A stored binding that no longer resolves is store corruption,
		// not a caller mistake; do not let it surface as a 404.
		if errors.Is(err, persistence.ErrNotFound) {
			return nil, fmt.Errorf("device %d bound to missing container %d", deviceID, *dev.ContainerID)
		}
		return nil, fmt.Errorf("resolving bound container %d: %w", *dev.ContainerID, err)
	}

	if p.Role == auth.RoleOrganization {
		site, err := e.store.FindSiteByID(ctx, cont.SiteID)
		if err != nil {
			return nil, fmt.Errorf("resolving container site %d: %w", cont.SiteID, err)
		}
		if site.OrganizationID != p.ID {
			return nil, auth.ErrForbidden
		}
	}

	return &Snapshot{
		SerialNumber: dev.SerialNumber,
		BatteryLevel: dev.BatteryLevel,
		LastSignal:   dev.LastSignal,
		FillLevel:    cont.FillLevel,
		Temperature:  cont.Temperature,
		Tilted:       cont.Tilted,
		LastUpdate:   cont.LastUpdate,
	}, nil
}
