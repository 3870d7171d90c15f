package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecofy/backend/pkg/auth"
	"github.com/ecofy/backend/pkg/model"
	"github.com/ecofy/backend/pkg/persistence"
)

type fixture struct {
	store  *persistence.MemoryStore
	engine *Engine
	orgID  int64
	site   *model.ContainerSite
	cont   *model.Container
	dev    *model.Device
}

// newFixture seeds an organization, site, container and a device bound
// to the container (serial SN-001), plus an unbound device SN-002.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := persistence.NewMemoryStore()

	orgID := store.AddOrganization(model.Organization{Name: "GreenCity", Email: "ops@greencity.example", Active: true})

	site := &model.ContainerSite{City: "Kyiv", Street: "Khreshchatyk", Building: "12", OrganizationID: orgID}
	require.NoError(t, store.CreateSite(ctx, site))

	cont := &model.Container{Type: "general", Capacity: 1100, Status: "empty", SiteID: site.ID}
	require.NoError(t, store.CreateContainer(ctx, cont))

	dev := &model.Device{Name: "sensor-1", SerialNumber: "SN-001", BatteryLevel: 80, Status: model.DeviceInactive, ContainerID: &cont.ID}
	require.NoError(t, store.CreateDevice(ctx, dev))

	unbound := &model.Device{Name: "sensor-2", SerialNumber: "SN-002", Status: model.DeviceInactive}
	require.NoError(t, store.CreateDevice(ctx, unbound))

	engine := NewEngine(store, zerolog.Nop(), NewMetrics(prometheus.NewRegistry()))
	return &fixture{store: store, engine: engine, orgID: orgID, site: site, cont: cont, dev: dev}
}

func TestIngestUnknownSerial(t *testing.T) {
	f := newFixture(t)

	err := f.engine.Ingest(context.Background(), Reading{SerialNumber: "SN-999", FillLevel: 10})
	assert.ErrorIs(t, err, persistence.ErrNotFound)
}

func TestIngestUnboundDevice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.engine.Ingest(ctx, Reading{SerialNumber: "SN-002", FillLevel: 95, Tilted: true})
	assert.ErrorIs(t, err, persistence.ErrConflict)

	// Nothing changed and no notifications were emitted.
	dev, findErr := f.store.FindDeviceBySerial(ctx, "SN-002")
	require.NoError(t, findErr)
	assert.Equal(t, model.DeviceInactive, dev.Status)
	assert.True(t, dev.LastSignal.IsZero())

	notifications, listErr := f.store.ListAllNotifications(ctx)
	require.NoError(t, listErr)
	assert.Empty(t, notifications)
}

func TestIngestUpdatesDeviceAndContainer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f.engine.now = func() time.Time { return now }

	battery := 72
	err := f.engine.Ingest(ctx, Reading{
		SerialNumber: "SN-001",
		FillLevel:    40,
		Temperature:  18,
		Tilted:       false,
		BatteryLevel: &battery,
	})
	require.NoError(t, err)

	dev, err := f.store.FindDeviceBySerial(ctx, "SN-001")
	require.NoError(t, err)
	assert.Equal(t, model.DeviceActive, dev.Status)
	assert.Equal(t, 72, dev.BatteryLevel)
	assert.Equal(t, now, dev.LastSignal)

	cont, err := f.store.FindContainerByID(ctx, f.cont.ID)
	require.NoError(t, err)
	assert.Equal(t, 40.0, cont.FillLevel)
	assert.Equal(t, 18.0, cont.Temperature)
	assert.False(t, cont.Tilted)
	assert.Equal(t, "active", cont.Status)
	assert.Equal(t, now, cont.LastUpdate)

	// Nothing crossed a threshold.
	notifications, err := f.store.ListAllNotifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, notifications)
}

func TestIngestMissingBatteryLeavesLevel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.engine.Ingest(ctx, Reading{SerialNumber: "SN-001", FillLevel: 30, Temperature: 15})
	require.NoError(t, err)

	dev, err := f.store.FindDeviceBySerial(ctx, "SN-001")
	require.NoError(t, err)
	assert.Equal(t, 80, dev.BatteryLevel, "stored battery level untouched")

	notifications, err := f.store.ListAllNotifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, notifications, "battery rules skipped without a reading")
}

func TestIngestClampsOutOfRangeValues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	battery := 150
	err := f.engine.Ingest(ctx, Reading{
		SerialNumber: "SN-001",
		FillLevel:    130,
		Temperature:  -95,
		BatteryLevel: &battery,
	})
	require.NoError(t, err)

	cont, err := f.store.FindContainerByID(ctx, f.cont.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, cont.FillLevel)
	assert.Equal(t, -40.0, cont.Temperature)
	assert.Equal(t, "overflowing", cont.Status)

	dev, err := f.store.FindDeviceBySerial(ctx, "SN-001")
	require.NoError(t, err)
	assert.Equal(t, 100, dev.BatteryLevel)
}

func TestIngestEmitsThresholdNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	battery := 15
	err := f.engine.Ingest(ctx, Reading{
		SerialNumber: "SN-001",
		FillLevel:    92,
		Temperature:  20,
		BatteryLevel: &battery,
	})
	require.NoError(t, err)

	notifications, err := f.store.ListAllNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, notifications, 2)

	for _, n := range notifications {
		assert.Equal(t, model.MessageWarning, n.MessageType)
		require.NotNil(t, n.ContainerID)
		assert.Equal(t, f.cont.ID, *n.ContainerID)
		require.NotNil(t, n.SiteID)
		assert.Equal(t, f.site.ID, *n.SiteID)
		assert.Nil(t, n.UserID)
	}
}

func TestIngestNoDeduplication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := f.engine.Ingest(ctx, Reading{SerialNumber: "SN-001", FillLevel: 95, Temperature: 20})
		require.NoError(t, err)
	}

	notifications, err := f.store.ListAllNotifications(ctx)
	require.NoError(t, err)
	assert.Len(t, notifications, 3, "identical readings each emit their own notification")
}

func TestIngestConcurrentReadingsStayConsistent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			defer wg.Done()
			v := float64(i + 1)
			err := f.engine.Ingest(ctx, Reading{SerialNumber: "SN-001", FillLevel: v, Temperature: v})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// Writes serialize: whichever reading committed last, its fill level
	// and temperature land together.
	cont, err := f.store.FindContainerByID(ctx, f.cont.ID)
	require.NoError(t, err)
	assert.Equal(t, cont.FillLevel, cont.Temperature, "container state mixes two readings")
	assert.Equal(t, DeriveStatus(cont.FillLevel, cont.Tilted, cont.Temperature), cont.Status)
}

func TestSnapshotRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.Snapshot(ctx, f.dev.ID, auth.Principal{Role: auth.RoleUser, ID: 1})
	assert.ErrorIs(t, err, auth.ErrForbidden)

	_, err = f.engine.Snapshot(ctx, f.dev.ID, auth.Principal{Role: auth.RoleOrganization, ID: f.orgID + 100})
	assert.ErrorIs(t, err, auth.ErrForbidden)

	snap, err := f.engine.Snapshot(ctx, f.dev.ID, auth.Principal{Role: auth.RoleOrganization, ID: f.orgID})
	require.NoError(t, err)
	assert.Equal(t, "SN-001", snap.SerialNumber)

	snap, err = f.engine.Snapshot(ctx, f.dev.ID, auth.Principal{Role: auth.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, 80, snap.BatteryLevel)
}

func TestSnapshotUnboundDevice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	unbound, err := f.store.FindDeviceBySerial(ctx, "SN-002")
	require.NoError(t, err)

	_, err = f.engine.Snapshot(ctx, unbound.ID, auth.Principal{Role: auth.RoleAdmin})
	assert.ErrorIs(t, err, persistence.ErrConflict)
}

func TestSnapshotMergesDeviceAndContainer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	battery := 64
	require.NoError(t, f.engine.Ingest(ctx, Reading{
		SerialNumber: "SN-001",
		FillLevel:    55,
		Temperature:  22,
		Tilted:       true,
		BatteryLevel: &battery,
	}))

	snap, err := f.engine.Snapshot(ctx, f.dev.ID, auth.Principal{Role: auth.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, 64, snap.BatteryLevel)
	assert.Equal(t, 55.0, snap.FillLevel)
	assert.Equal(t, 22.0, snap.Temperature)
	assert.True(t, snap.Tilted)
}
