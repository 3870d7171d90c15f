package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecofy/backend/pkg/model"
)

func seedSiteAndContainer(t *testing.T, store *MemoryStore) (*model.ContainerSite, *model.Container) {
	t.Helper()
	ctx := context.Background()

	orgID := store.AddOrganization(model.Organization{Name: "GreenCity", Email: "ops@greencity.example", Active: true})
	site := &model.ContainerSite{City: "Kyiv", Street: "Khreshchatyk", Building: "12", OrganizationID: orgID}
	require.NoError(t, store.CreateSite(ctx, site))

	cont := &model.Container{Type: "general", Capacity: 1100, Status: "empty", SiteID: site.ID}
	require.NoError(t, store.CreateContainer(ctx, cont))
	return site, cont
}

func TestCreateDeviceDuplicateSerial(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateDevice(ctx, &model.Device{Name: "a", SerialNumber: "SN-001"}))
	err := store.CreateDevice(ctx, &model.Device{Name: "b", SerialNumber: "SN-001"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestFindDeviceBySerialNotFound(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.FindDeviceBySerial(context.Background(), "SN-404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApplyReadingRollsBackOnError(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	_, cont := seedSiteAndContainer(t, store)

	dev := &model.Device{Name: "sensor", SerialNumber: "SN-001", BatteryLevel: 50, Status: model.DeviceInactive, ContainerID: &cont.ID}
	require.NoError(t, store.CreateDevice(ctx, dev))

	boom := errors.New("rule failure")
	err := store.ApplyReading(ctx, "SN-001", func(d *model.Device, c *model.Container) ([]model.Notification, error) {
		d.Status = model.DeviceActive
		c.FillLevel = 99
		return []model.Notification{{Message: "x", MessageType: model.MessageWarning}}, boom
	})
	require.ErrorIs(t, err, boom)

	// The mutations made before the error are not visible.
	got, err := store.FindDeviceBySerial(ctx, "SN-001")
	require.NoError(t, err)
	assert.Equal(t, model.DeviceInactive, got.Status)

	gotCont, err := store.FindContainerByID(ctx, cont.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, gotCont.FillLevel)

	notifications, err := store.ListAllNotifications(ctx)
	require.NoError(t, err)
	assert.Empty(t, notifications)
}

func TestApplyReadingPersistsAtomically(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	site, cont := seedSiteAndContainer(t, store)

	dev := &model.Device{Name: "sensor", SerialNumber: "SN-001", ContainerID: &cont.ID}
	require.NoError(t, store.CreateDevice(ctx, dev))

	err := store.ApplyReading(ctx, "SN-001", func(d *model.Device, c *model.Container) ([]model.Notification, error) {
		d.Status = model.DeviceActive
		c.FillLevel = 91
		c.Status = "overflowing"
		siteID := site.ID
		return []model.Notification{{Message: "container nearly full", MessageType: model.MessageWarning, SiteID: &siteID}}, nil
	})
	require.NoError(t, err)

	gotCont, err := store.FindContainerByID(ctx, cont.ID)
	require.NoError(t, err)
	assert.Equal(t, 91.0, gotCont.FillLevel)
	assert.Equal(t, "overflowing", gotCont.Status)

	notifications, err := store.ListAllNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.NotZero(t, notifications[0].ID)
}

func TestApplyReadingUnboundPassesNilContainer(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateDevice(ctx, &model.Device{Name: "sensor", SerialNumber: "SN-002"}))

	var sawNil bool
	err := store.ApplyReading(ctx, "SN-002", func(_ *model.Device, c *model.Container) ([]model.Notification, error) {
		sawNil = c == nil
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, sawNil)
}

func TestDeleteSiteRefusedWhileReferenced(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	site, cont := seedSiteAndContainer(t, store)

	err := store.DeleteSite(ctx, site.ID)
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, store.DeleteContainer(ctx, cont.ID))
	require.NoError(t, store.CreatePickup(ctx, &model.Pickup{ScheduledTime: time.Now(), SiteID: site.ID}))

	err = store.DeleteSite(ctx, site.ID)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCompletePickupResetsSiteContainers(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	site, cont := seedSiteAndContainer(t, store)

	fill := 88.0
	_, err := store.UpdateContainer(ctx, cont.ID, model.ContainerPatch{FillLevel: &fill})
	require.NoError(t, err)

	pickup := &model.Pickup{ScheduledTime: time.Now().UTC(), SiteID: site.ID}
	require.NoError(t, store.CreatePickup(ctx, pickup))

	completedAt := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.CompletePickup(ctx, pickup.ID, completedAt))

	got, err := store.FindContainerByID(ctx, cont.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.FillLevel)
	assert.Equal(t, "empty", got.Status)
	assert.Equal(t, completedAt, got.LastUpdate)
}

func TestUpdateUserDuplicateEmail(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	a := &model.User{FirstName: "A", LastName: "A", Email: "a@example.com"}
	b := &model.User{FirstName: "B", LastName: "B", Email: "b@example.com"}
	require.NoError(t, store.CreateUser(ctx, a))
	require.NoError(t, store.CreateUser(ctx, b))

	taken := "a@example.com"
	_, err := store.UpdateUser(ctx, b.ID, model.UserPatch{Email: &taken})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestListUsersByCityCaseInsensitive(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, &model.User{FirstName: "A", LastName: "A", Email: "a@example.com", City: "Kyiv"}))
	require.NoError(t, store.CreateUser(ctx, &model.User{FirstName: "B", LastName: "B", Email: "b@example.com", City: "kyiv"}))
	require.NoError(t, store.CreateUser(ctx, &model.User{FirstName: "C", LastName: "C", Email: "c@example.com", City: "Lviv"}))

	users, err := store.ListUsersByCity(ctx, "KYIV")
	require.NoError(t, err)
	assert.Len(t, users, 2)
}
