package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }
func intPtr(v int) *int       { return &v }

func TestDevicePatchApply(t *testing.T) {
	d := Device{Name: "sensor-1", SerialNumber: "SN-001", BatteryLevel: 50, Status: DeviceInactive}

	DevicePatch{Name: strPtr("sensor-renamed"), BatteryLevel: intPtr(80)}.Apply(&d)

	assert.Equal(t, "sensor-renamed", d.Name)
	assert.Equal(t, 80, d.BatteryLevel)
	assert.Equal(t, "SN-001", d.SerialNumber)
	assert.Equal(t, DeviceInactive, d.Status, "absent fields stay untouched")
}

func TestDevicePatchBindsContainer(t *testing.T) {
	d := Device{SerialNumber: "SN-001"}
	containerID := int64(5)

	DevicePatch{ContainerID: &containerID}.Apply(&d)

	assert.NotNil(t, d.ContainerID)
	assert.Equal(t, int64(5), *d.ContainerID)
}

func TestContainerPatchApply(t *testing.T) {
	c := Container{Type: "general", Capacity: 1100, FillLevel: 40, Status: "active"}

	ContainerPatch{Capacity: intPtr(2400), Status: strPtr("empty")}.Apply(&c)

	assert.Equal(t, 2400, c.Capacity)
	assert.Equal(t, "empty", c.Status)
	assert.Equal(t, "general", c.Type)
	assert.Equal(t, 40.0, c.FillLevel)
}

func TestUserPatchApply(t *testing.T) {
	u := User{FirstName: "Olena", LastName: "Shevchenko", Email: "olena@example.com", City: "Kyiv"}

	UserPatch{City: strPtr("Lviv"), PhoneNumber: strPtr("+380501234567")}.Apply(&u)

	assert.Equal(t, "Lviv", u.City)
	assert.Equal(t, "+380501234567", u.PhoneNumber)
	assert.Equal(t, "olena@example.com", u.Email)
}

func TestEmptyPatchIsNoOp(t *testing.T) {
	s := ContainerSite{City: "Kyiv", Street: "Khreshchatyk", Building: "12", OrganizationID: 3}
	original := s

	ContainerSitePatch{}.Apply(&s)

	assert.Equal(t, original, s)
}
