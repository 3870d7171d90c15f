package reporting

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecofy/backend/pkg/model"
)

func TestBuildRouteSheetOrdersAndFilters(t *testing.T) {
	vehicleID := int64(4)
	otherVehicle := int64(9)
	vehicle := &model.Vehicle{ID: vehicleID, Name: "Truck 7", NumberPlate: "AA1234BB", OrganizationID: 1}

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	at := func(hour int) time.Time { return day.Add(time.Duration(hour) * time.Hour) }
	completed := at(8)

	sites := map[int64]*model.ContainerSite{
		1: {ID: 1, City: "Kyiv", Street: "Khreshchatyk", Building: "12"},
		2: {ID: 2, City: "Kyiv", Street: "Velyka Vasylkivska", Building: "7", Entrance: "2"},
	}
	pickups := []*model.Pickup{
		{ID: 10, ScheduledTime: at(14), SiteID: 2, VehicleID: &vehicleID},
		{ID: 11, ScheduledTime: at(9), SiteID: 1, VehicleID: &vehicleID, CompletedTime: &completed},
		{ID: 12, ScheduledTime: at(10), SiteID: 1, VehicleID: &otherVehicle},
		{ID: 13, ScheduledTime: at(30), SiteID: 1, VehicleID: &vehicleID},
		{ID: 14, ScheduledTime: at(11), SiteID: 1, VehicleID: nil},
	}

	sheet := BuildRouteSheet(vehicle, day, pickups, sites)

	assert.Equal(t, "2025-06-01", sheet.Date)
	assert.Equal(t, "AA1234BB", sheet.NumberPlate)
	require.Len(t, sheet.Points, 2, "other vehicles, unassigned and out-of-day pickups are skipped")

	assert.Equal(t, 1, sheet.Points[0].Order)
	assert.Equal(t, int64(11), sheet.Points[0].PickupID)
	assert.True(t, sheet.Points[0].Completed)
	assert.Equal(t, "Kyiv, Khreshchatyk 12", sheet.Points[0].Address)

	assert.Equal(t, 2, sheet.Points[1].Order)
	assert.Equal(t, int64(10), sheet.Points[1].PickupID)
	assert.Equal(t, "Kyiv, Velyka Vasylkivska 7, entrance 2", sheet.Points[1].Address)
}

func TestBuildWasteTransferAct(t *testing.T) {
	updated := time.Date(2025, 7, 15, 10, 30, 0, 0, time.UTC)
	request := &model.DisposalRequest{
		ID: 21, WasteType: "plastic", WasteDescription: "PET bottles",
		AmountKg: 340, Status: model.RequestCompleted, UpdatedAt: updated,
	}
	org := &model.Organization{Name: "GreenCity", EDRPOU: "12345678", City: "Kyiv", Street: "Peremohy", Building: "1"}
	client := &model.ClientCompany{Name: "Acme Waste", EDRPOU: "87654321", PhoneNumber: "+380441234567"}

	act := BuildWasteTransferAct(request, org, client)

	assert.Equal(t, "WTA-21-20250715", act.ActNumber)
	assert.Equal(t, "2025-07-15", act.Date)
	assert.Equal(t, "Acme Waste", act.Transferor.Name)
	assert.Empty(t, act.Transferor.Address)
	assert.Equal(t, "GreenCity", act.Receiver.Name)
	assert.Equal(t, "Kyiv, Peremohy 1", act.Receiver.Address)
	assert.Equal(t, 340.0, act.AmountKg)
	assert.Equal(t, model.RequestCompleted, act.RequestStatus)
}
