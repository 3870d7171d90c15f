package model

import "time"

// Vehicle is a collection truck belonging to an organization.
type Vehicle struct {
	ID             int64  `json:"vehicleId"`
	Name           string `json:"vehicleName"`
	NumberPlate    string `json:"numberPlate"`
	OrganizationID int64  `json:"organizationId"`
}

// Pickup is a scheduled waste collection run at a container site.
// CompletedTime stays nil until the run is finished; completing a
// pickup resets every container at its site.
type Pickup struct {
	ID            int64      `json:"pickupId"`
	ScheduledTime time.Time  `json:"scheduledTime"`
	CompletedTime *time.Time `json:"completedTime,omitempty"`
	SiteID        int64      `json:"containerSiteId"`
	VehicleID     *int64     `json:"vehicleId,omitempty"`
}

// PickupStatistics aggregates pickup counts for a period.
type PickupStatistics struct {
	TotalPickups     int64 `json:"totalPickups"`
	CompletedPickups int64 `json:"completedPickups"`
}

// Disposal request lifecycle states.
const (
	RequestPending   = "pending"
	RequestAccepted  = "accepted"
	RequestRejected  = "rejected"
	RequestCompleted = "completed"
)

// DisposalRequest is a client company's request to an organization to
// take a quantity of waste.
type DisposalRequest struct {
	ID               int64     `json:"requestId"`
	WasteType        string    `json:"wasteType"`
	WasteDescription string    `json:"wasteDescription,omitempty"`
	AmountKg         float64   `json:"amountKg"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	Status           string    `json:"status"`
	OrganizationID   int64     `json:"organizationId"`
	ClientID         int64     `json:"clientId"`
}
